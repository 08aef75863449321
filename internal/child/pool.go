package child

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Resolver locates the command/args to spawn for a documentation
// language, consulting the configuration layer's forbidden-format and
// language-server lookup rules. ok is false when no usable server is
// configured for lang.
type Resolver func(lang string) (command string, args []string, ok bool)

// Pool owns at most one Handle per language, spawning children lazily and
// serving them to concurrent callers. Changing the handle map (inserting a
// spawned handle, Install, Clear) takes the write lock; lookups and
// BroadcastChange take only a read lock (BroadcastChange releases it
// before sending), favoring the common case of many concurrent position
// requests against already-running children.
type Pool struct {
	rootURI  string
	resolve  Resolver
	group    singleflight.Group

	mu      sync.RWMutex
	handles map[string]*Handle

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// NewPool builds an empty pool. resolve is consulted every time a
// language has no running child yet.
func NewPool(rootURI string, resolve Resolver) *Pool {
	return &Pool{
		rootURI:  rootURI,
		resolve:  resolve,
		handles:  make(map[string]*Handle),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Get returns the already-running handle for lang, if any, without
// spawning one.
func (p *Pool) Get(lang string) (*Handle, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.handles[lang]
	return h, ok
}

// GetOrCreate returns the running handle for lang, spawning one if
// necessary. Concurrent callers requesting the same language collapse
// into a single spawn via singleflight. virtualURI/initialContent are
// only used the first time lang is spawned.
func (p *Pool) GetOrCreate(ctx context.Context, lang, virtualURI, initialContent string) (*Handle, error) {
	if h, ok := p.Get(lang); ok {
		return h, nil
	}

	result, err, _ := p.group.Do(lang, func() (any, error) {
		if h, ok := p.Get(lang); ok {
			return h, nil
		}

		if !p.allowSpawnAttempt(lang) {
			return nil, fmt.Errorf("child: too many recent spawn attempts for %q, backing off", lang)
		}

		command, args, ok := p.resolve(lang)
		if !ok {
			return nil, fmt.Errorf("child: no language server configured for %q", lang)
		}

		h, err := Spawn(ctx, lang, command, args, p.rootURI, virtualURI, initialContent)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.handles[lang] = h
		p.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Handle), nil
}

// Install registers h as the running handle for lang, bypassing resolve
// and Spawn. It exists for tests that need GetOrCreate (and everything
// built on it) to reach a fake responding child instead of a real
// process; production code always goes through GetOrCreate.
func (p *Pool) Install(lang string, h *Handle) {
	p.mu.Lock()
	p.handles[lang] = h
	p.mu.Unlock()
}

// allowSpawnAttempt rate-limits repeated spawn attempts for a language
// whose child keeps failing to start (missing binary, crashing on
// launch), so a flood of requests for an unconfigured language doesn't
// repeatedly fork/exec.
func (p *Pool) allowSpawnAttempt(lang string) bool {
	p.limiterMu.Lock()
	limiter, ok := p.limiters[lang]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Second), 1)
		p.limiters[lang] = limiter
	}
	p.limiterMu.Unlock()
	return limiter.Allow()
}

// BroadcastChange pushes an updated virtual document to every currently
// running child named in contents, completing all of them before
// returning. Callers must not dispatch a position request for a language
// whose content just changed until this returns, or the child may answer
// against stale text.
func (p *Pool) BroadcastChange(contents map[string]string) error {
	p.mu.RLock()
	targets := make([]*Handle, 0, len(contents))
	for lang := range contents {
		if h, ok := p.handles[lang]; ok {
			targets = append(targets, h)
		}
	}
	p.mu.RUnlock()

	var firstErr error
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, h := range targets {
		content := contents[h.Lang]
		wg.Add(1)
		go func(h *Handle, content string) {
			defer wg.Done()
			if err := h.DidChange(content); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("child: broadcast change to %q: %w", h.Lang, err)
				}
				mu.Unlock()
			}
		}(h, content)
	}
	wg.Wait()
	return firstErr
}

// Languages returns the languages with a currently running child.
func (p *Pool) Languages() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.handles))
	for lang := range p.handles {
		out = append(out, lang)
	}
	return out
}

// Clear shuts down every running child and empties the pool.
func (p *Pool) Clear() {
	p.mu.Lock()
	handles := p.handles
	p.handles = make(map[string]*Handle)
	p.mu.Unlock()

	for _, h := range handles {
		_ = h.Close()
	}
}
