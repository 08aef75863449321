// Package literate implements the request-forwarding engine: given a
// position inside the single open documentation file, it finds which
// fenced language owns that position, projects that language's virtual
// document, forwards the (coordinate-translated) request to that
// language's child server, and translates the response back.
package literate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/tliron/commonlog"

	"literate-ls/internal/child"
	"literate-ls/internal/config"
	"literate-ls/internal/document"
	"literate-ls/internal/fence"
	"literate-ls/internal/position"
	"literate-ls/internal/virtualdoc"
)

var log = commonlog.GetLogger("literate")

// Server orchestrates one open documentation file and the pool of child
// servers serving its fenced languages.
type Server struct {
	store    *document.Store
	pool     *child.Pool
	resolver *config.Resolver

	// debugDump gates the "write the synthetic buffer to
	// <tmpdir>/virtual.<lang> on every request" behavior. It is a
	// debugging artifact that shouldn't run in the hot path by default;
	// it is enabled only when the server is started at debug log level
	// (see DESIGN.md).
	debugDump bool

	mu       sync.Mutex
	triggers map[string][]string
}

// New builds a Server over an (initially empty) document store, a child
// pool, and a configuration resolver. debugDump enables the optional
// per-request virtual-document dump to the OS temp directory.
func New(store *document.Store, pool *child.Pool, resolver *config.Resolver, debugDump bool) *Server {
	return &Server{
		store:     store,
		pool:      pool,
		resolver:  resolver,
		debugDump: debugDump,
		triggers:  make(map[string][]string),
	}
}

// Open records a newly opened outer document.
func (s *Server) Open(uri, text string, version int32) {
	s.store.Open(uri, text, version)
}

// Close clears the tracked document if uri matches it.
func (s *Server) Close(uri string) {
	s.store.Close(uri)
}

// Shutdown clears every running child. Process reclamation is
// best-effort and non-blocking, left to child.Handle.Close/the OS
// rather than awaited here.
func (s *Server) Shutdown() {
	s.pool.Clear()
}

// Save re-broadcasts the outer document's current text to every running
// child, for a didSave that carries its own text snapshot (some clients
// send includeText even without an intervening didChange). The tracked
// version is left untouched.
func (s *Server) Save(ctx context.Context, uri, text string) error {
	snap, ok := s.store.Current()
	if !ok || snap.URI != uri {
		return nil
	}
	return s.Change(ctx, uri, text, snap.Version)
}

// Change updates the tracked document's content and pushes the new
// virtual-document projection to every currently running child,
// completing all of them before returning (so a position request issued
// right after never races a stale child).
func (s *Server) Change(ctx context.Context, uri, text string, version int32) error {
	s.store.Update(uri, text, version)

	scanner := fence.New(text)
	langs := scanner.Languages()
	if len(langs) == 0 {
		return nil
	}

	contents := make(map[string]string, len(langs))
	for _, lang := range langs {
		if _, running := s.pool.Get(lang); !running {
			continue
		}
		contents[lang] = virtualdoc.Build(text, lang).Content
	}
	if len(contents) == 0 {
		return nil
	}
	return s.pool.BroadcastChange(contents)
}

// CompletionTriggerCharacters returns the union of every trigger
// character learned so far from any child's completionProvider
// capability.
func (s *Server) CompletionTriggerCharacters() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	for _, chars := range s.triggers {
		for _, c := range chars {
			seen[c] = true
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (s *Server) cacheTriggers(lang string, chars []string) {
	if len(chars) == 0 {
		return
	}
	s.mu.Lock()
	s.triggers[lang] = chars
	s.mu.Unlock()
}

// ensureChild gets or spawns the child for lang, caching its completion
// triggers on first spawn.
func (s *Server) ensureChild(ctx context.Context, lang, virtualURI, content string) (*child.Handle, error) {
	h, err := s.pool.GetOrCreate(ctx, lang, virtualURI, content)
	if err != nil {
		return nil, err
	}
	s.cacheTriggers(lang, h.TriggerCharacters())
	return h, nil
}

// shouldSkipLanguage reports whether a fence of blockLang inside a
// document whose own language is docLang should be refused, to avoid
// literate-ls ending up as a child of itself.
func shouldSkipLanguage(docLang, blockLang string) bool {
	return docLang != "" && docLang == blockLang
}

// decodeResult turns raw (a JSON-RPC "result" payload) into a generic
// value rewrite.Positions/References can walk, treating a missing/empty
// payload as JSON null.
func decodeResult(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("literate: decode child result: %w", err)
	}
	return v, nil
}

// rewriteResultURIs replaces the "uri" field of a Location (or array of
// Locations) with outerURI, undoing the virtual-document URI the child
// answered with.
func rewriteResultURIs(result any, outerURI string) {
	switch v := result.(type) {
	case map[string]any:
		if _, ok := v["uri"]; ok {
			v["uri"] = outerURI
		}
	case []any:
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				if _, has := obj["uri"]; has {
					obj["uri"] = outerURI
				}
			}
		}
	}
}

func mapperFor(content, lang string) (virtualdoc.Document, *position.Mapper) {
	vdoc := virtualdoc.Build(content, lang)
	return vdoc, position.New(vdoc.Blocks)
}
