// Package child manages one language server process per documentation
// language: spawning it, running the LSP handshake, and keeping its copy
// of the virtual document current as the outer document changes.
package child

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"literate-ls/internal/transport"
)

var log = commonlog.GetLogger("child")

// Handle owns one spawned child language server: its process, its
// framed-JSON-RPC connection, and the capabilities it reported on
// initialize.
type Handle struct {
	Lang      string
	SessionID string

	cmd  *exec.Cmd
	conn *transport.Conn

	mu           sync.Mutex
	capabilities map[string]any
	triggers     []string
	version      int32
	virtualURI   string
}

// Spawn starts command with args, performs the initialize/initialized
// handshake against rootURI, and opens virtualURI as the child's sole
// document (the projected virtual document for lang). On any failure the
// process is killed and a descriptive error returned, mirroring the
// reference implementation's stage-by-stage spawn/initialize/did_open
// sequence.
func Spawn(ctx context.Context, lang, command string, args []string, rootURI, virtualURI, initialContent string) (*Handle, error) {
	sessionID := uuid.NewString()
	log.Debugf("[%s] spawning child for %s: %s %v", sessionID, lang, command, args)

	cmd := exec.CommandContext(ctx, command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("child: stdin pipe for %s: %w", lang, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("child: stdout pipe for %s: %w", lang, err)
	}
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("child: failed to spawn %s for %s: %w", command, lang, err)
	}

	h := &Handle{
		Lang:       lang,
		SessionID:  sessionID,
		cmd:        cmd,
		conn:       transport.New(stdin, stdout),
		virtualURI: virtualURI,
		version:    1,
	}

	if err := h.initialize(ctx, rootURI); err != nil {
		h.kill()
		return nil, fmt.Errorf("child: initialize %s for %s: %w", command, lang, err)
	}

	if err := h.didOpen(lang, initialContent); err != nil {
		h.kill()
		return nil, fmt.Errorf("child: did_open %s for %s: %w", command, lang, err)
	}

	log.Infof("[%s] child ready for %s", sessionID, lang)
	return h, nil
}

func (h *Handle) initialize(ctx context.Context, rootURI string) error {
	params := map[string]any{
		"processId": os.Getpid(),
		"rootUri":   rootURI,
		"capabilities": map[string]any{
			"textDocument": map[string]any{
				"synchronization": map[string]any{"didSave": true},
			},
		},
	}

	result, err := h.conn.Call(ctx, "initialize", params)
	if err != nil {
		return err
	}

	var decoded struct {
		Capabilities map[string]any `json:"capabilities"`
	}
	if err := json.Unmarshal(result, &decoded); err == nil {
		h.mu.Lock()
		h.capabilities = decoded.Capabilities
		h.triggers = extractTriggerCharacters(decoded.Capabilities)
		h.mu.Unlock()
	}

	return h.conn.Notify("initialized", map[string]any{})
}

func extractTriggerCharacters(capabilities map[string]any) []string {
	cp, ok := capabilities["completionProvider"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := cp["triggerCharacters"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (h *Handle) didOpen(languageID, content string) error {
	return h.conn.Notify("textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{
			"uri":        h.virtualURI,
			"languageId": languageID,
			"version":    1,
			"text":       content,
		},
	})
}

// DidChange pushes a new full-text version of the virtual document to the
// child.
func (h *Handle) DidChange(content string) error {
	h.mu.Lock()
	h.version++
	version := h.version
	h.mu.Unlock()

	return h.conn.Notify("textDocument/didChange", map[string]any{
		"textDocument": map[string]any{
			"uri":     h.virtualURI,
			"version": version,
		},
		"contentChanges": []map[string]any{
			{"text": content},
		},
	})
}

// SendRequest forwards method/params to the child verbatim and returns its
// raw result.
func (h *Handle) SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return h.conn.Call(ctx, method, params)
}

// Capabilities returns the server capabilities object the child reported
// on initialize, or nil if none was understood.
func (h *Handle) Capabilities() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.capabilities
}

// TriggerCharacters returns the completion trigger characters the child
// declared, or nil if it declared none.
func (h *Handle) TriggerCharacters() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.triggers
}

// Close asks the child to exit. Reclaiming the process is best-effort and
// non-blocking (synchronous graceful shutdown from inside the
// editor-facing event loop has been observed to deadlock), so the actual
// wait happens on a detached goroutine and the OS is left to reap the
// child if that goroutine never gets scheduled.
func (h *Handle) Close() error {
	_ = h.conn.Notify("shutdown", map[string]any{})
	_ = h.conn.Notify("exit", map[string]any{})
	if h.cmd == nil {
		return nil
	}
	go func() {
		_ = h.cmd.Wait()
	}()
	return nil
}

// NewHandleForTesting wires a Handle around conn instead of spawning a
// process, so other packages' tests can drive Pool.Install/Dispatch
// against a fake responding child.
func NewHandleForTesting(lang, virtualURI string, conn *transport.Conn) *Handle {
	return &Handle{
		Lang:       lang,
		SessionID:  "test",
		conn:       conn,
		virtualURI: virtualURI,
		version:    1,
	}
}

func (h *Handle) kill() {
	if h.cmd == nil {
		return
	}
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
	_ = h.cmd.Wait()
}

var _ io.Closer = (*Handle)(nil)
