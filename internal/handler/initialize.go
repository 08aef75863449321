package handler

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const serverName = "literate-ls"

var serverVersion = "dev"

// Initialize handles the LSP initialize request and returns server
// capabilities: every position-based IDE feature the core forwards,
// plus a completion trigger-character set seeded with a "[\" \", \".\"]"
// fallback since no child has reported its own triggers yet at this
// point in the handshake.
func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	return protocol.InitializeResult{
		Capabilities: h.CreateServerCapabilities(),
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &serverVersion,
		},
	}, nil
}

// Initialized is called after the client acknowledges initialize.
func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

// Shutdown clears every running child. The OS reaps the child
// processes themselves: synchronous graceful shutdown from inside
// this event loop can deadlock, so drop is non-blocking.
func (h *Handler) Shutdown(ctx *glsp.Context) error {
	h.literate.Shutdown()
	return nil
}

// SetTrace updates the trace level (no-op; this server has no separate
// trace-verbosity channel beyond the -log-level flag).
func (h *Handler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// CreateServerCapabilities returns the capabilities advertised to the
// client.
func (h *Handler) CreateServerCapabilities() protocol.ServerCapabilities {
	syncKind := protocol.TextDocumentSyncKindFull

	triggers := h.literate.CompletionTriggerCharacters()
	if len(triggers) == 0 {
		triggers = []string{" ", "."}
	}

	return protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: boolPtr(true),
			Change:    &syncKind,
			Save:      &protocol.SaveOptions{IncludeText: boolPtr(true)},
		},
		HoverProvider:                 true,
		DefinitionProvider:            true,
		ReferencesProvider:            true,
		DocumentSymbolProvider:        true,
		WorkspaceSymbolProvider:       true,
		CodeActionProvider:            true,
		DocumentFormattingProvider:    true,
		DocumentRangeFormattingProvider: true,
		CompletionProvider: &protocol.CompletionOptions{
			TriggerCharacters: triggers,
		},
	}
}

func boolPtr(b bool) *bool { return &b }
