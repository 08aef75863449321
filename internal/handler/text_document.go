package handler

import (
	"context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// DidOpen handles textDocument/didOpen: installs the outer document.
func (h *Handler) DidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	h.literate.Open(uri, params.TextDocument.Text, int32(params.TextDocument.Version))
	return nil
}

// DidChange handles textDocument/didChange. Sync is FULL, so the
// last content change carries the entire new document text.
func (h *Handler) DidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change := params.ContentChanges[len(params.ContentChanges)-1]
	var text string
	switch c := change.(type) {
	case protocol.TextDocumentContentChangeEvent:
		text = c.Text
	case protocol.TextDocumentContentChangeEventWhole:
		text = c.Text
	default:
		return nil
	}

	uri := string(params.TextDocument.URI)
	if err := h.literate.Change(context.Background(), uri, text, int32(params.TextDocument.Version)); err != nil {
		log.Warningf("broadcasting change for %s: %v", uri, err)
	}
	return nil
}

// DidSave handles textDocument/didSave. Most clients configure
// includeText, but when they don't there is nothing to do: the document
// store already holds the latest text from the last didChange.
func (h *Handler) DidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text == nil {
		return nil
	}
	uri := string(params.TextDocument.URI)
	if err := h.literate.Save(context.Background(), uri, *params.Text); err != nil {
		log.Warningf("broadcasting save for %s: %v", uri, err)
	}
	return nil
}

// DidClose handles textDocument/didClose.
func (h *Handler) DidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	h.literate.Close(string(params.TextDocument.URI))
	return nil
}
