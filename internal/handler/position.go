package handler

import (
	"context"
	"encoding/json"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// decodeAs re-encodes result (the generic JSON tree literate.Server
// produces) into the typed shape T a glsp handler method must return.
// Any failure yields T's zero value rather than an error: no internal
// failure is ever allowed to surface to the editor as an error
// response.
func decodeAs[T any](result any, err error) (T, error) {
	var zero T
	if err != nil || result == nil {
		return zero, nil
	}
	data, merr := json.Marshal(result)
	if merr != nil {
		log.Warningf("re-encoding child result: %v", merr)
		return zero, nil
	}
	var out T
	if uerr := json.Unmarshal(data, &out); uerr != nil {
		log.Warningf("decoding child result as %T: %v", out, uerr)
		return zero, nil
	}
	return out, nil
}

// Hover handles textDocument/hover, including the synthetic
// explanatory messages for self-referential and unsupported-language
// fences.
func (h *Handler) Hover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	result, err := h.literate.Dispatch(context.Background(), "textDocument/hover",
		int(params.Position.Line), params)
	return decodeAs[*protocol.Hover](result, err)
}

// Definition handles textDocument/definition. The LSP result is a union
// (Location | []Location | []LocationLink | null) so it is returned
// as-is rather than decoded into one concrete shape.
func (h *Handler) Definition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	return h.literate.Dispatch(context.Background(), "textDocument/definition",
		int(params.Position.Line), params)
}

// References handles textDocument/references.
func (h *Handler) References(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	result, err := h.literate.Dispatch(context.Background(), "textDocument/references",
		int(params.Position.Line), params)
	return decodeAs[[]protocol.Location](result, err)
}

// Completion handles textDocument/completion.
func (h *Handler) Completion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	return h.literate.Dispatch(context.Background(), "textDocument/completion",
		int(params.Position.Line), params)
}

// CodeAction handles textDocument/codeAction. Its range is position-based
// (the anchor is the range's start line), unlike documentSymbol/
// formatting.
func (h *Handler) CodeAction(ctx *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	return h.literate.Dispatch(context.Background(), "textDocument/codeAction",
		int(params.Range.Start.Line), params)
}

// RangeFormatting handles textDocument/rangeFormatting.
func (h *Handler) RangeFormatting(ctx *glsp.Context, params *protocol.DocumentRangeFormattingParams) ([]protocol.TextEdit, error) {
	result, err := h.literate.Dispatch(context.Background(), "textDocument/rangeFormatting",
		int(params.Range.Start.Line), params)
	return decodeAs[[]protocol.TextEdit](result, err)
}

// DocumentSymbol handles textDocument/documentSymbol. This is a
// document-wide request: it uses the language of the fence enclosing
// line 0 regardless of cursor position, and answers nil when line 0 is
// not inside a fence.
func (h *Handler) DocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	return h.literate.DispatchDocumentWide(context.Background(), "textDocument/documentSymbol", params)
}

// Formatting handles textDocument/formatting, another document-wide
// request.
func (h *Handler) Formatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	result, err := h.literate.DispatchDocumentWide(context.Background(), "textDocument/formatting", params)
	return decodeAs[[]protocol.TextEdit](result, err)
}

// WorkspaceSymbol handles workspace/symbol. The core tracks exactly one
// open document, so there is nowhere else to search: it is routed
// through the same document-wide path as documentSymbol/formatting,
// against the language of the fence enclosing line 0.
func (h *Handler) WorkspaceSymbol(ctx *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	result, err := h.literate.DispatchDocumentWide(context.Background(), "workspace/symbol", params)
	return decodeAs[[]protocol.SymbolInformation](result, err)
}
