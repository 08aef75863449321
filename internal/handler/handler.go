// Package handler adapts the editor-facing glsp protocol methods onto
// internal/literate.Server: each method here does the minimal work of
// pulling parameters out of the typed glsp request and decoding the
// generic JSON-tree reply literate.Server produces back into the typed
// glsp response shape the client expects.
package handler

import (
	"github.com/tliron/commonlog"

	"literate-ls/internal/literate"
)

var log = commonlog.GetLogger("handler")

// Handler holds the shared literate server every glsp callback dispatches
// into.
type Handler struct {
	literate *literate.Server
}

// New creates a Handler backed by srv.
func New(srv *literate.Server) *Handler {
	return &Handler{literate: srv}
}
