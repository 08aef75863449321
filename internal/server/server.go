// Package server wires the editor-facing glsp transport onto the
// literate request-forwarding engine: this is the "external
// collaborator" editor transport (out of scope for the core itself),
// implemented with tliron/glsp, extended with the handful of extra
// position-based and document-wide methods the proxy needs.
package server

import (
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspServer "github.com/tliron/glsp/server"

	"literate-ls/internal/child"
	"literate-ls/internal/config"
	"literate-ls/internal/document"
	"literate-ls/internal/handler"
	"literate-ls/internal/literate"
)

// Run wires up the LSP handler and starts the server on stdio. logLevel
// also gates the debug virtual-document dump: it is only written when
// logLevel is "debug".
func Run(logLevel string) error {
	configureLogging(logLevel)

	workspaceDir, err := os.Getwd()
	if err != nil {
		workspaceDir = "."
	}

	resolver, err := config.New(workspaceDir)
	if err != nil {
		return err
	}

	store := document.New()
	pool := child.NewPool(rootURI(workspaceDir), resolver.Command)
	litServer := literate.New(store, pool, resolver, logLevel == "debug")

	h := handler.New(litServer)

	lspHandler := protocol.Handler{
		Initialize:                  h.Initialize,
		Initialized:                 h.Initialized,
		Shutdown:                    h.Shutdown,
		SetTrace:                    h.SetTrace,
		TextDocumentDidOpen:         h.DidOpen,
		TextDocumentDidChange:       h.DidChange,
		TextDocumentDidSave:         h.DidSave,
		TextDocumentDidClose:        h.DidClose,
		TextDocumentCompletion:      h.Completion,
		TextDocumentHover:           h.Hover,
		TextDocumentDefinition:      h.Definition,
		TextDocumentReferences:      h.References,
		TextDocumentDocumentSymbol:  h.DocumentSymbol,
		WorkspaceSymbol:             h.WorkspaceSymbol,
		TextDocumentCodeAction:      h.CodeAction,
		TextDocumentFormatting:      h.Formatting,
		TextDocumentRangeFormatting: h.RangeFormatting,
	}

	s := glspServer.NewServer(&lspHandler, "literate-ls", false)
	return s.RunStdio()
}

func rootURI(workspaceDir string) string {
	return "file://" + workspaceDir
}

func configureLogging(level string) {
	// commonlog.Configure verbosity: 1=Error, 2=Warning, 3=Notice, 4=Info, 5=Debug
	verbosity := 2 // Warning by default
	switch level {
	case "debug":
		verbosity = 5
	case "info":
		verbosity = 4
	case "warning", "warn":
		verbosity = 2
	case "error":
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)
}
