package literate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"literate-ls/internal/document"
	"literate-ls/internal/fence"
	"literate-ls/internal/rewrite"
	"literate-ls/internal/virtualdoc"
)

// Dispatch is the generic entry point for every position-based LSP
// method (hover, definition, references, codeAction, rangeFormatting,
// completion): find the fence enclosing anchorLine, forward method to
// that fence's child with every position inside params translated into
// its virtual document, and translate the response back. params is
// whatever the editor sent for this request (a typed glsp params struct
// or an already generic map); toGenericParams turns it into a JSON tree
// and its textDocument.uri is replaced with the synthetic virtual URI
// before dispatch. A nil result with a nil
// error means "no answer" (the editor should treat it as empty),
// matching the fail-quiet contract: no error from the child or the
// proxy ever propagates to the editor as a protocol error.
func (s *Server) Dispatch(ctx context.Context, method string, anchorLine int, params any) (any, error) {
	doc, ok := s.store.Current()
	if !ok {
		log.Debug("no document loaded")
		return nil, nil
	}
	uri := doc.URI

	scanner := fence.New(doc.Content)
	block, ok := scanner.BlockEnclosing(anchorLine)
	if !ok {
		log.Debugf("no code block found at line %d", anchorLine)
		return nil, nil
	}
	lang := block.Lang

	docLang, _ := document.LanguageForURI(uri)
	if shouldSkipLanguage(docLang, lang) {
		log.Debugf("skipping language %q (self-referential)", lang)
		return selfReferentialMessage(lang), nil
	}

	vdoc, mapper := mapperFor(doc.Content, lang)
	if len(vdoc.Blocks) == 0 {
		return missingBlocksMessage(lang, scanner.Languages()), nil
	}
	s.dumpVirtualDoc(lang, vdoc)

	rootBase := document.RootURIBase(uri)
	virtualURI := document.VirtualURI(rootBase, lang)

	downstream, err := toGenericParams(params)
	if err != nil {
		log.Warningf("could not encode params for %s: %v", method, err)
		return nil, nil
	}
	setTextDocumentURI(downstream, virtualURI)
	rewrite.Positions(downstream, mapper, rewrite.ToVirtual)

	command, args, ok := s.resolver.Command(lang)
	if !ok {
		return unsupportedLanguageMessage(lang), nil
	}

	h, err := s.ensureChild(ctx, lang, virtualURI, vdoc.Content)
	if err != nil {
		log.Warningf("failed to start child for %q (%s %v): %v", lang, command, args, err)
		return nil, nil
	}

	raw, err := h.SendRequest(ctx, method, downstream)
	if err != nil {
		log.Warningf("child request %s failed for %q: %v", method, lang, err)
		return nil, nil
	}

	result, err := decodeResult(raw)
	if err != nil {
		log.Warningf("child response to %s for %q: %v", method, lang, err)
		return nil, nil
	}
	if result == nil {
		return nil, nil
	}

	rewrite.Positions(result, mapper, rewrite.ToOuter)
	rewrite.References(result, lang, mapper, document.Filename(uri))
	rewriteResultURIs(result, uri)

	return result, nil
}

// DispatchDocumentWide answers a request that applies to the whole
// document rather than one position (documentSymbol, formatting,
// workspaceSymbol) by picking the language of the fence that encloses
// line 0 — the same documented limitation the reference implementation
// accepts (a literate document mixing several languages only gets
// document-wide IDE features for that one fence's language). A document
// whose line 0 is not inside a fence gets a nil result.
// Because this server tracks exactly one open document, a
// workspace/symbol query has nowhere else to search either, so it is
// routed here the same way.
func (s *Server) DispatchDocumentWide(ctx context.Context, method string, params any) (any, error) {
	doc, ok := s.store.Current()
	if !ok {
		return nil, nil
	}
	uri := doc.URI

	scanner := fence.New(doc.Content)
	block, ok := scanner.BlockEnclosing(0)
	if !ok {
		return nil, nil
	}
	lang := block.Lang

	vdoc, mapper := mapperFor(doc.Content, lang)
	s.dumpVirtualDoc(lang, vdoc)

	rootBase := document.RootURIBase(uri)
	virtualURI := document.VirtualURI(rootBase, lang)

	downstream, err := toGenericParams(params)
	if err != nil {
		log.Warningf("could not encode params for %s: %v", method, err)
		return nil, nil
	}
	setTextDocumentURI(downstream, virtualURI)
	rewrite.Positions(downstream, mapper, rewrite.ToVirtual)

	command, args, ok := s.resolver.Command(lang)
	if !ok {
		log.Warningf("no language server configured for %q (try --health %s)", lang, lang)
		return nil, nil
	}

	h, err := s.ensureChild(ctx, lang, virtualURI, vdoc.Content)
	if err != nil {
		log.Warningf("failed to start child for %q (%s %v): %v", lang, command, args, err)
		return nil, nil
	}

	raw, err := h.SendRequest(ctx, method, downstream)
	if err != nil {
		log.Warningf("child request %s failed for %q: %v", method, lang, err)
		return nil, nil
	}

	result, err := decodeResult(raw)
	if err != nil {
		log.Warningf("child response to %s for %q: %v", method, lang, err)
		return nil, nil
	}
	if result == nil {
		return nil, nil
	}

	rewrite.Positions(result, mapper, rewrite.ToOuter)
	return result, nil
}

// dumpVirtualDoc writes vdoc's synthetic buffer to the OS temp directory
// under the debug path, best-effort and only when debugDump is
// enabled (see the Server.debugDump doc comment).
func (s *Server) dumpVirtualDoc(lang string, vdoc virtualdoc.Document) {
	if !s.debugDump {
		return
	}
	path := filepath.Join(os.TempDir(), "virtual."+lang)
	if err := os.WriteFile(path, []byte(vdoc.Content), 0o644); err != nil {
		log.Debugf("debug dump of virtual.%s failed: %v", lang, err)
	}
}

// toGenericParams converts a typed glsp params struct (or an already
// generic map/nil) into the map[string]any tree rewrite.Positions and
// the transport layer operate on.
func toGenericParams(params any) (map[string]any, error) {
	if params == nil {
		return map[string]any{}, nil
	}
	if m, ok := params.(map[string]any); ok {
		return m, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("literate: marshal params: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("literate: decode params: %w", err)
	}
	return m, nil
}

// setTextDocumentURI overwrites params["textDocument"]["uri"] in place,
// if that field is present. Methods with no document context at all
// (workspace/symbol) simply have no such field, and are left untouched.
func setTextDocumentURI(params map[string]any, uri string) {
	td, ok := params["textDocument"].(map[string]any)
	if !ok {
		return
	}
	td["uri"] = uri
}

// markdownHoverContents shapes msg the way glsp's Hover.Contents expects
// (a MarkupContent object, not a bare string), so these synthetic
// messages survive decodeAs[*protocol.Hover] the same as a real child's
// response would.
func markdownHoverContents(msg string) map[string]any {
	return map[string]any{
		"contents": map[string]any{
			"kind":  "markdown",
			"value": msg,
		},
	}
}

func selfReferentialMessage(lang string) map[string]any {
	msg := fmt.Sprintf(
		"Cannot provide IDE features for **%s** code blocks inside **%s** documents.\n\n"+
			"**Why?** This would create a recursive loop (literate-ls acting on itself).\n\n"+
			"**Solution:** Move the %s code outside the %s fence, or use a different documentation format.",
		lang, lang, lang, lang,
	)
	return markdownHoverContents(msg)
}

func missingBlocksMessage(lang string, found []string) map[string]any {
	if len(found) == 0 {
		return markdownHoverContents("No code blocks found in this document")
	}
	sorted := append([]string(nil), found...)
	sort.Strings(sorted)
	msg := fmt.Sprintf(
		"No '%s' code blocks found.\n\nFound: %s\n\n"+
			"**Note:** Code blocks nested inside other fences are not supported. "+
			"Move the %s code outside the enclosing fence.",
		lang, strings.Join(sorted, ", "), lang,
	)
	return markdownHoverContents(msg)
}

func unsupportedLanguageMessage(lang string) map[string]any {
	msg := fmt.Sprintf(
		"**Language '%s' is not configured, or has no language server on PATH.**\n\n"+
			"Add it to `.literate-ls.toml`:\n\n"+
			"```toml\n"+
			"[[language]]\n"+
			"name = \"%s\"\n"+
			"language-servers = [\"lsp-name\"]\n\n"+
			"[language-server.lsp-name]\n"+
			"command = \"lsp-binary\"\n"+
			"```\n\n"+
			"Check what's installed with `literate-ls --health %s`.",
		lang, lang, lang,
	)
	return markdownHoverContents(msg)
}
