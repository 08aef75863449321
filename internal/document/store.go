// Package document holds the single outer documentation file the server
// is currently attached to. Only one document is ever open at a time,
// mirroring the reference implementation, which tracks exactly one
// document/document_uri/document_version triple rather than a
// multi-document map.
package document

import (
	"strings"
	"sync"
)

// Store holds the current outer document, if any is open.
type Store struct {
	mu      sync.RWMutex
	uri     string
	content string
	version int32
	open    bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Open records a newly opened outer document.
func (s *Store) Open(uri, text string, version int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uri = uri
	s.content = text
	s.version = version
	s.open = true
}

// Update replaces the content of the currently open document. It is a
// no-op if uri does not match the currently open document (the server
// only ever tracks one document at a time).
func (s *Store) Update(uri, text string, version int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open || s.uri != uri {
		return
	}
	s.content = text
	s.version = version
}

// Close clears the store if uri matches the currently open document.
func (s *Store) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uri == uri {
		s.uri = ""
		s.content = ""
		s.version = 0
		s.open = false
	}
}

// Snapshot is a point-in-time copy of the open document.
type Snapshot struct {
	URI     string
	Content string
	Version int32
}

// Current returns the currently open document, if any.
func (s *Store) Current() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return Snapshot{}, false
	}
	return Snapshot{URI: s.uri, Content: s.content, Version: s.version}, true
}

// RootURIBase returns the directory portion of uri, the base that virtual
// document URIs for its fenced languages are constructed under.
//
//	"file:///home/user/project/example.md" -> "file:///home/user/project"
func RootURIBase(uri string) string {
	idx := strings.LastIndex(uri, "/")
	if idx < 0 {
		return ""
	}
	return uri[:idx]
}

// VirtualURI builds the synthetic URI a child language server sees for
// its projected document.
//
//	("file:///home/user/project", "forth") -> "file:///home/user/project/virtual.forth"
func VirtualURI(rootURIBase, lang string) string {
	return rootURIBase + "/virtual." + lang
}

// Filename extracts the last path segment of uri, falling back to
// "document" if uri has none.
func Filename(uri string) string {
	trimmed := strings.TrimRight(uri, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 || idx == len(trimmed)-1 {
		return "document"
	}
	return trimmed[idx+1:]
}

// LanguageForURI infers the documentation language from a file's
// extension, the way the reference implementation's
// get_document_language does. It returns ("", false) for an unrecognized
// extension.
func LanguageForURI(uri string) (string, bool) {
	idx := strings.LastIndex(uri, ".")
	if idx < 0 {
		return "", false
	}
	ext := strings.ToLower(uri[idx+1:])
	switch ext {
	case "md", "markdown", "mdown", "mkdn", "mdx", "mmd":
		return "markdown", true
	case "typ":
		return "typst", true
	case "rst":
		return "restructuredtext", true
	case "adoc", "asciidoc":
		return "asciidoc", true
	case "org":
		return "org", true
	case "tex":
		return "latex", true
	default:
		return "", false
	}
}
