package document

import (
	"sync"
	"testing"
)

func TestStore_OpenAndCurrent(t *testing.T) {
	s := New()
	s.Open("file:///test.md", "# hello", 1)
	snap, ok := s.Current()
	if !ok {
		t.Fatal("Current returned ok=false after Open")
	}
	if snap.Content != "# hello" || snap.URI != "file:///test.md" || snap.Version != 1 {
		t.Errorf("got %+v", snap)
	}
}

func TestStore_CurrentWhenNeverOpened(t *testing.T) {
	s := New()
	_, ok := s.Current()
	if ok {
		t.Error("Current returned ok=true before any document was opened")
	}
}

func TestStore_Update(t *testing.T) {
	s := New()
	s.Open("file:///test.md", "original", 1)
	s.Update("file:///test.md", "updated", 2)
	snap, ok := s.Current()
	if !ok || snap.Content != "updated" || snap.Version != 2 {
		t.Errorf("got (%+v, %v), want updated/v2", snap, ok)
	}
}

func TestStore_UpdateIgnoredForDifferentURI(t *testing.T) {
	// The server only ever tracks one open document; an update for a stale
	// or mismatched URI must not clobber the current one.
	s := New()
	s.Open("file:///a.md", "a", 1)
	s.Update("file:///b.md", "b", 1)
	snap, _ := s.Current()
	if snap.URI != "file:///a.md" || snap.Content != "a" {
		t.Errorf("update for unrelated URI mutated state: %+v", snap)
	}
}

func TestStore_Close(t *testing.T) {
	s := New()
	s.Open("file:///test.md", "content", 1)
	s.Close("file:///test.md")
	_, ok := s.Current()
	if ok {
		t.Error("Current returned ok=true after Close")
	}
}

func TestStore_CloseNonExistent(t *testing.T) {
	// Closing a document that was never opened must not panic.
	s := New()
	s.Close("file:///ghost.md")
}

func TestStore_OpenOverwrites(t *testing.T) {
	s := New()
	s.Open("file:///test.md", "first", 1)
	s.Open("file:///test.md", "second", 2)
	snap, _ := s.Current()
	if snap.Content != "second" {
		t.Errorf("got %q, want 'second'", snap.Content)
	}
}

func TestStore_ConcurrentReadWrite(t *testing.T) {
	// Exercise the RWMutex under concurrent load. Any data race will be
	// caught by the race detector (go test -race).
	s := New()
	s.Open("file:///test.md", "initial", 1)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Update("file:///test.md", "updated", int32(i))
		}(i)
		go func() {
			defer wg.Done()
			s.Current()
		}()
	}
	wg.Wait()
}

func TestRootURIBase(t *testing.T) {
	cases := map[string]string{
		"file:///home/user/project/example.md": "file:///home/user/project",
		"file:///home/user/example.md":         "file:///home/user",
	}
	for uri, want := range cases {
		if got := RootURIBase(uri); got != want {
			t.Errorf("RootURIBase(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestVirtualURI(t *testing.T) {
	got := VirtualURI("file:///home/user/project", "forth")
	want := "file:///home/user/project/virtual.forth"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("file:///home/user/example.md"); got != "example.md" {
		t.Errorf("got %q, want example.md", got)
	}
	if got := Filename("file:///"); got != "document" {
		t.Errorf("got %q, want document fallback", got)
	}
}

func TestLanguageForURI(t *testing.T) {
	cases := map[string]string{
		"file:///x.md":    "markdown",
		"file:///x.MD":    "markdown",
		"file:///x.typ":   "typst",
		"file:///x.rst":   "restructuredtext",
		"file:///x.adoc":  "asciidoc",
		"file:///x.org":   "org",
		"file:///x.tex":   "latex",
	}
	for uri, want := range cases {
		got, ok := LanguageForURI(uri)
		if !ok || got != want {
			t.Errorf("LanguageForURI(%q) = (%q, %v), want (%q, true)", uri, got, ok, want)
		}
	}

	if _, ok := LanguageForURI("file:///x.unknownext"); ok {
		t.Error("expected ok=false for unrecognized extension")
	}
}
