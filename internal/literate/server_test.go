package literate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCloseTracksCurrentDocument(t *testing.T) {
	s := newTestServer(t)

	s.Open("file:///doc.md", "hello\n", 1)
	snap, ok := s.store.Current()
	require.True(t, ok)
	assert.Equal(t, "file:///doc.md", snap.URI)

	s.Close("file:///doc.md")
	_, ok = s.store.Current()
	assert.False(t, ok)
}

func TestChange_NoRunningChildrenIsNoop(t *testing.T) {
	s := newTestServer(t)
	s.Open("file:///doc.md", "```go\npackage main\n```\n", 1)

	err := s.Change(context.Background(), "file:///doc.md", "```go\npackage main\n\nfunc main() {}\n```\n", 2)
	assert.NoError(t, err)
}

func TestChange_NoFencedLanguagesIsNoop(t *testing.T) {
	s := newTestServer(t)
	s.Open("file:///doc.md", "plain prose\n", 1)

	err := s.Change(context.Background(), "file:///doc.md", "still plain prose\n", 2)
	assert.NoError(t, err)
}

func TestSave_PreservesTrackedVersion(t *testing.T) {
	s := newTestServer(t)
	s.Open("file:///doc.md", "plain prose\n", 5)

	err := s.Save(context.Background(), "file:///doc.md", "plain prose, resaved\n")
	require.NoError(t, err)

	snap, ok := s.store.Current()
	require.True(t, ok)
	assert.Equal(t, int32(5), snap.Version)
	assert.Equal(t, "plain prose, resaved\n", snap.Content)
}

func TestSave_IgnoresMismatchedURI(t *testing.T) {
	s := newTestServer(t)
	s.Open("file:///doc.md", "original\n", 1)

	err := s.Save(context.Background(), "file:///other.md", "ignored\n")
	require.NoError(t, err)

	snap, ok := s.store.Current()
	require.True(t, ok)
	assert.Equal(t, "original\n", snap.Content)
}

func TestCompletionTriggerCharacters_UnionsAcrossLanguages(t *testing.T) {
	s := newTestServer(t)
	s.cacheTriggers("go", []string{".", "@"})
	s.cacheTriggers("python", []string{".", "("})

	assert.Equal(t, []string{"(", ".", "@"}, s.CompletionTriggerCharacters())
}

func TestCompletionTriggerCharacters_EmptyWhenNothingCached(t *testing.T) {
	s := newTestServer(t)
	assert.Empty(t, s.CompletionTriggerCharacters())
}

func TestShutdown_ClearsPool(t *testing.T) {
	s := newTestServer(t)
	s.Shutdown()
	assert.Empty(t, s.pool.Languages())
}

func TestMapperFor_BuildsBlocksForTargetLanguage(t *testing.T) {
	vdoc, mapper := mapperFor("```go\npackage main\n```\n", "go")
	require.Len(t, vdoc.Blocks, 1)

	line, col, ok := mapper.OuterToVirtual(1, 0)
	require.True(t, ok)
	assert.Equal(t, 0, line)
	assert.Equal(t, 0, col)
}
