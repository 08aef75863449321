package fence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `# Example

` + "```forth" + `
: square ( n -- n ) dup * ;
` + "```" + `

Some prose in between.

` + "```forth" + `
5 square .
` + "```" + `

` + "```go" + `
func main() {}
` + "```" + `
`

func TestScanner_Collect(t *testing.T) {
	s := New(sampleDoc)

	forthBlocks := s.Collect("forth")
	require.Len(t, forthBlocks, 2)

	assert.Equal(t, 2, forthBlocks[0].OpenLine)
	assert.Equal(t, 4, forthBlocks[0].CloseLine)
	assert.Equal(t, []string{": square ( n -- n ) dup * ;"}, forthBlocks[0].ContentLines)

	assert.Equal(t, 8, forthBlocks[1].OpenLine)
	assert.Equal(t, 10, forthBlocks[1].CloseLine)
	assert.Equal(t, []string{"5 square ."}, forthBlocks[1].ContentLines)

	goBlocks := s.Collect("go")
	require.Len(t, goBlocks, 1)
	assert.Equal(t, []string{"func main() {}"}, goBlocks[0].ContentLines)
}

func TestScanner_Languages(t *testing.T) {
	s := New(sampleDoc)
	assert.Equal(t, []string{"forth", "go"}, s.Languages())
}

func TestScanner_BlockEnclosing(t *testing.T) {
	s := New(sampleDoc)

	b, ok := s.BlockEnclosing(3)
	require.True(t, ok)
	assert.Equal(t, "forth", b.Lang)

	_, ok = s.BlockEnclosing(5)
	assert.False(t, ok)
}

func TestFenceOpen_RequiresThreeBackticks(t *testing.T) {
	_, _, ok := fenceOpen("``not a fence")
	assert.False(t, ok)

	count, lang, ok := fenceOpen("```python")
	assert.True(t, ok)
	assert.Equal(t, 3, count)
	assert.Equal(t, "python", lang)
}

func TestFenceOpen_NoLanguage(t *testing.T) {
	count, lang, ok := fenceOpen("```")
	assert.True(t, ok)
	assert.Equal(t, 3, count)
	assert.Equal(t, "", lang)
}

func TestScanner_UnterminatedFenceYieldsNoBlock(t *testing.T) {
	doc := "```go\nfunc main() {}\n"
	s := New(doc)
	assert.Empty(t, s.Collect("go"))
}

func TestScanner_ClosingFenceNeedsAtLeastAsManyBackticks(t *testing.T) {
	// A nested fence of fewer backticks inside the block's content must not
	// close it; the real close is the final line with >= the opening count.
	doc := "````markdown\n```go\ncode\n```\n````\n"
	s := New(doc)
	blocks := s.Collect("markdown")
	require.Len(t, blocks, 1)
	assert.Equal(t, []string{"```go", "code", "```"}, blocks[0].ContentLines)
}

func TestEmptyDocument(t *testing.T) {
	s := New("")
	assert.Empty(t, s.Languages())
}
