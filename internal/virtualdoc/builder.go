// Package virtualdoc concatenates one language's fenced content out of an
// outer document into a synthetic single-file buffer, recording the
// outer/virtual line correspondence needed to translate positions later.
package virtualdoc

import (
	"strings"

	"literate-ls/internal/fence"
)

// CodeBlock is one fence of the target language, positioned in both the
// outer document and the synthetic buffer.
type CodeBlock struct {
	Lang              string
	OuterOpenLine     int
	OuterCloseLine    int
	OuterContentStart int
	OuterContentEnd   int
	VirtualStart      int // inclusive
	VirtualEnd        int // exclusive
	Content           string
}

// Document is the result of a projection: the synthetic buffer plus the
// block map that anchors it back to the outer document. Immutable once
// built; callers rebuild it fresh whenever the outer document changes.
type Document struct {
	Content string
	Blocks  []CodeBlock
}

// Build projects every target-language fence out of text into a single
// synthetic buffer, separated by exactly one blank line between
// consecutive blocks. If no fence of target matches, Content and Blocks
// are both empty.
func Build(text, target string) Document {
	scanner := fence.New(text)
	found := scanner.Collect(target)

	var sb strings.Builder
	blocks := make([]CodeBlock, 0, len(found))
	virtualLine := 0

	for i, b := range found {
		if i > 0 {
			sb.WriteByte('\n')
			virtualLine++
		}
		virtualStart := virtualLine
		content := strings.Join(b.ContentLines, "\n")
		if len(b.ContentLines) > 0 {
			content += "\n"
		}
		sb.WriteString(content)
		virtualLine += len(b.ContentLines)

		blocks = append(blocks, CodeBlock{
			Lang:              b.Lang,
			OuterOpenLine:     b.OpenLine,
			OuterCloseLine:    b.CloseLine,
			OuterContentStart: b.ContentStart(),
			OuterContentEnd:   b.ContentEnd(),
			VirtualStart:      virtualStart,
			VirtualEnd:        virtualLine,
			Content:           content,
		})
	}

	return Document{Content: sb.String(), Blocks: blocks}
}
