// Package position translates line/character coordinates between an outer
// document and the synthetic per-language buffer built by virtualdoc, in
// both directions.
package position

import "literate-ls/internal/virtualdoc"

// Mapper answers coordinate-translation queries against a fixed set of
// code blocks. Callers rebuild a Mapper whenever the outer document (and
// therefore its virtualdoc.Document) changes.
type Mapper struct {
	blocks []virtualdoc.CodeBlock
}

// New builds a Mapper over blocks, the block map produced by
// virtualdoc.Build for one target language.
func New(blocks []virtualdoc.CodeBlock) *Mapper {
	return &Mapper{blocks: blocks}
}

// OuterToVirtual translates a line/col in the outer document into the
// corresponding position in the virtual document. The second return value
// is false if line falls outside every block's content range (e.g. on a
// fence line, or in a different block's content).
func (m *Mapper) OuterToVirtual(line, col int) (int, int, bool) {
	for _, b := range m.blocks {
		if line >= b.OuterContentStart && line <= b.OuterContentEnd {
			offset := line - b.OuterContentStart
			return b.VirtualStart + offset, col, true
		}
	}
	return 0, 0, false
}

// VirtualToOuter translates a line/col in the virtual document back into
// the outer document. The second return value is false if line falls
// outside every block's virtual range.
func (m *Mapper) VirtualToOuter(line, col int) (int, int, bool) {
	for _, b := range m.blocks {
		if line >= b.VirtualStart && line < b.VirtualEnd {
			offset := line - b.VirtualStart
			return b.OuterContentStart + offset, col, true
		}
	}
	return 0, 0, false
}
