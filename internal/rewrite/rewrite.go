// Package rewrite walks a decoded JSON-RPC payload (the `map[string]any`/
// `[]any` tree produced by encoding/json) and rewrites the coordinates and
// virtual-document references it contains in place.
package rewrite

import (
	"fmt"
	"regexp"
	"strconv"

	"literate-ls/internal/position"
)

// Direction selects which way Positions travels.
type Direction bool

const (
	// ToVirtual rewrites outer-document coordinates into virtual-document
	// coordinates (used on requests sent to a child).
	ToVirtual Direction = true
	// ToOuter rewrites virtual-document coordinates back into outer
	// coordinates (used on responses received from a child).
	ToOuter Direction = false
)

// Positions recursively rewrites every Position-shaped object ({"line":
// n, "character": m} and nothing else) found anywhere in value, in place.
// A Position with no mapping under mapper is left unchanged (fail-open):
// callers should not assume every Position round-trips.
func Positions(value any, mapper *position.Mapper, dir Direction) {
	switch v := value.(type) {
	case map[string]any:
		if line, col, ok := asPosition(v); ok {
			var newLine, newCol int
			var mapped bool
			if dir == ToVirtual {
				newLine, newCol, mapped = mapper.OuterToVirtual(line, col)
			} else {
				newLine, newCol, mapped = mapper.VirtualToOuter(line, col)
			}
			if mapped {
				v["line"] = float64(newLine)
				v["character"] = float64(newCol)
			}
			return
		}
		for _, val := range v {
			Positions(val, mapper, dir)
		}
	case []any:
		for _, val := range v {
			Positions(val, mapper, dir)
		}
	}
}

// asPosition reports whether m has exactly the two keys "line" and
// "character", both numeric, and returns their integer values.
func asPosition(m map[string]any) (line, character int, ok bool) {
	if len(m) != 2 {
		return 0, 0, false
	}
	lineVal, hasLine := m["line"]
	charVal, hasChar := m["character"]
	if !hasLine || !hasChar {
		return 0, 0, false
	}
	lf, ok1 := lineVal.(float64)
	cf, ok2 := charVal.(float64)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return int(lf), int(cf), true
}

// referencePattern builds the `virtual.<lang>:(\d+):(\d+)` matcher for one
// language, anchored nowhere so it matches anywhere inside a string.
func referencePattern(lang string) *regexp.Regexp {
	return regexp.MustCompile(`virtual\.` + regexp.QuoteMeta(lang) + `:(\d+):(\d+)`)
}

// References recursively rewrites every `virtual.<lang>:<line>:<col>`
// occurrence found in any string value anywhere in value, replacing it
// with `<outerFilename>:<outer_line+1>:<col>`. Occurrences whose line/col
// fall outside every code block are left unchanged.
func References(value any, lang string, mapper *position.Mapper, outerFilename string) {
	re := referencePattern(lang)
	rewriteRefsIn(value, re, mapper, outerFilename)
}

func rewriteRefsIn(value any, re *regexp.Regexp, mapper *position.Mapper, outerFilename string) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			if s, ok := val.(string); ok {
				v[key] = rewriteRefString(s, re, mapper, outerFilename)
				continue
			}
			rewriteRefsIn(val, re, mapper, outerFilename)
		}
	case []any:
		for i, val := range v {
			if s, ok := val.(string); ok {
				v[i] = rewriteRefString(s, re, mapper, outerFilename)
				continue
			}
			rewriteRefsIn(val, re, mapper, outerFilename)
		}
	}
}

func rewriteRefString(s string, re *regexp.Regexp, mapper *position.Mapper, outerFilename string) string {
	return re.ReplaceAllStringFunc(s, func(match string) string {
		groups := re.FindStringSubmatch(match)
		virtualLine, err1 := strconv.Atoi(groups[1])
		col, err2 := strconv.Atoi(groups[2])
		if err1 != nil || err2 != nil {
			return match
		}
		outerLine, outerCol, ok := mapper.VirtualToOuter(virtualLine, col)
		if !ok {
			return match
		}
		return fmt.Sprintf("%s:%d:%d", outerFilename, outerLine+1, outerCol)
	})
}
