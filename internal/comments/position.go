package comments

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Position is a resolved location inside file content.
type Position struct {
	Line   int // 1-based
	Column int // 0-based, in characters
}

// PositionResolver converts character offsets into line/column positions.
//
// Content is split on "\n" only. A trailing "\r" stays part of its line and
// counts toward line length, so CRLF files resolve columns as if "\r" were a
// regular character.
type PositionResolver struct {
	lineStarts  []int // character offset where each line begins
	lineLengths []int // character length of each line, "\n" excluded
}

// NewPositionResolver indexes content for repeated offset lookups.
func NewPositionResolver(content string) *PositionResolver {
	lines := strings.Split(content, "\n")

	r := &PositionResolver{
		lineStarts:  make([]int, len(lines)),
		lineLengths: make([]int, len(lines)),
	}

	charCount := 0
	for i, line := range lines {
		n := utf8.RuneCountInString(line)
		r.lineStarts[i] = charCount
		r.lineLengths[i] = n
		charCount += n + 1 // +1 for the stripped "\n"
	}

	return r
}

// Resolve returns the position of the character at offset.
// Offsets past the end of content resolve to the last line, column 0.
func (r *PositionResolver) Resolve(offset int) Position {
	if offset < 0 {
		offset = 0
	}

	last := len(r.lineStarts) - 1
	if offset >= r.lineStarts[last]+r.lineLengths[last]+1 {
		return Position{Line: last + 1, Column: 0}
	}

	// Largest line whose start is <= offset.
	i := sort.Search(len(r.lineStarts), func(i int) bool {
		return r.lineStarts[i] > offset
	}) - 1

	return Position{Line: i + 1, Column: offset - r.lineStarts[i]}
}

// Offset is the inverse of Resolve for positions inside the content.
func (r *PositionResolver) Offset(pos Position) int {
	if pos.Line < 1 || pos.Line > len(r.lineStarts) {
		return -1
	}
	return r.lineStarts[pos.Line-1] + pos.Column
}

// LineCount reports how many lines the content was split into.
func (r *PositionResolver) LineCount() int {
	return len(r.lineStarts)
}

// Resolve is a one-shot helper for resolving a single offset.
func Resolve(content string, offset int) Position {
	return NewPositionResolver(content).Resolve(offset)
}
