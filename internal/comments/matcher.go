package comments

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Leading whitespace also covers \v and Unicode spaces so that indentation
// with non-ASCII blanks still yields a line comment. The comment body stops
// at \r, U+2028 and U+2029, which end a line in CR-only and mixed-EOL files.
var (
	lineCommentPattern  = regexp.MustCompile(`^([\s\v\p{Z}\x{FEFF}]*)//([^\r\x{2028}\x{2029}]*)`)
	hashCommentPattern  = regexp.MustCompile(`^([\s\v\p{Z}\x{FEFF}]*)#([^\r\x{2028}\x{2029}]*)`)
	blockCommentPattern = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	htmlCommentPattern  = regexp.MustCompile(`<!--[\s\S]*?-->`)
)

// Occurrence is a raw comment match before it is bound to a file.
type Occurrence struct {
	Kind   Kind
	Text   string
	Offset int // character offset of the first delimiter character

	// Line and Column are filled in by the per-line passes. They are zero
	// for block and HTML matches, which need a PositionResolver.
	Line   int
	Column int
}

// Resolved reports whether the occurrence already carries its position.
func (o Occurrence) Resolved() bool {
	return o.Line > 0
}

// Match runs the fixed extraction passes over content and returns every
// occurrence in pass order: "//" and "#" line comments (one scan, line
// order), then block comments, then HTML comments.
//
// Passes are independent. A "#" line inside a block comment is reported by
// both the line scan and the block scan.
func Match(content string) []Occurrence {
	var out []Occurrence
	out = append(out, matchLineComments(content)...)
	out = append(out, matchSpanning(content, blockCommentPattern, KindBlock)...)
	out = append(out, matchSpanning(content, htmlCommentPattern, KindHTML)...)
	return out
}

// matchLineComments scans each physical line for "//" or "#" comments that
// start after optional whitespace. Positions come straight from the line
// index and indentation width.
func matchLineComments(content string) []Occurrence {
	var out []Occurrence

	charCount := 0
	for i, line := range strings.Split(content, "\n") {
		lineChars := utf8.RuneCountInString(line)

		if m := lineCommentPattern.FindStringSubmatch(line); m != nil {
			out = append(out, lineOccurrence(KindLine, "//", m, i, charCount))
		} else if m := hashCommentPattern.FindStringSubmatch(line); m != nil {
			out = append(out, lineOccurrence(KindHash, "#", m, i, charCount))
		}

		charCount += lineChars + 1
	}

	return out
}

func lineOccurrence(kind Kind, marker string, m []string, lineIndex, lineStart int) Occurrence {
	indent := utf8.RuneCountInString(m[1])
	return Occurrence{
		Kind:   kind,
		Text:   marker + strings.TrimSuffix(m[2], "\r"),
		Offset: lineStart + indent,
		Line:   lineIndex + 1,
		Column: indent,
	}
}

// matchSpanning finds non-overlapping, non-greedy matches across the whole
// content. RE2 runs in linear time, so adversarial input cannot backtrack.
func matchSpanning(content string, re *regexp.Regexp, kind Kind) []Occurrence {
	matches := re.FindAllStringIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]Occurrence, 0, len(matches))

	// Matches arrive in increasing order, so byte offsets convert to
	// character offsets incrementally.
	prevByte, prevChars := 0, 0
	for _, loc := range matches {
		prevChars += utf8.RuneCountInString(content[prevByte:loc[0]])
		prevByte = loc[0]

		out = append(out, Occurrence{
			Kind:   kind,
			Text:   content[loc[0]:loc[1]],
			Offset: prevChars,
		})
	}

	return out
}
