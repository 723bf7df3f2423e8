// Package comments extracts comment substrings from text files by lexical
// pattern and resolves their line/column positions.
package comments

import "unicode/utf8"

// Kind identifies which extraction pass produced a comment.
type Kind string

const (
	KindLine  Kind = "line"  // "//" to end of line
	KindHash  Kind = "hash"  // "#" to end of line
	KindBlock Kind = "block" // "/* ... */", may span lines
	KindHTML  Kind = "html"  // "<!-- ... -->", may span lines
)

// Comment is a single comment occurrence found in a file.
// Values are never modified after a scan produces them.
type Comment struct {
	FilePath   string `json:"file_path"`
	Text       string `json:"text"`        // verbatim, delimiters included
	LineNumber int    `json:"line_number"` // 1-based
	Column     int    `json:"column"`      // 0-based, in characters
	Kind       Kind   `json:"kind"`
}

// Length returns the comment length in characters.
// Adapters use it with Column to build a selection covering the comment.
func (c Comment) Length() int {
	return utf8.RuneCountInString(c.Text)
}

// FileRecord holds every comment found in one file, in discovery order:
// single-line comments in line order, then block comments, then HTML comments.
type FileRecord struct {
	FilePath string    `json:"file_path"`
	Root     string    `json:"root,omitempty"` // workspace root the file was enumerated under
	Comments []Comment `json:"comments"`
}
