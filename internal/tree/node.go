package tree

import (
	"fmt"

	"github.com/mvp-joe/comment-tree/internal/comments"
)

// NodeKind tags the two kinds of tree node.
type NodeKind int

const (
	KindFile NodeKind = iota
	KindComment
)

func (k NodeKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindComment:
		return "comment"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is either a FileNode or a CommentNode. Callers switch on Kind or on
// the concrete type.
type Node interface {
	Kind() NodeKind
	Label() string
}

// FileNode is a top-level node: one file that has at least one comment.
type FileNode struct {
	FilePath     string `json:"file_path"`
	Root         string `json:"root"`
	RelativePath string `json:"relative_path"`
	CommentCount int    `json:"comment_count"`
}

func (n FileNode) Kind() NodeKind { return KindFile }

// Label is the path shown for the file, relative to its workspace root.
func (n FileNode) Label() string { return n.RelativePath }

// Description is the comment count summary, e.g. "3 comments".
func (n FileNode) Description() string {
	return plural(n.CommentCount, "comment")
}

// CommentNode is a leaf node for one comment.
type CommentNode struct {
	Comment      comments.Comment `json:"comment"`
	RelativePath string           `json:"relative_path"`
}

func (n CommentNode) Kind() NodeKind { return KindComment }

// Label is the cleaned, truncated comment text.
func (n CommentNode) Label() string {
	return comments.DisplayText(n.Comment.Text)
}

// Tooltip carries the location and the full comment text. Column is shown
// 1-based.
func (n CommentNode) Tooltip() string {
	return fmt.Sprintf("File: %s\nLine: %d\nColumn: %d\n\n%s",
		n.RelativePath, n.Comment.LineNumber, n.Comment.Column+1, n.Comment.Text)
}

// Location returns the navigation target for the comment.
func (n CommentNode) Location() Location {
	return LocationOf(n.Comment)
}

// Position is a 0-based line and character position, as editors expect.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a selection between two positions on the same document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location is what a display adapter needs to open a comment in an editor.
type Location struct {
	FilePath   string `json:"file_path"`
	LineNumber int    `json:"line_number"` // 1-based
	Column     int    `json:"column"`      // 0-based, characters
	Length     int    `json:"length"`      // characters
	Selection  Range  `json:"selection"`
}

// LocationOf builds the selection covering c's text. The selection starts
// and ends on the comment's first line; multi-line comments extend past the
// line end, which editors clamp.
func LocationOf(c comments.Comment) Location {
	length := c.Length()
	line := c.LineNumber - 1
	return Location{
		FilePath:   c.FilePath,
		LineNumber: c.LineNumber,
		Column:     c.Column,
		Length:     length,
		Selection: Range{
			Start: Position{Line: line, Character: c.Column},
			End:   Position{Line: line, Character: c.Column + length},
		},
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
