package comments

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"
)

var (
	// ErrBinaryContent indicates the file looks like binary data.
	ErrBinaryContent = errors.New("binary content")

	// ErrInvalidEncoding indicates the file is not valid UTF-8 text.
	ErrInvalidEncoding = errors.New("invalid UTF-8 content")
)

// sniffLen is how many leading bytes are checked for NUL when detecting binary files.
const sniffLen = 512

// FileScanner reads files from disk and extracts their comments.
// It is stateless and safe for concurrent use.
type FileScanner struct{}

// NewFileScanner creates a FileScanner.
func NewFileScanner() *FileScanner {
	return &FileScanner{}
}

// Scan reads path and returns its comments. A scan failure (unreadable,
// binary or non-UTF-8 file) is returned as an error; callers treat it as a
// file with zero comments.
func (s *FileScanner) Scan(path string) (*FileRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if bytes.IndexByte(data[:min(len(data), sniffLen)], 0) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrBinaryContent, path)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEncoding, path)
	}

	return ScanContent(path, string(data)), nil
}

// ScanContent extracts comments from already loaded content.
func ScanContent(path, content string) *FileRecord {
	occurrences := Match(content)

	record := &FileRecord{
		FilePath: path,
		Comments: make([]Comment, 0, len(occurrences)),
	}

	var resolver *PositionResolver
	for _, occ := range occurrences {
		pos := Position{Line: occ.Line, Column: occ.Column}
		if !occ.Resolved() {
			if resolver == nil {
				resolver = NewPositionResolver(content)
			}
			pos = resolver.Resolve(occ.Offset)
		}

		record.Comments = append(record.Comments, Comment{
			FilePath:   path,
			Text:       occ.Text,
			LineNumber: pos.Line,
			Column:     pos.Column,
			Kind:       occ.Kind,
		})
	}

	return record
}
