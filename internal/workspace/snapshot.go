package workspace

import (
	"sort"
	"time"

	"github.com/mvp-joe/comment-tree/internal/comments"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Stats summarizes a snapshot.
type Stats struct {
	TotalFiles    int `json:"total_files"`
	TotalComments int `json:"total_comments"`
}

// Snapshot is an immutable view of the index produced by one refresh.
// Records are sorted by file path and every record has at least one comment.
type Snapshot struct {
	ID         string    // unique per committed refresh
	Generation uint64    // refresh generation that produced it; 0 for the initial empty snapshot
	Roots      []string  // workspace roots the refresh enumerated
	CreatedAt  time.Time

	records []*comments.FileRecord
	byPath  map[string]*comments.FileRecord
	stats   Stats
}

func newSnapshot(id string, generation uint64, roots []string, records []*comments.FileRecord) *Snapshot {
	s := &Snapshot{
		ID:         id,
		Generation: generation,
		Roots:      append([]string(nil), roots...),
		CreatedAt:  time.Now(),
		records:    records,
		byPath:     make(map[string]*comments.FileRecord, len(records)),
	}

	for _, r := range records {
		s.byPath[r.FilePath] = r
		s.stats.TotalComments += len(r.Comments)
	}
	s.stats.TotalFiles = len(records)

	return s
}

func emptySnapshot() *Snapshot {
	return newSnapshot("", 0, nil, nil)
}

// Files returns the file records in path order. Callers must not modify them.
func (s *Snapshot) Files() []*comments.FileRecord {
	return s.records
}

// Lookup returns the record for an absolute file path.
func (s *Snapshot) Lookup(filePath string) (*comments.FileRecord, bool) {
	r, ok := s.byPath[filePath]
	return r, ok
}

// Stats returns file and comment totals.
func (s *Snapshot) Stats() Stats {
	return s.stats
}

// Empty reports whether the snapshot holds no files.
func (s *Snapshot) Empty() bool {
	return len(s.records) == 0
}

// PathComparer orders file paths with locale-aware collation, falling back
// to byte order when the collator considers two paths equal.
// A PathComparer is not safe for concurrent use.
type PathComparer struct {
	collator *collate.Collator
}

// NewPathComparer creates a comparer using the root locale.
func NewPathComparer() *PathComparer {
	return &PathComparer{collator: collate.New(language.Und)}
}

// Compare returns -1, 0 or +1.
func (c *PathComparer) Compare(a, b string) int {
	if r := c.collator.CompareString(a, b); r != 0 {
		return r
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// sortRecords sorts records by file path in place.
func sortRecords(records []*comments.FileRecord) {
	cmp := NewPathComparer()
	sort.SliceStable(records, func(i, j int) bool {
		return cmp.Compare(records[i].FilePath, records[j].FilePath) < 0
	})
}
