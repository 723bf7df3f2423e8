// Package search provides full-text search over the comments of a workspace
// snapshot, backed by an in-memory bleve index.
package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/mvp-joe/comment-tree/internal/comments"
	"github.com/mvp-joe/comment-tree/internal/workspace"
)

// ErrEmptyQuery is returned by Search for a blank query string.
var ErrEmptyQuery = errors.New("search query is empty")

// ErrClosed is returned by Search after Close.
var ErrClosed = errors.New("searcher is closed")

const (
	defaultLimit = 15
	maxLimit     = 100
	batchSize    = 1000
)

// Options narrows a search. A nil *Options uses the defaults.
type Options struct {
	Limit    int    // 1-100; other values mean 15
	Kind     string // "line", "hash", "block" or "html"; empty means any
	FilePath string // wildcard pattern on the absolute path, e.g. "*/src/*"
}

// Result is one matching comment.
type Result struct {
	Comment    comments.Comment `json:"comment"`
	Score      float64          `json:"score"`
	Highlights []string         `json:"highlights"`
}

// Source is the index a Searcher follows.
type Source interface {
	Snapshot() *workspace.Snapshot
	Subscribe(fn func(*workspace.Snapshot)) (unsubscribe func())
}

// Searcher holds a bleve index of one snapshot. Rebuild replaces the whole
// index, so searches never see a mix of two snapshots.
type Searcher struct {
	mu         sync.RWMutex
	index      bleve.Index
	snapshotID string
}

// New creates a searcher with an empty index.
func New() (*Searcher, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &Searcher{index: index}, nil
}

// buildMapping creates the index mapping for comment documents.
func buildMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	// Comment text is the primary search target
	textMapping := bleve.NewTextFieldMapping()
	textMapping.Analyzer = "standard"
	textMapping.Store = true
	textMapping.IncludeTermVectors = true

	filePathMapping := bleve.NewTextFieldMapping()
	filePathMapping.Analyzer = "standard"
	filePathMapping.Store = true

	// Raw path for wildcard filtering
	pathKeywordMapping := bleve.NewTextFieldMapping()
	pathKeywordMapping.Analyzer = "keyword"
	pathKeywordMapping.Store = false
	pathKeywordMapping.IncludeInAll = false

	kindMapping := bleve.NewTextFieldMapping()
	kindMapping.Analyzer = "keyword"
	kindMapping.Store = true
	kindMapping.IncludeInAll = false

	positionMapping := bleve.NewNumericFieldMapping()
	positionMapping.Store = true
	positionMapping.IncludeInAll = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("text", textMapping)
	docMapping.AddFieldMappingsAt("file_path", filePathMapping)
	docMapping.AddFieldMappingsAt("path", pathKeywordMapping)
	docMapping.AddFieldMappingsAt("kind", kindMapping)
	docMapping.AddFieldMappingsAt("line", positionMapping)
	docMapping.AddFieldMappingsAt("column", positionMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Rebuild indexes every comment in snap into a fresh index and swaps it in.
func (s *Searcher) Rebuild(ctx context.Context, snap *workspace.Snapshot) error {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return fmt.Errorf("failed to create bleve index: %w", err)
	}

	if err := indexSnapshot(ctx, index, snap); err != nil {
		index.Close()
		return fmt.Errorf("failed to index snapshot: %w", err)
	}

	s.mu.Lock()
	old := s.index
	s.index = index
	s.snapshotID = snap.ID
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

func indexSnapshot(ctx context.Context, index bleve.Index, snap *workspace.Snapshot) error {
	batch := index.NewBatch()
	n := 0

	for _, rec := range snap.Files() {
		for i, c := range rec.Comments {
			if n%batchSize == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			n++

			id := fmt.Sprintf("%s#%d", rec.FilePath, i)
			if err := batch.Index(id, commentToDocument(c)); err != nil {
				return fmt.Errorf("failed to add comment %s to batch: %w", id, err)
			}

			if batch.Size() >= batchSize {
				if err := index.Batch(batch); err != nil {
					return fmt.Errorf("failed to execute batch: %w", err)
				}
				batch = index.NewBatch()
			}
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute final batch: %w", err)
		}
	}
	return nil
}

func commentToDocument(c comments.Comment) map[string]interface{} {
	return map[string]interface{}{
		"text":      c.Text,
		"file_path": c.FilePath,
		"path":      c.FilePath,
		"kind":      string(c.Kind),
		"line":      c.LineNumber,
		"column":    c.Column,
	}
}

// Search runs a bleve query-string query against the current index.
func (s *Searcher) Search(ctx context.Context, queryStr string, opts *Options) ([]*Result, error) {
	if strings.TrimSpace(queryStr) == "" {
		return nil, ErrEmptyQuery
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}

	limit := opts.Limit
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	queries := []query.Query{bleve.NewQueryStringQuery(queryStr)}

	if opts.Kind != "" {
		kindQuery := bleve.NewTermQuery(opts.Kind)
		kindQuery.SetField("kind")
		queries = append(queries, kindQuery)
	}

	if opts.FilePath != "" {
		pathQuery := bleve.NewWildcardQuery(opts.FilePath)
		pathQuery.SetField("path")
		queries = append(queries, pathQuery)
	}

	var finalQuery query.Query
	if len(queries) == 1 {
		finalQuery = queries[0]
	} else {
		finalQuery = bleve.NewConjunctionQuery(queries...)
	}

	req := bleve.NewSearchRequestOptions(finalQuery, limit, 0, false)
	highlightStyle := "html"
	req.Highlight = bleve.NewHighlight()
	req.Highlight.Style = &highlightStyle
	req.Highlight.Fields = []string{"text"}
	req.Fields = []string{"text", "file_path", "kind", "line", "column"}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.index == nil {
		return nil, ErrClosed
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	results := make([]*Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		text, _ := hit.Fields["text"].(string)
		filePath, _ := hit.Fields["file_path"].(string)
		kind, _ := hit.Fields["kind"].(string)
		line, _ := hit.Fields["line"].(float64)
		column, _ := hit.Fields["column"].(float64)

		results = append(results, &Result{
			Comment: comments.Comment{
				FilePath:   filePath,
				Text:       text,
				LineNumber: int(line),
				Column:     int(column),
				Kind:       comments.Kind(kind),
			},
			Score:      hit.Score,
			Highlights: extractHighlights(hit.Fragments),
		})
	}

	return results, nil
}

// extractHighlights flattens bleve fragments, keeping at most three.
func extractHighlights(fragments map[string][]string) []string {
	var highlights []string
	for _, snippets := range fragments {
		highlights = append(highlights, snippets...)
	}
	if len(highlights) > 3 {
		highlights = highlights[:3]
	}
	return highlights
}

// SnapshotID is the ID of the snapshot last indexed.
func (s *Searcher) SnapshotID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotID
}

// Attach indexes src's current snapshot and rebuilds on every commit until
// detach is called. Rebuild failures are logged.
func (s *Searcher) Attach(src Source) (detach func()) {
	if err := s.Rebuild(context.Background(), src.Snapshot()); err != nil {
		log.Printf("Warning: failed to build search index: %v", err)
	}

	return src.Subscribe(func(snap *workspace.Snapshot) {
		if err := s.Rebuild(context.Background(), snap); err != nil {
			log.Printf("Warning: failed to rebuild search index for snapshot %s: %v", snap.ID, err)
		}
	})
}

// Close releases the index.
func (s *Searcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		err := s.index.Close()
		s.index = nil
		return err
	}
	return nil
}
