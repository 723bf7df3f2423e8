package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/comment-tree/internal/comments"
	"github.com/mvp-joe/comment-tree/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Searcher:
// - Empty searcher returns no results
// - Blank query returns ErrEmptyQuery
// - Rebuild indexes comment text and stored fields round-trip into Result.Comment
// - Kind filter and path wildcard filter narrow results
// - Rebuild replaces the previous snapshot's documents
// - Attach follows index refreshes
// - Search after Close returns ErrClosed

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newSearcher(t *testing.T) *Searcher {
	t.Helper()

	s, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func indexedWorkspace(t *testing.T) (*workspace.Index, string) {
	t.Helper()

	root := t.TempDir()
	writeFile(t, root, "src/parser.go", "package src\n\n// TODO rewrite the parser\nfunc parse() {}\n")
	writeFile(t, root, "deploy/run.sh", "#!/bin/sh\n# deploy to staging\n")
	writeFile(t, root, "web/index.html", "<html>\n  <!-- parser output goes here -->\n</html>\n")

	ix := workspace.NewIndex()
	_, err := ix.Refresh(context.Background(), []string{root}, workspace.DefaultSettings())
	require.NoError(t, err)
	return ix, root
}

func TestSearcher_EmptyIndex(t *testing.T) {
	t.Parallel()

	s := newSearcher(t)
	results, err := s.Search(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearcher_EmptyQuery(t *testing.T) {
	t.Parallel()

	s := newSearcher(t)
	_, err := s.Search(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearcher_Rebuild(t *testing.T) {
	t.Parallel()

	ix, root := indexedWorkspace(t)
	s := newSearcher(t)
	require.NoError(t, s.Rebuild(context.Background(), ix.Snapshot()))
	assert.Equal(t, ix.Snapshot().ID, s.SnapshotID())

	results, err := s.Search(context.Background(), "staging", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0].Comment
	assert.Equal(t, filepath.Join(root, "deploy", "run.sh"), got.FilePath)
	assert.Equal(t, "# deploy to staging", got.Text)
	assert.Equal(t, 2, got.LineNumber)
	assert.Equal(t, 0, got.Column)
	assert.Equal(t, comments.KindHash, got.Kind)
	assert.Greater(t, results[0].Score, 0.0)
	require.NotEmpty(t, results[0].Highlights)
	assert.Contains(t, results[0].Highlights[0], "staging")
}

func TestSearcher_Filters(t *testing.T) {
	t.Parallel()

	ix, _ := indexedWorkspace(t)
	s := newSearcher(t)
	require.NoError(t, s.Rebuild(context.Background(), ix.Snapshot()))

	results, err := s.Search(context.Background(), "parser", nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = s.Search(context.Background(), "parser", &Options{Kind: string(comments.KindHTML)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "<!-- parser output goes here -->", results[0].Comment.Text)
	assert.Equal(t, 2, results[0].Comment.LineNumber)
	assert.Equal(t, 2, results[0].Comment.Column)

	results, err = s.Search(context.Background(), "parser", &Options{FilePath: "*/src/*"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "// TODO rewrite the parser", results[0].Comment.Text)

	results, err = s.Search(context.Background(), "parser", &Options{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearcher_RebuildReplaces(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := writeFile(t, root, "a.go", "// alpha\n")

	ix := workspace.NewIndex()
	_, err := ix.Refresh(context.Background(), []string{root}, workspace.DefaultSettings())
	require.NoError(t, err)

	s := newSearcher(t)
	require.NoError(t, s.Rebuild(context.Background(), ix.Snapshot()))

	require.NoError(t, os.WriteFile(path, []byte("// beta\n"), 0644))
	_, err = ix.Refresh(context.Background(), []string{root}, workspace.DefaultSettings())
	require.NoError(t, err)
	require.NoError(t, s.Rebuild(context.Background(), ix.Snapshot()))

	results, err := s.Search(context.Background(), "alpha", nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = s.Search(context.Background(), "beta", nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearcher_Attach(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "a.go", "// first\n")

	ix := workspace.NewIndex()
	s := newSearcher(t)
	detach := s.Attach(ix)
	defer detach()

	_, err := ix.Refresh(context.Background(), []string{root}, workspace.DefaultSettings())
	require.NoError(t, err)

	results, err := s.Search(context.Background(), "first", nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, ix.Snapshot().ID, s.SnapshotID())
}

func TestSearcher_Closed(t *testing.T) {
	t.Parallel()

	s, err := New()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Search(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrClosed)
}
