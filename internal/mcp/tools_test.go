package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mvp-joe/comment-tree/internal/comments"
	"github.com/mvp-joe/comment-tree/internal/search"
	"github.com/mvp-joe/comment-tree/internal/tree"
	"github.com/mvp-joe/comment-tree/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for MCP tools:
// - NewServer registers tools and rejects missing dependencies
// - comment_tree_refresh rescans and reports totals; superseded refresh reports the committed snapshot
// - comment_tree_refresh surfaces hard failures as error results
// - comment_tree_stats reports zero totals for an empty workspace
// - comment_tree_files lists files in path order with descriptions
// - comment_tree_comments resolves absolute and relative paths; unknown paths yield an empty list
// - comment_tree_comments requires file_path
// - comment_tree_search finds comments, filters by kind, accepts string-encoded limits, validates kind, limit and query
// - Malformed arguments yield error results

// indexRefresher refreshes an index over fixed roots.
type indexRefresher struct {
	ix    *workspace.Index
	roots []string
	err   error
}

func (r *indexRefresher) Refresh(ctx context.Context) (*workspace.Snapshot, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.ix.Refresh(ctx, r.roots, workspace.DefaultSettings())
}

type fixture struct {
	root      string
	ix        *workspace.Index
	refresher *indexRefresher
	model     *tree.Model
	searcher  *search.Searcher
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	ix := workspace.NewIndex()
	model := tree.NewModel(ix)
	t.Cleanup(model.Close)

	searcher, err := search.New()
	require.NoError(t, err)
	detach := searcher.Attach(ix)
	t.Cleanup(func() {
		detach()
		searcher.Close()
	})

	return &fixture{
		root:      root,
		ix:        ix,
		refresher: &indexRefresher{ix: ix, roots: []string{root}},
		model:     model,
		searcher:  searcher,
	}
}

func (f *fixture) refresh(t *testing.T) {
	t.Helper()
	_, err := f.refresher.Refresh(context.Background())
	require.NoError(t, err)
}

func call(t *testing.T, handler toolHandler, args interface{}) *mcp.CallToolResult {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "content should be text")
	return textContent.Text
}

func decode[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	assert.False(t, result.IsError, "should not be error result")
	var v T
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &v))
	return v
}

var twoLanguages = map[string]string{
	"src/a.ts": "// A\nconst a = 1;\n",
	"src/b.py": "x = 1\n# B\n",
	"README":   "no comments here\n",
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	s, err := NewServer("test", f.refresher, f.model, f.searcher)
	require.NoError(t, err)
	assert.NotNil(t, s.MCPServer())

	_, err = NewServer("test", nil, f.model, f.searcher)
	assert.Error(t, err)
}

func TestRefreshTool(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoLanguages)

	resp := decode[StatsResponse](t, call(t, createRefreshHandler(f.refresher, f.model), nil))
	assert.Equal(t, 2, resp.TotalFiles)
	assert.Equal(t, 2, resp.TotalComments)
	assert.Equal(t, "Found 2 comments in 2 files", resp.Summary)
	assert.Equal(t, []string{f.root}, resp.Roots)
	assert.NotEmpty(t, resp.SnapshotID)
	assert.False(t, resp.Superseded)
	assert.Equal(t, resp.SnapshotID, f.searcher.SnapshotID())
}

func TestRefreshTool_Superseded(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoLanguages)
	f.refresh(t)

	superseded := &indexRefresher{err: fmt.Errorf("%w: generation 1, current 2", workspace.ErrSuperseded)}
	resp := decode[StatsResponse](t, call(t, createRefreshHandler(superseded, f.model), nil))
	assert.True(t, resp.Superseded)
	assert.Equal(t, 2, resp.TotalComments)
	assert.Equal(t, f.ix.Snapshot().ID, resp.SnapshotID)
}

func TestRefreshTool_Failure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	failing := &indexRefresher{err: errors.New("bad glob")}

	result := call(t, createRefreshHandler(failing, f.model), nil)
	assert.True(t, result.IsError, "should be error result")
	assert.Contains(t, textOf(t, result), "refresh failed: bad glob")
}

func TestStatsTool_EmptyWorkspace(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{"plain.txt": "nothing\n"})
	f.refresh(t)

	resp := decode[StatsResponse](t, call(t, createStatsHandler(f.model), nil))
	assert.Equal(t, 0, resp.TotalFiles)
	assert.Equal(t, 0, resp.TotalComments)
	assert.Equal(t, "No comments found in the current workspace", resp.Summary)

	// Before any refresh there is no workspace
	fresh := newFixture(t, nil)
	resp = decode[StatsResponse](t, call(t, createStatsHandler(fresh.model), nil))
	assert.Empty(t, resp.Summary)
	assert.Empty(t, resp.Roots)
}

func TestFilesTool(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"b.go": "// one\n// two\n",
		"a.go": "// only\n",
	})
	f.refresh(t)

	resp := decode[FilesResponse](t, call(t, createFilesHandler(f.model), nil))
	require.Len(t, resp.Files, 2)
	assert.Equal(t, 2, resp.Total)

	assert.Equal(t, "a.go", resp.Files[0].RelativePath)
	assert.Equal(t, filepath.Join(f.root, "a.go"), resp.Files[0].FilePath)
	assert.Equal(t, "1 comment", resp.Files[0].Description)

	assert.Equal(t, "b.go", resp.Files[1].RelativePath)
	assert.Equal(t, 2, resp.Files[1].CommentCount)
	assert.Equal(t, "2 comments", resp.Files[1].Description)

	assert.Equal(t, "Found 3 comments in 2 files", resp.Summary)
}

func TestCommentsTool(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoLanguages)
	f.refresh(t)
	handler := createCommentsHandler(f.model)

	t.Run("relative path", func(t *testing.T) {
		resp := decode[CommentsResponse](t, call(t, handler, map[string]interface{}{"file_path": "src/a.ts"}))
		require.Len(t, resp.Comments, 1)

		c := resp.Comments[0]
		assert.Equal(t, "// A", c.Text)
		assert.Equal(t, "A", c.Label)
		assert.Equal(t, comments.KindLine, c.Kind)
		assert.Equal(t, "File: src/a.ts\nLine: 1\nColumn: 1\n\n// A", c.Tooltip)
		assert.Equal(t, filepath.Join(f.root, "src", "a.ts"), c.Location.FilePath)
		assert.Equal(t, tree.Range{
			Start: tree.Position{Line: 0, Character: 0},
			End:   tree.Position{Line: 0, Character: 4},
		}, c.Location.Selection)
	})

	t.Run("absolute path", func(t *testing.T) {
		path := filepath.Join(f.root, "src", "b.py")
		resp := decode[CommentsResponse](t, call(t, handler, map[string]interface{}{"file_path": path}))
		require.Len(t, resp.Comments, 1)
		assert.Equal(t, "# B", resp.Comments[0].Text)
		assert.Equal(t, 2, resp.Comments[0].Location.LineNumber)
		assert.Equal(t, comments.KindHash, resp.Comments[0].Kind)
	})

	t.Run("unknown path", func(t *testing.T) {
		result := call(t, handler, map[string]interface{}{"file_path": "src/missing.go"})
		resp := decode[CommentsResponse](t, result)
		assert.Empty(t, resp.Comments)
		assert.Equal(t, 0, resp.Total)
		assert.Contains(t, textOf(t, result), `"comments":[]`)
	})

	t.Run("missing file_path", func(t *testing.T) {
		result := call(t, handler, map[string]interface{}{})
		assert.True(t, result.IsError, "should be error result")
		assert.Contains(t, textOf(t, result), "file_path parameter is required")
	})

	t.Run("invalid arguments format", func(t *testing.T) {
		result := call(t, handler, "not a map")
		assert.True(t, result.IsError, "should be error result")
		assert.Contains(t, textOf(t, result), "invalid arguments format")
	})
}

func TestSearchTool(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"main.go":    "// refresh the index\nfunc main() {}\n/* refresh block */\n",
		"build.sh":   "# refresh script\n",
		"other.go":   "// unrelated\n",
		"index.html": "<!-- layout -->\n",
	})
	f.refresh(t)
	handler := createSearchHandler(f.searcher)

	t.Run("matches text", func(t *testing.T) {
		resp := decode[SearchResponse](t, call(t, handler, map[string]interface{}{"query": "refresh"}))
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, "refresh", resp.Query)
		assert.Equal(t, f.ix.Snapshot().ID, resp.SnapshotID)
	})

	t.Run("kind filter", func(t *testing.T) {
		resp := decode[SearchResponse](t, call(t, handler, map[string]interface{}{
			"query": "refresh",
			"kind":  "hash",
		}))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "# refresh script", resp.Results[0].Comment.Text)
		assert.Equal(t, filepath.Join(f.root, "build.sh"), resp.Results[0].Comment.FilePath)
	})

	t.Run("limit", func(t *testing.T) {
		resp := decode[SearchResponse](t, call(t, handler, map[string]interface{}{
			"query": "refresh",
			"limit": float64(1),
		}))
		assert.Len(t, resp.Results, 1)
	})

	t.Run("string limit", func(t *testing.T) {
		resp := decode[SearchResponse](t, call(t, handler, map[string]interface{}{
			"query": "refresh",
			"limit": "2",
		}))
		assert.Len(t, resp.Results, 2)
	})

	t.Run("invalid limit", func(t *testing.T) {
		result := call(t, handler, map[string]interface{}{"query": "refresh", "limit": "many"})
		assert.True(t, result.IsError, "should be error result")
		assert.Contains(t, textOf(t, result), "invalid arguments")
	})

	t.Run("invalid kind", func(t *testing.T) {
		result := call(t, handler, map[string]interface{}{"query": "refresh", "kind": "doc"})
		assert.True(t, result.IsError, "should be error result")
		assert.Contains(t, textOf(t, result), "kind must be one of")
	})

	t.Run("missing query", func(t *testing.T) {
		result := call(t, handler, map[string]interface{}{"query": ""})
		assert.True(t, result.IsError, "should be error result")
		assert.Contains(t, textOf(t, result), "query cannot be empty")
	})
}
