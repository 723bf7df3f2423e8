package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/comment-tree/internal/comments"
	"github.com/mvp-joe/comment-tree/internal/search"
	"github.com/mvp-joe/comment-tree/internal/tree"
	"github.com/mvp-joe/comment-tree/internal/workspace"
)

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Refresher rebuilds the index with the current roots and settings.
// watcher.Coordinator implements it.
type Refresher interface {
	Refresh(ctx context.Context) (*workspace.Snapshot, error)
}

// CommentSearcher answers full-text queries over the indexed comments.
type CommentSearcher interface {
	Search(ctx context.Context, query string, opts *search.Options) ([]*search.Result, error)
	SnapshotID() string
}

// AddRefreshTool registers comment_tree_refresh.
func AddRefreshTool(s *server.MCPServer, refresher Refresher, model *tree.Model) {
	tool := mcp.NewTool(
		"comment_tree_refresh",
		mcp.WithDescription("Re-scan every workspace root from scratch and replace the comment index. Returns the new totals."),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createRefreshHandler(refresher, model))
}

func createRefreshHandler(refresher Refresher, model *tree.Model) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap, err := refresher.Refresh(ctx)
		superseded := errors.Is(err, workspace.ErrSuperseded)
		if err != nil && !superseded {
			return mcp.NewToolResultError(fmt.Sprintf("refresh failed: %v", err)), nil
		}
		if superseded {
			// A newer refresh owns the index; report what it committed.
			snap = model.Snapshot()
		}

		response := newStatsResponse(snap)
		response.Superseded = superseded
		return jsonResult(response)
	}
}

// AddStatsTool registers comment_tree_stats.
func AddStatsTool(s *server.MCPServer, model *tree.Model) {
	tool := mcp.NewTool(
		"comment_tree_stats",
		mcp.WithDescription("Report how many files and comments the current index holds, with a one-line summary."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, createStatsHandler(model))
}

func createStatsHandler(model *tree.Model) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(newStatsResponse(model.Snapshot()))
	}
}

// AddFilesTool registers comment_tree_files.
func AddFilesTool(s *server.MCPServer, model *tree.Model) {
	tool := mcp.NewTool(
		"comment_tree_files",
		mcp.WithDescription("List the files that contain at least one comment, sorted by path, with their comment counts."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, createFilesHandler(model))
}

func createFilesHandler(model *tree.Model) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap := model.Snapshot()
		roots := model.Roots()

		files := make([]FileEntry, 0, len(roots))
		for _, node := range roots {
			files = append(files, FileEntry{FileNode: node, Description: node.Description()})
		}

		return jsonResult(&FilesResponse{
			SnapshotID: snap.ID,
			Files:      files,
			Total:      len(files),
			Summary:    tree.FormatSummary(snap.Stats(), len(snap.Roots) > 0),
		})
	}
}

// AddCommentsTool registers comment_tree_comments.
func AddCommentsTool(s *server.MCPServer, model *tree.Model) {
	tool := mcp.NewTool(
		"comment_tree_comments",
		mcp.WithDescription("List the comments of one file in discovery order, with line, column and a selection range for each."),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Absolute path, or the path as shown by comment_tree_files (e.g. 'src/main.go')")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, createCommentsHandler(model))
}

func createCommentsHandler(model *tree.Model) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := argsOf(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filePath, err := args.str("file_path", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		entries := []CommentEntry{}
		if node, ok := findFile(model.Roots(), filePath); ok {
			for _, c := range model.Children(node) {
				entries = append(entries, CommentEntry{
					Label:    c.Label(),
					Tooltip:  c.Tooltip(),
					Kind:     c.Comment.Kind,
					Text:     c.Comment.Text,
					Location: c.Location(),
				})
			}
		}

		return jsonResult(&CommentsResponse{
			FilePath: filePath,
			Comments: entries,
			Total:    len(entries),
		})
	}
}

// findFile matches path against each node's absolute path, then its label.
func findFile(nodes []tree.FileNode, path string) (tree.FileNode, bool) {
	if filepath.IsAbs(path) {
		path = filepath.Clean(path)
		for _, n := range nodes {
			if n.FilePath == path {
				return n, true
			}
		}
		return tree.FileNode{}, false
	}

	rel := filepath.ToSlash(filepath.Clean(path))
	for _, n := range nodes {
		if n.RelativePath == rel {
			return n, true
		}
	}
	return tree.FileNode{}, false
}

// AddSearchTool registers comment_tree_search.
func AddSearchTool(s *server.MCPServer, searcher CommentSearcher) {
	tool := mcp.NewTool(
		"comment_tree_search",
		mcp.WithDescription("Full-text search over comment text. Supports bleve query-string syntax such as 'todo', '+fixme -test' or 'text:\"race condition\"'."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Query string")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (1-100, default: 15)")),
		mcp.WithString("kind",
			mcp.Description("Only comments of this kind: 'line', 'hash', 'block' or 'html'")),
		mcp.WithString("file_path",
			mcp.Description("Wildcard pattern on the absolute file path, e.g. '*/internal/*' or '*.go'")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, createSearchHandler(searcher))
}

// searchArgs are the optional filters of comment_tree_search.
type searchArgs struct {
	Limit    *int   `json:"limit"`
	Kind     string `json:"kind"`
	FilePath string `json:"file_path"`
}

func createSearchHandler(searcher CommentSearcher) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := argsOf(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		query, err := args.str("query", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var filters searchArgs
		if err := args.bind(&filters); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if filters.Kind != "" && !validKind(filters.Kind) {
			return mcp.NewToolResultError(fmt.Sprintf("kind must be one of line, hash, block, html (got %q)", filters.Kind)), nil
		}

		opts := &search.Options{
			Limit:    clamp(filters.Limit, 15, 1, 100),
			Kind:     filters.Kind,
			FilePath: filters.FilePath,
		}

		results, err := searcher.Search(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}

		return jsonResult(&SearchResponse{
			Query:      query,
			SnapshotID: searcher.SnapshotID(),
			Results:    results,
			Total:      len(results),
		})
	}
}

func validKind(kind string) bool {
	switch comments.Kind(kind) {
	case comments.KindLine, comments.KindHash, comments.KindBlock, comments.KindHTML:
		return true
	}
	return false
}

// jsonResult marshals v as the text content of a tool result.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
