package mcp

import (
	"github.com/mvp-joe/comment-tree/internal/comments"
	"github.com/mvp-joe/comment-tree/internal/search"
	"github.com/mvp-joe/comment-tree/internal/tree"
	"github.com/mvp-joe/comment-tree/internal/workspace"
)

// StatsResponse is returned by comment_tree_stats and comment_tree_refresh.
type StatsResponse struct {
	SnapshotID    string   `json:"snapshot_id"`
	Generation    uint64   `json:"generation"`
	Roots         []string `json:"roots"`
	TotalFiles    int      `json:"total_files"`
	TotalComments int      `json:"total_comments"`
	Summary       string   `json:"summary"`
	Superseded    bool     `json:"superseded,omitempty"`
}

func newStatsResponse(snap *workspace.Snapshot) *StatsResponse {
	stats := snap.Stats()
	roots := snap.Roots
	if roots == nil {
		roots = []string{}
	}
	return &StatsResponse{
		SnapshotID:    snap.ID,
		Generation:    snap.Generation,
		Roots:         roots,
		TotalFiles:    stats.TotalFiles,
		TotalComments: stats.TotalComments,
		Summary:       tree.FormatSummary(stats, len(snap.Roots) > 0),
	}
}

// FileEntry is one top-level tree node.
type FileEntry struct {
	tree.FileNode
	Description string `json:"description"`
}

// FilesResponse is returned by comment_tree_files.
type FilesResponse struct {
	SnapshotID string      `json:"snapshot_id"`
	Files      []FileEntry `json:"files"`
	Total      int         `json:"total"`
	Summary    string      `json:"summary"`
}

// CommentEntry is one comment leaf with its display and navigation data.
type CommentEntry struct {
	Label    string        `json:"label"`
	Tooltip  string        `json:"tooltip"`
	Kind     comments.Kind `json:"kind"`
	Text     string        `json:"text"`
	Location tree.Location `json:"location"`
}

// CommentsResponse is returned by comment_tree_comments.
type CommentsResponse struct {
	FilePath string         `json:"file_path"`
	Comments []CommentEntry `json:"comments"`
	Total    int            `json:"total"`
}

// SearchResponse is returned by comment_tree_search.
type SearchResponse struct {
	Query      string           `json:"query"`
	SnapshotID string           `json:"snapshot_id"`
	Results    []*search.Result `json:"results"`
	Total      int              `json:"total"`
}
