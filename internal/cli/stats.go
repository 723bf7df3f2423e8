package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/mvp-joe/comment-tree/internal/comments"
	"github.com/mvp-joe/comment-tree/internal/config"
	"github.com/mvp-joe/comment-tree/internal/tree"
	"github.com/mvp-joe/comment-tree/internal/workspace"
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count files and comments in the workspace",
	Long: `Stats scans the workspace and reports how many files contain comments,
how many comments were found, and how they split by kind.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rootDir, _, cfg, err := loadWorkspace()
	if err != nil {
		return err
	}

	return workspaceStats(ctx, cmd.OutOrStdout(), rootDir, cfg, NewCLIProgressReporter(quietFlag || statsJSON), statsJSON)
}

// statsOutput is the JSON form of the stats command.
type statsOutput struct {
	SnapshotID    string                `json:"snapshot_id"`
	Roots         []string              `json:"roots"`
	TotalFiles    int                   `json:"total_files"`
	TotalComments int                   `json:"total_comments"`
	ByKind        map[comments.Kind]int `json:"by_kind"`
	Summary       string                `json:"summary"`
}

var kindOrder = []comments.Kind{comments.KindLine, comments.KindHash, comments.KindBlock, comments.KindHTML}

func workspaceStats(ctx context.Context, out io.Writer, rootDir string, cfg *config.Config, progress *CLIProgressReporter, asJSON bool) error {
	_, snap, err := refreshOnce(ctx, rootDir, cfg, progress)
	if err != nil {
		return err
	}

	stats := snap.Stats()
	output := statsOutput{
		SnapshotID:    snap.ID,
		Roots:         snap.Roots,
		TotalFiles:    stats.TotalFiles,
		TotalComments: stats.TotalComments,
		ByKind:        countByKind(snap),
		Summary:       tree.FormatSummary(stats, len(snap.Roots) > 0),
	}

	if asJSON {
		return writeJSON(out, output)
	}

	fmt.Fprintf(out, "Files:    %s\n", formatNumber(output.TotalFiles))
	fmt.Fprintf(out, "Comments: %s\n", formatNumber(output.TotalComments))
	for _, kind := range kindOrder {
		fmt.Fprintf(out, "  %-6s %s\n", kind, formatNumber(output.ByKind[kind]))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, output.Summary)
	return nil
}

func countByKind(snap *workspace.Snapshot) map[comments.Kind]int {
	counts := make(map[comments.Kind]int, len(kindOrder))
	for _, kind := range kindOrder {
		counts[kind] = 0
	}
	for _, rec := range snap.Files() {
		for _, c := range rec.Comments {
			counts[c.Kind]++
		}
	}
	return counts
}
