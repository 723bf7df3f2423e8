package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/comment-tree/internal/comments"
	"github.com/mvp-joe/comment-tree/internal/config"
	"github.com/mvp-joe/comment-tree/internal/search"
	"github.com/spf13/cobra"
)

var (
	searchLimit int
	searchKind  string
	searchPath  string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over the workspace's comments",
	Long: `Search scans the workspace, indexes every comment and runs a query
against the comment text. The query uses bleve query-string syntax.

Examples:
  comment-tree search todo
  comment-tree search "+fixme -test" --kind line
  comment-tree search deprecated --path "*/internal/*"
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 15, "Maximum number of results (1-100)")
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "Only comments of this kind: line, hash, block or html")
	searchCmd.Flags().StringVar(&searchPath, "path", "", "Wildcard pattern on the absolute file path")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rootDir, _, cfg, err := loadWorkspace()
	if err != nil {
		return err
	}

	opts := &search.Options{Limit: searchLimit, Kind: searchKind, FilePath: searchPath}
	return searchWorkspace(ctx, cmd.OutOrStdout(), rootDir, cfg, strings.Join(args, " "), opts, searchJSON)
}

func searchWorkspace(ctx context.Context, out io.Writer, rootDir string, cfg *config.Config, query string, opts *search.Options, asJSON bool) error {
	if opts != nil && opts.Kind != "" {
		switch comments.Kind(opts.Kind) {
		case comments.KindLine, comments.KindHash, comments.KindBlock, comments.KindHTML:
		default:
			return fmt.Errorf("invalid --kind %q: must be line, hash, block or html", opts.Kind)
		}
	}

	_, snap, err := refreshOnce(ctx, rootDir, cfg, nil)
	if err != nil {
		return err
	}

	searcher, err := search.New()
	if err != nil {
		return err
	}
	defer searcher.Close()

	if err := searcher.Rebuild(ctx, snap); err != nil {
		return err
	}

	results, err := searcher.Search(ctx, query, opts)
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(out, results)
	}

	if len(results) == 0 {
		fmt.Fprintf(out, "No comments match %q\n", query)
		return nil
	}

	for _, r := range results {
		path := r.Comment.FilePath
		if rec, ok := snap.Lookup(path); ok && rec.Root != "" {
			if rel, err := filepath.Rel(rec.Root, path); err == nil {
				path = filepath.ToSlash(rel)
			}
		}
		fmt.Fprintf(out, "%s:%d:%d  %s\n", path, r.Comment.LineNumber, r.Comment.Column+1, comments.DisplayText(r.Comment.Text))
	}
	fmt.Fprintf(out, "\n%d result(s)\n", len(results))
	return nil
}
