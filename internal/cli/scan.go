package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/mvp-joe/comment-tree/internal/comments"
	"github.com/mvp-joe/comment-tree/internal/config"
	"github.com/mvp-joe/comment-tree/internal/tree"
	"github.com/spf13/cobra"
)

var scanJSON bool

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the workspace and print every comment by file",
	Long: `Scan enumerates the workspace roots, extracts the comments of every
matching file and prints them grouped by file, in path order.

Examples:
  # Scan the current directory
  comment-tree scan

  # Scan another directory and print JSON
  comment-tree scan --dir ../project --json
`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Output as JSON")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rootDir, _, cfg, err := loadWorkspace()
	if err != nil {
		return err
	}

	progress := NewCLIProgressReporter(quietFlag || scanJSON)
	return scanWorkspace(ctx, cmd.OutOrStdout(), rootDir, cfg, progress, scanJSON)
}

// scanFile is the JSON form of one file node and its comments.
type scanFile struct {
	FilePath     string        `json:"file_path"`
	RelativePath string        `json:"relative_path"`
	Comments     []scanComment `json:"comments"`
}

type scanComment struct {
	Label    string        `json:"label"`
	Text     string        `json:"text"`
	Kind     comments.Kind `json:"kind"`
	Location tree.Location `json:"location"`
}

func scanWorkspace(ctx context.Context, out io.Writer, rootDir string, cfg *config.Config, progress *CLIProgressReporter, asJSON bool) error {
	ix, _, err := refreshOnce(ctx, rootDir, cfg, progress)
	if err != nil {
		return err
	}

	model := tree.NewModel(ix)
	defer model.Close()

	if asJSON {
		files := make([]scanFile, 0)
		for _, node := range model.Roots() {
			file := scanFile{FilePath: node.FilePath, RelativePath: node.RelativePath, Comments: []scanComment{}}
			for _, c := range model.Children(node) {
				file.Comments = append(file.Comments, scanComment{
					Label:    c.Label(),
					Text:     c.Comment.Text,
					Kind:     c.Comment.Kind,
					Location: c.Location(),
				})
			}
			files = append(files, file)
		}
		return writeJSON(out, files)
	}

	printTree(out, model)
	return nil
}

// printTree writes each file with its comments indented below it, then the
// summary line.
//
//	src/a.ts (1 comment)
//	  1:1  A
func printTree(out io.Writer, model *tree.Model) {
	for _, node := range model.Roots() {
		fmt.Fprintf(out, "%s (%s)\n", node.Label(), node.Description())
		for _, c := range model.Children(node) {
			fmt.Fprintf(out, "  %d:%d  %s\n", c.Comment.LineNumber, c.Comment.Column+1, c.Label())
		}
	}

	if summary := model.Summary(); summary != "" {
		if len(model.Roots()) > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, summary)
	}
}
