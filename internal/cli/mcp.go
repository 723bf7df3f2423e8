package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/mvp-joe/comment-tree/internal/mcp"
	"github.com/mvp-joe/comment-tree/internal/search"
	"github.com/mvp-joe/comment-tree/internal/tree"
	"github.com/mvp-joe/comment-tree/internal/watcher"
	"github.com/mvp-joe/comment-tree/internal/workspace"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for comment queries",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can
list, read and search the comments of your workspace.

The MCP server:
- Scans the workspace on startup and keeps the index fresh while files and
  configuration change
- Provides the comment_tree_refresh, comment_tree_stats, comment_tree_files,
  comment_tree_comments and comment_tree_search tools
- Communicates via stdio (standard MCP transport)

Example:
  comment-tree mcp`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rootDir, loader, cfg, err := loadWorkspace()
	if err != nil {
		return err
	}

	// stdout carries the protocol; everything else goes to stderr.
	fmt.Fprintf(os.Stderr, "comment-tree MCP server\n")
	fmt.Fprintf(os.Stderr, "Workspace: %s\n", rootDir)

	ix := workspace.NewIndex()
	model := tree.NewModel(ix)
	defer model.Close()

	searcher, err := search.New()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}
	defer searcher.Close()
	detach := searcher.Attach(ix)
	defer detach()

	coord, err := watcher.NewCoordinator(ix, cfg.Roots(rootDir), cfg.ToSettings())
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if _, err := coord.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to scan workspace: %w", err)
	}
	fmt.Fprintf(os.Stderr, "%s\n\n", model.Summary())

	stopConfig, err := watchConfig(loader, coord, rootDir)
	if err != nil {
		return err
	}
	defer stopConfig()

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if err := coord.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Warning: workspace watcher stopped: %v", err)
		}
	}()
	defer func() {
		cancel()
		<-watchDone
	}()

	server, err := mcp.NewServer(Version, coord, model, searcher)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
