package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvp-joe/comment-tree/internal/config"
	"github.com/mvp-joe/comment-tree/internal/workspace"
)

// signalContext returns a context cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted! Shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// refreshOnce builds an index and refreshes it once over the configured roots.
func refreshOnce(ctx context.Context, rootDir string, cfg *config.Config, progress workspace.ProgressReporter) (*workspace.Index, *workspace.Snapshot, error) {
	if progress == nil {
		progress = &workspace.NoOpProgressReporter{}
	}

	ix := workspace.NewIndex(workspace.WithProgress(progress))
	snap, err := ix.Refresh(ctx, cfg.Roots(rootDir), cfg.ToSettings())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan workspace: %w", err)
	}
	debugf("Snapshot %s: %d file(s), %d comment(s)", snap.ID, snap.Stats().TotalFiles, snap.Stats().TotalComments)

	return ix, snap, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonBytes))
	return err
}
