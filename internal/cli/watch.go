package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"

	"github.com/mvp-joe/comment-tree/internal/config"
	"github.com/mvp-joe/comment-tree/internal/tree"
	"github.com/mvp-joe/comment-tree/internal/watcher"
	"github.com/mvp-joe/comment-tree/internal/workspace"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the comment index fresh and print a summary after every refresh",
	Long: `Watch scans the workspace, then rescans it whenever a matching file is
created, changed or removed (debounced), when the configuration file changes,
and when workspace folders are added to or removed from the configuration.
Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rootDir, loader, cfg, err := loadWorkspace()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ix := workspace.NewIndex()
	model := tree.NewModel(ix)
	defer model.Close()

	unsubscribe := model.OnChanged(func() {
		if summary := model.Summary(); summary != "" {
			fmt.Fprintln(out, summary)
		}
	})
	defer unsubscribe()

	coord, err := watcher.NewCoordinator(ix, cfg.Roots(rootDir), cfg.ToSettings())
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if _, err := coord.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to scan workspace: %w", err)
	}

	stopConfig, err := watchConfig(loader, coord, rootDir)
	if err != nil {
		return err
	}
	defer stopConfig()

	if !quietFlag {
		fmt.Fprintf(out, "Watching %d root(s) for changes (Ctrl+C to stop)\n", len(coord.Roots()))
	}

	if err := coord.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchConfig applies configuration file changes to coord. Without a config
// file there is nothing to watch and the returned stop is a no-op.
func watchConfig(loader config.Loader, coord *watcher.Coordinator, rootDir string) (stop func(), err error) {
	stop, err = loader.Watch(func(cfg *config.Config, err error) {
		applyConfig(coord, rootDir, cfg, err)
	})
	if errors.Is(err, config.ErrNoConfigFile) {
		debugf("No configuration file to watch: %v", err)
		return func() {}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to watch configuration: %w", err)
	}
	return stop, nil
}

// configTarget is the part of watcher.Coordinator applyConfig drives.
type configTarget interface {
	Roots() []string
	Settings() workspace.Settings
	HandleConfigChange(settings workspace.Settings, roots []string) error
	AddRoot(root string) error
	RemoveRoot(root string) error
}

// applyConfig applies a reloaded configuration. When only the workspace
// folders changed, roots are added and removed one by one; any other change
// swaps settings and roots together.
func applyConfig(target configTarget, rootDir string, cfg *config.Config, loadErr error) {
	if loadErr != nil {
		log.Printf("Warning: ignoring configuration change: %v", loadErr)
		return
	}

	settings := cfg.ToSettings()
	roots := absRoots(cfg.Roots(rootDir))

	if sameSettings(settings, target.Settings()) {
		added, removed := watcher.DiffRoots(target.Roots(), roots)
		if len(added) > 0 || len(removed) > 0 {
			for _, root := range added {
				if err := target.AddRoot(root); err != nil {
					log.Printf("Warning: failed to add root %s: %v", root, err)
				}
			}
			for _, root := range removed {
				if err := target.RemoveRoot(root); err != nil {
					log.Printf("Warning: failed to remove root %s: %v", root, err)
				}
			}
			return
		}
	}

	if err := target.HandleConfigChange(settings, roots); err != nil {
		log.Printf("Warning: ignoring configuration change: %v", err)
	}
}

func sameSettings(a, b workspace.Settings) bool {
	return a.Regex == b.Regex &&
		a.MaxFiles == b.MaxFiles &&
		a.Workers == b.Workers &&
		slices.Equal(a.FileExtensions, b.FileExtensions) &&
		slices.Equal(a.Exclude, b.Exclude)
}

func absRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		if abs, err := workspace.ResolveRoot(root); err == nil {
			out = append(out, abs)
		}
	}
	return out
}
