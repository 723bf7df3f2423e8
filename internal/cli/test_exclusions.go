package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mvp-joe/comment-tree/internal/config"
	"github.com/mvp-joe/comment-tree/internal/workspace"
	"github.com/spf13/cobra"
)

var testExclusionsCmd = &cobra.Command{
	Use:   "test-exclusions",
	Short: "Check which files the exclude rules let through",
	Long: `Test-exclusions enumerates the first workspace root with the configured
include and exclude rules, without scanning any file, and reports how many
files under node_modules, dist, build and .git were still enumerated.`,
	Args: cobra.NoArgs,
	RunE: runTestExclusions,
}

func init() {
	rootCmd.AddCommand(testExclusionsCmd)
}

// watchedDirs are the directories the exclusion report counts.
var watchedDirs = []string{"node_modules", "dist", "build", ".git"}

// exclusionReport is the result of enumerating one root.
type exclusionReport struct {
	Root       string
	Include    string
	Exclude    []string
	TotalFiles int
	Truncated  bool
	Elapsed    time.Duration
	Leaked     map[string]int // files enumerated under each of watchedDirs
}

// Working reports whether no file under watchedDirs was enumerated.
func (r *exclusionReport) Working() bool {
	for _, n := range r.Leaked {
		if n > 0 {
			return false
		}
	}
	return true
}

func runTestExclusions(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rootDir, _, cfg, err := loadWorkspace()
	if err != nil {
		return err
	}

	report, err := testExclusions(ctx, rootDir, cfg)
	if err != nil {
		return err
	}
	printExclusionReport(cmd.OutOrStdout(), report)
	return nil
}

func testExclusions(ctx context.Context, rootDir string, cfg *config.Config) (*exclusionReport, error) {
	roots := cfg.Roots(rootDir)
	if len(roots) == 0 {
		return nil, fmt.Errorf("no workspace root to test")
	}
	root, err := workspace.ResolveRoot(roots[0])
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", roots[0], err)
	}
	settings := cfg.ToSettings()

	fd, err := workspace.NewFileDiscovery(root, settings.IncludePattern(), settings.ExcludePatterns(), cfg.Scan.MaxFiles)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	files, truncated, err := fd.DiscoverFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", root, err)
	}

	report := &exclusionReport{
		Root:       root,
		Include:    settings.IncludePattern(),
		Exclude:    settings.ExcludePatterns(),
		TotalFiles: len(files),
		Truncated:  truncated,
		Elapsed:    time.Since(start),
		Leaked:     make(map[string]int, len(watchedDirs)),
	}
	for _, dir := range watchedDirs {
		report.Leaked[dir] = 0
	}

	for _, path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		dirs := strings.Split(filepath.ToSlash(rel), "/")
		dirs = dirs[:len(dirs)-1]
		for _, watched := range watchedDirs {
			if slices.Contains(dirs, watched) {
				report.Leaked[watched]++
			}
		}
	}

	return report, nil
}

func printExclusionReport(out io.Writer, r *exclusionReport) {
	fmt.Fprintf(out, "Root:    %s\n", r.Root)
	fmt.Fprintf(out, "Include: %s\n", r.Include)
	fmt.Fprintf(out, "Exclude: %s\n", strings.Join(r.Exclude, ", "))
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Found %s file(s) in %s", formatNumber(r.TotalFiles), r.Elapsed.Round(time.Millisecond))
	if r.Truncated {
		fmt.Fprint(out, " (limit reached)")
	}
	fmt.Fprintln(out)

	for _, dir := range watchedDirs {
		fmt.Fprintf(out, "  %-13s %s\n", dir+":", formatNumber(r.Leaked[dir]))
	}
	fmt.Fprintln(out)

	if r.Working() {
		fmt.Fprintln(out, "✓ Exclusions are working")
	} else {
		fmt.Fprintln(out, "✗ Files under excluded directories were enumerated")
	}
}
