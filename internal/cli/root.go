package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mvp-joe/comment-tree/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	dirFlag   string
	verbose   bool
	quietFlag bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "comment-tree",
	Short: "Find every comment in a workspace",
	Long: `comment-tree scans a workspace for comments (//, #, /* */ and <!-- -->),
indexes them by file, line and column, and keeps the index fresh as files
and configuration change.

Configuration is read from .commenttree/config.yml in the workspace root,
from ~/.commenttree/config.yml, and from COMMENTTREE_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <dir>/.commenttree/config.yml)")
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "C", ".", "workspace directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "disable progress bars and non-error output")
}

// debugf logs only with --verbose.
func debugf(format string, args ...interface{}) {
	if verbose {
		log.Printf(format, args...)
	}
}

// workspaceRoot resolves the --dir flag to an absolute path.
func workspaceRoot() (string, error) {
	rootDir, err := filepath.Abs(dirFlag)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace directory: %w", err)
	}
	info, err := os.Stat(rootDir)
	if err != nil {
		return "", fmt.Errorf("failed to access workspace directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace path %s is not a directory", rootDir)
	}
	return rootDir, nil
}

// newLoader creates the configuration loader for rootDir, honoring --config.
func newLoader(rootDir string) config.Loader {
	var opts []config.LoaderOption
	if cfgFile != "" {
		opts = append(opts, config.WithConfigFile(cfgFile))
	}
	return config.NewLoader(rootDir, opts...)
}

// loadWorkspace resolves the workspace directory and loads its configuration.
func loadWorkspace() (string, config.Loader, *config.Config, error) {
	rootDir, err := workspaceRoot()
	if err != nil {
		return "", nil, nil, err
	}

	loader := newLoader(rootDir)
	cfg, err := loader.Load()
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	debugf("Workspace %s, roots %v", rootDir, cfg.Roots(rootDir))

	return rootDir, loader, cfg, nil
}
