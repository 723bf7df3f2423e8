// Package config loads comment-tree configuration.
//
// Configuration is layered, highest priority first:
//  1. Environment variables (COMMENTTREE_*, "." replaced by "_")
//  2. Project config (<root>/.commenttree/config.yml)
//  3. User config (~/.commenttree/config.yml)
//  4. Built-in defaults
//
// A Config is converted to a workspace.Settings value and passed into every
// refresh, so edits take effect on the next refresh.
package config

import (
	"path/filepath"

	"github.com/mvp-joe/comment-tree/internal/workspace"
)

// DirName is the per-project and per-user configuration directory.
const DirName = ".commenttree"

// Config represents the complete comment-tree configuration.
type Config struct {
	Comments  CommentsConfig  `yaml:"commentExplorer" mapstructure:"commentExplorer"`
	Workspace WorkspaceConfig `yaml:"workspace" mapstructure:"workspace"`
	Scan      ScanConfig      `yaml:"scan" mapstructure:"scan"`
}

// CommentsConfig holds the comment explorer options.
type CommentsConfig struct {
	Regex          string   `yaml:"regex" mapstructure:"regex"`                   // read and validated, not used for extraction
	FileExtensions []string `yaml:"fileExtensions" mapstructure:"fileExtensions"` // empty = all files
	Exclude        []string `yaml:"exclude" mapstructure:"exclude"`               // empty = default excludes
}

// WorkspaceConfig lists the workspace roots.
type WorkspaceConfig struct {
	Folders []string `yaml:"folders" mapstructure:"folders"` // relative to the project root; empty = the project root
}

// ScanConfig bounds a refresh.
type ScanConfig struct {
	MaxFiles int `yaml:"max_files" mapstructure:"max_files"` // per-root enumeration cap
	Workers  int `yaml:"workers" mapstructure:"workers"`     // 0 = one per CPU
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Comments: CommentsConfig{
			Regex:          workspace.DefaultRegex,
			FileExtensions: []string{},
			Exclude:        []string{},
		},
		Workspace: WorkspaceConfig{
			Folders: []string{},
		},
		Scan: ScanConfig{
			MaxFiles: workspace.DefaultMaxFiles,
			Workers:  8,
		},
	}
}

// ToSettings converts the configuration into refresh settings.
func (c *Config) ToSettings() workspace.Settings {
	return workspace.Settings{
		Regex:          c.Comments.Regex,
		FileExtensions: append([]string(nil), c.Comments.FileExtensions...),
		Exclude:        append([]string(nil), c.Comments.Exclude...),
		MaxFiles:       c.Scan.MaxFiles,
		Workers:        c.Scan.Workers,
	}
}

// Roots resolves the configured workspace folders against rootDir.
// With no folders configured, rootDir itself is the only root.
func (c *Config) Roots(rootDir string) []string {
	if len(c.Workspace.Folders) == 0 {
		return []string{rootDir}
	}

	roots := make([]string, 0, len(c.Workspace.Folders))
	for _, folder := range c.Workspace.Folders {
		if filepath.IsAbs(folder) {
			roots = append(roots, filepath.Clean(folder))
			continue
		}
		roots = append(roots, filepath.Join(rootDir, folder))
	}
	return roots
}
