package workspace

import (
	"runtime"
	"strings"
)

// DefaultMaxFiles caps how many files are enumerated per workspace root.
const DefaultMaxFiles = 10000

// DefaultRegex is the comment pattern exposed through configuration.
// Extraction does not use it; the four fixed passes in package comments do.
const DefaultRegex = `//.*$|/\*[\s\S]*?\*/|<!--.*?-->|#.*$`

// Settings is the configuration a single refresh runs with.
// It is passed into every Refresh call so changes apply on the next refresh.
type Settings struct {
	Regex          string   // read and carried, not used for extraction
	FileExtensions []string // empty means every file
	Exclude        []string // empty means DefaultExcludes()
	MaxFiles       int      // per root; <= 0 means DefaultMaxFiles
	Workers        int      // <= 0 means runtime.NumCPU()
}

// DefaultSettings returns settings with every option at its default.
func DefaultSettings() Settings {
	return Settings{
		Regex:    DefaultRegex,
		MaxFiles: DefaultMaxFiles,
		Workers:  runtime.NumCPU(),
	}
}

// DefaultExcludes covers version-control metadata, dependency directories and
// build output.
func DefaultExcludes() []string {
	return []string{
		"**/.git/**",
		"**/.svn/**",
		"**/.hg/**",
		"**/CVS/**",
		"**/node_modules/**",
		"**/bower_components/**",
		"**/vendor/**",
		"**/dist/**",
		"**/build/**",
		"**/out/**",
		"**/target/**",
		"**/__pycache__/**",
		"**/.commenttree/**",
	}
}

// IncludePattern returns "**/*" or "**/*.{ext1,ext2,...}".
func (s Settings) IncludePattern() string {
	exts := make([]string, 0, len(s.FileExtensions))
	for _, ext := range s.FileExtensions {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext != "" {
			exts = append(exts, ext)
		}
	}

	if len(exts) == 0 {
		return "**/*"
	}
	return "**/*.{" + strings.Join(exts, ",") + "}"
}

// ExcludePatterns returns the configured excludes or the defaults.
func (s Settings) ExcludePatterns() []string {
	if len(s.Exclude) == 0 {
		return DefaultExcludes()
	}
	return s.Exclude
}

func (s Settings) maxFiles() int {
	if s.MaxFiles <= 0 {
		return DefaultMaxFiles
	}
	return s.MaxFiles
}

func (s Settings) workers() int {
	if s.Workers <= 0 {
		return runtime.NumCPU()
	}
	return s.Workers
}
