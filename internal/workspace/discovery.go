package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds a glob plus the relaxed variants that let "**/" match
// zero directories ("**/*.ts" also matches "a.ts", "src/**/*.ts" also
// matches "src/a.ts").
type compiledPattern struct {
	pattern string
	globs   []glob.Glob
}

func compilePattern(pattern string) (compiledPattern, error) {
	cp := compiledPattern{pattern: pattern}

	for _, variant := range globstarVariants(pattern) {
		g, err := glob.Compile(variant, '/')
		if err != nil {
			return compiledPattern{}, fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
		cp.globs = append(cp.globs, g)
	}

	return cp, nil
}

func globstarVariants(pattern string) []string {
	variants := []string{pattern}
	seen := map[string]bool{pattern: true}

	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			variants = append(variants, p)
		}
	}

	stripped := strings.TrimPrefix(pattern, "**/")
	add(stripped)
	add(strings.ReplaceAll(pattern, "/**/", "/"))
	add(strings.ReplaceAll(stripped, "/**/", "/"))

	return variants
}

func (cp compiledPattern) match(path string) bool {
	for _, g := range cp.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// FileDiscovery enumerates the files of one workspace root that match the
// include pattern and none of the exclude patterns.
type FileDiscovery struct {
	rootDir  string
	include  compiledPattern
	excludes []compiledPattern
	maxFiles int
}

// NewFileDiscovery compiles the include and exclude globs for rootDir.
func NewFileDiscovery(rootDir, includePattern string, excludePatterns []string, maxFiles int) (*FileDiscovery, error) {
	include, err := compilePattern(includePattern)
	if err != nil {
		return nil, err
	}

	fd := &FileDiscovery{
		rootDir:  rootDir,
		include:  include,
		maxFiles: maxFiles,
	}

	for _, pattern := range excludePatterns {
		cp, err := compilePattern(pattern)
		if err != nil {
			return nil, err
		}
		fd.excludes = append(fd.excludes, cp)
	}

	return fd, nil
}

// DiscoverFiles walks the root in lexical order and returns absolute paths of
// matching files. Once maxFiles paths are collected the walk stops and
// truncated is true. Unreadable subdirectories are skipped with a warning;
// an unreadable root is returned as an error.
func (fd *FileDiscovery) DiscoverFiles(ctx context.Context) (files []string, truncated bool, err error) {
	files = []string{}

	err = filepath.WalkDir(fd.rootDir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == fd.rootDir {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path == fd.rootDir {
			return nil
		}

		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if fd.shouldIgnoreDir(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			// Links to files are followed. Links to directories are not descended.
			info, statErr := os.Stat(path)
			if statErr != nil {
				log.Printf("Warning: error accessing %s: %v", path, statErr)
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		if fd.shouldIgnore(relPath) || !fd.include.match(relPath) {
			return nil
		}

		if fd.maxFiles > 0 && len(files) >= fd.maxFiles {
			truncated = true
			return filepath.SkipAll
		}

		files = append(files, path)
		return nil
	})

	return files, truncated, err
}

// Excluded reports whether a root-relative, slash-separated path is excluded.
func (fd *FileDiscovery) Excluded(relPath string) bool {
	return fd.shouldIgnore(relPath) || fd.shouldIgnoreDir(relPath)
}

// Included reports whether a root-relative path matches the include pattern.
func (fd *FileDiscovery) Included(relPath string) bool {
	return fd.include.match(relPath)
}

// shouldIgnore checks if a path matches any exclude pattern.
func (fd *FileDiscovery) shouldIgnore(relPath string) bool {
	for _, cp := range fd.excludes {
		if cp.match(relPath) {
			return true
		}
	}
	return false
}

// shouldIgnoreDir also tries the directory with a "/**" suffix, so
// "node_modules" is pruned by "**/node_modules/**" before descending.
func (fd *FileDiscovery) shouldIgnoreDir(relPath string) bool {
	return fd.shouldIgnore(relPath) || fd.shouldIgnore(relPath+"/**")
}
