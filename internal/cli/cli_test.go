package cli

// Test Plan for CLI commands:
// - scan prints files in path order with 1-based columns and the summary line
// - scan --json emits every file with its comments and selection ranges
// - scan of a workspace without comments prints the empty-workspace summary
// - stats counts files, comments and kinds
// - search prints root-relative matches; --kind filters; invalid kind is rejected
// - test-exclusions reports zero leaked files with default excludes and counts files (not path segments) with custom excludes
// - applyConfig routes folder-only changes to AddRoot/RemoveRoot and everything else to HandleConfigChange
// - applyConfig ignores load errors
// - progress reporter counts scanned files; formatNumber adds separators
// - version prints the build information

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/comment-tree/internal/comments"
	"github.com/mvp-joe/comment-tree/internal/config"
	"github.com/mvp-joe/comment-tree/internal/search"
	"github.com/mvp-joe/comment-tree/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

var twoLanguages = map[string]string{
	"src/a.ts": "// A\nconst a = 1;\n",
	"src/b.py": "x = 1\n# B\n",
	"README":   "plain text\n",
}

func TestScanWorkspace_Text(t *testing.T) {
	t.Parallel()

	root := setupWorkspace(t, twoLanguages)
	var out bytes.Buffer

	err := scanWorkspace(context.Background(), &out, root, config.Default(), NewCLIProgressReporter(true), false)
	require.NoError(t, err)

	expected := "src/a.ts (1 comment)\n" +
		"  1:1  A\n" +
		"src/b.py (1 comment)\n" +
		"  2:1  B\n" +
		"\n" +
		"Found 2 comments in 2 files\n"
	assert.Equal(t, expected, out.String())
}

func TestScanWorkspace_JSON(t *testing.T) {
	t.Parallel()

	root := setupWorkspace(t, map[string]string{
		"main.go": "package main\n\n/* block\n   comment */\nfunc main() {} // trailing\n",
	})
	var out bytes.Buffer

	err := scanWorkspace(context.Background(), &out, root, config.Default(), NewCLIProgressReporter(true), true)
	require.NoError(t, err)

	var files []scanFile
	require.NoError(t, json.Unmarshal(out.Bytes(), &files))
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].RelativePath)
	assert.Equal(t, filepath.Join(root, "main.go"), files[0].FilePath)
	require.Len(t, files[0].Comments, 2)

	line := files[0].Comments[0]
	assert.Equal(t, "// trailing", line.Text)
	assert.Equal(t, comments.KindLine, line.Kind)
	assert.Equal(t, 5, line.Location.LineNumber)
	assert.Equal(t, 15, line.Location.Column)
	assert.Equal(t, 26, line.Location.Selection.End.Character)

	block := files[0].Comments[1]
	assert.Equal(t, comments.KindBlock, block.Kind)
	assert.Equal(t, 3, block.Location.LineNumber)
	assert.Equal(t, "block comment", block.Label)
}

func TestScanWorkspace_NoComments(t *testing.T) {
	t.Parallel()

	root := setupWorkspace(t, map[string]string{"notes.txt": "nothing to see\n"})
	var out bytes.Buffer

	require.NoError(t, scanWorkspace(context.Background(), &out, root, config.Default(), NewCLIProgressReporter(true), false))
	assert.Equal(t, "No comments found in the current workspace\n", out.String())
}

func TestWorkspaceStats(t *testing.T) {
	t.Parallel()

	root := setupWorkspace(t, map[string]string{
		"a.go":       "// one\n/* two */\n",
		"b.sh":       "# three\n",
		"index.html": "<!-- four -->\n",
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, workspaceStats(context.Background(), &out, root, config.Default(), NewCLIProgressReporter(true), true))

		var stats statsOutput
		require.NoError(t, json.Unmarshal(out.Bytes(), &stats))
		assert.Equal(t, 3, stats.TotalFiles)
		assert.Equal(t, 4, stats.TotalComments)
		assert.Equal(t, map[comments.Kind]int{
			comments.KindLine:  1,
			comments.KindHash:  1,
			comments.KindBlock: 1,
			comments.KindHTML:  1,
		}, stats.ByKind)
		assert.Equal(t, "Found 4 comments in 3 files", stats.Summary)
		assert.Equal(t, []string{root}, stats.Roots)
	})

	t.Run("text", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, workspaceStats(context.Background(), &out, root, config.Default(), NewCLIProgressReporter(true), false))
		assert.Contains(t, out.String(), "Files:    3\n")
		assert.Contains(t, out.String(), "Comments: 4\n")
		assert.Contains(t, out.String(), "Found 4 comments in 3 files\n")
	})
}

func TestSearchWorkspace(t *testing.T) {
	t.Parallel()

	root := setupWorkspace(t, map[string]string{
		"pkg/cache.go": "// evict stale entries\nfunc evict() {}\n",
		"run.sh":       "# evict everything\n",
		"main.go":      "// unrelated\n",
	})

	t.Run("text output", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, searchWorkspace(context.Background(), &out, root, config.Default(), "evict", nil, false))
		assert.Contains(t, out.String(), "pkg/cache.go:1:1  evict stale entries\n")
		assert.Contains(t, out.String(), "run.sh:1:1  evict everything\n")
		assert.Contains(t, out.String(), "2 result(s)")
	})

	t.Run("kind filter", func(t *testing.T) {
		var out bytes.Buffer
		opts := &search.Options{Kind: "hash"}
		require.NoError(t, searchWorkspace(context.Background(), &out, root, config.Default(), "evict", opts, true))

		var results []*search.Result
		require.NoError(t, json.Unmarshal(out.Bytes(), &results))
		require.Len(t, results, 1)
		assert.Equal(t, "# evict everything", results[0].Comment.Text)
	})

	t.Run("no match", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, searchWorkspace(context.Background(), &out, root, config.Default(), "nonexistent", nil, false))
		assert.Equal(t, "No comments match \"nonexistent\"\n", out.String())
	})

	t.Run("invalid kind", func(t *testing.T) {
		var out bytes.Buffer
		err := searchWorkspace(context.Background(), &out, root, config.Default(), "evict", &search.Options{Kind: "doc"}, false)
		assert.ErrorContains(t, err, "invalid --kind")
	})

	t.Run("empty query", func(t *testing.T) {
		var out bytes.Buffer
		err := searchWorkspace(context.Background(), &out, root, config.Default(), " ", nil, false)
		assert.ErrorIs(t, err, search.ErrEmptyQuery)
	})
}

func TestTestExclusions(t *testing.T) {
	t.Parallel()

	root := setupWorkspace(t, map[string]string{
		"src/main.go":                        "// main\n",
		"node_modules/dep/index.js":          "// dep\n",
		"node_modules/a/node_modules/b/c.js": "// nested\n",
		"dist/bundle.js":                     "// bundle\n",
		"build/out.o":                        "bin\n",
		".git/config":                        "[core]\n",
	})

	t.Run("default excludes", func(t *testing.T) {
		report, err := testExclusions(context.Background(), root, config.Default())
		require.NoError(t, err)
		assert.Equal(t, root, report.Root)
		assert.Equal(t, 1, report.TotalFiles)
		assert.True(t, report.Working())

		var out bytes.Buffer
		printExclusionReport(&out, report)
		assert.Contains(t, out.String(), "✓ Exclusions are working")
		assert.Contains(t, out.String(), "Include: **/*\n")
	})

	t.Run("custom excludes", func(t *testing.T) {
		cfg := config.Default()
		cfg.Comments.Exclude = []string{"**/.git/**"}

		report, err := testExclusions(context.Background(), root, cfg)
		require.NoError(t, err)
		assert.Equal(t, 5, report.TotalFiles)
		// Each file counts once per directory name, however deeply it nests
		assert.Equal(t, map[string]int{"node_modules": 2, "dist": 1, "build": 1, ".git": 0}, report.Leaked)
		assert.False(t, report.Working())

		var out bytes.Buffer
		printExclusionReport(&out, report)
		assert.Contains(t, out.String(), "✗ Files under excluded directories were enumerated")
	})

	t.Run("invalid glob", func(t *testing.T) {
		cfg := config.Default()
		cfg.Comments.Exclude = []string{"[oops"}
		_, err := testExclusions(context.Background(), root, cfg)
		assert.Error(t, err)
	})
}

// fakeTarget records the calls applyConfig makes.
type fakeTarget struct {
	roots    []string
	settings workspace.Settings

	added    []string
	removed  []string
	handled  int
	handleFn func(workspace.Settings, []string) error
}

func (f *fakeTarget) Roots() []string              { return f.roots }
func (f *fakeTarget) Settings() workspace.Settings { return f.settings }
func (f *fakeTarget) AddRoot(root string) error    { f.added = append(f.added, root); return nil }
func (f *fakeTarget) RemoveRoot(root string) error { f.removed = append(f.removed, root); return nil }

func (f *fakeTarget) HandleConfigChange(settings workspace.Settings, roots []string) error {
	f.handled++
	if f.handleFn != nil {
		return f.handleFn(settings, roots)
	}
	return nil
}

func TestApplyConfig(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	base := config.Default()

	t.Run("folder change adds and removes roots", func(t *testing.T) {
		target := &fakeTarget{roots: []string{rootDir}, settings: base.ToSettings()}

		cfg := config.Default()
		cfg.Workspace.Folders = []string{"app", "lib"}
		applyConfig(target, rootDir, cfg, nil)

		assert.Equal(t, []string{filepath.Join(rootDir, "app"), filepath.Join(rootDir, "lib")}, target.added)
		assert.Equal(t, []string{rootDir}, target.removed)
		assert.Equal(t, 0, target.handled)
	})

	t.Run("settings change swaps everything", func(t *testing.T) {
		target := &fakeTarget{roots: []string{rootDir}, settings: base.ToSettings()}

		cfg := config.Default()
		cfg.Comments.FileExtensions = []string{"go"}
		cfg.Workspace.Folders = []string{"app"}

		var gotRoots []string
		target.handleFn = func(settings workspace.Settings, roots []string) error {
			assert.Equal(t, []string{"go"}, settings.FileExtensions)
			gotRoots = roots
			return nil
		}
		applyConfig(target, rootDir, cfg, nil)

		assert.Equal(t, 1, target.handled)
		assert.Equal(t, []string{filepath.Join(rootDir, "app")}, gotRoots)
		assert.Empty(t, target.added)
		assert.Empty(t, target.removed)
	})

	t.Run("unchanged config still refreshes", func(t *testing.T) {
		target := &fakeTarget{roots: []string{rootDir}, settings: base.ToSettings()}
		applyConfig(target, rootDir, config.Default(), nil)
		assert.Equal(t, 1, target.handled)
	})

	t.Run("load error is ignored", func(t *testing.T) {
		target := &fakeTarget{roots: []string{rootDir}, settings: base.ToSettings()}
		applyConfig(target, rootDir, nil, errors.New("bad yaml"))
		assert.Equal(t, 0, target.handled)
		assert.Empty(t, target.added)
	})
}

func TestProgressReporter(t *testing.T) {
	t.Parallel()

	root := setupWorkspace(t, twoLanguages)
	progress := NewCLIProgressReporter(true)

	_, snap, err := refreshOnce(context.Background(), root, config.Default(), progress)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Stats().TotalFiles)
	assert.Equal(t, 3, progress.Scanned())
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1500, "-1,500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.n))
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "comment-tree dev\nGit commit: none\nBuild date: unknown\n", out.String())
}
