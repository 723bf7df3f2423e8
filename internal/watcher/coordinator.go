package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mvp-joe/comment-tree/internal/workspace"
)

// Coordinator owns the current roots and settings and routes every refresh
// trigger (file changes, configuration changes, root add/remove, manual
// refresh) to the Refresher.
type Coordinator struct {
	refresher Refresher
	files     FileWatcher

	mu          sync.RWMutex
	roots       []string
	settings    workspace.Settings
	discoveries map[string]*workspace.FileDiscovery // per root, matches settings
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithFileWatcher replaces the fsnotify watcher the coordinator creates.
func WithFileWatcher(fw FileWatcher) CoordinatorOption {
	return func(c *Coordinator) {
		c.files = fw
	}
}

// NewCoordinator creates a coordinator over roots. It fails if the
// settings' include or exclude globs do not compile.
func NewCoordinator(refresher Refresher, roots []string, settings workspace.Settings, opts ...CoordinatorOption) (*Coordinator, error) {
	c := &Coordinator{
		refresher: refresher,
		roots:     cleanRoots(roots),
		settings:  settings,
	}

	discoveries, err := buildDiscoveries(c.roots, settings)
	if err != nil {
		return nil, err
	}
	c.discoveries = discoveries

	for _, opt := range opts {
		opt(c)
	}

	if c.files == nil {
		fw, err := NewFileWatcher(c.roots, c)
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		c.files = fw
	}

	return c, nil
}

func cleanRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	seen := make(map[string]bool)
	for _, root := range roots {
		abs, err := workspace.ResolveRoot(root)
		if err != nil {
			log.Printf("Warning: failed to resolve root %s: %v", root, err)
			continue
		}
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	}
	return out
}

func buildDiscoveries(roots []string, settings workspace.Settings) (map[string]*workspace.FileDiscovery, error) {
	discoveries := make(map[string]*workspace.FileDiscovery, len(roots))
	for _, root := range roots {
		fd, err := workspace.NewFileDiscovery(root, settings.IncludePattern(), settings.ExcludePatterns(), 0)
		if err != nil {
			return nil, err
		}
		discoveries[root] = fd
	}
	return discoveries, nil
}

// Start watches the workspace until ctx is cancelled. It does not refresh
// on its own; callers refresh once before or after starting.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.files.Start(ctx, c.handleFileChange); err != nil {
		c.cleanup()
		return err
	}

	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

// cleanup stops the file watcher.
func (c *Coordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		log.Printf("Warning: file watcher stop failed: %v", err)
	}
}

// Roots returns the current workspace roots.
func (c *Coordinator) Roots() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.roots...)
}

// Settings returns the current refresh settings.
func (c *Coordinator) Settings() workspace.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// Refresh rebuilds the index with the current roots and settings.
// A refresh overtaken by a newer one returns workspace.ErrSuperseded.
func (c *Coordinator) Refresh(ctx context.Context) (*workspace.Snapshot, error) {
	c.mu.RLock()
	roots := append([]string(nil), c.roots...)
	settings := c.settings
	c.mu.RUnlock()

	return c.refresher.Refresh(ctx, roots, settings)
}

// refresh runs a refresh for a trigger and logs the outcome.
func (c *Coordinator) refresh(reason string) {
	snap, err := c.Refresh(context.Background())
	switch {
	case errors.Is(err, workspace.ErrSuperseded):
		log.Printf("Refresh after %s superseded by a newer refresh", reason)
	case err != nil:
		log.Printf("Error: refresh after %s failed: %v", reason, err)
	default:
		stats := snap.Stats()
		log.Printf("✓ Refreshed after %s: %d comment(s) in %d file(s)", reason, stats.TotalComments, stats.TotalFiles)
	}
}

// HandleConfigChange applies new settings and roots, then refreshes.
// Invalid globs leave the previous settings in place.
func (c *Coordinator) HandleConfigChange(settings workspace.Settings, roots []string) error {
	roots = cleanRoots(roots)
	discoveries, err := buildDiscoveries(roots, settings)
	if err != nil {
		return err
	}

	c.files.Pause()
	defer c.files.Resume()

	c.mu.Lock()
	added, removed := DiffRoots(c.roots, roots)
	c.roots = roots
	c.settings = settings
	c.discoveries = discoveries
	c.mu.Unlock()

	c.watchRoots(added, removed)
	c.refresh("configuration change")
	return nil
}

// AddRoot adds a workspace root and refreshes. Adding a known root only
// refreshes.
func (c *Coordinator) AddRoot(root string) error {
	abs, err := workspace.ResolveRoot(root)
	if err != nil {
		return fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	c.files.Pause()
	defer c.files.Resume()

	c.mu.Lock()
	if _, ok := c.discoveries[abs]; !ok {
		fd, err := workspace.NewFileDiscovery(abs, c.settings.IncludePattern(), c.settings.ExcludePatterns(), 0)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.roots = append(c.roots, abs)
		c.discoveries[abs] = fd
		c.mu.Unlock()
		c.watchRoots([]string{abs}, nil)
	} else {
		c.mu.Unlock()
	}

	c.refresh("workspace root added")
	return nil
}

// RemoveRoot removes a workspace root and refreshes. With no roots left the
// index becomes empty.
func (c *Coordinator) RemoveRoot(root string) error {
	abs, err := workspace.ResolveRoot(root)
	if err != nil {
		return fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	c.files.Pause()
	defer c.files.Resume()

	c.mu.Lock()
	_, removed := DiffRoots(c.roots, without(c.roots, abs))
	c.roots = without(c.roots, abs)
	delete(c.discoveries, abs)
	c.mu.Unlock()

	c.watchRoots(nil, removed)
	c.refresh("workspace root removed")
	return nil
}

func (c *Coordinator) watchRoots(added, removed []string) {
	for _, root := range removed {
		if err := c.files.RemoveDir(root); err != nil {
			log.Printf("Warning: failed to unwatch %s: %v", root, err)
		}
	}
	for _, root := range added {
		if err := c.files.AddDir(root); err != nil {
			log.Printf("Warning: failed to watch %s: %v", root, err)
		}
	}
}

// handleFileChange processes file change events from the file watcher.
func (c *Coordinator) handleFileChange(files []string) {
	if len(files) == 0 {
		return
	}

	log.Printf("Processing %d file change(s)...", len(files))
	c.refresh("file changes")
}

// WatchDir implements PathFilter: directories under a root that are not
// excluded are watched.
func (c *Coordinator) WatchDir(dir string) bool {
	root, rel, fd := c.locate(dir)
	if root == "" {
		return false
	}
	return rel == "." || !fd.Excluded(rel)
}

// Relevant implements PathFilter: files under a root that match the include
// pattern and no exclude pattern can change the index.
func (c *Coordinator) Relevant(path string) bool {
	root, rel, fd := c.locate(path)
	if root == "" || rel == "." {
		return false
	}
	return !fd.Excluded(rel) && fd.Included(rel)
}

// locate finds the innermost root containing path.
func (c *Coordinator) locate(path string) (root, rel string, fd *workspace.FileDiscovery) {
	path = filepath.Clean(path)

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, r := range c.roots {
		if path != r && !strings.HasPrefix(path, r+string(filepath.Separator)) {
			continue
		}
		if len(r) <= len(root) {
			continue
		}
		relPath, err := filepath.Rel(r, path)
		if err != nil {
			continue
		}
		root, rel, fd = r, filepath.ToSlash(relPath), c.discoveries[r]
	}
	return root, rel, fd
}

// DiffRoots reports which roots of updated are missing from old (added) and
// which roots of old are missing from updated (removed), in input order.
func DiffRoots(old, updated []string) (added, removed []string) {
	oldSet := make(map[string]bool, len(old))
	for _, r := range old {
		oldSet[r] = true
	}
	newSet := make(map[string]bool, len(updated))
	for _, r := range updated {
		newSet[r] = true
		if !oldSet[r] {
			added = append(added, r)
		}
	}
	for _, r := range old {
		if !newSet[r] {
			removed = append(removed, r)
		}
	}
	return added, removed
}

func without(roots []string, root string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if r != root {
			out = append(out, r)
		}
	}
	return out
}
