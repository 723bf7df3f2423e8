// Package watcher turns workspace file changes, configuration changes and
// workspace-root changes into index refreshes.
package watcher

import (
	"context"

	"github.com/mvp-joe/comment-tree/internal/workspace"
)

// FileWatcher monitors workspace files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching, calling callback with debounced file changes.
	// It returns immediately.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()

	// AddDir starts watching dir and its subdirectories.
	AddDir(dir string) error

	// RemoveDir stops watching dir and everything below it.
	RemoveDir(dir string) error
}

// PathFilter decides which paths a FileWatcher cares about.
type PathFilter interface {
	// WatchDir reports whether dir should be watched.
	WatchDir(dir string) bool

	// Relevant reports whether a write or create of path can change the index.
	Relevant(path string) bool
}

// Refresher rebuilds the index for a set of roots.
type Refresher interface {
	Refresh(ctx context.Context, roots []string, settings workspace.Settings) (*workspace.Snapshot, error)
}
