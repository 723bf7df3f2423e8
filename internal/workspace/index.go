// Package workspace enumerates workspace files, scans them for comments and
// keeps the resulting index as an atomically replaced snapshot.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mvp-joe/comment-tree/internal/comments"
	"golang.org/x/sync/errgroup"
)

// ErrSuperseded is returned by Refresh when a newer refresh has already
// committed its result. The older result is discarded.
var ErrSuperseded = errors.New("refresh superseded by a newer refresh")

// FileScanner extracts comments from a single file.
type FileScanner interface {
	Scan(path string) (*comments.FileRecord, error)
}

// Index owns the current snapshot. Readers always see a complete snapshot;
// every refresh re-derives the index from scratch and swaps it in whole.
type Index struct {
	scanner  FileScanner
	progress ProgressReporter

	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64
	commitMu   sync.Mutex

	subsMu    sync.RWMutex
	subs      map[int]func(*Snapshot)
	nextSubID int
}

// Option configures an Index.
type Option func(*Index)

// WithScanner replaces the default file scanner.
func WithScanner(scanner FileScanner) Option {
	return func(ix *Index) {
		ix.scanner = scanner
	}
}

// WithProgress sets the progress reporter used by every refresh.
func WithProgress(progress ProgressReporter) Option {
	return func(ix *Index) {
		ix.progress = progress
	}
}

// NewIndex creates an index holding an empty snapshot.
func NewIndex(opts ...Option) *Index {
	ix := &Index{
		scanner:  comments.NewFileScanner(),
		progress: &NoOpProgressReporter{},
		subs:     make(map[int]func(*Snapshot)),
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.current.Store(emptySnapshot())
	return ix
}

// Snapshot returns the current snapshot. It is never nil.
func (ix *Index) Snapshot() *Snapshot {
	return ix.current.Load()
}

// Stats returns totals for the current snapshot.
func (ix *Index) Stats() Stats {
	return ix.Snapshot().Stats()
}

// Subscribe registers fn to be called after every committed refresh.
// fn runs on the refreshing goroutine while the commit lock is held, so it
// must return promptly and must not call Refresh itself.
func (ix *Index) Subscribe(fn func(*Snapshot)) (unsubscribe func()) {
	ix.subsMu.Lock()
	id := ix.nextSubID
	ix.nextSubID++
	ix.subs[id] = fn
	ix.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			ix.subsMu.Lock()
			delete(ix.subs, id)
			ix.subsMu.Unlock()
		})
	}
}

type scanJob struct {
	root string
	path string
}

// Refresh enumerates every root, scans the matched files and commits the
// sorted result as the new snapshot. With no roots the index becomes empty.
//
// Per-file and per-root failures are logged and skipped. Refresh returns an
// error only for invalid globs, context cancellation, or ErrSuperseded when
// a refresh that started later has already committed.
func (ix *Index) Refresh(ctx context.Context, roots []string, settings Settings) (*Snapshot, error) {
	gen := ix.generation.Add(1)

	ix.progress.OnDiscoveryStart()

	roots = absoluteRoots(roots)
	jobs, err := ix.discover(ctx, roots, settings)
	if err != nil {
		return nil, err
	}

	ix.progress.OnDiscoveryComplete(len(jobs))

	records, err := ix.scanAll(ctx, jobs, settings.workers())
	if err != nil {
		return nil, err
	}

	sortRecords(records)

	snap := newSnapshot(uuid.NewString(), gen, roots, records)
	if err := ix.commit(snap); err != nil {
		return nil, err
	}

	ix.progress.OnComplete(snap.Stats())

	return snap, nil
}

// ResolveRoot returns root as an absolute path with symlinks evaluated, so a
// root that is itself a link is walked like the directory it points to. A
// root that cannot be evaluated, such as one that does not exist, comes back
// as its absolute path and fails later at enumeration.
func ResolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// absoluteRoots resolves roots and drops repeats, such as a link listed next
// to its target.
func absoluteRoots(roots []string) []string {
	abs := make([]string, 0, len(roots))
	seen := make(map[string]bool, len(roots))
	for _, root := range roots {
		p, err := ResolveRoot(root)
		if err != nil {
			log.Printf("Warning: failed to resolve root %s: %v", root, err)
			continue
		}
		if !seen[p] {
			seen[p] = true
			abs = append(abs, p)
		}
	}
	return abs
}

// discover enumerates files for every absolute root. A path reachable from two
// overlapping roots is kept once, under the first root.
func (ix *Index) discover(ctx context.Context, roots []string, settings Settings) ([]scanJob, error) {
	include := settings.IncludePattern()
	excludes := settings.ExcludePatterns()

	var jobs []scanJob
	seen := make(map[string]bool)

	for _, absRoot := range roots {
		fd, err := NewFileDiscovery(absRoot, include, excludes, settings.maxFiles())
		if err != nil {
			return nil, err
		}

		files, truncated, err := fd.DiscoverFiles(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("Warning: failed to enumerate %s: %v", absRoot, err)
			continue
		}
		if truncated {
			log.Printf("Warning: %s has more than %d matching files; the rest are not scanned", absRoot, settings.maxFiles())
		}

		for _, path := range files {
			if seen[path] {
				continue
			}
			seen[path] = true
			jobs = append(jobs, scanJob{root: absRoot, path: path})
		}
	}

	return jobs, nil
}

// scanAll scans files on a bounded worker pool. Results keep job order until
// the final sort; completion order does not matter.
func (ix *Index) scanAll(ctx context.Context, jobs []scanJob, workers int) ([]*comments.FileRecord, error) {
	results := make([]*comments.FileRecord, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			record, err := ix.scanner.Scan(job.path)
			ix.progress.OnFileScanned(job.path)
			if err != nil {
				log.Printf("Warning: failed to scan %s: %v", job.path, err)
				return nil
			}
			if record == nil || len(record.Comments) == 0 {
				return nil
			}

			record.Root = job.root
			results[i] = record
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]*comments.FileRecord, 0, len(results))
	for _, r := range results {
		if r != nil {
			records = append(records, r)
		}
	}
	return records, nil
}

// commit swaps snap in unless a newer generation has already been committed.
// Subscribers are notified under the commit lock so they observe snapshots
// in commit order.
func (ix *Index) commit(snap *Snapshot) error {
	ix.commitMu.Lock()
	defer ix.commitMu.Unlock()

	if cur := ix.current.Load(); cur.Generation > snap.Generation {
		return fmt.Errorf("%w: generation %d, current %d", ErrSuperseded, snap.Generation, cur.Generation)
	}

	ix.current.Store(snap)
	ix.notify(snap)
	return nil
}

func (ix *Index) notify(snap *Snapshot) {
	ix.subsMu.RLock()
	subs := make([]func(*Snapshot), 0, len(ix.subs))
	for _, fn := range ix.subs {
		subs = append(subs, fn)
	}
	ix.subsMu.RUnlock()

	for _, fn := range subs {
		fn(snap)
	}
}
