// Package tree presents a workspace index as a two-level hierarchy of files
// and their comments for display adapters.
package tree

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/mvp-joe/comment-tree/internal/workspace"
)

// Source is the index a Model reads from.
type Source interface {
	Snapshot() *workspace.Snapshot
	Subscribe(fn func(*workspace.Snapshot)) (unsubscribe func())
}

// Model answers roots/children queries against the source's current
// snapshot and tells listeners when a refresh has been committed.
type Model struct {
	src         Source
	unsubscribe func()

	mu        sync.RWMutex
	listeners map[int]func()
	nextID    int
}

// NewModel creates a model over src. Call Close to stop listening.
func NewModel(src Source) *Model {
	m := &Model{
		src:       src,
		listeners: make(map[int]func()),
	}
	m.unsubscribe = src.Subscribe(func(*workspace.Snapshot) {
		m.emitChanged()
	})
	return m
}

// Close detaches the model from its source. Listeners are no longer called.
func (m *Model) Close() {
	m.unsubscribe()
}

// OnChanged registers fn to run once after each committed refresh. fn
// receives nothing; it should re-query Roots and Children.
func (m *Model) OnChanged(fn func()) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Model) emitChanged() {
	m.mu.RLock()
	fns := make([]func(), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// Roots returns one file node per indexed file, in index order.
func (m *Model) Roots() []FileNode {
	snap := m.src.Snapshot()
	files := snap.Files()
	multiRoot := len(snap.Roots) > 1

	nodes := make([]FileNode, 0, len(files))
	for _, rec := range files {
		nodes = append(nodes, FileNode{
			FilePath:     rec.FilePath,
			Root:         rec.Root,
			RelativePath: relativePath(rec.Root, rec.FilePath, multiRoot),
			CommentCount: len(rec.Comments),
		})
	}
	return nodes
}

// Children returns the comments of file in stored order. A file that is not
// in the current snapshot has no children.
func (m *Model) Children(file FileNode) []CommentNode {
	snap := m.src.Snapshot()
	rec, ok := snap.Lookup(file.FilePath)
	if !ok {
		return []CommentNode{}
	}

	rel := relativePath(rec.Root, rec.FilePath, len(snap.Roots) > 1)
	nodes := make([]CommentNode, 0, len(rec.Comments))
	for _, c := range rec.Comments {
		nodes = append(nodes, CommentNode{Comment: c, RelativePath: rel})
	}
	return nodes
}

// ChildrenOf returns the children of any node. Comment nodes and unknown
// nodes have none.
func (m *Model) ChildrenOf(n Node) []Node {
	var file FileNode
	switch v := n.(type) {
	case FileNode:
		file = v
	case *FileNode:
		if v == nil {
			return []Node{}
		}
		file = *v
	default:
		return []Node{}
	}

	children := m.Children(file)
	nodes := make([]Node, 0, len(children))
	for _, c := range children {
		nodes = append(nodes, c)
	}
	return nodes
}

// Snapshot returns the snapshot the model currently reads from.
func (m *Model) Snapshot() *workspace.Snapshot {
	return m.src.Snapshot()
}

// Stats returns totals for the current snapshot.
func (m *Model) Stats() workspace.Stats {
	return m.src.Snapshot().Stats()
}

// Summary describes the current snapshot in one line.
func (m *Model) Summary() string {
	snap := m.src.Snapshot()
	return FormatSummary(snap.Stats(), len(snap.Roots) > 0)
}

// FormatSummary renders stats as "Found N comments in M files". With no
// comments it reports an empty workspace, or nothing if no workspace is open.
func FormatSummary(stats workspace.Stats, hasWorkspace bool) string {
	if stats.TotalComments > 0 {
		return fmt.Sprintf("Found %s in %s", plural(stats.TotalComments, "comment"), plural(stats.TotalFiles, "file"))
	}
	if hasWorkspace {
		return "No comments found in the current workspace"
	}
	return ""
}

// relativePath is filePath relative to root, slash-separated. With several
// roots it is prefixed with the root's directory name.
func relativePath(root, filePath string, multiRoot bool) string {
	if root == "" {
		return filepath.ToSlash(filePath)
	}
	rel, err := filepath.Rel(root, filePath)
	if err != nil {
		return filepath.ToSlash(filePath)
	}
	rel = filepath.ToSlash(rel)
	if multiRoot {
		return filepath.Base(root) + "/" + rel
	}
	return rel
}
