// Package tree implements the per-group explorer tree: an immutable
// snapshot of nodes keyed by id, structural commands that each produce a
// new snapshot plus a change descriptor, and lazy child resolution.
//
// Commands never fail for domain reasons — authorization and remote
// success/failure live above this layer. The only errors a command can
// return are lookup failures (unknown id) and attaching to a folder whose
// children are not resolved yet; neither publishes an update.
package tree

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/skydesk/skydesk/internal/logging"
	"github.com/skydesk/skydesk/internal/metrics"
	"github.com/skydesk/skydesk/pkg/events"
	"github.com/skydesk/skydesk/pkg/nodes"
)

// ErrNotFound signals that an id is absent from the tree snapshot.
var ErrNotFound = errors.New("node not found in tree")

// ErrNotResolved signals an attach to a folder whose children have not been
// resolved yet.
var ErrNotResolved = errors.New("children not resolved")

// Params identify the well-known nodes of a group tree.
type Params struct {
	GroupID          string
	HomeFolderID     string
	TrashFolderID    string
	DefaultDriveID   string
	DownloadFolderID string
	DriveIDs         []string
}

// Tree is one group's explorer tree. All methods are safe for concurrent
// use; commands are applied strictly in call order.
type Tree struct {
	GroupID          string
	HomeFolderID     string
	TrashFolderID    string
	DefaultDriveID   string
	DownloadFolderID string
	DriveIDs         []string

	mu      sync.RWMutex
	root    nodes.Node
	index   map[string]nodes.Node
	parents map[string]string // child id -> parent id

	updates  *events.Broadcaster[Update]
	children map[string]*events.Broadcaster[[]nodes.Node]
}

// New creates a tree rooted at the given group node. Eagerly known
// descendants are indexed immediately.
func New(root nodes.Node, p Params) *Tree {
	t := &Tree{
		GroupID:          p.GroupID,
		HomeFolderID:     p.HomeFolderID,
		TrashFolderID:    p.TrashFolderID,
		DefaultDriveID:   p.DefaultDriveID,
		DownloadFolderID: p.DownloadFolderID,
		DriveIDs:         p.DriveIDs,
		root:             root,
		index:            make(map[string]nodes.Node),
		parents:          make(map[string]string),
		updates:          events.NewBroadcaster[Update](),
		children:         make(map[string]*events.Broadcaster[[]nodes.Node]),
	}
	t.indexSubtree(root)
	return t
}

// Root returns the current root node.
func (t *Tree) Root() nodes.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Get returns the node with the given id from the current snapshot.
func (t *Tree) Get(id string) (nodes.Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.index[id]
	return n, ok
}

// ParentOf returns the parent of the node with the given id. The root has
// no parent.
func (t *Tree) ParentOf(id string) (nodes.Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pid, ok := t.parents[id]
	if !ok {
		return nil, false
	}
	p, ok := t.index[pid]
	return p, ok
}

// HomeNode returns the default drive's home folder, if present.
func (t *Tree) HomeNode() (*nodes.FolderNode, bool) { return t.folder(t.HomeFolderID) }

// TrashNode returns the default drive's trash folder, if present.
func (t *Tree) TrashNode() (*nodes.FolderNode, bool) { return t.folder(t.TrashFolderID) }

// DownloadNode returns the default drive's download folder, if present.
func (t *Tree) DownloadNode() (*nodes.FolderNode, bool) { return t.folder(t.DownloadFolderID) }

// DefaultDriveNode returns the group's default drive, if present.
func (t *Tree) DefaultDriveNode() (*nodes.DriveNode, bool) {
	n, ok := t.Get(t.DefaultDriveID)
	if !ok {
		return nil, false
	}
	d, ok := n.(*nodes.DriveNode)
	return d, ok
}

func (t *Tree) folder(id string) (*nodes.FolderNode, bool) {
	n, ok := t.Get(id)
	if !ok {
		return nil, false
	}
	f, ok := n.(*nodes.FolderNode)
	return f, ok
}

// Children resolves and returns a node's children. Resolution runs at most
// once per child source; while it runs the node carries a request-pending
// status tag. A failed resolution is terminal and distinct from zero
// children.
func (t *Tree) Children(ctx context.Context, n nodes.Node) ([]nodes.Node, error) {
	src := n.Source()
	if src == nil {
		return nil, nil
	}
	if resolved, ok := src.Current(); ok {
		t.mu.Lock()
		t.indexChildren(n.ID(), resolved)
		t.mu.Unlock()
		return resolved, nil
	}

	uid := ulid.Make().String()
	n.Status().Add(nodes.StatusRequestPending, uid)
	children, err := src.Resolve(ctx)
	n.Status().Remove(nodes.StatusRequestPending, uid)
	if err != nil {
		metrics.RecordChildResolution("error")
		logging.Error("child resolution failed",
			zap.String("node", n.ID()),
			zap.Error(err))
		return nil, fmt.Errorf("resolve children of %s: %w", n.ID(), err)
	}
	metrics.RecordChildResolution("ok")

	t.mu.Lock()
	t.indexChildren(n.ID(), children)
	t.mu.Unlock()
	t.publishChildren(n.ID(), children)
	return children, nil
}

// Updates returns a subscription to the direct-updates stream. The caller
// must release it with StopUpdates.
func (t *Tree) Updates() chan Update {
	return t.updates.Subscribe()
}

// StopUpdates releases a channel obtained from Updates.
func (t *Tree) StopUpdates(ch chan Update) {
	t.updates.Unsubscribe(ch)
}

// WatchChildren returns a channel re-emitting a node's children whenever
// that subtree changes. New subscribers receive the current list once it is
// known. The caller must release the channel with UnwatchChildren.
func (t *Tree) WatchChildren(id string) chan []nodes.Node {
	t.mu.Lock()
	b, ok := t.children[id]
	if !ok {
		b = events.NewReplayBroadcaster[[]nodes.Node]()
		t.children[id] = b
	}
	t.mu.Unlock()
	return b.Subscribe()
}

// UnwatchChildren releases a channel obtained from WatchChildren.
func (t *Tree) UnwatchChildren(id string, ch chan []nodes.Node) {
	t.mu.Lock()
	b, ok := t.children[id]
	t.mu.Unlock()
	if ok {
		b.Unsubscribe(ch)
	}
}

// indexSubtree registers a node and every eagerly known descendant.
// Callers must hold t.mu, except during construction.
func (t *Tree) indexSubtree(n nodes.Node) {
	t.index[n.ID()] = n
	if children, ok := n.Source().Current(); ok {
		t.indexChildren(n.ID(), children)
	}
}

func (t *Tree) indexChildren(parentID string, children []nodes.Node) {
	for _, c := range children {
		t.parents[c.ID()] = parentID
		t.indexSubtree(c)
	}
}

// dropSubtree removes a node and its known descendants from the index.
// Callers must hold t.mu.
func (t *Tree) dropSubtree(n nodes.Node) {
	delete(t.index, n.ID())
	delete(t.parents, n.ID())
	if children, ok := n.Source().Current(); ok {
		for _, c := range children {
			t.dropSubtree(c)
		}
	}
}

func (t *Tree) publishChildren(id string, children []nodes.Node) {
	t.mu.RLock()
	b, ok := t.children[id]
	t.mu.RUnlock()
	if ok {
		b.Publish(children)
	}
}
