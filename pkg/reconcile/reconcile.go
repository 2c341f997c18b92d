// Package reconcile replays persisted tree updates against the remote tree
// service. It subscribes to a tree's direct-updates stream, classifies each
// update by command type and node class, and runs the matching remote
// request on a per-node queue so operations touching the same node execute
// in order while unrelated nodes proceed concurrently.
//
// The reconciler never rolls a snapshot back. A failed request surfaces on
// the client's shared error stream; the caller compensates by refreshing
// the affected folder. The one exception is a failed placeholder create,
// whose placeholder is withdrawn locally.
package reconcile

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/skydesk/skydesk/internal/logging"
	"github.com/skydesk/skydesk/internal/metrics"
	"github.com/skydesk/skydesk/pkg/nodes"
	"github.com/skydesk/skydesk/pkg/protocol"
	"github.com/skydesk/skydesk/pkg/tree"
)

// Remote is the slice of the tree-service client the reconciler needs.
// *client.Client satisfies it.
type Remote interface {
	RenameFolder(ctx context.Context, folderID, name string) (*protocol.FolderResponse, error)
	RenameItem(ctx context.Context, treeID, name string) (*protocol.ItemResponse, error)
	DeleteFolder(ctx context.Context, folderID string) error
	DeleteDrive(ctx context.Context, driveID string) error
	DeleteItem(ctx context.Context, treeID string) error
}

const queueDepth = 64

// Reconciler drains tree update streams and persists them remotely.
type Reconciler struct {
	remote   Remote
	handlers map[handlerKey]handler

	mu      sync.Mutex
	queues  map[string]chan func()
	watches []watch
	closed  bool

	wg sync.WaitGroup
}

type watch struct {
	tree *tree.Tree
	ch   chan tree.Update
}

type handler struct {
	name string
	run  func(ctx context.Context, t *tree.Tree, u tree.Update)
}

type handlerKey struct {
	command tree.CommandType
	class   nodeClass
}

// New creates a reconciler backed by the given remote.
func New(remote Remote) *Reconciler {
	r := &Reconciler{
		remote: remote,
		queues: make(map[string]chan func()),
	}
	r.handlers = map[handlerKey]handler{
		{tree.CommandReplaceAttributes, classFolder}: {"rename-folder", r.renameFolder},
		{tree.CommandReplaceAttributes, classItem}:   {"rename-item", r.renameItem},
		{tree.CommandRemoveNode, classFolder}:        {"delete-folder", r.deleteFolder},
		{tree.CommandRemoveNode, classDrive}:         {"delete-drive", r.deleteDrive},
		{tree.CommandRemoveNode, classItem}:          {"delete-item", r.deleteItem},
		{tree.CommandAddChild, classFuture}:          {"create", r.create},
	}
	return r
}

// Watch subscribes the reconciler to a tree's update stream and dispatches
// persisted updates until the context is cancelled or Close is called.
func (r *Reconciler) Watch(ctx context.Context, t *tree.Tree) {
	ch := t.Updates()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		t.StopUpdates(ch)
		return
	}
	r.watches = append(r.watches, watch{tree: t, ch: ch})
	r.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-ch:
				if !ok {
					return
				}
				r.dispatch(ctx, t, u)
			}
		}
	}()
}

// Wait blocks until every dispatched operation has finished. Intended for
// tests and shutdown.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// Close detaches every watched tree and shuts the per-node workers down.
// Already-queued operations finish; call Wait to observe their completion.
// Updates dispatched after Close are dropped.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	watches := r.watches
	r.watches = nil
	queues := r.queues
	r.queues = nil
	r.closed = true
	r.mu.Unlock()
	for _, w := range watches {
		w.tree.StopUpdates(w.ch)
	}
	for _, q := range queues {
		close(q)
	}
}

// dispatch routes a persisted update to its handler on the affected node's
// queue. Local-only updates and lookup misses are skipped.
func (r *Reconciler) dispatch(ctx context.Context, t *tree.Tree, u tree.Update) {
	if !u.ToBeSaved {
		return
	}
	subject, ok := subjectOf(u)
	if !ok {
		logging.Error("update without subject node",
			zap.String("command", string(u.Command.Type)))
		return
	}
	h, ok := r.handlers[handlerKey{u.Command.Type, classOf(subject)}]
	if !ok {
		metrics.RecordReconcileDispatch("unhandled")
		logging.Error("no reconcile handler",
			zap.String("command", string(u.Command.Type)),
			zap.String("class", string(classOf(subject))),
			zap.String("node", subject.ID()))
		return
	}
	metrics.RecordReconcileDispatch(h.name)

	r.wg.Add(1)
	if !r.enqueue(subject.ID(), func() {
		defer r.wg.Done()
		h.run(ctx, t, u)
	}) {
		r.wg.Done()
	}
}

// enqueue appends fn to the serialization queue for the given key, creating
// the queue's worker on first use. Reports false after Close, when the work
// is dropped. The send happens under the mutex so Close never closes a queue
// mid-send; workers take no locks, so a full queue drains independently.
func (r *Reconciler) enqueue(key string, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	q, ok := r.queues[key]
	if !ok {
		q = make(chan func(), queueDepth)
		r.queues[key] = q
		go func() {
			for f := range q {
				f()
			}
		}()
	}
	q <- fn
	return true
}

// subjectOf returns the node whose identity keys the update: the added node
// for add-child, the removed or replaced node otherwise.
func subjectOf(u tree.Update) (nodes.Node, bool) {
	switch u.Command.Type {
	case tree.CommandAddChild:
		if len(u.Added) > 0 {
			return u.Added[0], true
		}
	case tree.CommandRemoveNode:
		if len(u.Removed) > 0 {
			return u.Removed[0], true
		}
	case tree.CommandReplaceNode, tree.CommandReplaceAttributes:
		if len(u.Added) > 0 {
			return u.Added[0], true
		}
	}
	return nil, false
}

type nodeClass string

const (
	classGroup    nodeClass = "group"
	classDrive    nodeClass = "drive"
	classFolder   nodeClass = "folder"
	classItem     nodeClass = "item"
	classFuture   nodeClass = "future"
	classProgress nodeClass = "progress"
	classDeleted  nodeClass = "deleted"
)

func classOf(n nodes.Node) nodeClass {
	switch n.(type) {
	case *nodes.GroupNode:
		return classGroup
	case *nodes.DriveNode:
		return classDrive
	case *nodes.FolderNode:
		return classFolder
	case *nodes.ItemNode:
		return classItem
	case *nodes.FutureNode:
		return classFuture
	case *nodes.ProgressNode:
		return classProgress
	case *nodes.DeletedNode:
		return classDeleted
	default:
		panic("reconcile: unknown node class")
	}
}

// pending tags a node with a request-pending status for the duration of fn.
func pending(n nodes.Node, fn func()) {
	uid := ulid.Make().String()
	n.Status().Add(nodes.StatusRequestPending, uid)
	metrics.PendingOperationStarted()
	defer func() {
		n.Status().Remove(nodes.StatusRequestPending, uid)
		metrics.PendingOperationDone()
	}()
	fn()
}
