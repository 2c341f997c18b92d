package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/skydesk/skydesk/internal/logging"
	"github.com/skydesk/skydesk/pkg/nodes"
	"github.com/skydesk/skydesk/pkg/tree"
)

// renameFolder persists a folder's new name. The renamed node carries a
// pending tag while the request is in flight.
func (r *Reconciler) renameFolder(ctx context.Context, t *tree.Tree, u tree.Update) {
	f := u.Added[0].(*nodes.FolderNode)
	pending(f, func() {
		if _, err := r.remote.RenameFolder(ctx, f.FolderID, f.Name()); err != nil {
			logging.Error("rename folder not persisted",
				zap.String("folder", f.FolderID), zap.Error(err))
		}
	})
}

func (r *Reconciler) renameItem(ctx context.Context, t *tree.Tree, u tree.Update) {
	it := u.Added[0].(*nodes.ItemNode)
	pending(it, func() {
		if _, err := r.remote.RenameItem(ctx, it.TreeID, it.Name()); err != nil {
			logging.Error("rename item not persisted",
				zap.String("item", it.TreeID), zap.Error(err))
		}
	})
}

// deleteFolder persists a folder removal. The pending tag goes on the
// former parent since the removed node is no longer visible.
func (r *Reconciler) deleteFolder(ctx context.Context, t *tree.Tree, u tree.Update) {
	f := u.Removed[0].(*nodes.FolderNode)
	r.onParent(t, u, func() {
		if err := r.remote.DeleteFolder(ctx, f.FolderID); err != nil {
			logging.Error("delete folder not persisted",
				zap.String("folder", f.FolderID), zap.Error(err))
		}
	})
}

func (r *Reconciler) deleteDrive(ctx context.Context, t *tree.Tree, u tree.Update) {
	d := u.Removed[0].(*nodes.DriveNode)
	r.onParent(t, u, func() {
		if err := r.remote.DeleteDrive(ctx, d.DriveID); err != nil {
			logging.Error("delete drive not persisted",
				zap.String("drive", d.DriveID), zap.Error(err))
		}
	})
}

func (r *Reconciler) deleteItem(ctx context.Context, t *tree.Tree, u tree.Update) {
	it := u.Removed[0].(*nodes.ItemNode)
	r.onParent(t, u, func() {
		if err := r.remote.DeleteItem(ctx, it.TreeID); err != nil {
			logging.Error("delete item not persisted",
				zap.String("item", it.TreeID), zap.Error(err))
		}
	})
}

// create runs a placeholder's request and swaps in the node built from the
// response. On failure the placeholder is withdrawn; both swaps are
// local-only so they never re-enter the dispatch loop.
func (r *Reconciler) create(ctx context.Context, t *tree.Tree, u tree.Update) {
	fut := u.Added[0].(*nodes.FutureNode)
	pending(fut, func() {
		resp, err := fut.Request(ctx)
		if err != nil {
			logging.Error("create not persisted",
				zap.String("placeholder", fut.ID()), zap.Error(err))
			if _, rmErr := t.RemoveNode(fut.ID(), tree.NotPersisted()); rmErr != nil {
				logging.Error("withdraw placeholder",
					zap.String("placeholder", fut.ID()), zap.Error(rmErr))
			}
			return
		}
		concrete := fut.OnResponse(resp)
		if _, err := t.ReplaceNode(fut.ID(), concrete, tree.NotPersisted()); err != nil {
			logging.Error("materialize placeholder",
				zap.String("placeholder", fut.ID()), zap.Error(err))
		}
	})
}

// onParent runs fn under a pending tag on the update's former parent. When
// the parent has itself disappeared the request still runs, untagged.
func (r *Reconciler) onParent(t *tree.Tree, u tree.Update, fn func()) {
	if parent, ok := t.Get(u.Command.ParentID); ok {
		pending(parent, fn)
		return
	}
	fn()
}
