package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/skydesk/skydesk/internal/logging"
	"github.com/skydesk/skydesk/pkg/nodes"
	"github.com/skydesk/skydesk/pkg/protocol"
	"github.com/skydesk/skydesk/pkg/tree"
)

// ChangeSource delivers remote change notifications. *client.ChangeFeed
// satisfies it.
type ChangeSource interface {
	Subscribe(ctx context.Context) <-chan protocol.ChangeEvent
}

// AttachChangeFeed consumes remote change notifications until the context
// is cancelled. An item-added event fetches the item and attaches it to the
// owning group tree; events for folders not yet resolved are dropped, the
// next resolution will include the item anyway.
func (s *State) AttachChangeFeed(ctx context.Context, feed ChangeSource) {
	ch := feed.Subscribe(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if ev.Type == protocol.ChangeItemAdded {
					s.handleItemAdded(ctx, ev)
				}
			}
		}
	}()
}

func (s *State) handleItemAdded(ctx context.Context, ev protocol.ChangeEvent) {
	resp, err := s.remote.GetItem(ctx, ev.TreeID)
	if err != nil {
		logging.Warn("item-added event dropped",
			zap.String("tree_id", ev.TreeID), zap.Error(err))
		return
	}
	t, ok := s.Tree(resp.GroupID)
	if !ok {
		logging.Debug("item-added for unloaded group",
			zap.String("group", resp.GroupID))
		return
	}
	node := itemNode(*resp)
	if _, err := t.AddChild(resp.FolderID, node, tree.NotPersisted()); err != nil {
		if errors.Is(err, tree.ErrNotResolved) || errors.Is(err, tree.ErrNotFound) {
			logging.Debug("item-added before folder resolution",
				zap.String("folder", resp.FolderID))
			return
		}
		logging.Error("item-added not applied",
			zap.String("folder", resp.FolderID), zap.Error(err))
		return
	}
	if folder, ok := t.Get(resp.FolderID); ok {
		folder.Events().Publish(nodes.Event{Type: nodes.EventItemAdded})
	}
}
