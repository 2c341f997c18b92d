package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/skydesk/skydesk/pkg/events"
	"github.com/skydesk/skydesk/pkg/nodes"
	"github.com/skydesk/skydesk/pkg/protocol"
)

// favorites holds the user's pinned folders and groups. Renames of pinned
// folders are mirrored here so the pinned label never goes stale.
type favorites struct {
	mu      sync.RWMutex
	folders []protocol.FolderResponse
	groups  []protocol.Group
	changed *events.Broadcaster[[]protocol.FolderResponse]
}

func newFavorites() *favorites {
	return &favorites{changed: events.NewReplayBroadcaster[[]protocol.FolderResponse]()}
}

func (f *favorites) load(body *protocol.FavoritesBody) {
	f.mu.Lock()
	f.folders = body.FavoriteFolders
	f.groups = body.FavoriteGroups
	folders := f.snapshotLocked()
	f.mu.Unlock()
	f.changed.Publish(folders)
}

func (f *favorites) snapshotLocked() []protocol.FolderResponse {
	out := make([]protocol.FolderResponse, len(f.folders))
	copy(out, f.folders)
	return out
}

// renameIfNeeded updates the stored name of a pinned folder.
func (f *favorites) renameIfNeeded(folderID, name string) {
	f.mu.Lock()
	renamed := false
	for i := range f.folders {
		if f.folders[i].FolderID == folderID {
			f.folders[i].Name = name
			renamed = true
		}
	}
	var folders []protocol.FolderResponse
	if renamed {
		folders = f.snapshotLocked()
	}
	f.mu.Unlock()
	if renamed {
		f.changed.Publish(folders)
	}
}

// FavoriteFolders returns the pinned folders.
func (s *State) FavoriteFolders() []protocol.FolderResponse {
	s.favorites.mu.RLock()
	defer s.favorites.mu.RUnlock()
	return s.favorites.snapshotLocked()
}

// WatchFavorites returns a subscription to pinned-folder changes. The
// caller must release it with UnwatchFavorites.
func (s *State) WatchFavorites() chan []protocol.FolderResponse {
	return s.favorites.changed.Subscribe()
}

// UnwatchFavorites releases a channel obtained from WatchFavorites.
func (s *State) UnwatchFavorites(ch chan []protocol.FolderResponse) {
	s.favorites.changed.Unsubscribe(ch)
}

// ToggleFavoriteFolder pins a folder, or unpins it when already pinned, and
// persists the new list.
func (s *State) ToggleFavoriteFolder(ctx context.Context, folder *nodes.FolderNode) error {
	f := s.favorites
	f.mu.Lock()
	pinned := false
	next := make([]protocol.FolderResponse, 0, len(f.folders)+1)
	for _, entry := range f.folders {
		if entry.FolderID == folder.FolderID {
			pinned = true
			continue
		}
		next = append(next, entry)
	}
	if !pinned {
		next = append(next, protocol.FolderResponse{
			FolderID:       folder.FolderID,
			ParentFolderID: folder.ParentFolderID,
			DriveID:        folder.DriveID,
			GroupID:        folder.GroupID,
			Name:           folder.Name(),
			Metadata:       folder.Metadata,
		})
	}
	f.folders = next
	body := protocol.FavoritesBody{
		FavoriteFolders: f.snapshotLocked(),
		FavoriteGroups:  append([]protocol.Group(nil), f.groups...),
	}
	f.mu.Unlock()
	f.changed.Publish(body.FavoriteFolders)

	if err := s.remote.SaveFavorites(ctx, body); err != nil {
		return fmt.Errorf("toggle favorite %s: %w", folder.FolderID, err)
	}
	return nil
}
