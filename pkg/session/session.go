// Package session orchestrates the explorer: it owns one tree per group,
// the navigation state (open folder, direct selection), the single-slot
// cut/paste clipboard, favorites, and the wiring between remote change
// notifications and the group trees.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/skydesk/skydesk/internal/logging"
	"github.com/skydesk/skydesk/pkg/client"
	"github.com/skydesk/skydesk/pkg/events"
	"github.com/skydesk/skydesk/pkg/nodes"
	"github.com/skydesk/skydesk/pkg/protocol"
	"github.com/skydesk/skydesk/pkg/reconcile"
	"github.com/skydesk/skydesk/pkg/tree"
)

// ErrGroupUnknown signals that no tree is loaded for a group id.
var ErrGroupUnknown = errors.New("group not loaded")

// PrivateGroupPath is the path of the user's personal group in the user-info
// listing.
const PrivateGroupPath = "private"

// OpenFolder is the navigation state observable by views: the folder (or
// drive) currently open and the tree it lives in.
type OpenFolder struct {
	Tree   *tree.Tree
	Folder nodes.Node
}

// State is one explorer session. All methods are safe for concurrent use.
type State struct {
	remote     *client.Client
	reconciler *reconcile.Reconciler

	mu       sync.RWMutex
	trees    map[string]*tree.Tree
	clip     *Clipboard
	userInfo *protocol.UserInfoResponse

	openFolder *events.Broadcaster[OpenFolder]
	selection  *events.Broadcaster[nodes.Node]
	favorites  *favorites

	ctx context.Context
}

// New creates a session on top of the given tree-service client. Call
// Bootstrap before using navigation.
func New(ctx context.Context, remote *client.Client) *State {
	return &State{
		remote:     remote,
		reconciler: reconcile.New(remote),
		trees:      make(map[string]*tree.Tree),
		openFolder: events.NewReplayBroadcaster[OpenFolder](),
		selection:  events.NewReplayBroadcaster[nodes.Node](),
		favorites:  newFavorites(),
		ctx:        ctx,
	}
}

// Reconciler exposes the session's reconciler, mainly so callers can Wait
// for in-flight persistence during shutdown.
func (s *State) Reconciler() *reconcile.Reconciler { return s.reconciler }

// Bootstrap fetches the user's groups, builds the private group's tree and
// opens its home folder. Favorites load best-effort.
func (s *State) Bootstrap(ctx context.Context) error {
	info, err := s.remote.GetUserInfo(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	s.mu.Lock()
	s.userInfo = info
	s.mu.Unlock()

	private, ok := findGroup(info.Groups, func(g protocol.Group) bool {
		return g.Path == PrivateGroupPath
	})
	if !ok {
		return fmt.Errorf("bootstrap: group %q: %w", PrivateGroupPath, ErrGroupUnknown)
	}

	t, err := s.buildGroupTree(ctx, private.ID, info.Name, nodes.GroupUser)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	if body, err := s.remote.GetFavorites(ctx); err == nil {
		s.favorites.load(body)
	} else {
		logging.Warn("favorites not loaded", zap.Error(err))
	}

	if home, ok := t.HomeNode(); ok {
		s.OpenFolder(home)
	}
	return nil
}

// UserInfo returns the bootstrapped user info.
func (s *State) UserInfo() (*protocol.UserInfoResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userInfo, s.userInfo != nil
}

// Tree returns the loaded tree for a group id.
func (s *State) Tree(groupID string) (*tree.Tree, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trees[groupID]
	return t, ok
}

// treeOf returns the loaded tree owning a node.
func (s *State) treeOf(n nodes.Node) (*tree.Tree, error) {
	gid, ok := nodes.GroupID(n)
	if !ok {
		return nil, fmt.Errorf("node %s: %w", n.ID(), ErrGroupUnknown)
	}
	t, ok := s.Tree(gid)
	if !ok {
		return nil, fmt.Errorf("group %s: %w", gid, ErrGroupUnknown)
	}
	return t, nil
}

// SelectGroup returns the tree for a group, building it on first access.
func (s *State) SelectGroup(ctx context.Context, groupID string) (*tree.Tree, error) {
	if t, ok := s.Tree(groupID); ok {
		return t, nil
	}
	info, ok := s.UserInfo()
	if !ok {
		return nil, fmt.Errorf("select group %s: session not bootstrapped", groupID)
	}
	g, ok := findGroup(info.Groups, func(g protocol.Group) bool { return g.ID == groupID })
	if !ok {
		return nil, fmt.Errorf("select group %s: %w", groupID, ErrGroupUnknown)
	}
	t, err := s.buildGroupTree(ctx, g.ID, lastPathSegment(g.Path), nodes.GroupUsers)
	if err != nil {
		return nil, fmt.Errorf("select group %s: %w", groupID, err)
	}
	return t, nil
}

// OpenFolder makes a folder (or drive) the currently open one. Opening a
// folder clears the direct selection.
func (s *State) OpenFolder(folder nodes.Node) {
	t, err := s.treeOf(folder)
	if err != nil {
		logging.Warn("open folder", zap.String("node", folder.ID()), zap.Error(err))
		return
	}
	s.openFolder.Publish(OpenFolder{Tree: t, Folder: folder})
	s.selection.Publish(nil)
}

// CurrentFolder returns the currently open folder, if any.
func (s *State) CurrentFolder() (OpenFolder, bool) {
	return s.openFolder.Latest()
}

// WatchOpenFolder returns a subscription to navigation changes. The caller
// must release it with UnwatchOpenFolder.
func (s *State) WatchOpenFolder() chan OpenFolder { return s.openFolder.Subscribe() }

// UnwatchOpenFolder releases a channel obtained from WatchOpenFolder.
func (s *State) UnwatchOpenFolder(ch chan OpenFolder) { s.openFolder.Unsubscribe(ch) }

// SelectItem sets the direct selection. Re-selecting the current node is a
// no-op so downstream consumers do not recompute.
func (s *State) SelectItem(n nodes.Node) {
	if current, ok := s.selection.Latest(); ok && current == n {
		return
	}
	s.selection.Publish(n)
}

// SelectedItem returns the direct selection, nil when nothing is selected.
func (s *State) SelectedItem() nodes.Node {
	n, _ := s.selection.Latest()
	return n
}

// WatchSelection returns a subscription to selection changes. The caller
// must release it with UnwatchSelection.
func (s *State) WatchSelection() chan nodes.Node { return s.selection.Subscribe() }

// UnwatchSelection releases a channel obtained from WatchSelection.
func (s *State) UnwatchSelection(ch chan nodes.Node) { s.selection.Unsubscribe(ch) }

// NavigateTo opens a folder by id, loading its group tree and resolving
// every folder on the path from the drive root first.
func (s *State) NavigateTo(ctx context.Context, folderID string) error {
	folder, err := s.remote.GetFolder(ctx, folderID)
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", folderID, err)
	}
	t, err := s.SelectGroup(ctx, folder.GroupID)
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", folderID, err)
	}
	path, err := s.remote.GetPath(ctx, folderID)
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", folderID, err)
	}

	// Resolve root-first so every folder on the path is present in the
	// snapshot before it is opened.
	current, ok := t.Get(path.Drive.DriveID)
	if !ok {
		return fmt.Errorf("navigate to %s: drive %s: %w", folderID, path.Drive.DriveID, tree.ErrNotFound)
	}
	if _, err := t.Children(ctx, current); err != nil {
		return fmt.Errorf("navigate to %s: %w", folderID, err)
	}
	var last nodes.Node
	for _, f := range path.Folders {
		n, ok := t.Get(f.FolderID)
		if !ok {
			return fmt.Errorf("navigate to %s: folder %s: %w", folderID, f.FolderID, tree.ErrNotFound)
		}
		if _, err := t.Children(ctx, n); err != nil {
			return fmt.Errorf("navigate to %s: %w", folderID, err)
		}
		last = n
	}
	if last == nil {
		return fmt.Errorf("navigate to %s: empty path", folderID)
	}
	s.OpenFolder(last)
	return nil
}

// Close detaches the reconciler and waits for in-flight persistence.
func (s *State) Close() {
	s.reconciler.Close()
	s.reconciler.Wait()
}

func findGroup(groups []protocol.Group, match func(protocol.Group) bool) (protocol.Group, bool) {
	for _, g := range groups {
		if match(g) {
			return g, true
		}
	}
	return protocol.Group{}, false
}

func lastPathSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
