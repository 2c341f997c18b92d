package session

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/skydesk/skydesk/pkg/nodes"
	"github.com/skydesk/skydesk/pkg/protocol"
	"github.com/skydesk/skydesk/pkg/tree"
)

// NewFolderName is the display name a freshly created folder starts with.
const NewFolderName = "new folder"

// NewFolder optimistically attaches a placeholder folder named "new folder"
// under parent. The reconciler runs the remote create and swaps in the
// authoritative folder.
func (s *State) NewFolder(parent nodes.Node) error {
	t, err := s.treeOf(parent)
	if err != nil {
		return fmt.Errorf("new folder: %w", err)
	}
	parentGroupID, _ := nodes.GroupID(parent)
	parentDriveID, _ := nodes.DriveID(parent)
	folderID := ulid.Make().String()

	fut := nodes.NewFutureNode(nodes.FutureParams{
		ID:   ulid.Make().String(),
		Name: NewFolderName,
		Icon: nodes.FolderIcon(nodes.FolderRegular),
		Kind: nodes.FutureFolder,
		Request: func(ctx context.Context) (any, error) {
			return s.remote.CreateFolder(ctx, parent.ID(), protocol.CreateFolderRequest{
				Name:     NewFolderName,
				FolderID: folderID,
			})
		},
		OnResponse: func(resp any) nodes.Node {
			f := resp.(*protocol.FolderResponse)
			return nodes.NewFolderNode(nodes.FolderParams{
				FolderID:       f.FolderID,
				GroupID:        parentGroupID,
				DriveID:        parentDriveID,
				ParentFolderID: parent.ID(),
				Name:           NewFolderName,
				Kind:           nodes.FolderRegular,
				Metadata:       f.Metadata,
				Children:       nodes.EagerChildren(),
			})
		},
	})
	if _, err := t.AddChild(parent.ID(), fut); err != nil {
		return fmt.Errorf("new folder: %w", err)
	}
	return nil
}

// AssetParams describe an optimistic asset creation under a folder.
type AssetParams struct {
	Parent      *nodes.FolderNode
	PendingName string
	Kind        nodes.ItemKind
	// Request performs the remote create and returns the authoritative
	// item. It runs on the reconciler's queue.
	Request func(ctx context.Context) (*protocol.ItemResponse, error)
}

// NewAsset optimistically attaches a spinner placeholder for an asset being
// created, replaced by the authoritative item once the request resolves.
func (s *State) NewAsset(p AssetParams) error {
	t, err := s.treeOf(p.Parent)
	if err != nil {
		return fmt.Errorf("new asset: %w", err)
	}
	fut := nodes.NewFutureNode(nodes.FutureParams{
		ID:   ulid.Make().String(),
		Name: p.PendingName,
		Icon: "fas fa-spinner fa-spin",
		Kind: nodes.FutureItem,
		Request: func(ctx context.Context) (any, error) {
			return p.Request(ctx)
		},
		OnResponse: func(resp any) nodes.Node {
			it := resp.(*protocol.ItemResponse)
			return nodes.NewItemNode(nodes.ItemParams{
				Name:     it.Name,
				GroupID:  p.Parent.GroupID,
				DriveID:  p.Parent.DriveID,
				AssetID:  it.AssetID,
				RawID:    it.RawID,
				TreeID:   it.TreeID,
				Borrowed: false,
				Kind:     p.Kind,
				Origin:   it.Origin,
			})
		},
	})
	if _, err := t.AddChild(p.Parent.ID(), fut); err != nil {
		return fmt.Errorf("new asset: %w", err)
	}
	return nil
}

// CreateAsset is the stock NewAsset flow backed by the tree service's
// create-asset endpoint.
func (s *State) CreateAsset(parent *nodes.FolderNode, kind nodes.ItemKind, name string) error {
	return s.NewAsset(AssetParams{
		Parent:      parent,
		PendingName: name,
		Kind:        kind,
		Request: func(ctx context.Context) (*protocol.ItemResponse, error) {
			return s.remote.CreateAsset(ctx, parent.FolderID, protocol.CreateAssetRequest{
				Kind: string(kind),
				Name: name,
			})
		},
	})
}

// Rename applies a new display name locally, clears the renaming status and
// keeps favorites in step. The reconciler persists the rename unless opts
// mark it local-only.
func (s *State) Rename(n nodes.Node, name string, opts ...tree.Option) error {
	t, err := s.treeOf(n)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	n.Status().Remove(nodes.StatusRenaming, n.ID())
	s.favorites.renameIfNeeded(n.ID(), name)
	if _, err := t.ReplaceAttributes(n.ID(), tree.Attributes{Name: name}, opts...); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	if renamed, ok := t.Get(n.ID()); ok {
		s.selection.Publish(renamed)
	}
	return nil
}

// DeleteItemOrFolder soft-deletes a regular folder or an item: the node is
// removed locally, the remote delete moves it to the trash, and the trash
// listing is invalidated. Deleting the open folder navigates to its parent.
func (s *State) DeleteItemOrFolder(n nodes.Node) error {
	t, err := s.treeOf(n)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	folder, isFolder := n.(*nodes.FolderNode)
	if _, err := t.RemoveNode(n.ID()); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if trash, ok := t.TrashNode(); ok {
		s.refresh(t, trash, false)
	}
	if isFolder {
		if parent, ok := t.Get(folder.ParentFolderID); ok {
			s.OpenFolder(parent)
		}
	}
	return nil
}

// DeleteDrive removes a drive; the reconciler persists the deletion.
func (s *State) DeleteDrive(d *nodes.DriveNode) error {
	t, ok := s.Tree(d.GroupID)
	if !ok {
		return fmt.Errorf("delete drive: group %s: %w", d.GroupID, ErrGroupUnknown)
	}
	if _, err := t.RemoveNode(d.ID()); err != nil {
		return fmt.Errorf("delete drive: %w", err)
	}
	return nil
}

// PurgeDrive permanently empties a drive's trash: one remote purge call,
// then every deleted entry is removed locally. The local removals are
// replays of the purge, never persisted individually.
func (s *State) PurgeDrive(ctx context.Context, trash *nodes.FolderNode) error {
	t, ok := s.Tree(trash.GroupID)
	if !ok {
		return fmt.Errorf("purge drive: group %s: %w", trash.GroupID, ErrGroupUnknown)
	}
	if err := s.remote.PurgeDrive(ctx, trash.DriveID); err != nil {
		return fmt.Errorf("purge drive %s: %w", trash.DriveID, err)
	}
	children, err := t.Children(ctx, trash)
	if err != nil {
		return fmt.Errorf("purge drive %s: %w", trash.DriveID, err)
	}
	for _, c := range children {
		if _, err := t.RemoveNode(c.ID(), tree.NotPersisted()); err != nil {
			return fmt.Errorf("purge drive %s: %w", trash.DriveID, err)
		}
	}
	return nil
}

// Refresh discards a folder's cached children and re-triggers resolution by
// replacing the folder node wholesale. Pure cache invalidation, never
// persisted. The refreshed folder becomes the open one.
func (s *State) Refresh(folder *nodes.FolderNode) error {
	t, ok := s.Tree(folder.GroupID)
	if !ok {
		return fmt.Errorf("refresh: group %s: %w", folder.GroupID, ErrGroupUnknown)
	}
	return s.refresh(t, folder, true)
}

func (s *State) refresh(t *tree.Tree, folder *nodes.FolderNode, open bool) error {
	var children *nodes.ChildSource
	if folder.Kind == nodes.FolderTrash {
		children = nodes.LazyChildren(s.deletedChildren(folder.DriveID))
	} else {
		children = nodes.LazyChildren(s.folderChildren(folder.FolderID))
	}
	fresh := nodes.NewFolderNode(nodes.FolderParams{
		FolderID:       folder.FolderID,
		GroupID:        folder.GroupID,
		DriveID:        folder.DriveID,
		ParentFolderID: folder.ParentFolderID,
		Name:           folder.Name(),
		Kind:           folder.Kind,
		Metadata:       folder.Metadata,
		Children:       children,
		Origin:         folder.Origin(),
	})
	if _, err := t.ReplaceNode(folder.ID(), fresh, tree.NotPersisted()); err != nil {
		return fmt.Errorf("refresh %s: %w", folder.FolderID, err)
	}
	if open {
		s.OpenFolder(fresh)
	}
	return nil
}

// UploadAsset pushes a local-only asset to the remote store and refreshes
// the open folder so its origin flags reflect the remote copy.
func (s *State) UploadAsset(ctx context.Context, item *nodes.ItemNode) error {
	uid := ulid.Make().String()
	item.Status().Add(nodes.StatusRequestPending, uid)
	defer item.Status().Remove(nodes.StatusRequestPending, uid)

	if err := s.remote.UploadLocalAsset(ctx, item.AssetID); err != nil {
		return fmt.Errorf("upload asset %s: %w", item.AssetID, err)
	}
	if open, ok := s.CurrentFolder(); ok {
		if folder, isFolder := open.Folder.(*nodes.FolderNode); isFolder {
			return s.Refresh(folder)
		}
	}
	return nil
}
