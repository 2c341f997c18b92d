package session

import (
	"context"
	"fmt"

	"github.com/skydesk/skydesk/pkg/nodes"
	"github.com/skydesk/skydesk/pkg/protocol"
	"github.com/skydesk/skydesk/pkg/tree"
)

// TrashFolderID is the synthetic id of the default drive's trash node. The
// remote service has no folder entity for the trash; every drive root grows
// one locally, secondary drives under a per-drive id so node ids stay unique
// within the tree.
const TrashFolderID = "trash"

func driveTrashID(driveID string) string { return TrashFolderID + "-" + driveID }

// buildGroupTree fetches a group's default drive and drive listing and
// assembles the group tree: the default drive with its well-known home,
// download, trash and system folders, followed by the remaining drives.
// The tree is registered with the session and watched by the reconciler.
func (s *State) buildGroupTree(ctx context.Context, groupID, groupName string, kind nodes.GroupKind) (*tree.Tree, error) {
	dd, err := s.remote.GetDefaultDrive(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("default drive of %s: %w", groupID, err)
	}
	drives, err := s.remote.ListDrives(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("drives of %s: %w", groupID, err)
	}

	home := nodes.NewFolderNode(nodes.FolderParams{
		FolderID:       dd.HomeFolderID,
		GroupID:        dd.GroupID,
		DriveID:        dd.DriveID,
		ParentFolderID: dd.DriveID,
		Name:           dd.HomeFolderName,
		Kind:           nodes.FolderHome,
		Children:       nodes.LazyChildren(s.folderChildren(dd.HomeFolderID)),
	})
	download := nodes.NewFolderNode(nodes.FolderParams{
		FolderID:       dd.DownloadFolderID,
		GroupID:        dd.GroupID,
		DriveID:        dd.DriveID,
		ParentFolderID: dd.DriveID,
		Name:           dd.DownloadFolderName,
		Kind:           nodes.FolderDownload,
		Children:       nodes.LazyChildren(s.folderChildren(dd.DownloadFolderID)),
	})
	trash := s.trashFolder(TrashFolderID, dd.GroupID, dd.DriveID)
	system := nodes.NewFolderNode(nodes.FolderParams{
		FolderID:       dd.SystemFolderID,
		GroupID:        dd.GroupID,
		DriveID:        dd.DriveID,
		ParentFolderID: dd.DriveID,
		Name:           dd.SystemFolderName,
		Kind:           nodes.FolderSystem,
		Children:       nodes.LazyChildren(s.folderChildren(dd.SystemFolderID)),
	})
	defaultDrive := nodes.NewDriveNode(nodes.DriveParams{
		GroupID:  dd.GroupID,
		DriveID:  dd.DriveID,
		Name:     dd.DriveName,
		Children: nodes.EagerChildren(home, download, trash, system),
	})

	children := []nodes.Node{defaultDrive}
	driveIDs := []string{dd.DriveID}
	for _, d := range drives.Drives {
		if d.DriveID == dd.DriveID {
			continue
		}
		children = append(children, nodes.NewDriveNode(nodes.DriveParams{
			GroupID:  d.GroupID,
			DriveID:  d.DriveID,
			Name:     d.Name,
			Children: nodes.LazyChildren(s.driveRootChildren(d.GroupID, d.DriveID)),
		}))
		driveIDs = append(driveIDs, d.DriveID)
	}

	root := nodes.NewGroupNode(nodes.GroupParams{
		ID:       groupID,
		Name:     groupName,
		Kind:     kind,
		Children: nodes.EagerChildren(children...),
	})

	t := tree.New(root, tree.Params{
		GroupID:          groupID,
		HomeFolderID:     dd.HomeFolderID,
		TrashFolderID:    TrashFolderID,
		DefaultDriveID:   dd.DriveID,
		DownloadFolderID: dd.DownloadFolderID,
		DriveIDs:         driveIDs,
	})

	s.mu.Lock()
	s.trees[groupID] = t
	s.mu.Unlock()
	s.reconciler.Watch(s.ctx, t)
	return t, nil
}

// folderChildren returns a resolver listing a folder's children, folders
// before items, in the order the service returns them.
func (s *State) folderChildren(folderID string) nodes.Resolver {
	return func(ctx context.Context) ([]nodes.Node, error) {
		resp, err := s.remote.ListFolderChildren(ctx, folderID)
		if err != nil {
			return nil, err
		}
		out := make([]nodes.Node, 0, len(resp.Folders)+len(resp.Items))
		for _, f := range resp.Folders {
			out = append(out, s.folderNode(f, nodes.FolderRegular))
		}
		for _, it := range resp.Items {
			out = append(out, itemNode(it))
		}
		return out, nil
	}
}

// driveRootChildren returns a resolver for a drive's root listing with the
// synthetic trash folder appended, mirroring the default drive's layout.
func (s *State) driveRootChildren(groupID, driveID string) nodes.Resolver {
	return func(ctx context.Context) ([]nodes.Node, error) {
		out, err := s.folderChildren(driveID)(ctx)
		if err != nil {
			return nil, err
		}
		return append(out, s.trashFolder(driveTrashID(driveID), groupID, driveID)), nil
	}
}

// trashFolder builds the synthetic trash node of a drive; its children come
// from the drive's deleted listing.
func (s *State) trashFolder(id, groupID, driveID string) *nodes.FolderNode {
	return nodes.NewFolderNode(nodes.FolderParams{
		FolderID:       id,
		GroupID:        groupID,
		DriveID:        driveID,
		ParentFolderID: driveID,
		Name:           "Trash",
		Kind:           nodes.FolderTrash,
		Children:       nodes.LazyChildren(s.deletedChildren(driveID)),
	})
}

// deletedChildren returns a resolver listing a drive's soft-deleted entries.
func (s *State) deletedChildren(driveID string) nodes.Resolver {
	return func(ctx context.Context) ([]nodes.Node, error) {
		resp, err := s.remote.ListDeletedItems(ctx, driveID)
		if err != nil {
			return nil, err
		}
		out := make([]nodes.Node, 0, len(resp.Folders)+len(resp.Items))
		for _, f := range resp.Folders {
			out = append(out, nodes.NewDeletedNode(f.ID, f.Name, driveID, nodes.DeletedFolder, ""))
		}
		for _, it := range resp.Items {
			out = append(out, nodes.NewDeletedNode(it.ID, it.Name, driveID, nodes.DeletedItem, it.Kind))
		}
		return out, nil
	}
}

// folderNode builds a folder node from its wire representation with a lazy
// child resolver.
func (s *State) folderNode(f protocol.FolderResponse, kind nodes.FolderKind) *nodes.FolderNode {
	return nodes.NewFolderNode(nodes.FolderParams{
		FolderID:       f.FolderID,
		GroupID:        f.GroupID,
		DriveID:        f.DriveID,
		ParentFolderID: f.ParentFolderID,
		Name:           f.Name,
		Kind:           kind,
		Metadata:       f.Metadata,
		Children:       nodes.LazyChildren(s.folderChildren(f.FolderID)),
		Origin:         f.Origin,
	})
}

// itemNode builds an item node from its wire representation.
func itemNode(it protocol.ItemResponse) *nodes.ItemNode {
	return nodes.NewItemNode(nodes.ItemParams{
		Name:     it.Name,
		GroupID:  it.GroupID,
		DriveID:  it.DriveID,
		AssetID:  it.AssetID,
		RawID:    it.RawID,
		TreeID:   it.TreeID,
		Borrowed: it.Borrowed,
		Kind:     nodes.ItemKind(it.Kind),
		Origin:   it.Origin,
	})
}
