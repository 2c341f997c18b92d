package actions

import (
	"context"

	"github.com/skydesk/skydesk/pkg/nodes"
	"github.com/skydesk/skydesk/pkg/session"
)

// Presentation sections, rendered in this order.
const (
	SectionEdit     = "edit"
	SectionCreate   = "create"
	SectionTransfer = "transfer"
	SectionView     = "view"
	SectionDanger   = "danger"
)

// builtins returns the stock action constructors in their canonical order.
func builtins(r *Registry) []Constructor {
	return []Constructor{
		renameAction,
		newFolderAction,
		r.downloadAction,
		uploadAction,
		deleteFolderAction,
		deleteDriveAction,
		clearTrashAction,
		newAppAction,
		newStoryAction,
		pasteAction,
		cutAction,
		borrowAction,
		r.importDataAction,
		deleteItemAction,
		refreshAction,
	}
}

func renameAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "rename",
		Icon:       "fas fa-pen",
		Section:    SectionEdit,
		Authorized: true,
		Applicable: func() bool {
			if t.Selection == SelectionIndirect || !p.Write {
				return false
			}
			switch n := t.Node.(type) {
			case *nodes.FolderNode:
				return n.Kind == nodes.FolderRegular
			case *nodes.ItemNode:
				return !n.Borrowed
			case *nodes.DriveNode:
				return true
			default:
				return false
			}
		},
		Exe: func(ctx context.Context) error {
			t.Node.Status().Add(nodes.StatusRenaming, t.Node.ID())
			return nil
		},
	}
}

func newFolderAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "new folder",
		Icon:       "fas fa-folder",
		Section:    SectionCreate,
		Authorized: p.Write,
		Applicable: func() bool {
			if t.Selection != SelectionIndirect {
				return false
			}
			if _, ok := t.Node.(*nodes.DriveNode); ok {
				return true
			}
			return nodes.IsStandardFolder(t.Node)
		},
		Exe: func(ctx context.Context) error {
			return s.NewFolder(t.Node)
		},
	}
}

func (r *Registry) downloadAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "download file",
		Icon:       "fas fa-download",
		Section:    SectionTransfer,
		Authorized: true,
		Applicable: func() bool {
			if r.Download == nil {
				return false
			}
			n, ok := t.Node.(*nodes.ItemNode)
			return ok && n.Kind == nodes.ItemData && p.Write
		},
		Exe: func(ctx context.Context) error {
			return r.Download(ctx, t.Node.(*nodes.ItemNode))
		},
	}
}

func uploadAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "upload asset",
		Icon:       "fas fa-upload",
		Section:    SectionTransfer,
		Authorized: true,
		Applicable: func() bool {
			n, ok := t.Node.(*nodes.ItemNode)
			return ok && n.Origin() != nil && n.Origin().Local && !n.Origin().Remote
		},
		Exe: func(ctx context.Context) error {
			return s.UploadAsset(ctx, t.Node.(*nodes.ItemNode))
		},
	}
}

func deleteFolderAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "delete",
		Icon:       "fas fa-trash",
		Section:    SectionDanger,
		Authorized: p.Write,
		Applicable: func() bool {
			return t.Selection == SelectionDirect && nodes.IsRegularFolder(t.Node)
		},
		Exe: func(ctx context.Context) error {
			return s.DeleteItemOrFolder(t.Node)
		},
	}
}

func deleteDriveAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "delete",
		Icon:       "fas fa-trash",
		Section:    SectionDanger,
		Authorized: p.Write,
		Applicable: func() bool {
			_, ok := t.Node.(*nodes.DriveNode)
			return ok && t.Selection == SelectionDirect
		},
		Exe: func(ctx context.Context) error {
			return s.DeleteDrive(t.Node.(*nodes.DriveNode))
		},
	}
}

func clearTrashAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "clear trash",
		Icon:       "fas fa-times",
		Section:    SectionDanger,
		Authorized: p.Write,
		Applicable: func() bool {
			return nodes.IsTrashFolder(t.Node)
		},
		Exe: func(ctx context.Context) error {
			return s.PurgeDrive(ctx, t.Node.(*nodes.FolderNode))
		},
	}
}

func newAppAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "new app",
		Icon:       "fas fa-sitemap",
		Section:    SectionCreate,
		Authorized: p.Write,
		Applicable: func() bool {
			return t.Selection == SelectionIndirect && nodes.IsStandardFolder(t.Node)
		},
		Exe: func(ctx context.Context) error {
			return s.CreateAsset(t.Node.(*nodes.FolderNode), nodes.ItemFluxProject, "new app")
		},
	}
}

func newStoryAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "new story",
		Icon:       "fas fa-book",
		Section:    SectionCreate,
		Authorized: p.Write,
		Applicable: func() bool {
			return t.Selection == SelectionIndirect && nodes.IsStandardFolder(t.Node)
		},
		Exe: func(ctx context.Context) error {
			return s.CreateAsset(t.Node.(*nodes.FolderNode), nodes.ItemStory, "new story")
		},
	}
}

func pasteAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "paste",
		Icon:       "fas fa-paste",
		Section:    SectionEdit,
		Authorized: p.Write && s.ClipboardContent() != nil,
		Applicable: func() bool {
			return t.Selection == SelectionIndirect && p.Write && nodes.IsStandardFolder(t.Node)
		},
		Exe: func(ctx context.Context) error {
			_, err := s.Paste(ctx, t.Node)
			return err
		},
	}
}

func cutAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "cut",
		Icon:       "fas fa-cut",
		Section:    SectionEdit,
		Authorized: true,
		Applicable: func() bool {
			if !p.Write || t.Selection == SelectionIndirect {
				return false
			}
			if n, ok := t.Node.(*nodes.ItemNode); ok {
				return !n.Borrowed
			}
			return nodes.IsRegularFolder(t.Node)
		},
		Exe: func(ctx context.Context) error {
			s.Cut(t.Node)
			return nil
		},
	}
}

func borrowAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "borrow item",
		Icon:       "fas fa-link",
		Section:    SectionEdit,
		Authorized: p.Share,
		Applicable: func() bool {
			_, ok := t.Node.(*nodes.ItemNode)
			return ok
		},
		Exe: func(ctx context.Context) error {
			s.BorrowItem(t.Node.(*nodes.ItemNode))
			return nil
		},
	}
}

func (r *Registry) importDataAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "import data",
		Icon:       "fas fa-file-import",
		Section:    SectionCreate,
		Authorized: p.Write,
		Applicable: func() bool {
			return r.ImportData != nil &&
				t.Selection == SelectionIndirect &&
				nodes.IsStandardFolder(t.Node)
		},
		Exe: func(ctx context.Context) error {
			return r.ImportData(ctx, t.Node.(*nodes.FolderNode))
		},
	}
}

func deleteItemAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "delete",
		Icon:       "fas fa-trash",
		Section:    SectionDanger,
		Authorized: p.Write,
		Applicable: func() bool {
			_, ok := t.Node.(*nodes.ItemNode)
			return ok
		},
		Exe: func(ctx context.Context) error {
			return s.DeleteItemOrFolder(t.Node)
		},
	}
}

func refreshAction(s *session.State, t Target, p Permissions) Action {
	return Action{
		Name:       "refresh",
		Icon:       "fas fa-sync-alt",
		Section:    SectionView,
		Authorized: p.Read,
		Applicable: func() bool {
			return nodes.IsStandardFolder(t.Node)
		},
		Exe: func(ctx context.Context) error {
			return s.Refresh(t.Node.(*nodes.FolderNode))
		},
	}
}
