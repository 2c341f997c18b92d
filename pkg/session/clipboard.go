package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/skydesk/skydesk/pkg/nodes"
	"github.com/skydesk/skydesk/pkg/tree"
)

// ErrClipboardEmpty signals a paste with nothing cut.
var ErrClipboardEmpty = errors.New("clipboard empty")

// CutType tells whether a paste moves the cut node or creates a borrowed
// reference.
type CutType string

const (
	CutMove   CutType = "move"
	CutBorrow CutType = "borrow"
)

// Clipboard is the session's single cut slot. A second cut overwrites the
// first; last cut wins.
type Clipboard struct {
	Type CutType
	Node nodes.Node
}

// PasteResult reports what a successful paste produced.
type PasteResult struct {
	// Node is the authoritative node now present under the destination.
	Node nodes.Node
	// Moved is false for borrows, which leave the origin entry in place.
	Moved bool
}

// Cut marks a regular folder or item for a subsequent move-paste.
func (s *State) Cut(n nodes.Node) {
	s.setClipboard(CutMove, n)
}

// BorrowItem marks an item for a subsequent borrow-paste.
func (s *State) BorrowItem(n *nodes.ItemNode) {
	s.setClipboard(CutBorrow, n)
}

// ClipboardContent returns the current cut slot, nil when empty.
func (s *State) ClipboardContent() *Clipboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clip
}

func (s *State) setClipboard(t CutType, n nodes.Node) {
	n.Status().Add(nodes.StatusCut, n.ID())
	s.mu.Lock()
	previous := s.clip
	s.clip = &Clipboard{Type: t, Node: n}
	s.mu.Unlock()
	if previous != nil && previous.Node != n {
		previous.Node.Status().Remove(nodes.StatusCut, previous.Node.ID())
	}
}

// Paste relocates the cut node under destination: a placeholder appears at
// the destination, the remote move/borrow runs, and on success the
// authoritative node replaces the placeholder while a move also withdraws
// the origin entry. The clipboard is cleared whatever the outcome.
func (s *State) Paste(ctx context.Context, destination nodes.Node) (PasteResult, error) {
	s.mu.Lock()
	clip := s.clip
	s.clip = nil
	s.mu.Unlock()
	if clip == nil {
		return PasteResult{}, ErrClipboardEmpty
	}
	clip.Node.Status().Remove(nodes.StatusCut, clip.Node.ID())

	origin, err := s.treeOf(clip.Node)
	if err != nil {
		return PasteResult{}, fmt.Errorf("paste: %w", err)
	}
	dest, err := s.treeOf(destination)
	if err != nil {
		return PasteResult{}, fmt.Errorf("paste: %w", err)
	}

	uid := ulid.Make().String()
	destination.Status().Add(nodes.StatusRequestPending, uid)
	defer destination.Status().Remove(nodes.StatusRequestPending, uid)

	switch target := clip.Node.(type) {
	case *nodes.ItemNode:
		if clip.Type == CutBorrow {
			return s.borrowInto(ctx, target, dest, destination)
		}
		return s.moveItem(ctx, target, origin, dest, destination)
	case *nodes.FolderNode:
		if clip.Type != CutMove || target.Kind != nodes.FolderRegular {
			return PasteResult{}, fmt.Errorf("paste: folder %s is not movable", target.FolderID)
		}
		return s.moveFolder(ctx, target, origin, dest, destination)
	default:
		return PasteResult{}, fmt.Errorf("paste: %T cannot be pasted", clip.Node)
	}
}

// borrowInto creates a borrowed reference at the destination. The origin
// entry is untouched.
func (s *State) borrowInto(ctx context.Context, item *nodes.ItemNode, dest *tree.Tree, destination nodes.Node) (PasteResult, error) {
	placeholder, err := s.placeholder(dest, destination, item.Name(), item.Icon(), nodes.FutureItem)
	if err != nil {
		return PasteResult{}, fmt.Errorf("borrow %s: %w", item.TreeID, err)
	}
	resp, err := s.remote.Borrow(ctx, item.TreeID, destination.ID())
	if err != nil {
		s.withdraw(dest, placeholder)
		return PasteResult{}, fmt.Errorf("borrow %s: %w", item.TreeID, err)
	}
	borrowed := itemNode(*resp)
	if _, err := dest.ReplaceNode(placeholder.ID(), borrowed, tree.NotPersisted()); err != nil {
		return PasteResult{}, fmt.Errorf("borrow %s: %w", item.TreeID, err)
	}
	return PasteResult{Node: borrowed}, nil
}

// moveItem relocates an item, possibly across trees: placeholder at the
// destination, one remote move, then authoritative replacement plus origin
// withdrawal. Both local steps are replays of the already-persisted move.
func (s *State) moveItem(ctx context.Context, item *nodes.ItemNode, origin, dest *tree.Tree, destination nodes.Node) (PasteResult, error) {
	placeholder, err := s.placeholder(dest, destination, item.Name(), item.Icon(), nodes.FutureItem)
	if err != nil {
		return PasteResult{}, fmt.Errorf("move %s: %w", item.TreeID, err)
	}
	resp, err := s.remote.Move(ctx, item.TreeID, destination.ID())
	if err != nil {
		s.withdraw(dest, placeholder)
		return PasteResult{}, fmt.Errorf("move %s: %w", item.TreeID, err)
	}

	var moved nodes.Node
	for _, it := range resp.Items {
		if it.TreeID == item.TreeID {
			moved = itemNode(it)
			break
		}
	}
	if moved == nil {
		s.withdraw(dest, placeholder)
		return PasteResult{}, fmt.Errorf("move %s: item missing from response", item.TreeID)
	}
	if _, err := dest.ReplaceNode(placeholder.ID(), moved, tree.NotPersisted()); err != nil {
		return PasteResult{}, fmt.Errorf("move %s: %w", item.TreeID, err)
	}
	if _, err := origin.RemoveNode(item.ID(), tree.NotPersisted()); err != nil {
		return PasteResult{}, fmt.Errorf("move %s: %w", item.TreeID, err)
	}
	return PasteResult{Node: moved, Moved: true}, nil
}

// moveFolder relocates a regular folder the same way; the moved folder's
// children resolve lazily under its new parent.
func (s *State) moveFolder(ctx context.Context, folder *nodes.FolderNode, origin, dest *tree.Tree, destination nodes.Node) (PasteResult, error) {
	placeholder, err := s.placeholder(dest, destination, folder.Name(), folder.Icon(), nodes.FutureFolder)
	if err != nil {
		return PasteResult{}, fmt.Errorf("move folder %s: %w", folder.FolderID, err)
	}
	resp, err := s.remote.Move(ctx, folder.FolderID, destination.ID())
	if err != nil {
		s.withdraw(dest, placeholder)
		return PasteResult{}, fmt.Errorf("move folder %s: %w", folder.FolderID, err)
	}

	var moved nodes.Node
	for _, f := range resp.Folders {
		if f.FolderID == folder.FolderID {
			moved = s.folderNode(f, folder.Kind)
			break
		}
	}
	if moved == nil {
		s.withdraw(dest, placeholder)
		return PasteResult{}, fmt.Errorf("move folder %s: folder missing from response", folder.FolderID)
	}
	if _, err := dest.ReplaceNode(placeholder.ID(), moved, tree.NotPersisted()); err != nil {
		return PasteResult{}, fmt.Errorf("move folder %s: %w", folder.FolderID, err)
	}
	if _, err := origin.RemoveNode(folder.ID(), tree.NotPersisted()); err != nil {
		return PasteResult{}, fmt.Errorf("move folder %s: %w", folder.FolderID, err)
	}
	return PasteResult{Node: moved, Moved: true}, nil
}

// placeholder attaches a local-only future node under the destination.
func (s *State) placeholder(dest *tree.Tree, destination nodes.Node, name, icon string, kind nodes.FutureKind) (*nodes.FutureNode, error) {
	fut := nodes.NewFutureNode(nodes.FutureParams{
		ID:   ulid.Make().String(),
		Name: name,
		Icon: icon,
		Kind: kind,
	})
	if _, err := dest.AddChild(destination.ID(), fut, tree.NotPersisted()); err != nil {
		return nil, err
	}
	return fut, nil
}

// withdraw detaches a placeholder after a failed remote call.
func (s *State) withdraw(dest *tree.Tree, placeholder *nodes.FutureNode) {
	_, _ = dest.RemoveNode(placeholder.ID(), tree.NotPersisted())
}
