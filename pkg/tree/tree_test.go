package tree

import (
	"context"
	"errors"
	"testing"

	"github.com/skydesk/skydesk/pkg/nodes"
)

// fixture builds a group tree: group g1 > drive d1 > {home (resolved,
// holding folder f1 and item i1), trash (unresolved)}.
func fixture(t *testing.T) *Tree {
	t.Helper()
	f1 := nodes.NewFolderNode(nodes.FolderParams{
		FolderID: "f1", GroupID: "g1", DriveID: "d1", ParentFolderID: "home",
		Name: "docs", Kind: nodes.FolderRegular,
		Children: nodes.EagerChildren(),
	})
	i1 := nodes.NewItemNode(nodes.ItemParams{
		TreeID: "i1", GroupID: "g1", DriveID: "d1",
		Name: "report", Kind: nodes.ItemData,
	})
	home := nodes.NewFolderNode(nodes.FolderParams{
		FolderID: "home", GroupID: "g1", DriveID: "d1", ParentFolderID: "d1",
		Name: "Home", Kind: nodes.FolderHome,
		Children: nodes.EagerChildren(f1, i1),
	})
	trash := nodes.NewFolderNode(nodes.FolderParams{
		FolderID: "trash", GroupID: "g1", DriveID: "d1", ParentFolderID: "d1",
		Name: "Trash", Kind: nodes.FolderTrash,
		Children: nodes.LazyChildren(func(ctx context.Context) ([]nodes.Node, error) {
			return nil, nil
		}),
	})
	drive := nodes.NewDriveNode(nodes.DriveParams{
		GroupID: "g1", DriveID: "d1", Name: "Drive",
		Children: nodes.EagerChildren(home, trash),
	})
	root := nodes.NewGroupNode(nodes.GroupParams{
		ID: "g1", Name: "You", Kind: nodes.GroupUser,
		Children: nodes.EagerChildren(drive),
	})
	return New(root, Params{
		GroupID:        "g1",
		HomeFolderID:   "home",
		TrashFolderID:  "trash",
		DefaultDriveID: "d1",
	})
}

func childIDs(t *testing.T, n nodes.Node) []string {
	t.Helper()
	children, ok := n.Source().Current()
	if !ok {
		t.Fatalf("children of %s not resolved", n.ID())
	}
	ids := make([]string, len(children))
	for i, c := range children {
		ids[i] = c.ID()
	}
	return ids
}

func TestAddChildLeavesOldSnapshotUntouched(t *testing.T) {
	tr := fixture(t)
	oldRoot := tr.Root()
	oldHome, _ := tr.HomeNode()
	oldIDs := childIDs(t, oldHome)

	item := nodes.NewItemNode(nodes.ItemParams{
		TreeID: "i2", GroupID: "g1", DriveID: "d1", Name: "notes", Kind: nodes.ItemData,
	})
	if _, err := tr.AddChild("home", item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tr.Root() == oldRoot {
		t.Error("command must produce a new root")
	}
	if got := childIDs(t, oldHome); len(got) != len(oldIDs) {
		t.Errorf("old home snapshot mutated: %v", got)
	}
	newHome, _ := tr.HomeNode()
	if newHome == oldHome {
		t.Error("home must be a fresh instance after a spine rebuild")
	}
	got := childIDs(t, newHome)
	if got[len(got)-1] != "i2" {
		t.Errorf("new child appended last, got %v", got)
	}

	// The old root still reaches the old home, not the new one.
	oldDrive, _ := oldRoot.Source().Current()
	oldDriveChildren, _ := oldDrive[0].Source().Current()
	if oldDriveChildren[0] != oldHome {
		t.Error("old spine rewired")
	}
}

func TestAddChildRequiresResolvedParent(t *testing.T) {
	tr := fixture(t)
	updates := tr.Updates()
	defer tr.StopUpdates(updates)

	item := nodes.NewItemNode(nodes.ItemParams{TreeID: "i9", GroupID: "g1", Kind: nodes.ItemData})
	_, err := tr.AddChild("trash", item)
	if !errors.Is(err, ErrNotResolved) {
		t.Fatalf("expected ErrNotResolved, got %v", err)
	}
	select {
	case u := <-updates:
		t.Fatalf("no update may be published on failure, got %+v", u)
	default:
	}
}

func TestAddChildUnknownParent(t *testing.T) {
	tr := fixture(t)
	item := nodes.NewItemNode(nodes.ItemParams{TreeID: "i9", GroupID: "g1", Kind: nodes.ItemData})
	if _, err := tr.AddChild("nope", item); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveNodePublishesUpdate(t *testing.T) {
	tr := fixture(t)
	updates := tr.Updates()
	defer tr.StopUpdates(updates)

	u, err := tr.RemoveNode("i1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Command.Type != CommandRemoveNode || u.Command.TargetID != "i1" {
		t.Errorf("unexpected command %+v", u.Command)
	}
	if len(u.Removed) != 1 || u.Removed[0].ID() != "i1" {
		t.Errorf("unexpected removed set %v", u.Removed)
	}
	if !u.ToBeSaved {
		t.Error("default updates are persisted")
	}
	if _, ok := tr.Get("i1"); ok {
		t.Error("removed node still indexed")
	}

	published := <-updates
	if published.Command.TargetID != "i1" {
		t.Errorf("stream update mismatch: %+v", published.Command)
	}
}

func TestRemoveNodeDropsSubtreeFromIndex(t *testing.T) {
	tr := fixture(t)
	if _, err := tr.RemoveNode("home"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range []string{"home", "f1", "i1"} {
		if _, ok := tr.Get(id); ok {
			t.Errorf("%s still indexed after subtree removal", id)
		}
	}
}

func TestReplaceNodeKeepsPosition(t *testing.T) {
	tr := fixture(t)
	fresh := nodes.NewFolderNode(nodes.FolderParams{
		FolderID: "f1", GroupID: "g1", DriveID: "d1", ParentFolderID: "home",
		Name: "docs", Kind: nodes.FolderRegular,
		Children: nodes.EagerChildren(),
	})
	u, err := tr.ReplaceNode("f1", fresh, NotPersisted())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ToBeSaved {
		t.Error("NotPersisted not honored")
	}
	home, _ := tr.HomeNode()
	ids := childIDs(t, home)
	if ids[0] != "f1" || ids[1] != "i1" {
		t.Errorf("replacement changed sibling order: %v", ids)
	}
	got, _ := tr.Get("f1")
	if got != nodes.Node(fresh) {
		t.Error("index not updated to replacement")
	}
}

func TestReplaceAttributesRenames(t *testing.T) {
	tr := fixture(t)
	oldHome, _ := tr.HomeNode()
	oldF1, _ := tr.Get("f1")

	u, err := tr.ReplaceAttributes("f1", Attributes{Name: "archive"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Command.Type != CommandReplaceAttributes {
		t.Errorf("unexpected command %+v", u.Command)
	}
	renamed, _ := tr.Get("f1")
	if renamed.Name() != "archive" {
		t.Errorf("expected rename, got %q", renamed.Name())
	}
	if oldF1.Name() != "docs" {
		t.Errorf("old snapshot node mutated: %q", oldF1.Name())
	}
	if renamed.Status() != oldF1.Status() {
		t.Error("renamed node must keep the entity's status set")
	}
	if newHome, _ := tr.HomeNode(); newHome == oldHome {
		t.Error("rename must rebuild the spine")
	}
}

func TestChildrenResolutionMemoized(t *testing.T) {
	calls := 0
	lazy := nodes.NewFolderNode(nodes.FolderParams{
		FolderID: "lz", GroupID: "g1", DriveID: "d1", Name: "lazy", Kind: nodes.FolderRegular,
		Children: nodes.LazyChildren(func(ctx context.Context) ([]nodes.Node, error) {
			calls++
			return []nodes.Node{
				nodes.NewItemNode(nodes.ItemParams{TreeID: "li1", GroupID: "g1", Kind: nodes.ItemData}),
			}, nil
		}),
	})
	tr := New(nodes.NewGroupNode(nodes.GroupParams{
		ID: "g1", Name: "You", Kind: nodes.GroupUser,
		Children: nodes.EagerChildren(lazy),
	}), Params{GroupID: "g1"})

	for i := 0; i < 2; i++ {
		children, err := tr.Children(context.Background(), lazy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(children) != 1 {
			t.Fatalf("expected 1 child, got %d", len(children))
		}
	}
	if calls != 1 {
		t.Errorf("resolver ran %d times, want 1", calls)
	}
	if _, ok := tr.Get("li1"); !ok {
		t.Error("resolved children must be indexed")
	}
	if len(lazy.Status().Entries()) != 0 {
		t.Errorf("pending status must clear, got %v", lazy.Status().Entries())
	}
}

func TestChildrenResolutionFailure(t *testing.T) {
	boom := errors.New("unreachable")
	lazy := nodes.NewFolderNode(nodes.FolderParams{
		FolderID: "lz", GroupID: "g1", DriveID: "d1", Name: "lazy", Kind: nodes.FolderRegular,
		Children: nodes.LazyChildren(func(ctx context.Context) ([]nodes.Node, error) {
			return nil, boom
		}),
	})
	tr := New(nodes.NewGroupNode(nodes.GroupParams{
		ID: "g1", Name: "You", Kind: nodes.GroupUser,
		Children: nodes.EagerChildren(lazy),
	}), Params{GroupID: "g1"})

	if _, err := tr.Children(context.Background(), lazy); !errors.Is(err, boom) {
		t.Fatalf("expected resolver error, got %v", err)
	}
	if lazy.Source().State() != nodes.Failed {
		t.Error("failure must be a terminal source state")
	}
}

func TestWatchChildren(t *testing.T) {
	tr := fixture(t)
	ch := tr.WatchChildren("home")
	defer tr.UnwatchChildren("home", ch)

	item := nodes.NewItemNode(nodes.ItemParams{
		TreeID: "i2", GroupID: "g1", DriveID: "d1", Name: "notes", Kind: nodes.ItemData,
	})
	if _, err := tr.AddChild("home", item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	children := <-ch
	if len(children) != 3 || children[2].ID() != "i2" {
		t.Fatalf("unexpected children emission: %d nodes", len(children))
	}

	if _, err := tr.RemoveNode("i2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	children = <-ch
	if len(children) != 2 {
		t.Fatalf("expected 2 children after removal, got %d", len(children))
	}
}

func TestFlattenAndFind(t *testing.T) {
	tr := fixture(t)
	all := Flatten(tr.Root())
	if len(all) != 6 {
		t.Fatalf("expected 6 known nodes, got %d", len(all))
	}
	n, ok := FindBy(tr.Root(), func(n nodes.Node) bool { return n.Name() == "report" })
	if !ok || n.ID() != "i1" {
		t.Errorf("FindBy = %v, %v", n, ok)
	}
}
