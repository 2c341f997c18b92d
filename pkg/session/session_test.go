package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/skydesk/skydesk/pkg/nodes"
	"github.com/skydesk/skydesk/pkg/protocol"
	"github.com/skydesk/skydesk/pkg/tree"
)

func TestBootstrapBuildsPrivateGroup(t *testing.T) {
	s, _ := newTestSession(t, newFakeService())

	info, ok := s.UserInfo()
	if !ok || info.Name != "ada" {
		t.Fatalf("user info = %+v, ok=%v", info, ok)
	}
	tr, ok := s.Tree("g1")
	if !ok {
		t.Fatal("private tree not built")
	}
	if _, ok := s.Tree("g2"); ok {
		t.Error("shared group tree built eagerly")
	}

	home, ok := tr.HomeNode()
	if !ok || home.Kind != nodes.FolderHome {
		t.Fatalf("home node = %+v, ok=%v", home, ok)
	}
	trash, ok := tr.TrashNode()
	if !ok || trash.Kind != nodes.FolderTrash {
		t.Fatalf("trash node = %+v, ok=%v", trash, ok)
	}
	if trash.DriveID != "d1" {
		t.Errorf("trash drive = %q, want d1", trash.DriveID)
	}

	drive, ok := tr.DefaultDriveNode()
	if !ok {
		t.Fatal("default drive missing")
	}
	kids, err := tr.Children(t.Context(), drive)
	if err != nil {
		t.Fatalf("drive children: %v", err)
	}
	var kindOrder []nodes.FolderKind
	for _, k := range kids {
		kindOrder = append(kindOrder, k.(*nodes.FolderNode).Kind)
	}
	want := []nodes.FolderKind{nodes.FolderHome, nodes.FolderDownload, nodes.FolderTrash, nodes.FolderSystem}
	if len(kindOrder) != len(want) {
		t.Fatalf("drive children kinds = %v", kindOrder)
	}
	for i := range want {
		if kindOrder[i] != want[i] {
			t.Errorf("drive child %d kind = %v, want %v", i, kindOrder[i], want[i])
		}
	}

	open, ok := s.CurrentFolder()
	if !ok || open.Folder.ID() != "home-1" {
		t.Fatalf("open folder after bootstrap = %+v, ok=%v", open, ok)
	}
}

func TestSecondaryDriveGrowsTrash(t *testing.T) {
	f := newFakeService()
	s, _ := newTestSession(t, f)
	tr, _ := s.Tree("g1")

	drive, ok := tr.Get("d9")
	if !ok {
		t.Fatal("secondary drive not in tree")
	}
	kids, err := tr.Children(t.Context(), drive)
	if err != nil {
		t.Fatalf("drive children: %v", err)
	}

	var trash *nodes.FolderNode
	for _, k := range kids {
		if fo, ok := k.(*nodes.FolderNode); ok && fo.Kind == nodes.FolderTrash {
			trash = fo
		}
	}
	if trash == nil {
		t.Fatalf("no trash among drive children %d", len(kids))
	}
	if trash.DriveID != "d9" {
		t.Errorf("trash drive = %q, want d9", trash.DriveID)
	}
	if trash.ID() == TrashFolderID {
		t.Error("secondary trash reuses the default drive's trash id")
	}
	if _, ok := tr.Get("f9"); !ok {
		t.Error("listed drive child missing alongside trash")
	}
	// Both trash nodes coexist in the index.
	if _, ok := tr.Get(TrashFolderID); !ok {
		t.Error("default drive trash lost")
	}

	if err := s.PurgeDrive(t.Context(), trash); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if !hasCall(f.recorded(), "purge-drive:d9") {
		t.Errorf("purge call missing, calls = %v", f.recorded())
	}
}

func TestOpenFolderClearsSelection(t *testing.T) {
	s, _ := newTestSession(t, newFakeService())
	tr, _ := s.Tree("g1")
	home, _ := tr.HomeNode()
	kids, err := tr.Children(t.Context(), home)
	if err != nil {
		t.Fatalf("home children: %v", err)
	}

	s.SelectItem(kids[0])
	if s.SelectedItem() != kids[0] {
		t.Fatal("selection not set")
	}
	s.OpenFolder(kids[0])
	if got := s.SelectedItem(); got != nil {
		t.Errorf("selection after navigation = %v, want nil", got)
	}
}

func TestSelectItemReselectIsNoop(t *testing.T) {
	s, _ := newTestSession(t, newFakeService())
	tr, _ := s.Tree("g1")
	home, _ := tr.HomeNode()
	kids, _ := tr.Children(t.Context(), home)

	ch := s.WatchSelection()
	defer s.UnwatchSelection(ch)
	<-ch // replayed nil from bootstrap

	s.SelectItem(kids[0])
	if got := <-ch; got != kids[0] {
		t.Fatalf("selection emission = %v, want %v", got, kids[0])
	}
	s.SelectItem(kids[0])
	select {
	case got := <-ch:
		t.Errorf("re-selection emitted %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func findChild(t *testing.T, tr *tree.Tree, parent nodes.Node, match func(nodes.Node) bool) nodes.Node {
	t.Helper()
	kids, err := tr.Children(t.Context(), parent)
	if err != nil {
		t.Fatalf("children of %s: %v", parent.ID(), err)
	}
	for _, k := range kids {
		if match(k) {
			return k
		}
	}
	return nil
}

func TestNewFolderLifecycle(t *testing.T) {
	f := newFakeService()
	s, _ := newTestSession(t, f)
	tr, _ := s.Tree("g1")
	home, _ := tr.HomeNode()
	if _, err := tr.Children(t.Context(), home); err != nil {
		t.Fatalf("resolve home: %v", err)
	}

	if err := s.NewFolder(home); err != nil {
		t.Fatalf("new folder: %v", err)
	}

	// The new entry is visible immediately, as a placeholder until the
	// remote create lands.
	home, _ = tr.HomeNode()
	optimistic := findChild(t, tr, home, func(n nodes.Node) bool {
		return n.Name() == NewFolderName
	})
	if optimistic == nil {
		t.Fatal("no folder visible immediately after NewFolder")
	}

	// The reconciler swaps in the authoritative folder.
	var created *nodes.FolderNode
	await(t, "authoritative folder", func() bool {
		home, _ := tr.HomeNode()
		n := findChild(t, tr, home, func(n nodes.Node) bool {
			fo, ok := n.(*nodes.FolderNode)
			return ok && fo.Kind == nodes.FolderRegular && fo.Name() == NewFolderName
		})
		if n == nil {
			return false
		}
		created = n.(*nodes.FolderNode)
		return true
	})
	home, _ = tr.HomeNode()
	if left := findChild(t, tr, home, func(n nodes.Node) bool {
		_, isFuture := n.(*nodes.FutureNode)
		return isFuture
	}); left != nil {
		t.Errorf("placeholder %s still attached after replacement", left.ID())
	}
	if !hasCall(f.recorded(), "create-folder:home-1:"+NewFolderName) {
		t.Errorf("create call missing, calls = %v", f.recorded())
	}

	if err := s.Rename(created, "projects"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got, _ := tr.Get(created.ID()); got.Name() != "projects" {
		t.Errorf("local name = %q, want projects", got.Name())
	}
	await(t, "remote rename", func() bool {
		return hasCall(f.recorded(), "rename-folder:"+created.FolderID+":projects")
	})

	renamed, _ := tr.Get(created.ID())
	if err := s.DeleteItemOrFolder(renamed); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := tr.Get(created.ID()); ok {
		t.Error("folder still indexed after delete")
	}
	await(t, "remote delete", func() bool {
		return hasCall(f.recorded(), "delete-folder:"+created.FolderID)
	})
	// Deleting the folder navigates to its parent.
	if open, ok := s.CurrentFolder(); !ok || open.Folder.ID() != "home-1" {
		t.Errorf("open folder after delete = %v", open.Folder)
	}
}

func TestCutLastWins(t *testing.T) {
	s, _ := newTestSession(t, newFakeService())
	tr, _ := s.Tree("g1")
	home, _ := tr.HomeNode()
	folder := findChild(t, tr, home, func(n nodes.Node) bool { return n.ID() == "f1" })
	item := findChild(t, tr, home, func(n nodes.Node) bool { return n.ID() == "i1" })

	s.Cut(folder)
	if !folder.Status().Has(nodes.StatusCut) {
		t.Fatal("first cut not marked")
	}
	s.Cut(item)
	if folder.Status().Has(nodes.StatusCut) {
		t.Error("first cut mark survived overwrite")
	}
	if !item.Status().Has(nodes.StatusCut) {
		t.Error("second cut not marked")
	}
	clip := s.ClipboardContent()
	if clip == nil || clip.Node != item || clip.Type != CutMove {
		t.Fatalf("clipboard = %+v", clip)
	}
}

func TestPasteMoveAcrossGroups(t *testing.T) {
	f := newFakeService()
	s, _ := newTestSession(t, f)
	t1, _ := s.Tree("g1")
	home1, _ := t1.HomeNode()
	item := findChild(t, t1, home1, func(n nodes.Node) bool { return n.ID() == "i1" })

	t2, err := s.SelectGroup(t.Context(), "g2")
	if err != nil {
		t.Fatalf("select group: %v", err)
	}
	home2, _ := t2.HomeNode()
	if _, err := t2.Children(t.Context(), home2); err != nil {
		t.Fatalf("resolve destination: %v", err)
	}

	s.Cut(item)
	res, err := s.Paste(t.Context(), home2)
	if err != nil {
		t.Fatalf("paste: %v", err)
	}
	if !res.Moved {
		t.Error("move paste reported Moved=false")
	}
	moved, ok := res.Node.(*nodes.ItemNode)
	if !ok || moved.TreeID != "i1" || moved.GroupID != "g2" {
		t.Fatalf("moved node = %+v", res.Node)
	}
	if _, ok := t1.Get("i1"); ok {
		t.Error("origin entry survived the move")
	}
	if _, ok := t2.Get("i1"); !ok {
		t.Error("moved entry missing from destination tree")
	}
	if !hasCall(f.recorded(), "move:i1:home-2") {
		t.Errorf("move call missing, calls = %v", f.recorded())
	}
	if s.ClipboardContent() != nil {
		t.Error("clipboard not cleared after paste")
	}
	if item.Status().Has(nodes.StatusCut) {
		t.Error("cut mark survived paste")
	}
}

func TestPasteBorrowLeavesOrigin(t *testing.T) {
	f := newFakeService()
	s, _ := newTestSession(t, f)
	tr, _ := s.Tree("g1")
	home, _ := tr.HomeNode()
	item := findChild(t, tr, home, func(n nodes.Node) bool { return n.ID() == "i1" }).(*nodes.ItemNode)
	folder := findChild(t, tr, home, func(n nodes.Node) bool { return n.ID() == "f1" })
	if _, err := tr.Children(t.Context(), folder); err != nil {
		t.Fatalf("resolve destination: %v", err)
	}

	s.BorrowItem(item)
	res, err := s.Paste(t.Context(), folder)
	if err != nil {
		t.Fatalf("paste: %v", err)
	}
	if res.Moved {
		t.Error("borrow paste reported Moved=true")
	}
	borrowed, ok := res.Node.(*nodes.ItemNode)
	if !ok || !borrowed.Borrowed || borrowed.TreeID != "i1-ref" {
		t.Fatalf("borrowed node = %+v", res.Node)
	}
	if borrowed.AssetID != item.AssetID {
		t.Errorf("borrowed asset = %q, want %q", borrowed.AssetID, item.AssetID)
	}
	if _, ok := tr.Get("i1"); !ok {
		t.Error("origin entry removed by borrow")
	}
	if !hasCall(f.recorded(), "borrow:i1:f1") {
		t.Errorf("borrow call missing, calls = %v", f.recorded())
	}
}

func TestPasteFailureWithdrawsPlaceholder(t *testing.T) {
	f := newFakeService()
	f.failMove = true
	s, _ := newTestSession(t, f)
	tr, _ := s.Tree("g1")
	home, _ := tr.HomeNode()
	item := findChild(t, tr, home, func(n nodes.Node) bool { return n.ID() == "i1" })
	folder := findChild(t, tr, home, func(n nodes.Node) bool { return n.ID() == "f1" })
	before, _ := tr.Children(t.Context(), folder)

	s.Cut(item)
	if _, err := s.Paste(t.Context(), folder); err == nil {
		t.Fatal("paste succeeded against failing move")
	}
	if s.ClipboardContent() != nil {
		t.Error("clipboard kept after failed paste")
	}
	fresh, _ := tr.Get(folder.ID())
	after, _ := tr.Children(t.Context(), fresh)
	if len(after) != len(before) {
		t.Errorf("destination children = %d, want %d (placeholder withdrawn)", len(after), len(before))
	}
	if _, ok := tr.Get("i1"); !ok {
		t.Error("origin entry lost on failed move")
	}
}

func TestPasteEmptyClipboard(t *testing.T) {
	s, _ := newTestSession(t, newFakeService())
	tr, _ := s.Tree("g1")
	home, _ := tr.HomeNode()
	if _, err := s.Paste(t.Context(), home); !errors.Is(err, ErrClipboardEmpty) {
		t.Fatalf("paste error = %v, want ErrClipboardEmpty", err)
	}
}

func TestPurgeDrive(t *testing.T) {
	f := newFakeService()
	f.deleted["d1"] = &protocol.DeletedResponse{
		Folders: []protocol.DeletedEntry{{ID: "dead-f", Name: "old"}},
		Items:   []protocol.DeletedEntry{{ID: "dead-i", Name: "scrap", Kind: "data"}},
	}
	s, _ := newTestSession(t, f)
	tr, _ := s.Tree("g1")
	trash, _ := tr.TrashNode()

	entries, err := tr.Children(t.Context(), trash)
	if err != nil {
		t.Fatalf("trash children: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("trash entries = %d, want 2", len(entries))
	}

	if err := s.PurgeDrive(t.Context(), trash); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if !hasCall(f.recorded(), "purge-drive:d1") {
		t.Errorf("purge call missing, calls = %v", f.recorded())
	}
	fresh, _ := tr.TrashNode()
	after, err := tr.Children(t.Context(), fresh)
	if err != nil {
		t.Fatalf("trash children after purge: %v", err)
	}
	if len(after) != 0 {
		t.Errorf("trash entries after purge = %d, want 0", len(after))
	}

	// The local removals replay the purge; none may reach the service as
	// individual deletes.
	s.Reconciler().Wait()
	time.Sleep(50 * time.Millisecond)
	for _, call := range f.recorded() {
		if strings.HasPrefix(call, "delete-") {
			t.Errorf("purge replay persisted as %q", call)
		}
	}
}

func TestRenameRefreshRoundTrip(t *testing.T) {
	f := newFakeService()
	s, _ := newTestSession(t, f)
	tr, _ := s.Tree("g1")
	home, _ := tr.HomeNode()
	folder := findChild(t, tr, home, func(n nodes.Node) bool { return n.ID() == "f1" })

	if err := s.Rename(folder, "reports"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got, _ := tr.Get("f1"); got.Name() != "reports" {
		t.Fatalf("local name = %q, want reports", got.Name())
	}
	await(t, "remote rename", func() bool {
		return hasCall(f.recorded(), "rename-folder:f1:reports")
	})

	// A refresh re-reads the service listing, which converged on the rename.
	home, _ = tr.HomeNode()
	if err := s.Refresh(home); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	fresh, _ := tr.HomeNode()
	again := findChild(t, tr, fresh, func(n nodes.Node) bool { return n.ID() == "f1" })
	if again == nil || again.Name() != "reports" {
		t.Fatalf("refreshed listing shows %v", again)
	}
	if open, ok := s.CurrentFolder(); !ok || open.Folder.ID() != "home-1" {
		t.Errorf("refresh did not reopen the folder, open = %v", open.Folder)
	}
}

func TestRenameKeepsFavoritesInStep(t *testing.T) {
	f := newFakeService()
	s, _ := newTestSession(t, f)
	tr, _ := s.Tree("g1")
	home, _ := tr.HomeNode()
	folder := findChild(t, tr, home, func(n nodes.Node) bool { return n.ID() == "f1" }).(*nodes.FolderNode)

	if err := s.ToggleFavoriteFolder(t.Context(), folder); err != nil {
		t.Fatalf("toggle favorite: %v", err)
	}
	favs := s.FavoriteFolders()
	if len(favs) != 1 || favs[0].Name != "docs" {
		t.Fatalf("favorites = %+v", favs)
	}
	if !hasCall(f.recorded(), "save-favorites") {
		t.Error("favorites not persisted")
	}

	if err := s.Rename(folder, "reports"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	favs = s.FavoriteFolders()
	if len(favs) != 1 || favs[0].Name != "reports" {
		t.Errorf("favorites after rename = %+v", favs)
	}

	// Toggling again unpins.
	if err := s.ToggleFavoriteFolder(t.Context(), folder); err != nil {
		t.Fatalf("untoggle favorite: %v", err)
	}
	if favs := s.FavoriteFolders(); len(favs) != 0 {
		t.Errorf("favorites after unpin = %+v", favs)
	}
}

func TestNavigateToLoadsGroup(t *testing.T) {
	s, _ := newTestSession(t, newFakeService())

	if err := s.NavigateTo(t.Context(), "home-2"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	open, ok := s.CurrentFolder()
	if !ok || open.Folder.ID() != "home-2" {
		t.Fatalf("open folder = %v", open.Folder)
	}
	if open.Tree.GroupID != "g2" {
		t.Errorf("open tree group = %q, want g2", open.Tree.GroupID)
	}
	if _, ok := s.Tree("g2"); !ok {
		t.Error("navigation did not load the group tree")
	}
}

type stubFeed struct {
	ch chan protocol.ChangeEvent
}

func (s *stubFeed) Subscribe(ctx context.Context) <-chan protocol.ChangeEvent { return s.ch }

func TestChangeFeedAttachesItem(t *testing.T) {
	f := newFakeService()
	f.items["i9"] = &protocol.ItemResponse{
		TreeID: "i9", FolderID: "home-1", DriveID: "d1", GroupID: "g1",
		AssetID: "a9", RawID: "r9", Name: "notes", Kind: "story",
	}
	s, _ := newTestSession(t, f)
	tr, _ := s.Tree("g1")
	home, _ := tr.HomeNode()
	if _, err := tr.Children(t.Context(), home); err != nil {
		t.Fatalf("resolve home: %v", err)
	}
	evCh := home.Events().Subscribe()
	defer home.Events().Unsubscribe(evCh)

	feed := &stubFeed{ch: make(chan protocol.ChangeEvent, 1)}
	s.AttachChangeFeed(t.Context(), feed)
	feed.ch <- protocol.ChangeEvent{Type: protocol.ChangeItemAdded, TreeID: "i9", GroupID: "g1", FolderID: "home-1"}

	await(t, "item attached", func() bool {
		_, ok := tr.Get("i9")
		return ok
	})
	select {
	case ev := <-evCh:
		if ev.Type != nodes.EventItemAdded {
			t.Errorf("event type = %q", ev.Type)
		}
	case <-time.After(time.Second):
		t.Error("no item-added event on the folder stream")
	}

	// Events for unresolved folders are dropped, not applied.
	f.items["i10"] = &protocol.ItemResponse{
		TreeID: "i10", FolderID: "f1", DriveID: "d1", GroupID: "g1",
		AssetID: "a10", RawID: "r10", Name: "late", Kind: "data",
	}
	feed.ch <- protocol.ChangeEvent{Type: protocol.ChangeItemAdded, TreeID: "i10", GroupID: "g1", FolderID: "f1"}
	time.Sleep(50 * time.Millisecond)
	if _, ok := tr.Get("i10"); ok {
		t.Error("item attached under unresolved folder")
	}
}
