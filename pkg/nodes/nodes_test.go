package nodes

import "testing"

func TestWithNameSharesStatusAndEvents(t *testing.T) {
	f := NewFolderNode(FolderParams{
		FolderID: "f1", GroupID: "g1", DriveID: "d1",
		Name: "docs", Kind: FolderRegular,
	})
	f.Status().Add(StatusCut, "f1")

	renamed := WithName(f, "documents")
	if renamed.Name() != "documents" {
		t.Fatalf("expected renamed copy, got %q", renamed.Name())
	}
	if f.Name() != "docs" {
		t.Errorf("original mutated: %q", f.Name())
	}
	if renamed.Status() != f.Status() {
		t.Error("status set must be shared across generations")
	}
	if renamed.Events() != f.Events() {
		t.Error("event stream must be shared across generations")
	}
	if !renamed.Status().Has(StatusCut) {
		t.Error("shared status lost on clone")
	}
}

func TestWithSourceOnlyForContainers(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for leaf variant")
		}
	}()
	item := NewItemNode(ItemParams{Name: "a", TreeID: "t1", Kind: ItemData})
	WithSource(item, EagerChildren())
}

func TestGroupIDClassification(t *testing.T) {
	cases := []struct {
		name string
		node Node
		want string
		ok   bool
	}{
		{"folder", NewFolderNode(FolderParams{FolderID: "f", GroupID: "g1", Kind: FolderRegular}), "g1", true},
		{"item", NewItemNode(ItemParams{TreeID: "t", GroupID: "g2", Kind: ItemData}), "g2", true},
		{"drive", NewDriveNode(DriveParams{DriveID: "d", GroupID: "g3"}), "g3", true},
		{"future", NewFutureNode(FutureParams{ID: "p", Kind: FutureItem}), "", false},
		{"deleted", NewDeletedNode("x", "gone", "d", DeletedItem, "data"), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := GroupID(tc.node)
			if got != tc.want || ok != tc.ok {
				t.Errorf("GroupID() = %q, %v; want %q, %v", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestTrashClassification(t *testing.T) {
	trash := NewFolderNode(FolderParams{FolderID: "trash", Kind: FolderTrash})
	home := NewFolderNode(FolderParams{FolderID: "h", Kind: FolderHome})

	if !IsTrashFolder(trash) {
		t.Error("trash folder not classified")
	}
	if IsTrashFolder(home) {
		t.Error("home folder classified as trash")
	}
	if IsStandardFolder(trash) {
		t.Error("trash is not a standard folder")
	}
	if !IsStandardFolder(home) {
		t.Error("home is a standard folder")
	}
}
