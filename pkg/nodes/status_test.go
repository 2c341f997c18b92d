package nodes

import "testing"

func TestStatusAddIsIdempotent(t *testing.T) {
	s := NewStatusSet()
	s.Add(StatusRequestPending, "op-1")
	s.Add(StatusRequestPending, "op-1")

	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Type != StatusRequestPending || entries[0].ID != "op-1" {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}

func TestStatusRemoveMatchesTypeAndID(t *testing.T) {
	s := NewStatusSet()
	s.Add(StatusRequestPending, "op-1")
	s.Add(StatusRequestPending, "op-2")
	s.Add(StatusCut, "op-1")

	s.Remove(StatusRequestPending, "op-1")

	if !s.Has(StatusRequestPending) {
		t.Error("op-2 pending entry should survive")
	}
	if !s.Has(StatusCut) {
		t.Error("cut entry with same id but other type should survive")
	}
	if len(s.Entries()) != 2 {
		t.Errorf("expected 2 entries, got %d", len(s.Entries()))
	}
}

func TestStatusRemoveTwiceIsNoop(t *testing.T) {
	s := NewStatusSet()
	s.Add(StatusRenaming, "n1")
	s.Remove(StatusRenaming, "n1")
	s.Remove(StatusRenaming, "n1")

	if len(s.Entries()) != 0 {
		t.Errorf("expected empty set, got %v", s.Entries())
	}
}

func TestConcurrentPendingOperationsDoNotClobber(t *testing.T) {
	s := NewStatusSet()
	s.Add(StatusRequestPending, "rename-op")
	s.Add(StatusRequestPending, "delete-op")

	s.Remove(StatusRequestPending, "rename-op")

	if !s.Has(StatusRequestPending) {
		t.Error("removing one pending operation cleared the other")
	}
}

func TestStatusWatchDeliversSnapshots(t *testing.T) {
	s := NewStatusSet()
	ch := s.Watch()
	defer s.Unwatch(ch)

	// Replay of the current (empty) state.
	if got := <-ch; len(got) != 0 {
		t.Fatalf("expected empty initial snapshot, got %v", got)
	}

	s.Add(StatusCut, "n1")
	got := <-ch
	if len(got) != 1 || got[0].Type != StatusCut {
		t.Fatalf("expected cut snapshot, got %v", got)
	}

	s.Remove(StatusCut, "n1")
	if got := <-ch; len(got) != 0 {
		t.Fatalf("expected empty snapshot after remove, got %v", got)
	}
}
