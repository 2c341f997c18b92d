package nodes

import (
	"sync"

	"github.com/skydesk/skydesk/pkg/events"
)

// StatusType tags a transient node state.
type StatusType string

const (
	// StatusRenaming marks a node whose name is being edited.
	StatusRenaming StatusType = "renaming"
	// StatusCut marks the node currently held in the cut clipboard.
	StatusCut StatusType = "cut"
	// StatusRequestPending marks a node with an in-flight remote operation.
	// Each pending operation carries its own correlation id so concurrent
	// operations never clear each other.
	StatusRequestPending StatusType = "request-pending"
)

// Status is one transient tag on a node.
type Status struct {
	Type StatusType
	ID   string
}

// StatusSet is the mutable set of transient tags attached to a node. It is
// deliberately exempt from the snapshot immutability discipline and is
// shared between snapshot generations of the same entity.
type StatusSet struct {
	mu      sync.Mutex
	entries []Status
	stream  *events.Broadcaster[[]Status]
}

// NewStatusSet creates an empty status set.
func NewStatusSet() *StatusSet {
	s := &StatusSet{stream: events.NewReplayBroadcaster[[]Status]()}
	s.stream.Publish(nil)
	return s
}

// Add attaches a tag. The id is required: operations that can overlap must
// use distinct correlation ids. Adding an already-present {type, id} pair
// is a no-op.
func (s *StatusSet) Add(t StatusType, id string) Status {
	s.mu.Lock()
	for _, e := range s.entries {
		if e.Type == t && e.ID == id {
			s.mu.Unlock()
			return e
		}
	}
	entry := Status{Type: t, ID: id}
	s.entries = append(s.entries, entry)
	snapshot := append([]Status(nil), s.entries...)
	s.mu.Unlock()
	s.stream.Publish(snapshot)
	return entry
}

// Remove detaches all tags matching both type and id. Removing an absent
// tag is a no-op.
func (s *StatusSet) Remove(t StatusType, id string) {
	s.mu.Lock()
	kept := s.entries[:0]
	removed := false
	for _, e := range s.entries {
		if e.Type == t && e.ID == id {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	if !removed {
		s.mu.Unlock()
		return
	}
	snapshot := append([]Status(nil), s.entries...)
	s.mu.Unlock()
	s.stream.Publish(snapshot)
}

// Has reports whether any tag of the given type is present.
func (s *StatusSet) Has(t StatusType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Type == t {
			return true
		}
	}
	return false
}

// Entries returns a copy of the current tags.
func (s *StatusSet) Entries() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Status(nil), s.entries...)
}

// Watch returns a channel re-emitting the full tag set on every change.
// New subscribers receive the current set first.
func (s *StatusSet) Watch() chan []Status {
	return s.stream.Subscribe()
}

// Unwatch releases a channel obtained from Watch.
func (s *StatusSet) Unwatch(ch chan []Status) {
	s.stream.Unsubscribe(ch)
}
