package tree

import (
	"fmt"

	"github.com/skydesk/skydesk/internal/metrics"
	"github.com/skydesk/skydesk/pkg/nodes"
)

// CommandType discriminates the structural commands a tree accepts.
type CommandType string

const (
	CommandAddChild          CommandType = "add-child"
	CommandRemoveNode        CommandType = "remove-node"
	CommandReplaceNode       CommandType = "replace-node"
	CommandReplaceAttributes CommandType = "replace-attributes"
)

// Command describes one applied structural change.
type Command struct {
	Type     CommandType
	ParentID string // parent of the affected node at the time of the change
	TargetID string // the node removed, replaced, or re-attributed; empty for add-child
}

// Update is the change descriptor published on the direct-updates stream
// after each successful command.
type Update struct {
	Command Command
	Added   []nodes.Node
	Removed []nodes.Node
	// ToBeSaved is false for local-only replays that must not reach the
	// remote service again.
	ToBeSaved bool
}

// Attributes holds the mutable attributes of a node.
type Attributes struct {
	Name string
}

// Option adjusts how a command's update is published.
type Option func(*Update)

// NotPersisted marks the resulting update as local-only so downstream
// consumers skip remote persistence.
func NotPersisted() Option {
	return func(u *Update) { u.ToBeSaved = false }
}

// AddChild attaches child under the folder or drive with the given parent
// id and publishes the resulting update. The parent's children must already
// be resolved; otherwise ErrNotResolved is returned and nothing is
// published.
func (t *Tree) AddChild(parentID string, child nodes.Node, opts ...Option) (Update, error) {
	t.mu.Lock()
	parent, ok := t.index[parentID]
	if !ok {
		t.mu.Unlock()
		return Update{}, fmt.Errorf("add child under %s: %w", parentID, ErrNotFound)
	}
	current, resolved := parent.Source().Current()
	if !resolved {
		t.mu.Unlock()
		return Update{}, fmt.Errorf("add child under %s: %w", parentID, ErrNotResolved)
	}

	next := make([]nodes.Node, len(current), len(current)+1)
	copy(next, current)
	next = append(next, child)

	t.swapChildren(parent, next)
	t.parents[child.ID()] = parentID
	t.indexSubtree(child)

	u := Update{
		Command:   Command{Type: CommandAddChild, ParentID: parentID},
		Added:     []nodes.Node{child},
		ToBeSaved: true,
	}
	for _, o := range opts {
		o(&u)
	}
	t.mu.Unlock()

	t.finish(u, parentID, next)
	return u, nil
}

// RemoveNode detaches the node with the given id from its parent and
// publishes the resulting update. Detaching the root is not supported.
func (t *Tree) RemoveNode(id string, opts ...Option) (Update, error) {
	t.mu.Lock()
	target, parent, current, err := t.locate(id)
	if err != nil {
		t.mu.Unlock()
		return Update{}, fmt.Errorf("remove node %s: %w", id, err)
	}

	next := make([]nodes.Node, 0, len(current)-1)
	for _, c := range current {
		if c.ID() != id {
			next = append(next, c)
		}
	}

	t.swapChildren(parent, next)
	t.dropSubtree(target)

	u := Update{
		Command:   Command{Type: CommandRemoveNode, ParentID: parent.ID(), TargetID: id},
		Removed:   []nodes.Node{target},
		ToBeSaved: true,
	}
	for _, o := range opts {
		o(&u)
	}
	parentID := parent.ID()
	t.mu.Unlock()

	t.finish(u, parentID, next)
	return u, nil
}

// ReplaceNode swaps the node with the given id for replacement, keeping its
// position among its siblings, and publishes the resulting update.
func (t *Tree) ReplaceNode(id string, replacement nodes.Node, opts ...Option) (Update, error) {
	t.mu.Lock()
	target, parent, current, err := t.locate(id)
	if err != nil {
		t.mu.Unlock()
		return Update{}, fmt.Errorf("replace node %s: %w", id, err)
	}

	next := make([]nodes.Node, len(current))
	copy(next, current)
	for i, c := range next {
		if c.ID() == id {
			next[i] = replacement
		}
	}

	t.swapChildren(parent, next)
	t.dropSubtree(target)
	t.parents[replacement.ID()] = parent.ID()
	t.indexSubtree(replacement)

	u := Update{
		Command:   Command{Type: CommandReplaceNode, ParentID: parent.ID(), TargetID: id},
		Added:     []nodes.Node{replacement},
		Removed:   []nodes.Node{target},
		ToBeSaved: true,
	}
	for _, o := range opts {
		o(&u)
	}
	parentID := parent.ID()
	t.mu.Unlock()

	t.finish(u, parentID, next)
	return u, nil
}

// ReplaceAttributes applies new attributes to the node with the given id in
// place of the old ones and publishes the resulting update. The node keeps
// its identity, children, status set and event stream.
func (t *Tree) ReplaceAttributes(id string, attrs Attributes, opts ...Option) (Update, error) {
	t.mu.Lock()
	target, ok := t.index[id]
	if !ok {
		t.mu.Unlock()
		return Update{}, fmt.Errorf("replace attributes of %s: %w", id, ErrNotFound)
	}
	renamed := nodes.WithName(target, attrs.Name)

	var (
		parentID string
		next     []nodes.Node
	)
	if target == t.root {
		t.root = renamed
		t.index[id] = renamed
	} else {
		var parent nodes.Node
		var current []nodes.Node
		var err error
		target, parent, current, err = t.locate(id)
		if err != nil {
			t.mu.Unlock()
			return Update{}, fmt.Errorf("replace attributes of %s: %w", id, err)
		}
		next = make([]nodes.Node, len(current))
		copy(next, current)
		for i, c := range next {
			if c.ID() == id {
				next[i] = renamed
			}
		}
		t.swapChildren(parent, next)
		t.index[id] = renamed
		parentID = parent.ID()
	}

	u := Update{
		Command:   Command{Type: CommandReplaceAttributes, ParentID: parentID, TargetID: id},
		Added:     []nodes.Node{renamed},
		Removed:   []nodes.Node{target},
		ToBeSaved: true,
	}
	for _, o := range opts {
		o(&u)
	}
	t.mu.Unlock()

	t.finish(u, parentID, next)
	return u, nil
}

// locate returns the node with the given id, its parent and the parent's
// current children. Callers must hold t.mu.
func (t *Tree) locate(id string) (target, parent nodes.Node, current []nodes.Node, err error) {
	target, ok := t.index[id]
	if !ok {
		return nil, nil, nil, ErrNotFound
	}
	pid, ok := t.parents[id]
	if !ok {
		return nil, nil, nil, fmt.Errorf("parent of %s: %w", id, ErrNotFound)
	}
	parent, ok = t.index[pid]
	if !ok {
		return nil, nil, nil, fmt.Errorf("parent %s: %w", pid, ErrNotFound)
	}
	current, ok = parent.Source().Current()
	if !ok {
		return nil, nil, nil, ErrNotResolved
	}
	return target, parent, current, nil
}

// swapChildren rebuilds the spine from parent to the root, giving each
// ancestor a fresh child list so prior snapshots stay untouched. Status
// sets and event streams are carried over by the clone. Callers must hold
// t.mu.
func (t *Tree) swapChildren(parent nodes.Node, children []nodes.Node) {
	fresh := nodes.WithSource(parent, nodes.EagerChildren(children...))
	t.index[fresh.ID()] = fresh

	child := fresh
	for {
		pid, ok := t.parents[child.ID()]
		if !ok {
			t.root = child
			return
		}
		ancestor := t.index[pid]
		siblings, _ := ancestor.Source().Current()
		next := make([]nodes.Node, len(siblings))
		copy(next, siblings)
		for i, s := range next {
			if s.ID() == child.ID() {
				next[i] = child
			}
		}
		freshAncestor := nodes.WithSource(ancestor, nodes.EagerChildren(next...))
		t.index[pid] = freshAncestor
		child = freshAncestor
	}
}

// finish publishes the update and the affected child list after the lock is
// released.
func (t *Tree) finish(u Update, parentID string, children []nodes.Node) {
	metrics.RecordTreeCommand(string(u.Command.Type))
	t.updates.Publish(u)
	if parentID != "" && children != nil {
		t.publishChildren(parentID, children)
	}
}
