// Package actions computes the permission-gated list of operations
// applicable to a selected node. Applicability is structural and decides
// list membership; authorization comes from fetched permissions and only
// affects presentation.
package actions

import (
	"context"
	"fmt"
	"sync"

	"github.com/skydesk/skydesk/internal/metrics"
	"github.com/skydesk/skydesk/pkg/client"
	"github.com/skydesk/skydesk/pkg/nodes"
	"github.com/skydesk/skydesk/pkg/session"
)

// SelectionKind tells how the target node was designated: direct selection
// of the node itself, or indirect via the currently open folder.
type SelectionKind string

const (
	SelectionDirect   SelectionKind = "direct"
	SelectionIndirect SelectionKind = "indirect"
)

// Target is the node an action list is computed for.
type Target struct {
	Node      nodes.Node
	Selection SelectionKind
}

// Permissions is the snapshot gating one action-list computation. It is
// re-fetched per evaluation, never cached across navigation.
type Permissions struct {
	Read  bool
	Write bool
	Share bool
}

// Action is one operation offered on a target. Unauthorized actions remain
// listed but disabled.
type Action struct {
	Name       string
	Icon       string
	Section    string
	Authorized bool
	Applicable func() bool
	Exe        func(ctx context.Context) error
}

// Constructor builds an action for a target under the given permissions.
type Constructor func(s *session.State, t Target, p Permissions) Action

// Section is a group of actions rendered together, separated from other
// sections.
type Section struct {
	Name    string
	Actions []Action
}

// Registry holds the ordered action constructors plus deployment-supplied
// custom actions.
type Registry struct {
	state  *session.State
	remote *client.Client

	mu           sync.RWMutex
	constructors []Constructor
	custom       []CustomAction

	// Download and ImportData are environment hooks: transferring bytes
	// in or out of the tree belongs to the hosting shell. An unset hook
	// removes the corresponding action.
	Download   func(ctx context.Context, item *nodes.ItemNode) error
	ImportData func(ctx context.Context, folder *nodes.FolderNode) error
}

// NewRegistry builds a registry with the built-in actions registered in
// their canonical order.
func NewRegistry(state *session.State, remote *client.Client) *Registry {
	r := &Registry{state: state, remote: remote}
	r.constructors = builtins(r)
	return r
}

// Register appends an action constructor after the built-ins.
func (r *Registry) Register(c Constructor) {
	r.mu.Lock()
	r.constructors = append(r.constructors, c)
	r.mu.Unlock()
}

// Evaluate computes the applicable actions for a target: permissions are
// fetched, every constructor runs, actions failing their applicability
// predicate are dropped, and custom actions are appended.
func (r *Registry) Evaluate(ctx context.Context, t Target) ([]Action, error) {
	metrics.RecordActionEvaluation()

	// Transient nodes have no defined mutations.
	switch t.Node.(type) {
	case *nodes.FutureNode, *nodes.ProgressNode, *nodes.DeletedNode:
		return nil, nil
	}

	perms, err := r.permissions(ctx, t.Node)
	if err != nil {
		return nil, fmt.Errorf("evaluate actions for %s: %w", t.Node.ID(), err)
	}

	r.mu.RLock()
	constructors := r.constructors
	custom := r.custom
	r.mu.RUnlock()

	var out []Action
	for _, c := range constructors {
		a := c(r.state, t, perms)
		if a.Applicable() {
			out = append(out, a)
		}
	}
	for _, c := range custom {
		if a, ok := c.build(r.state, t, perms); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// EvaluateSections groups an evaluation's actions by section, sections in
// registration order, actions in registration order within each.
func (r *Registry) EvaluateSections(ctx context.Context, t Target) ([]Section, error) {
	actions, err := r.Evaluate(ctx, t)
	if err != nil {
		return nil, err
	}
	var out []Section
	index := make(map[string]int)
	for _, a := range actions {
		i, ok := index[a.Section]
		if !ok {
			i = len(out)
			index[a.Section] = i
			out = append(out, Section{Name: a.Section})
		}
		out[i].Actions = append(out[i].Actions, a)
	}
	return out, nil
}

// permissions fetches the target's permission snapshot. Groups get full
// permissions; other nodes combine the node-level triple with the
// group-level write flag, fetched concurrently.
func (r *Registry) permissions(ctx context.Context, n nodes.Node) (Permissions, error) {
	if _, ok := n.(*nodes.GroupNode); ok {
		return Permissions{Read: true, Write: true, Share: true}, nil
	}

	// The synthetic trash folder has no service-side entity; permissions
	// come from its drive.
	id := n.ID()
	if f, ok := n.(*nodes.FolderNode); ok && f.Kind == nodes.FolderTrash {
		id = f.DriveID
	}
	groupID, _ := nodes.GroupID(n)

	var (
		wg       sync.WaitGroup
		perms    Permissions
		permsErr error
		grpWrite = true
		grpErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		resp, err := r.remote.GetPermissions(ctx, id)
		if err != nil {
			permsErr = err
			return
		}
		perms = Permissions{Read: resp.Read, Write: resp.Write, Share: resp.Share}
	}()
	go func() {
		defer wg.Done()
		resp, err := r.remote.GetGroupPermissions(ctx, groupID)
		if err != nil {
			grpErr = err
			return
		}
		grpWrite = resp.Write
	}()
	wg.Wait()
	if permsErr != nil {
		return Permissions{}, permsErr
	}
	if grpErr != nil {
		return Permissions{}, grpErr
	}
	perms.Write = perms.Write && grpWrite
	return perms, nil
}
