package nodes

import (
	"context"
	"sync"
)

// Resolver fetches the children of a node from the tree service.
type Resolver func(ctx context.Context) ([]Node, error)

// ResolutionState is the lifecycle of a lazy child source.
type ResolutionState int

const (
	// Unresolved means the resolver has not run yet.
	Unresolved ResolutionState = iota
	// Resolved means the resolver ran and its result is cached.
	Resolved
	// Failed means the resolver ran and returned an error. Failure is
	// terminal: a failed folder is repaired by replacing the node
	// wholesale (refresh), not by retrying the resolver.
	Failed
)

// ChildSource is the two-variant origin of a node's children: either an
// eager, already-known sequence, or a resolver invoked at most once with an
// explicit memo cache. A nil *ChildSource means the node is a leaf.
type ChildSource struct {
	mu sync.Mutex

	eager bool
	nodes []Node // eager children, or the memoized resolver result

	resolve Resolver
	state   ResolutionState
	err     error

	once sync.Once
}

// EagerChildren builds a source from a known sequence. Order is preserved.
func EagerChildren(children ...Node) *ChildSource {
	return &ChildSource{eager: true, nodes: children, state: Resolved}
}

// LazyChildren builds a source that resolves on first use.
func LazyChildren(resolve Resolver) *ChildSource {
	return &ChildSource{resolve: resolve}
}

// Resolve returns the children, running the resolver on first call. The
// outcome — success or failure — is memoized; a failed resolution stays
// failed and is distinguishable from zero children.
func (c *ChildSource) Resolve(ctx context.Context) ([]Node, error) {
	if c == nil {
		return nil, nil
	}
	if c.eager {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.nodes, nil
	}
	c.once.Do(func() {
		children, err := c.resolve(ctx)
		c.mu.Lock()
		if err != nil {
			c.state = Failed
			c.err = err
		} else {
			c.state = Resolved
			c.nodes = children
		}
		c.mu.Unlock()
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Failed {
		return nil, c.err
	}
	return c.nodes, nil
}

// Current returns the children without triggering resolution. ok is false
// while the source is unresolved or failed.
func (c *ChildSource) Current() ([]Node, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Resolved {
		return nil, false
	}
	return c.nodes, true
}

// State returns the resolution lifecycle state. Eager sources are born
// Resolved.
func (c *ChildSource) State() ResolutionState {
	if c == nil {
		return Resolved
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the terminal resolution error, if any.
func (c *ChildSource) Err() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
