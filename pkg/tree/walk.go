package tree

import "github.com/skydesk/skydesk/pkg/nodes"

// Flatten returns the node and every eagerly known descendant in
// depth-first order. Unresolved subtrees are skipped.
func Flatten(n nodes.Node) []nodes.Node {
	out := []nodes.Node{n}
	if children, ok := n.Source().Current(); ok {
		for _, c := range children {
			out = append(out, Flatten(c)...)
		}
	}
	return out
}

// Count returns the number of eagerly known nodes in the subtree.
func Count(n nodes.Node) int {
	return len(Flatten(n))
}

// FindBy returns the first eagerly known node in the subtree matching the
// predicate, in depth-first order.
func FindBy(n nodes.Node, match func(nodes.Node) bool) (nodes.Node, bool) {
	for _, c := range Flatten(n) {
		if match(c) {
			return c, true
		}
	}
	return nil, false
}
