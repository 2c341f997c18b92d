package nodes

import "fmt"

// IsTrashFolder reports whether n is a folder of kind trash.
func IsTrashFolder(n Node) bool {
	f, ok := n.(*FolderNode)
	return ok && f.Kind == FolderTrash
}

// IsStandardFolder reports whether n is a folder a user navigates and
// creates content in: regular, home or download.
func IsStandardFolder(n Node) bool {
	f, ok := n.(*FolderNode)
	if !ok {
		return false
	}
	return f.Kind == FolderRegular || f.Kind == FolderHome || f.Kind == FolderDownload
}

// IsRegularFolder reports whether n is a user-created folder.
func IsRegularFolder(n Node) bool {
	f, ok := n.(*FolderNode)
	return ok && f.Kind == FolderRegular
}

// GroupID returns the group a node belongs to. Transient nodes (future,
// progress, deleted) carry no group of their own.
func GroupID(n Node) (string, bool) {
	switch v := n.(type) {
	case *GroupNode:
		return v.GroupID, true
	case *DriveNode:
		return v.GroupID, true
	case *FolderNode:
		return v.GroupID, true
	case *ItemNode:
		return v.GroupID, true
	case *FutureNode, *ProgressNode, *DeletedNode:
		return "", false
	}
	panic(fmt.Sprintf("nodes: unknown variant %T", n))
}

// DriveID returns the drive a node belongs to, when it has one.
func DriveID(n Node) (string, bool) {
	switch v := n.(type) {
	case *DriveNode:
		return v.DriveID, true
	case *FolderNode:
		return v.DriveID, true
	case *ItemNode:
		return v.DriveID, true
	case *DeletedNode:
		return v.DriveID, true
	case *GroupNode, *FutureNode, *ProgressNode:
		return "", false
	}
	panic(fmt.Sprintf("nodes: unknown variant %T", n))
}

// WithName returns a copy of n carrying the new display name. The status
/// set, event stream and child source are shared with the original: status
// is transient UI state keyed by entity, not by snapshot generation.
func WithName(n Node, name string) Node {
	switch v := n.(type) {
	case *GroupNode:
		c := *v
		c.name = name
		return &c
	case *DriveNode:
		c := *v
		c.name = name
		return &c
	case *FolderNode:
		c := *v
		c.name = name
		return &c
	case *ItemNode:
		c := *v
		c.name = name
		return &c
	case *FutureNode:
		c := *v
		c.name = name
		return &c
	case *ProgressNode:
		c := *v
		c.name = name
		return &c
	case *DeletedNode:
		c := *v
		c.name = name
		return &c
	}
	panic(fmt.Sprintf("nodes: unknown variant %T", n))
}

// WithSource returns a copy of n backed by a different child source. Only
// container variants carry children; calling this on a leaf is a bug.
func WithSource(n Node, src *ChildSource) Node {
	switch v := n.(type) {
	case *GroupNode:
		c := *v
		c.source = src
		return &c
	case *DriveNode:
		c := *v
		c.source = src
		return &c
	case *FolderNode:
		c := *v
		c.source = src
		return &c
	}
	panic(fmt.Sprintf("nodes: %T carries no children", n))
}
