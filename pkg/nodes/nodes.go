// Package nodes defines the in-memory representation of explorer entities:
// groups, drives, folders, items, and the transient nodes used while remote
// operations are in flight. The set of variants is closed; downstream code
// narrows a Node with a type switch or the classification predicates, never
// by probing fields.
package nodes

import (
	"context"

	"github.com/skydesk/skydesk/pkg/events"
)

// EventType identifies a node-level event.
type EventType string

// EventItemAdded signals that a child item was attached to a folder as a
// consequence of a remote change notification.
const EventItemAdded EventType = "item-added"

// Event is delivered on a node's event stream.
type Event struct {
	Type EventType
}

// Origin tracks where the underlying asset is known to exist. Local-only
// items can be uploaded; remote-only items cannot.
type Origin struct {
	Local  bool `json:"local"`
	Remote bool `json:"remote"`
}

// Node is the closed union of explorer entities. Only types in this package
// implement it.
type Node interface {
	ID() string
	Name() string
	Icon() string
	Status() *StatusSet
	Source() *ChildSource // nil for leaf variants
	Origin() *Origin
	Events() *events.Broadcaster[Event]

	node()
}

// Base carries the state common to every variant. The status set and event
// stream are shared between successive snapshot generations of the same
// entity; everything else is immutable after construction.
type Base struct {
	id       string
	name     string
	icon     string
	status   *StatusSet
	source   *ChildSource
	origin   *Origin
	evStream *events.Broadcaster[Event]
}

func newBase(id, name, icon string, source *ChildSource, origin *Origin) Base {
	return Base{
		id:       id,
		name:     name,
		icon:     icon,
		status:   NewStatusSet(),
		source:   source,
		origin:   origin,
		evStream: events.NewBroadcaster[Event](),
	}
}

func (b *Base) ID() string                         { return b.id }
func (b *Base) Name() string                       { return b.name }
func (b *Base) Icon() string                       { return b.icon }
func (b *Base) Status() *StatusSet                 { return b.status }
func (b *Base) Source() *ChildSource               { return b.source }
func (b *Base) Origin() *Origin                    { return b.origin }
func (b *Base) Events() *events.Broadcaster[Event] { return b.evStream }

func (b *Base) node() {}

// GroupKind distinguishes a personal group from a shared one.
type GroupKind string

const (
	GroupUser  GroupKind = "user"
	GroupUsers GroupKind = "users"
)

var groupIcons = map[GroupKind]string{
	GroupUser:  "fas fa-user",
	GroupUsers: "fas fa-users",
}

// GroupNode is a permission/namespace boundary holding drives.
type GroupNode struct {
	Base
	GroupID string
	Kind    GroupKind
}

// GroupParams holds the fields required to construct a GroupNode.
type GroupParams struct {
	ID       string
	Name     string
	Kind     GroupKind
	Children *ChildSource
}

// NewGroupNode constructs a group node. The group id doubles as the node id.
func NewGroupNode(p GroupParams) *GroupNode {
	return &GroupNode{
		Base:    newBase(p.ID, p.Name, groupIcons[p.Kind], p.Children, nil),
		GroupID: p.ID,
		Kind:    p.Kind,
	}
}

// DriveNode is a top-level container of folders within a group.
type DriveNode struct {
	Base
	GroupID string
	DriveID string
}

// DriveParams holds the fields required to construct a DriveNode.
type DriveParams struct {
	GroupID  string
	DriveID  string
	Name     string
	Children *ChildSource
}

// NewDriveNode constructs a drive node. The drive id doubles as the node id.
func NewDriveNode(p DriveParams) *DriveNode {
	return &DriveNode{
		Base:    newBase(p.DriveID, p.Name, "fas fa-hdd", p.Children, nil),
		GroupID: p.GroupID,
		DriveID: p.DriveID,
	}
}

// FolderKind governs which actions apply to a folder.
type FolderKind string

const (
	FolderRegular  FolderKind = "regular"
	FolderHome     FolderKind = "home"
	FolderDownload FolderKind = "download"
	FolderTrash    FolderKind = "trash"
	FolderSystem   FolderKind = "system"
)

var folderIcons = map[FolderKind]string{
	FolderRegular:  "fas fa-folder",
	FolderHome:     "fas fa-home",
	FolderDownload: "fas fa-shopping-cart",
	FolderTrash:    "fas fa-trash",
	FolderSystem:   "fas fa-cogs",
}

// FolderNode is a folder of some kind within a drive.
type FolderNode struct {
	Base
	FolderID       string
	GroupID        string
	DriveID        string
	ParentFolderID string
	Kind           FolderKind
	Metadata       string
}

// FolderParams holds the fields required to construct a FolderNode.
type FolderParams struct {
	FolderID       string
	GroupID        string
	DriveID        string
	ParentFolderID string
	Name           string
	Kind           FolderKind
	Metadata       string
	Children       *ChildSource
	Origin         *Origin
}

// NewFolderNode constructs a folder node. The folder id doubles as the node id.
func NewFolderNode(p FolderParams) *FolderNode {
	return &FolderNode{
		Base:           newBase(p.FolderID, p.Name, folderIcons[p.Kind], p.Children, p.Origin),
		FolderID:       p.FolderID,
		GroupID:        p.GroupID,
		DriveID:        p.DriveID,
		ParentFolderID: p.ParentFolderID,
		Kind:           p.Kind,
		Metadata:       p.Metadata,
	}
}

// ItemKind identifies the asset type an item references.
type ItemKind string

const (
	ItemData        ItemKind = "data"
	ItemStory       ItemKind = "story"
	ItemFluxProject ItemKind = "flux-project"
	ItemPackage     ItemKind = "package"
)

var itemIcons = map[ItemKind]string{
	ItemData:        "fas fa-database",
	ItemStory:       "fas fa-book",
	ItemFluxProject: "fas fa-play",
	ItemPackage:     "fas fa-box",
}

// ItemIcon returns the display icon for an item kind.
func ItemIcon(kind ItemKind) string { return itemIcons[kind] }

// FolderIcon returns the display icon for a folder kind.
func FolderIcon(kind FolderKind) string { return folderIcons[kind] }

// ItemNode is a leaf asset reference. Borrowed items reference an asset
// whose authoritative tree entry lives elsewhere.
type ItemNode struct {
	Base
	GroupID  string
	DriveID  string
	AssetID  string
	RawID    string
	TreeID   string
	Borrowed bool
	Kind     ItemKind
}

// ItemParams holds the fields required to construct an ItemNode.
type ItemParams struct {
	Name     string
	GroupID  string
	DriveID  string
	AssetID  string
	RawID    string
	TreeID   string
	Borrowed bool
	Kind     ItemKind
	Origin   *Origin
}

// NewItemNode constructs an item node. The tree id doubles as the node id.
func NewItemNode(p ItemParams) *ItemNode {
	return &ItemNode{
		Base:     newBase(p.TreeID, p.Name, itemIcons[p.Kind], nil, p.Origin),
		GroupID:  p.GroupID,
		DriveID:  p.DriveID,
		AssetID:  p.AssetID,
		RawID:    p.RawID,
		TreeID:   p.TreeID,
		Borrowed: p.Borrowed,
		Kind:     p.Kind,
	}
}

// FutureKind tells whether a placeholder stands in for an item or a folder.
type FutureKind string

const (
	FutureItem   FutureKind = "item"
	FutureFolder FutureKind = "folder"
)

// FutureNode is a placeholder for an in-flight create/move/borrow. The
// reconciler runs Request and feeds the response to OnResponse, which
// builds the authoritative node that replaces the placeholder. On failure
// the placeholder is withdrawn and the error surfaces on the shared error
// stream.
type FutureNode struct {
	Base
	Kind       FutureKind
	Request    func(ctx context.Context) (any, error)
	OnResponse func(resp any) Node
}

// FutureParams holds the fields required to construct a FutureNode.
type FutureParams struct {
	ID         string
	Name       string
	Icon       string
	Kind       FutureKind
	Request    func(ctx context.Context) (any, error)
	OnResponse func(resp any) Node
}

// NewFutureNode constructs a placeholder node. The id must be unique within
// the tree; callers supply a fresh ULID.
func NewFutureNode(p FutureParams) *FutureNode {
	return &FutureNode{
		Base:       newBase(p.ID, p.Name, p.Icon, nil, nil),
		Kind:       p.Kind,
		Request:    p.Request,
		OnResponse: p.OnResponse,
	}
}

// Direction tells which way a transfer is going.
type Direction string

const (
	DirectionUpload   Direction = "upload"
	DirectionDownload Direction = "download"
)

// ProgressNode represents an in-flight upload or download with an
// observable progress ratio in [0, 1].
type ProgressNode struct {
	Base
	Direction Direction
	Progress  *events.Broadcaster[float64]
}

// NewProgressNode constructs a progress node.
func NewProgressNode(id, name string, direction Direction) *ProgressNode {
	return &ProgressNode{
		Base:      newBase(id, name, "fas fa-spinner fa-spin", nil, nil),
		Direction: direction,
		Progress:  events.NewReplayBroadcaster[float64](),
	}
}

// DeletedKind tells whether a soft-deleted entry was a folder or an item.
type DeletedKind string

const (
	DeletedFolder DeletedKind = "folder"
	DeletedItem   DeletedKind = "item"
)

// DeletedNode is a soft-deleted entry, visible only under a trash folder.
type DeletedNode struct {
	Base
	DriveID  string
	Kind     DeletedKind
	ItemType string // asset type of a deleted item, empty for folders
}

// NewDeletedNode constructs a deleted-entry node.
func NewDeletedNode(id, name, driveID string, kind DeletedKind, itemType string) *DeletedNode {
	return &DeletedNode{
		Base:     newBase(id, name, "fas fa-trash", nil, nil),
		DriveID:  driveID,
		Kind:     kind,
		ItemType: itemType,
	}
}
