// Package protocol defines the tree-service request/response types.
package protocol

import "github.com/skydesk/skydesk/pkg/nodes"

// ErrorResponse is returned on API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details string `json:"details,omitempty"`
}

// Group is a group membership entry of the current user.
type Group struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// UserInfoResponse is returned by GET /api/v1/user.
type UserInfoResponse struct {
	Name   string  `json:"name"`
	Groups []Group `json:"groups"`
}

// DriveResponse describes a drive.
type DriveResponse struct {
	DriveID string `json:"driveId"`
	GroupID string `json:"groupId"`
	Name    string `json:"name"`
}

// DrivesResponse is returned by GET /api/v1/groups/{groupId}/drives.
type DrivesResponse struct {
	Drives []DriveResponse `json:"drives"`
}

// DefaultDriveResponse is returned by GET /api/v1/groups/{groupId}/default-drive.
// It names the well-known folders of the group's default drive.
type DefaultDriveResponse struct {
	GroupID            string `json:"groupId"`
	DriveID            string `json:"driveId"`
	DriveName          string `json:"driveName"`
	HomeFolderID       string `json:"homeFolderId"`
	HomeFolderName     string `json:"homeFolderName"`
	DownloadFolderID   string `json:"downloadFolderId"`
	DownloadFolderName string `json:"downloadFolderName"`
	SystemFolderID     string `json:"systemFolderId"`
	SystemFolderName   string `json:"systemFolderName"`
}

// FolderResponse describes a folder.
type FolderResponse struct {
	FolderID       string        `json:"folderId"`
	ParentFolderID string        `json:"parentFolderId"`
	DriveID        string        `json:"driveId"`
	GroupID        string        `json:"groupId"`
	Name           string        `json:"name"`
	Metadata       string        `json:"metadata,omitempty"`
	Origin         *nodes.Origin `json:"origin,omitempty"`
}

// ItemResponse describes an item (asset reference).
type ItemResponse struct {
	TreeID   string        `json:"treeId"`
	FolderID string        `json:"folderId"`
	DriveID  string        `json:"driveId"`
	GroupID  string        `json:"groupId"`
	AssetID  string        `json:"assetId"`
	RawID    string        `json:"rawId"`
	Name     string        `json:"name"`
	Kind     string        `json:"kind"`
	Borrowed bool          `json:"borrowed"`
	Origin   *nodes.Origin `json:"origin,omitempty"`
}

// ChildrenResponse is returned by GET /api/v1/folders/{folderId}/children.
// Folders are listed before items.
type ChildrenResponse struct {
	Folders []FolderResponse `json:"folders"`
	Items   []ItemResponse   `json:"items"`
}

// DeletedEntry describes a soft-deleted folder or item.
type DeletedEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"` // item asset kind, empty for folders
}

// DeletedResponse is returned by GET /api/v1/drives/{driveId}/deleted.
type DeletedResponse struct {
	Folders []DeletedEntry `json:"folders"`
	Items   []DeletedEntry `json:"items"`
}

// PathResponse is returned by GET /api/v1/folders/{folderId}/path. Folders
// are ordered root-first, ending with the requested folder.
type PathResponse struct {
	Drive   DriveResponse    `json:"drive"`
	Folders []FolderResponse `json:"folders"`
}

// PermissionsResponse is returned by GET /api/v1/permissions/{id}.
type PermissionsResponse struct {
	Read  bool `json:"read"`
	Write bool `json:"write"`
	Share bool `json:"share"`
}

// GroupPermissionsResponse is returned by GET /api/v1/groups/{groupId}/permissions.
type GroupPermissionsResponse struct {
	Write bool `json:"write"`
}

// CreateFolderRequest is the body for POST /api/v1/folders/{parentId}/folders.
type CreateFolderRequest struct {
	Name     string `json:"name"`
	FolderID string `json:"folderId"`
}

// CreateAssetRequest is the body for POST /api/v1/folders/{folderId}/assets.
type CreateAssetRequest struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// RenameRequest is the body for rename endpoints.
type RenameRequest struct {
	Name string `json:"name"`
}

// MoveRequest is the body for POST /api/v1/move/{targetId} and
// POST /api/v1/borrow/{targetId}.
type MoveRequest struct {
	DestinationFolderID string `json:"destinationFolderId"`
}

// MoveResponse is returned by the move endpoint: the authoritative
// representation of everything relocated under the destination.
type MoveResponse struct {
	Folders []FolderResponse `json:"folders"`
	Items   []ItemResponse   `json:"items"`
}

// FavoritesBody is both the body of PUT /api/v1/favorites and the response
// of GET /api/v1/favorites.
type FavoritesBody struct {
	FavoriteFolders []FolderResponse `json:"favoriteFolders"`
	FavoriteGroups  []Group          `json:"favoriteGroups"`
}

// ChangeEvent is a server-sent change notification.
type ChangeEvent struct {
	Type      string `json:"type"`
	TreeID    string `json:"treeId"`
	GroupID   string `json:"groupId"`
	FolderID  string `json:"folderId"`
	Timestamp int64  `json:"timestamp"`
}

// ChangeItemAdded is the change-event type for an item attached to a folder.
const ChangeItemAdded = "item-added"
