// Package client provides the HTTP client for the tree service.
//
// Every operation is fire-once: there is no retry anywhere in this core.
// Failures are returned to the caller and simultaneously published on the
// shared error stream so that UI layers can surface them without the tree
// layer ever throwing.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skydesk/skydesk/internal/logging"
	"github.com/skydesk/skydesk/internal/metrics"
	"github.com/skydesk/skydesk/pkg/events"
	"github.com/skydesk/skydesk/pkg/protocol"
)

// Client talks to the tree service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	errors     *events.Broadcaster[*RequestError]

	mu        sync.RWMutex
	authToken string
}

// Config holds client configuration.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	AuthToken string
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		errors: events.NewBroadcaster[*RequestError](),
	}
	if cfg.AuthToken != "" {
		c.SetAuthToken(cfg.AuthToken)
	}
	return c
}

// Errors returns a subscription to the shared error stream. The caller must
// release it with StopErrors.
func (c *Client) Errors() chan *RequestError {
	return c.errors.Subscribe()
}

// StopErrors releases a channel obtained from Errors.
func (c *Client) StopErrors(ch chan *RequestError) {
	c.errors.Unsubscribe(ch)
}

// do performs one JSON round trip. A nil out discards the response body.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	start := time.Now()
	err := c.doOnce(ctx, method, path, body, out)
	status := "ok"
	if err != nil {
		status = "error"
		reqErr := asRequestError(operation, err)
		c.errors.Publish(reqErr)
		logging.Debug("tree service request failed",
			zap.String("operation", operation),
			zap.String("path", path),
			zap.Error(err))
		err = reqErr
	}
	metrics.RecordRemoteRequest(operation, status, time.Since(start).Seconds())
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// GetUserInfo returns the current user's name and group memberships.
func (c *Client) GetUserInfo(ctx context.Context) (*protocol.UserInfoResponse, error) {
	var out protocol.UserInfoResponse
	if err := c.do(ctx, "get-user-info", "GET", "/api/v1/user", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDefaultDrive returns the default drive of a group, naming its
// well-known folders.
func (c *Client) GetDefaultDrive(ctx context.Context, groupID string) (*protocol.DefaultDriveResponse, error) {
	var out protocol.DefaultDriveResponse
	path := "/api/v1/groups/" + url.PathEscape(groupID) + "/default-drive"
	if err := c.do(ctx, "get-default-drive", "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDrives returns the drives of a group.
func (c *Client) ListDrives(ctx context.Context, groupID string) (*protocol.DrivesResponse, error) {
	var out protocol.DrivesResponse
	path := "/api/v1/groups/" + url.PathEscape(groupID) + "/drives"
	if err := c.do(ctx, "list-drives", "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListFolderChildren lists a folder's children, folders before items.
func (c *Client) ListFolderChildren(ctx context.Context, folderID string) (*protocol.ChildrenResponse, error) {
	var out protocol.ChildrenResponse
	path := "/api/v1/folders/" + url.PathEscape(folderID) + "/children"
	if err := c.do(ctx, "list-children", "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDeletedItems lists a drive's soft-deleted entries.
func (c *Client) ListDeletedItems(ctx context.Context, driveID string) (*protocol.DeletedResponse, error) {
	var out protocol.DeletedResponse
	path := "/api/v1/drives/" + url.PathEscape(driveID) + "/deleted"
	if err := c.do(ctx, "list-deleted", "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFolder returns a single folder.
func (c *Client) GetFolder(ctx context.Context, folderID string) (*protocol.FolderResponse, error) {
	var out protocol.FolderResponse
	path := "/api/v1/folders/" + url.PathEscape(folderID)
	if err := c.do(ctx, "get-folder", "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetItem returns a single item.
func (c *Client) GetItem(ctx context.Context, treeID string) (*protocol.ItemResponse, error) {
	var out protocol.ItemResponse
	path := "/api/v1/items/" + url.PathEscape(treeID)
	if err := c.do(ctx, "get-item", "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPath returns the folder chain from the drive root down to a folder.
func (c *Client) GetPath(ctx context.Context, folderID string) (*protocol.PathResponse, error) {
	var out protocol.PathResponse
	path := "/api/v1/folders/" + url.PathEscape(folderID) + "/path"
	if err := c.do(ctx, "get-path", "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateFolder creates a folder and returns its authoritative representation.
func (c *Client) CreateFolder(ctx context.Context, parentID string, req protocol.CreateFolderRequest) (*protocol.FolderResponse, error) {
	var out protocol.FolderResponse
	path := "/api/v1/folders/" + url.PathEscape(parentID) + "/folders"
	if err := c.do(ctx, "create-folder", "POST", path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAsset creates an asset of the given kind under a folder and returns
// its authoritative representation.
func (c *Client) CreateAsset(ctx context.Context, folderID string, req protocol.CreateAssetRequest) (*protocol.ItemResponse, error) {
	var out protocol.ItemResponse
	path := "/api/v1/folders/" + url.PathEscape(folderID) + "/assets"
	if err := c.do(ctx, "create-asset", "POST", path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameFolder renames a folder.
func (c *Client) RenameFolder(ctx context.Context, folderID, name string) (*protocol.FolderResponse, error) {
	var out protocol.FolderResponse
	path := "/api/v1/folders/" + url.PathEscape(folderID) + "/name"
	if err := c.do(ctx, "rename-folder", "PUT", path, protocol.RenameRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameItem renames an item.
func (c *Client) RenameItem(ctx context.Context, treeID, name string) (*protocol.ItemResponse, error) {
	var out protocol.ItemResponse
	path := "/api/v1/items/" + url.PathEscape(treeID) + "/name"
	if err := c.do(ctx, "rename-item", "PUT", path, protocol.RenameRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFolder soft-deletes a folder (moves it to the drive's trash).
func (c *Client) DeleteFolder(ctx context.Context, folderID string) error {
	path := "/api/v1/folders/" + url.PathEscape(folderID)
	return c.do(ctx, "delete-folder", "DELETE", path, nil, nil)
}

// DeleteDrive deletes a drive.
func (c *Client) DeleteDrive(ctx context.Context, driveID string) error {
	path := "/api/v1/drives/" + url.PathEscape(driveID)
	return c.do(ctx, "delete-drive", "DELETE", path, nil, nil)
}

// DeleteItem soft-deletes an item (moves it to the drive's trash).
func (c *Client) DeleteItem(ctx context.Context, treeID string) error {
	path := "/api/v1/items/" + url.PathEscape(treeID)
	return c.do(ctx, "delete-item", "DELETE", path, nil, nil)
}

// Move relocates a folder or item under a destination folder and returns
// the authoritative representation of everything moved.
func (c *Client) Move(ctx context.Context, targetID, destinationFolderID string) (*protocol.MoveResponse, error) {
	var out protocol.MoveResponse
	path := "/api/v1/move/" + url.PathEscape(targetID)
	req := protocol.MoveRequest{DestinationFolderID: destinationFolderID}
	if err := c.do(ctx, "move", "POST", path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Borrow creates a new reference to an item under a destination folder and
// returns the authoritative new entry.
func (c *Client) Borrow(ctx context.Context, targetID, destinationFolderID string) (*protocol.ItemResponse, error) {
	var out protocol.ItemResponse
	path := "/api/v1/borrow/" + url.PathEscape(targetID)
	req := protocol.MoveRequest{DestinationFolderID: destinationFolderID}
	if err := c.do(ctx, "borrow", "POST", path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PurgeDrive permanently empties a drive's trash.
func (c *Client) PurgeDrive(ctx context.Context, driveID string) error {
	path := "/api/v1/drives/" + url.PathEscape(driveID) + "/purge"
	return c.do(ctx, "purge-drive", "DELETE", path, nil, nil)
}

// GetPermissions returns the current user's permissions on an item or folder.
func (c *Client) GetPermissions(ctx context.Context, id string) (*protocol.PermissionsResponse, error) {
	var out protocol.PermissionsResponse
	path := "/api/v1/permissions/" + url.PathEscape(id)
	if err := c.do(ctx, "get-permissions", "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetGroupPermissions returns the current user's permissions on a group.
func (c *Client) GetGroupPermissions(ctx context.Context, groupID string) (*protocol.GroupPermissionsResponse, error) {
	var out protocol.GroupPermissionsResponse
	path := "/api/v1/groups/" + url.PathEscape(groupID) + "/permissions"
	if err := c.do(ctx, "get-group-permissions", "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadLocalAsset pushes a locally cached asset to the remote store.
func (c *Client) UploadLocalAsset(ctx context.Context, assetID string) error {
	path := "/api/v1/assets/" + url.PathEscape(assetID) + "/upload"
	return c.do(ctx, "upload-asset", "POST", path, nil, nil)
}

// GetFavorites returns the saved favorite folders and groups.
func (c *Client) GetFavorites(ctx context.Context) (*protocol.FavoritesBody, error) {
	var out protocol.FavoritesBody
	if err := c.do(ctx, "get-favorites", "GET", "/api/v1/favorites", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveFavorites persists the favorite folders and groups.
func (c *Client) SaveFavorites(ctx context.Context, body protocol.FavoritesBody) error {
	return c.do(ctx, "save-favorites", "PUT", "/api/v1/favorites", body, nil)
}
