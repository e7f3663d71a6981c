package api

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"
)

// CreateWorkspaceOptions is the body of a workspace creation request.
type CreateWorkspaceOptions struct {
	Backend               string  `json:"backend"`
	NetworkPolicy         string  `json:"networkPolicy"`
	LoginType             string  `json:"loginType"`
	BackendSize           *string `json:"backendSize,omitempty"`
	ReadOnlyStorageAccess *bool   `json:"readOnlyStorageAccess,omitempty"`
	// PublicKey is only set for key-pair logins. The private half never leaves
	// the client.
	PublicKey string `json:"publicKey,omitempty"`
}

// ResetCredentialsRequest rotates the public key of a key-pair workspace.
type ResetCredentialsRequest struct {
	PublicKey string `json:"publicKey"`
}

// CreateWorkspace creates a workspace not tied to any configuration.
func (c *Client) CreateWorkspace(ctx context.Context, opts CreateWorkspaceOptions) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.do(ctx, nethttp.MethodPost, "/v2/storage/workspaces", opts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateConfigurationWorkspace creates a workspace owned by a component configuration.
func (c *Client) CreateConfigurationWorkspace(ctx context.Context, componentID, configID string, opts CreateWorkspaceOptions) (map[string]interface{}, error) {
	path := fmt.Sprintf("/v2/storage/components/%s/configs/%s/workspaces",
		url.PathEscape(componentID), url.PathEscape(configID))
	var out map[string]interface{}
	if err := c.do(ctx, nethttp.MethodPost, path, opts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetWorkspace fetches a workspace by id.
func (c *Client) GetWorkspace(ctx context.Context, id string) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.do(ctx, nethttp.MethodGet, "/v2/storage/workspaces/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResetCredentials submits a new public key for a key-pair workspace.
func (c *Client) ResetCredentials(ctx context.Context, id string, req ResetCredentialsRequest) (map[string]interface{}, error) {
	path := "/v2/storage/workspaces/" + url.PathEscape(id) + "/public-key"
	var out map[string]interface{}
	if err := c.do(ctx, nethttp.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]interface{}{}
	}
	return out, nil
}

// ResetPassword generates a new password for a password-login workspace.
// The response carries the new password.
func (c *Client) ResetPassword(ctx context.Context, id string) (map[string]interface{}, error) {
	path := "/v2/storage/workspaces/" + url.PathEscape(id) + "/password"
	var out map[string]interface{}
	if err := c.do(ctx, nethttp.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteWorkspace deletes a workspace synchronously. A missing workspace is
// reported as an error wrapping ErrNotFound.
func (c *Client) DeleteWorkspace(ctx context.Context, id string) error {
	path := "/v2/storage/workspaces/" + url.PathEscape(id) + "?async=false"
	return c.do(ctx, nethttp.MethodDelete, path, nil, nil)
}
