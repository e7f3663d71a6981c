// Package workspace provisions remote data-warehouse workspaces and exposes
// them as staging providers.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"

	"github.com/rescale/rescale-staging/internal/staging"
)

// Workspace is a provisioned remote workspace without its secrets.
type Workspace struct {
	ID          string
	BackendType string
	BackendSize *string
	LoginType   LoginType
}

// WithCredentials is a Workspace plus the settings needed to connect to it.
type WithCredentials struct {
	Workspace
	Credentials Credentials
}

// NewWorkspaceFromData builds a Workspace from a workspace-management API
// response. Malformed data is reported as a provisioning error.
func NewWorkspaceFromData(data map[string]interface{}) (*Workspace, error) {
	ws, err := parseWorkspace(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid workspace data: %w", staging.ErrRemoteProvisioning, err)
	}
	return ws, nil
}

// NewWorkspaceWithCredentialsFromData builds a WithCredentials from a
// workspace-management API response whose connection carries the credentials.
func NewWorkspaceWithCredentialsFromData(data map[string]interface{}) (*WithCredentials, error) {
	ws, err := parseWorkspace(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid workspace data: %w", staging.ErrRemoteProvisioning, err)
	}
	connection, _ := data["connection"].(map[string]interface{})
	creds, err := ParseCredentialsData(connection)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid credentials of workspace %s: %w", staging.ErrRemoteProvisioning, ws.ID, err)
	}
	return &WithCredentials{Workspace: *ws, Credentials: creds}, nil
}

func parseWorkspace(data map[string]interface{}) (*Workspace, error) {
	if data == nil {
		return nil, errors.New("empty response")
	}

	id, err := parseID(data["id"])
	if err != nil {
		return nil, err
	}

	connection, ok := data["connection"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing %q object", "connection")
	}
	backend, err := requiredString(connection, "backend")
	if err != nil {
		return nil, err
	}

	ws := &Workspace{ID: id, BackendType: backend}

	switch size := data["backendSize"].(type) {
	case nil:
	case string:
		ws.BackendSize = &size
	default:
		return nil, fmt.Errorf("field %q has unexpected type %T", "backendSize", size)
	}

	loginRaw, _, err := optionalString(connection["loginType"], "loginType")
	if err != nil {
		return nil, err
	}
	if ws.LoginType, err = ParseLoginType(loginRaw); err != nil {
		return nil, err
	}

	return ws, nil
}

// parseID accepts the id as a string or a JSON number.
func parseID(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("empty %q", "id")
		}
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		return v.String(), nil
	case nil:
		return "", fmt.Errorf("missing %q", "id")
	default:
		return "", fmt.Errorf("field %q has unexpected type %T", "id", raw)
	}
}

// StagingType returns the workspace staging type served by the workspace.
func (w *Workspace) StagingType() staging.Type {
	return staging.Type("workspace-" + w.BackendType)
}

// CheckType fails with a configuration error when the workspace backend does
// not serve the expected staging type.
func (w *Workspace) CheckType(expected staging.Type) error {
	if expected == "" || w.StagingType() == expected {
		return nil
	}
	return fmt.Errorf("%w: workspace %s has backend %q, incompatible with staging type %q",
		staging.ErrConfiguration, w.ID, w.BackendType, expected)
}

// withConnectionValue returns a copy of data whose connection object has
// key set to value.
func withConnectionValue(data map[string]interface{}, key string, value interface{}) (map[string]interface{}, error) {
	connection, ok := data["connection"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: invalid workspace data: missing %q object", staging.ErrRemoteProvisioning, "connection")
	}
	out := maps.Clone(data)
	conn := maps.Clone(connection)
	conn[key] = value
	out["connection"] = conn
	return out, nil
}
