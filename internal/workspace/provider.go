package workspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/rescale/rescale-staging/internal/api"
	"github.com/rescale/rescale-staging/internal/constants"
	"github.com/rescale/rescale-staging/internal/keypair"
	"github.com/rescale/rescale-staging/internal/logging"
	"github.com/rescale/rescale-staging/internal/secret"
	"github.com/rescale/rescale-staging/internal/staging"
)

// API is the part of the workspace-management API the provider uses.
// *api.Client implements it.
type API interface {
	CreateWorkspace(ctx context.Context, opts api.CreateWorkspaceOptions) (map[string]interface{}, error)
	CreateConfigurationWorkspace(ctx context.Context, componentID, configID string, opts api.CreateWorkspaceOptions) (map[string]interface{}, error)
	GetWorkspace(ctx context.Context, id string) (map[string]interface{}, error)
	ResetCredentials(ctx context.Context, id string, req api.ResetCredentialsRequest) (map[string]interface{}, error)
	ResetPassword(ctx context.Context, id string) (map[string]interface{}, error)
	DeleteWorkspace(ctx context.Context, id string) error
}

// Entitlements are the backend feature flags of the project owning the token.
// *api.Token implements it.
type Entitlements interface {
	HasSnowflake() bool
	HasBigquery() bool
	HasRedshift() bool
	HasSynapse() bool
	HasExasol() bool
	HasTeradata() bool
	Features() []string
}

var (
	_ API          = (*api.Client)(nil)
	_ Entitlements = (*api.Token)(nil)
)

// CreateOptions configures CreateNewWorkspace.
type CreateOptions struct {
	// StagingType must be a workspace staging type.
	StagingType staging.Type
	// LoginType overrides the backend default when set.
	LoginType LoginType
	// NetworkPolicy defaults to constants.DefaultNetworkPolicy.
	NetworkPolicy         string
	BackendSize           *string
	ReadOnlyStorageAccess *bool
	// ComponentID and ConfigID tie the workspace to a component configuration.
	// Both or neither must be set.
	ComponentID string
	ConfigID    string
}

// Provider manages the lifecycle of remote workspaces:
// create, fetch, rotate credentials and delete.
type Provider struct {
	client API
	token  Entitlements
	keys   keypair.Generator
	logger *logging.Logger
}

// NewProvider creates a workspace provider. keys may be nil to use the RSA generator.
func NewProvider(client API, token Entitlements, keys keypair.Generator, logger *logging.Logger) *Provider {
	if keys == nil {
		keys = keypair.NewGenerator()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Provider{
		client: client,
		token:  token,
		keys:   keys,
		logger: logger.WithComponent("workspace"),
	}
}

// CreateNewWorkspace provisions a new workspace. For key-pair logins a fresh
// key pair is generated, only the public key is sent, and the private key is
// returned in the credentials.
//
// If the workspace was created but its response cannot be turned into a
// result, the workspace is deleted before the error is returned.
func (p *Provider) CreateNewWorkspace(ctx context.Context, opts CreateOptions) (*WithCredentials, error) {
	typ := opts.StagingType
	if typ.Class() != staging.ClassWorkspace {
		return nil, fmt.Errorf("%w: staging type %q is not a workspace type and cannot be created", staging.ErrConfiguration, typ)
	}
	backend := typ.Backend()

	if !p.entitled(backend) {
		if p.token != nil {
			p.logger.Debug().Strs("features", p.token.Features()).Str("backend", backend).Msg("backend not in project features")
		}
		return nil, fmt.Errorf("%w: project does not support the %q backend required by %q", staging.ErrEntitlement, backend, typ)
	}

	loginType := opts.LoginType
	if loginType == "" {
		loginType = DefaultLoginType(backend)
	}
	if loginType.IsSnowflake() && backend != BackendSnowflake {
		return nil, fmt.Errorf("%w: login type %q is not available for the %q backend", staging.ErrConfiguration, loginType, backend)
	}
	if (opts.ComponentID == "") != (opts.ConfigID == "") {
		return nil, fmt.Errorf("%w: component id and config id must be set together", staging.ErrConfiguration)
	}

	networkPolicy := opts.NetworkPolicy
	if networkPolicy == "" {
		networkPolicy = constants.DefaultNetworkPolicy
	}
	req := api.CreateWorkspaceOptions{
		Backend:               backend,
		NetworkPolicy:         networkPolicy,
		LoginType:             string(loginType),
		BackendSize:           opts.BackendSize,
		ReadOnlyStorageAccess: opts.ReadOnlyStorageAccess,
	}

	var privateKey *secret.String
	if loginType.IsKeyPair() {
		pair, err := p.keys.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate key pair for %q workspace: %w", backend, err)
		}
		req.PublicKey = pair.PublicKey
		privateKey = &pair.PrivateKey
	}

	log := p.logger.Info().Str("backend", backend).Str("login_type", string(loginType))
	var (
		data map[string]interface{}
		err  error
	)
	if opts.ConfigID != "" {
		log.Str("component_id", opts.ComponentID).Str("config_id", opts.ConfigID).Msg("creating configuration workspace")
		data, err = p.client.CreateConfigurationWorkspace(ctx, opts.ComponentID, opts.ConfigID, req)
	} else {
		log.Msg("creating workspace")
		data, err = p.client.CreateWorkspace(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: create %q workspace: %w", staging.ErrRemoteProvisioning, backend, err)
	}

	ws, err := p.finishCreate(data, privateKey)
	if err != nil {
		p.rollback(ctx, data, err)
		return nil, err
	}

	p.logger.Info().Str("workspace_id", ws.ID).Str("backend", ws.BackendType).Msg("workspace created")
	return ws, nil
}

// finishCreate is the local post-processing of a creation response.
func (p *Provider) finishCreate(data map[string]interface{}, privateKey *secret.String) (*WithCredentials, error) {
	if privateKey != nil {
		var err error
		if data, err = withConnectionValue(data, "privateKey", *privateKey); err != nil {
			return nil, err
		}
	}
	return NewWorkspaceWithCredentialsFromData(data)
}

// rollback deletes a workspace whose creation response could not be processed.
// It is best effort: failures are logged and the original error is kept.
func (p *Provider) rollback(ctx context.Context, data map[string]interface{}, cause error) {
	id, err := parseID(data["id"])
	if err != nil {
		p.logger.Error().Err(cause).Msg("workspace created but response has no usable id, cannot roll back")
		return
	}
	p.logger.Warn().Err(cause).Str("workspace_id", id).Msg("deleting workspace after failed creation")
	if err := p.CleanupWorkspace(ctx, id); err != nil {
		p.logger.Error().Err(err).Str("workspace_id", id).Msg("failed to delete workspace after failed creation")
	}
}

func (p *Provider) entitled(backend string) bool {
	if p.token == nil {
		return false
	}
	switch backend {
	case "snowflake":
		return p.token.HasSnowflake()
	case "bigquery":
		return p.token.HasBigquery()
	case "redshift":
		return p.token.HasRedshift()
	case "synapse":
		return p.token.HasSynapse()
	case "exasol":
		return p.token.HasExasol()
	case "teradata":
		return p.token.HasTeradata()
	default:
		return false
	}
}

// GetWorkspace fetches an existing workspace without credentials.
func (p *Provider) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	data, err := p.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewWorkspaceFromData(data)
}

// GetWorkspaceForType fetches an existing workspace and checks that it serves
// the expected staging type.
func (p *Provider) GetWorkspaceForType(ctx context.Context, id string, expected staging.Type) (*Workspace, error) {
	ws, err := p.GetWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ws.CheckType(expected); err != nil {
		return nil, err
	}
	return ws, nil
}

// GetWorkspaceWithCredentials fetches an existing workspace and lays the
// connection returned by the API over external, the credentials the caller
// already knows (e.g. a password or private key the API never returns).
// On key collision the API value wins.
func (p *Provider) GetWorkspaceWithCredentials(ctx context.Context, id string, external Credentials) (*WithCredentials, error) {
	data, err := p.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	connection, ok := data["connection"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: invalid workspace data: missing %q object", staging.ErrRemoteProvisioning, "connection")
	}

	merged := Credentials(connection).Merge(external)
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	out["connection"] = map[string]interface{}(merged)
	return NewWorkspaceWithCredentialsFromData(out)
}

func (p *Provider) fetch(ctx context.Context, id string) (map[string]interface{}, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: workspace id is empty", staging.ErrConfiguration)
	}
	data, err := p.client.GetWorkspace(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get workspace %s: %w", staging.ErrRemoteProvisioning, id, err)
	}
	return data, nil
}

// ResetWorkspaceCredentials rotates the workspace credentials. Key-pair
// workspaces get a new key pair, of which only the public key is submitted;
// the result is {privateKey}. Other workspaces get a new password and the
// result is whatever the reset call returns.
func (p *Provider) ResetWorkspaceCredentials(ctx context.Context, ws *Workspace) (Credentials, error) {
	if ws.LoginType.IsKeyPair() {
		pair, err := p.keys.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate key pair for workspace %s: %w", ws.ID, err)
		}
		if _, err := p.client.ResetCredentials(ctx, ws.ID, api.ResetCredentialsRequest{PublicKey: pair.PublicKey}); err != nil {
			return nil, fmt.Errorf("%w: reset key pair of workspace %s: %w", staging.ErrRemoteProvisioning, ws.ID, err)
		}
		p.logger.Info().Str("workspace_id", ws.ID).Msg("workspace key pair rotated")
		return Credentials{"privateKey": pair.PrivateKey}, nil
	}

	data, err := p.client.ResetPassword(ctx, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: reset password of workspace %s: %w", staging.ErrRemoteProvisioning, ws.ID, err)
	}
	creds := Credentials{}
	for k, v := range data {
		if s, ok := v.(string); ok && k == "password" {
			creds[k] = secret.String(s)
			continue
		}
		creds[k] = v
	}
	p.logger.Info().Str("workspace_id", ws.ID).Msg("workspace password reset")
	return creds, nil
}

// CleanupWorkspace deletes a workspace. A workspace that is already gone
// counts as deleted.
func (p *Provider) CleanupWorkspace(ctx context.Context, id string) error {
	err := p.client.DeleteWorkspace(ctx, id)
	switch {
	case err == nil:
		p.logger.Info().Str("workspace_id", id).Msg("workspace deleted")
		return nil
	case api.IsNotFoundError(err):
		p.logger.Debug().Str("workspace_id", id).Msg("workspace already deleted")
		return nil
	default:
		return fmt.Errorf("%w: delete workspace %s: %w", staging.ErrRemoteProvisioning, id, err)
	}
}
