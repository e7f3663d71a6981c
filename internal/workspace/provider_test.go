package workspace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescale/rescale-staging/internal/api"
	"github.com/rescale/rescale-staging/internal/secret"
	"github.com/rescale/rescale-staging/internal/staging"
)

func newTestProvider(client *fakeAPI, token Entitlements) (*Provider, *fakeKeys) {
	keys := &fakeKeys{}
	return NewProvider(client, token, keys, nil), keys
}

func TestCreateRejectsFilesystemTypes(t *testing.T) {
	client := &fakeAPI{}
	p, _ := newTestProvider(client, allBackends())

	for _, typ := range []staging.Type{staging.Local, staging.S3, staging.Abs, staging.None} {
		_, err := p.CreateNewWorkspace(context.Background(), CreateOptions{StagingType: typ})
		require.Error(t, err)
		assert.True(t, staging.IsConfigurationError(err), typ)
	}
	assert.Empty(t, client.createCalls)
}

func TestCreateRequiresEntitlement(t *testing.T) {
	tests := []struct {
		typ   staging.Type
		token fakeToken
	}{
		{staging.WorkspaceSnowflake, fakeToken{bigquery: true}},
		{staging.WorkspaceBigquery, fakeToken{snowflake: true}},
		{staging.WorkspaceRedshift, fakeToken{snowflake: true, bigquery: true}},
		{staging.WorkspaceSynapse, fakeToken{}},
		{staging.WorkspaceExasol, fakeToken{teradata: true}},
		{staging.WorkspaceTeradata, fakeToken{exasol: true}},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			client := &fakeAPI{}
			p, keys := newTestProvider(client, tt.token)

			_, err := p.CreateNewWorkspace(context.Background(), CreateOptions{StagingType: tt.typ})
			require.Error(t, err)
			assert.True(t, staging.IsEntitlementError(err))
			assert.Contains(t, err.Error(), tt.typ.Backend())
			assert.Empty(t, client.createCalls, "the API must not be called")
			assert.Zero(t, keys.n)
		})
	}
}

func TestCreateKeyPairWorkspaceSendsOnlyPublicKey(t *testing.T) {
	client := &fakeAPI{createResponse: snowflakeResponse("123")}
	p, _ := newTestProvider(client, fakeToken{snowflake: true})

	ws, err := p.CreateNewWorkspace(context.Background(), CreateOptions{StagingType: staging.WorkspaceSnowflake})
	require.NoError(t, err)

	require.Len(t, client.createCalls, 1)
	req := client.createCalls[0]
	assert.Equal(t, "snowflake", req.Backend)
	assert.Equal(t, "system", req.NetworkPolicy)
	assert.Equal(t, "snowflake-service-keypair", req.LoginType)
	assert.Equal(t, "PUBLIC-1", req.PublicKey)
	assert.Nil(t, req.BackendSize)
	assert.Nil(t, req.ReadOnlyStorageAccess)

	assert.Equal(t, "123", ws.ID)
	key, ok := ws.Credentials.Get("privateKey")
	require.True(t, ok)
	assert.Equal(t, "PRIVATE-1", key)
	assert.Equal(t, "kbc-eu", ws.Credentials["account"])
	assert.Empty(t, client.deletedIDs)
}

func TestCreatePasswordWorkspace(t *testing.T) {
	resp := snowflakeResponse(7.0)
	conn := resp["connection"].(map[string]interface{})
	conn["loginType"] = "snowflake-legacy-service-password"
	conn["password"] = "pw"
	client := &fakeAPI{createResponse: resp}
	p, keys := newTestProvider(client, fakeToken{snowflake: true})

	size := "small"
	readOnly := true
	ws, err := p.CreateNewWorkspace(context.Background(), CreateOptions{
		StagingType:           staging.WorkspaceSnowflake,
		LoginType:             LoginTypeSnowflakeLegacyPassword,
		NetworkPolicy:         "user",
		BackendSize:           &size,
		ReadOnlyStorageAccess: &readOnly,
	})
	require.NoError(t, err)

	req := client.createCalls[0]
	assert.Empty(t, req.PublicKey)
	assert.Equal(t, "user", req.NetworkPolicy)
	assert.Equal(t, &size, req.BackendSize)
	assert.Equal(t, &readOnly, req.ReadOnlyStorageAccess)
	assert.Zero(t, keys.n, "no key pair for password logins")

	assert.Equal(t, "7", ws.ID)
	pw, _ := ws.Credentials.Get("password")
	assert.Equal(t, "pw", pw)
	assert.NotContains(t, ws.Credentials, "privateKey")
}

func TestCreateBigqueryUsesDefaultLogin(t *testing.T) {
	client := &fakeAPI{createResponse: bigqueryResponse("55")}
	p, keys := newTestProvider(client, fakeToken{bigquery: true})

	ws, err := p.CreateNewWorkspace(context.Background(), CreateOptions{StagingType: staging.WorkspaceBigquery})
	require.NoError(t, err)
	assert.Equal(t, "default", client.createCalls[0].LoginType)
	assert.Zero(t, keys.n)
	assert.IsType(t, secret.Blob{}, ws.Credentials["credentials"])
}

func TestCreateRejectsSnowflakeLoginOnOtherBackends(t *testing.T) {
	client := &fakeAPI{}
	p, _ := newTestProvider(client, allBackends())
	_, err := p.CreateNewWorkspace(context.Background(), CreateOptions{
		StagingType: staging.WorkspaceBigquery,
		LoginType:   LoginTypeSnowflakePersonKeyPair,
	})
	assert.True(t, staging.IsConfigurationError(err))
	assert.Empty(t, client.createCalls)
}

func TestCreateConfigurationWorkspace(t *testing.T) {
	client := &fakeAPI{createResponse: snowflakeResponse("8")}
	p, _ := newTestProvider(client, allBackends())

	_, err := p.CreateNewWorkspace(context.Background(), CreateOptions{
		StagingType: staging.WorkspaceSnowflake,
		ComponentID: "keboola.snowflake-transformation",
		ConfigID:    "123",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"keboola.snowflake-transformation/123"}, client.configCalls)

	_, err = p.CreateNewWorkspace(context.Background(), CreateOptions{StagingType: staging.WorkspaceSnowflake, ConfigID: "123"})
	assert.True(t, staging.IsConfigurationError(err))
}

func TestCreateRemoteFailure(t *testing.T) {
	client := &fakeAPI{createErr: errors.New("connection reset by peer")}
	p, _ := newTestProvider(client, allBackends())

	_, err := p.CreateNewWorkspace(context.Background(), CreateOptions{StagingType: staging.WorkspaceExasol})
	require.Error(t, err)
	assert.True(t, staging.IsRemoteProvisioningError(err))
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.Contains(t, err.Error(), "exasol")
	assert.Empty(t, client.deletedIDs)
}

func TestCreateRollsBackWhenResponseCannotBeProcessed(t *testing.T) {
	resp := snowflakeResponse("321")
	delete(resp["connection"].(map[string]interface{}), "warehouse")
	client := &fakeAPI{createResponse: resp}
	p, _ := newTestProvider(client, allBackends())

	_, err := p.CreateNewWorkspace(context.Background(), CreateOptions{StagingType: staging.WorkspaceSnowflake})
	require.Error(t, err)
	assert.True(t, staging.IsRemoteProvisioningError(err))
	assert.Equal(t, []string{"321"}, client.deletedIDs)
}

func TestCreateRollbackFailureKeepsOriginalError(t *testing.T) {
	resp := map[string]interface{}{
		"id":         "5",
		"connection": map[string]interface{}{"backend": "redshift"},
	}
	client := &fakeAPI{createResponse: resp, deleteErr: errors.New("boom")}
	p, _ := newTestProvider(client, allBackends())

	_, err := p.CreateNewWorkspace(context.Background(), CreateOptions{StagingType: staging.WorkspaceRedshift})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported backend")
	assert.NotContains(t, err.Error(), "boom")
	assert.Equal(t, []string{"5"}, client.deletedIDs)
}

func TestGetWorkspace(t *testing.T) {
	client := &fakeAPI{getResponse: snowflakeResponse("9")}
	p, _ := newTestProvider(client, nil)

	ws, err := p.GetWorkspace(context.Background(), "9")
	require.NoError(t, err)
	assert.Equal(t, "9", ws.ID)

	_, err = p.GetWorkspaceForType(context.Background(), "9", staging.WorkspaceBigquery)
	assert.True(t, staging.IsConfigurationError(err))

	_, err = p.GetWorkspace(context.Background(), " ")
	assert.True(t, staging.IsConfigurationError(err))
}

func TestGetWorkspaceWithCredentialsRemoteWins(t *testing.T) {
	client := &fakeAPI{getResponse: snowflakeResponse("9")}
	p, _ := newTestProvider(client, nil)

	ws, err := p.GetWorkspaceWithCredentials(context.Background(), "9", Credentials{
		"user":       "x",
		"privateKey": secret.String("EXTERNAL-KEY"),
	})
	require.NoError(t, err)

	user, _ := ws.Credentials.Get("user")
	assert.Equal(t, "y", user)
	key, _ := ws.Credentials.Get("privateKey")
	assert.Equal(t, "EXTERNAL-KEY", key, "fields the API does not return come from the caller")
}

func TestGetWorkspaceNotFound(t *testing.T) {
	client := &fakeAPI{getErr: &api.Error{StatusCode: 404, Method: "GET", Path: "/v2/storage/workspaces/1"}}
	p, _ := newTestProvider(client, nil)

	_, err := p.GetWorkspace(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, staging.IsRemoteProvisioningError(err))
	assert.True(t, api.IsNotFoundError(err))
}

func TestResetKeyPairCredentials(t *testing.T) {
	client := &fakeAPI{}
	p, _ := newTestProvider(client, nil)

	creds, err := p.ResetWorkspaceCredentials(context.Background(), &Workspace{ID: "1", BackendType: "snowflake", LoginType: LoginTypeSnowflakePersonKeyPair})
	require.NoError(t, err)

	require.Len(t, client.resetCalls, 1)
	assert.Equal(t, "PUBLIC-1", client.resetCalls[0].PublicKey)
	assert.Equal(t, []string{"privateKey"}, creds.Keys())
	key, _ := creds.Get("privateKey")
	assert.Equal(t, "PRIVATE-1", key)
	assert.Empty(t, client.passwordIDs)
}

func TestResetPasswordCredentials(t *testing.T) {
	client := &fakeAPI{resetResponse: map[string]interface{}{"password": "new"}}
	p, keys := newTestProvider(client, nil)

	creds, err := p.ResetWorkspaceCredentials(context.Background(), &Workspace{ID: "2", BackendType: "synapse", LoginType: LoginTypeDefault})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, client.passwordIDs)
	assert.Zero(t, keys.n)
	assert.IsType(t, secret.String(""), creds["password"])
	pw, _ := creds.Get("password")
	assert.Equal(t, "new", pw)
}

func TestCleanupWorkspace(t *testing.T) {
	tests := []struct {
		name      string
		deleteErr error
		wantErr   bool
	}{
		{"exists", nil, false},
		{"already deleted", &api.Error{StatusCode: 404}, false},
		{"wrapped not found", errors.Join(errors.New("ctx"), api.ErrNotFound), false},
		{"forbidden", &api.Error{StatusCode: 403, Message: "forbidden"}, true},
		{"server error", &api.Error{StatusCode: 500, Message: "oops"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeAPI{deleteErr: tt.deleteErr}
			p, _ := newTestProvider(client, nil)

			err := p.CleanupWorkspace(context.Background(), "42")
			assert.Equal(t, []string{"42"}, client.deletedIDs)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, staging.IsRemoteProvisioningError(err))
			assert.Contains(t, err.Error(), "42")
		})
	}
}
