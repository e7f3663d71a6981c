package cli

import (
	"bytes"
	"context"
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescale/rescale-staging/internal/api"
	"github.com/rescale/rescale-staging/internal/config"
	"github.com/rescale/rescale-staging/internal/keypair"
	"github.com/rescale/rescale-staging/internal/logging"
	"github.com/rescale/rescale-staging/internal/secret"
	"github.com/rescale/rescale-staging/internal/staging"
	"github.com/rescale/rescale-staging/internal/staging/strategy"
	"github.com/rescale/rescale-staging/internal/workspace"
)

type stubAPI struct {
	created  map[string]interface{}
	existing map[string]interface{}
	gets     int
	deleted  []string
}

func (s *stubAPI) CreateWorkspace(context.Context, api.CreateWorkspaceOptions) (map[string]interface{}, error) {
	return maps.Clone(s.created), nil
}

func (s *stubAPI) CreateConfigurationWorkspace(ctx context.Context, _, _ string, opts api.CreateWorkspaceOptions) (map[string]interface{}, error) {
	return s.CreateWorkspace(ctx, opts)
}

func (s *stubAPI) GetWorkspace(context.Context, string) (map[string]interface{}, error) {
	s.gets++
	return maps.Clone(s.existing), nil
}

func (s *stubAPI) ResetCredentials(context.Context, string, api.ResetCredentialsRequest) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

func (s *stubAPI) ResetPassword(context.Context, string) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

func (s *stubAPI) DeleteWorkspace(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type allEntitled struct{}

func (allEntitled) HasSnowflake() bool { return true }
func (allEntitled) HasBigquery() bool  { return true }
func (allEntitled) HasRedshift() bool  { return true }
func (allEntitled) HasSynapse() bool   { return true }
func (allEntitled) HasExasol() bool    { return true }
func (allEntitled) HasTeradata() bool  { return true }
func (allEntitled) Features() []string { return nil }

type fixedKeys struct{}

func (fixedKeys) Generate() (keypair.KeyPair, error) {
	return keypair.KeyPair{PublicKey: "PUBLIC", PrivateKey: secret.String("PRIVATE")}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.Staging.DataDir = t.TempDir()
	return cfg
}

func newTestFactory(t *testing.T, typ staging.Type) *strategy.Factory {
	t.Helper()
	f, err := strategy.NewFactory(strategy.Options{Type: typ})
	require.NoError(t, err)
	return f
}

func parsePlan(t *testing.T, text string) *config.BindingPlan {
	t.Helper()
	plan, err := config.ParseBindingPlan([]byte(text))
	require.NoError(t, err)
	return plan
}

func TestBindLocalPlan(t *testing.T) {
	cfg := testConfig(t)
	plan := parsePlan(t, `
fallback: data
providers:
  - name: data
    kind: local
    path: in
  - name: scratch
    kind: temporary
    scopes:
      local: [tableData, tableMetadata]
  - name: nothing
    kind: unbound
    scopes:
      workspace-redshift: [tableData]
`)
	f := newTestFactory(t, staging.Local)
	b := &binder{cfg: cfg, logger: logging.Nop()}
	require.NoError(t, b.bind(context.Background(), f, plan))

	def := f.StrategyMap()[staging.Local]
	dataPath, err := def.FileDataProvider().(staging.PathProvider).Path()
	require.NoError(t, err)
	dataDir, err := filepath.EvalSymlinks(cfg.Staging.DataDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "in"), dataPath)

	scratch, err := def.TableDataProvider().(staging.PathProvider).Path()
	require.NoError(t, err)
	assert.DirExists(t, scratch)
	assert.Equal(t, staging.NullProvider{}, f.StrategyMap()[staging.WorkspaceRedshift].TableDataProvider())

	require.NoError(t, f.Cleanup(context.Background()))
	assert.NoDirExists(t, scratch)
}

func TestBindPlanFailureCleansUp(t *testing.T) {
	cfg := testConfig(t)
	plan := parsePlan(t, `
providers:
  - name: first
    kind: temporary
    scopes:
      local: [fileData]
  - name: second
    kind: temporary
    scopes:
      ftp: [fileData]
`)
	f := newTestFactory(t, staging.Local)
	b := &binder{cfg: cfg, logger: logging.Nop()}

	err := b.bind(context.Background(), f, plan)
	require.Error(t, err)
	assert.True(t, staging.IsConfigurationError(err))
	assert.Contains(t, err.Error(), `provider "second"`)
	assert.Contains(t, err.Error(), `"ftp"`)

	entries, err := os.ReadDir(cfg.Staging.DataDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary directories are removed")
}

func TestBindWorkspacePlan(t *testing.T) {
	cfg := testConfig(t)
	stub := &stubAPI{
		created: map[string]interface{}{
			"id": "100",
			"connection": map[string]interface{}{
				"backend": "snowflake", "host": "acme.snowflakecomputing.com",
				"warehouse": "WH", "database": "DB", "schema": "WS_100", "user": "U",
			},
		},
		existing: map[string]interface{}{
			"id": "200",
			"connection": map[string]interface{}{
				"backend": "bigquery", "schema": "WS_200", "region": "US",
				"credentials": map[string]interface{}{"type": "service_account"},
			},
		},
	}
	plan := parsePlan(t, `
fallback: data
providers:
  - name: data
    kind: temporary
  - name: snowflake
    kind: workspace
    workspace:
      type: workspace-snowflake
      create: true
    scopes:
      workspace-snowflake: [tableData]
  - name: bigquery
    kind: workspace
    workspace:
      type: workspace-bigquery
      id: "200"
    scopes:
      workspace-bigquery: [tableData]
`)
	f := newTestFactory(t, staging.WorkspaceSnowflake)
	b := &binder{
		cfg:        cfg,
		workspaces: workspace.NewProvider(stub, allEntitled{}, fixedKeys{}, nil),
		logger:     logging.Nop(),
	}
	require.NoError(t, b.bind(context.Background(), f, plan))
	assert.Zero(t, stub.gets, "existing workspaces are fetched lazily")

	var out bytes.Buffer
	require.NoError(t, checkStrategies(context.Background(), &out, f, "in/tables", []string{"orders"}))
	assert.Contains(t, out.String(), "snowflake-table")
	assert.Contains(t, out.String(), "snowflake://acme.snowflakecomputing.com/DB/WS_100/orders")

	require.NoError(t, f.Cleanup(context.Background()))
	assert.Equal(t, []string{"100"}, stub.deleted, "only the created workspace is deleted")
}

func TestBindWorkspaceWithoutAPI(t *testing.T) {
	plan := parsePlan(t, `
providers:
  - name: ws
    kind: workspace
    workspace:
      type: workspace-bigquery
      id: "1"
`)
	b := &binder{cfg: testConfig(t), logger: logging.Nop()}
	err := b.bind(context.Background(), newTestFactory(t, staging.Local), plan)
	require.Error(t, err)
	assert.True(t, staging.IsConfigurationError(err))
	assert.True(t, planNeedsWorkspaces(plan))
}

func TestPrintSlotsAndIncompleteBinding(t *testing.T) {
	cfg := testConfig(t)
	plan := parsePlan(t, `
providers:
  - name: data
    kind: local
    path: /srv/data
    scopes:
      local: [tableData, tableMetadata, fileData, fileMetadata]
`)
	f := newTestFactory(t, staging.WorkspaceSnowflake)
	b := &binder{cfg: cfg, logger: logging.Nop()}
	require.NoError(t, b.bind(context.Background(), f, plan))

	var out bytes.Buffer
	printSlots(&out, f)
	assert.Contains(t, out.String(), "Active staging type: workspace-snowflake")
	assert.Contains(t, out.String(), "TABLEDATA")
	assert.Contains(t, out.String(), "local:/srv/data")

	out.Reset()
	err := checkStrategies(context.Background(), &out, f, "in/tables", nil)
	require.Error(t, err)
	assert.True(t, staging.IsIncompleteBindingError(err))
	assert.Contains(t, out.String(), "FAILED")
}

func TestExternalCredentials(t *testing.T) {
	assert.Nil(t, externalCredentials(nil))

	creds := externalCredentials(map[string]string{"user": "x", "password": "p"})
	assert.Equal(t, "x", creds["user"])
	assert.Equal(t, secret.String("p"), creds["password"])
}

func TestNewObjectStores(t *testing.T) {
	t.Setenv("AWS_CA_BUNDLE", "")
	cfg := testConfig(t)
	stores, err := newObjectStores(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	assert.Empty(t, stores)

	cfg.S3.Bucket = "staging"
	cfg.S3.AccessKeyID = "AKID"
	cfg.S3.SecretAccessKey = "SECRET"
	cfg.ABS.Container = "staging"
	cfg.ABS.ConnectionString = "DefaultEndpointsProtocol=https;AccountName=acct;AccountKey=a2V5;EndpointSuffix=core.windows.net"
	stores, err = newObjectStores(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	require.Contains(t, stores, staging.S3)
	require.Contains(t, stores, staging.Abs)
	assert.Equal(t, "s3://staging/in/x.csv", stores[staging.S3].URI("in/x.csv"))
	assert.Equal(t, "https://acct.blob.core.windows.net/staging/in/x.csv", stores[staging.Abs].URI("in/x.csv"))
}
