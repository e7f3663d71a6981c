package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rescale/rescale-staging/internal/config"
	"github.com/rescale/rescale-staging/internal/http"
	"github.com/rescale/rescale-staging/internal/logging"
	"github.com/rescale/rescale-staging/internal/objectstore"
	"github.com/rescale/rescale-staging/internal/pathutil"
	"github.com/rescale/rescale-staging/internal/secret"
	"github.com/rescale/rescale-staging/internal/staging"
	"github.com/rescale/rescale-staging/internal/staging/strategy"
	"github.com/rescale/rescale-staging/internal/workspace"
)

// workspaceSource is the part of workspace.Provider a binding plan needs.
type workspaceSource interface {
	CreateNewWorkspace(ctx context.Context, opts workspace.CreateOptions) (*workspace.WithCredentials, error)
	NewOwnedStagingProvider(ws *workspace.WithCredentials) *workspace.StagingProvider
	NewExistingStagingProvider(ctx context.Context, id string, expected staging.Type, external workspace.Credentials) *workspace.StagingProvider
}

var _ workspaceSource = (*workspace.Provider)(nil)

// binder turns a binding plan into providers bound in a strategy factory.
type binder struct {
	cfg *config.Config
	// workspaces is nil when the plan has no workspace providers.
	workspaces workspaceSource
	logger     *logging.Logger
}

// bind creates every provider of plan and adds it to f, then applies the
// fallback. On error the providers created so far are cleaned up.
func (b *binder) bind(ctx context.Context, f *strategy.Factory, plan *config.BindingPlan) (err error) {
	defer func() {
		if err != nil {
			if cleanupErr := f.Cleanup(ctx); cleanupErr != nil {
				b.logger.Warn().Err(cleanupErr).Msg("Cleanup after failed binding")
			}
		}
	}()

	b.logger.Infof("Binding providers: %s", strings.Join(plan.ProviderNames(), ", "))

	created := make(map[string]staging.Provider, len(plan.Providers))
	for _, prov := range plan.Providers {
		p, err := b.newProvider(ctx, prov)
		if err != nil {
			return fmt.Errorf("provider %q: %w", prov.Name, err)
		}

		scopes, err := prov.ScopeMap()
		if err == nil {
			err = f.AddProvider(p, scopes)
		}
		if err != nil {
			if cleanupErr := p.Cleanup(ctx); cleanupErr != nil {
				err = errors.Join(err, cleanupErr)
			}
			return fmt.Errorf("provider %q: %w", prov.Name, err)
		}
		created[prov.Name] = p
		b.logger.Debug().Str("name", prov.Name).Str("provider", staging.Describe(p)).
			Strs("types", prov.ScopeTypes()).Msg("Provider added")
	}

	if plan.Fallback != "" {
		n := f.AddFallbackProvider(created[plan.Fallback])
		b.logger.Debug().Str("name", plan.Fallback).Int("slots", n).Msg("Fallback provider applied")
	}
	return nil
}

func (b *binder) newProvider(ctx context.Context, prov config.ProviderPlan) (staging.Provider, error) {
	switch prov.Kind {
	case config.KindLocal:
		path, err := pathutil.ResolveUnder(prov.Path, b.cfg.Staging.DataDir)
		if err != nil {
			return nil, fmt.Errorf("resolve local path %q: %w", prov.Path, err)
		}
		return staging.NewLocalProvider(path)
	case config.KindTemporary:
		return staging.NewTemporaryLocalProvider(b.cfg.Staging.DataDir)
	case config.KindNull:
		return staging.NullProvider{}, nil
	case config.KindWorkspace:
		return b.newWorkspaceProvider(ctx, prov.Workspace)
	default:
		return nil, fmt.Errorf("%w: unknown provider kind %q", staging.ErrConfiguration, prov.Kind)
	}
}

func (b *binder) newWorkspaceProvider(ctx context.Context, plan *config.WorkspacePlan) (staging.Provider, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: missing workspace section", staging.ErrConfiguration)
	}
	if b.workspaces == nil {
		return nil, fmt.Errorf("%w: workspace providers need API access", staging.ErrConfiguration)
	}
	typ, err := staging.ParseType(plan.Type)
	if err != nil {
		return nil, err
	}

	if !plan.Create {
		return b.workspaces.NewExistingStagingProvider(ctx, plan.ID, typ, externalCredentials(plan.Credentials)), nil
	}

	loginType := plan.LoginType
	if loginType == "" {
		loginType = b.cfg.Workspace.LoginType
	}
	lt, err := workspace.ParseLoginType(loginType)
	if err != nil {
		return nil, err
	}
	opts := workspace.CreateOptions{
		StagingType:           typ,
		LoginType:             lt,
		NetworkPolicy:         b.cfg.Workspace.NetworkPolicy,
		ReadOnlyStorageAccess: b.cfg.Workspace.ReadOnlyStorageAccess,
		ComponentID:           plan.ComponentID,
		ConfigID:              plan.ConfigID,
	}
	if size := b.cfg.Workspace.BackendSize; size != "" {
		opts.BackendSize = &size
	}

	ws, err := b.workspaces.CreateNewWorkspace(ctx, opts)
	if err != nil {
		return nil, err
	}
	return b.workspaces.NewOwnedStagingProvider(ws), nil
}

// externalCredentials wraps plan credentials the way the API client does.
func externalCredentials(in map[string]string) workspace.Credentials {
	if len(in) == 0 {
		return nil
	}
	out := make(workspace.Credentials, len(in))
	for k, v := range in {
		switch k {
		case "password", "privateKey":
			out[k] = secret.String(v)
		default:
			out[k] = v
		}
	}
	return out
}

// planNeedsWorkspaces reports whether plan has a workspace provider.
func planNeedsWorkspaces(plan *config.BindingPlan) bool {
	for _, prov := range plan.Providers {
		if prov.Kind == config.KindWorkspace {
			return true
		}
	}
	return false
}

// newObjectStores creates the storage clients of the configured s3 and abs
// containers.
func newObjectStores(ctx context.Context, cfg *config.Config, logger *logging.Logger) (map[staging.Type]objectstore.Store, error) {
	stores := make(map[staging.Type]objectstore.Store)
	if cfg.S3.Bucket == "" && cfg.ABS.Container == "" {
		return stores, nil
	}

	httpClient, err := http.NewStorageClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure storage HTTP client: %w", err)
	}

	if cfg.S3.Bucket != "" {
		s3Store, err := objectstore.NewS3Store(ctx, objectstore.S3Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			HTTPClient:      httpClient,
		})
		if err != nil {
			return nil, err
		}
		stores[staging.S3] = s3Store
	}

	if cfg.ABS.Container != "" {
		absStore, err := objectstore.NewAzureStore(objectstore.AzureOptions{
			ConnectionString: cfg.ABS.ConnectionString,
			Container:        cfg.ABS.Container,
			Prefix:           cfg.ABS.Prefix,
			HTTPClient:       httpClient,
		})
		if err != nil {
			return nil, err
		}
		stores[staging.Abs] = absStore
	}
	return stores, nil
}
