package workspace

import (
	"context"
	"sync"

	"github.com/rescale/rescale-staging/internal/secret"
	"github.com/rescale/rescale-staging/internal/staging"
)

// StagingProvider exposes a workspace as the workspace capability of a
// staging slot. Workspaces created for the run are deleted on Cleanup;
// pre-existing ones are left alone.
type StagingProvider struct {
	id      string
	load    func() (*WithCredentials, error)
	cleanup func(ctx context.Context) error

	once sync.Once
	ws   *WithCredentials
	err  error
}

var _ staging.WorkspaceCapability = (*StagingProvider)(nil)

// NewOwnedStagingProvider wraps a workspace created for this run.
func (p *Provider) NewOwnedStagingProvider(ws *WithCredentials) *StagingProvider {
	return &StagingProvider{
		id:   ws.ID,
		load: func() (*WithCredentials, error) { return ws, nil },
		cleanup: func(ctx context.Context) error {
			return p.CleanupWorkspace(ctx, ws.ID)
		},
	}
}

// NewExistingStagingProvider wraps a workspace that outlives the run. The
// workspace is fetched on first use of its credentials and checked against
// expected; external credentials are laid under the API connection data.
func (p *Provider) NewExistingStagingProvider(ctx context.Context, id string, expected staging.Type, external Credentials) *StagingProvider {
	return &StagingProvider{
		id: id,
		load: func() (*WithCredentials, error) {
			ws, err := p.GetWorkspaceWithCredentials(ctx, id, external)
			if err != nil {
				return nil, err
			}
			if err := ws.CheckType(expected); err != nil {
				return nil, err
			}
			return ws, nil
		},
		cleanup: func(context.Context) error { return nil },
	}
}

// WorkspaceID returns the workspace id.
func (s *StagingProvider) WorkspaceID() (string, error) {
	return s.id, nil
}

// Credentials returns the workspace credentials, fetching them once.
func (s *StagingProvider) Credentials() (secret.Map, error) {
	ws, err := s.Workspace()
	if err != nil {
		return nil, err
	}
	return ws.Credentials.Clone(), nil
}

// Workspace returns the wrapped workspace, fetching it once.
func (s *StagingProvider) Workspace() (*WithCredentials, error) {
	s.once.Do(func() {
		s.ws, s.err = s.load()
	})
	return s.ws, s.err
}

// Cleanup deletes the workspace if it was created for this run.
func (s *StagingProvider) Cleanup(ctx context.Context) error {
	return s.cleanup(ctx)
}

// String describes the provider for logs and plan output.
func (s *StagingProvider) String() string {
	return "workspace:" + s.id
}
