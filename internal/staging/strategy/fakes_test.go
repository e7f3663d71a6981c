package strategy

import (
	"context"
	"errors"
	"strings"

	"github.com/rescale/rescale-staging/internal/objectstore"
	"github.com/rescale/rescale-staging/internal/secret"
)

type fakeWorkspace struct {
	id       string
	creds    secret.Map
	cleanups int
	err      error
}

func (w *fakeWorkspace) WorkspaceID() (string, error)     { return w.id, nil }
func (w *fakeWorkspace) Credentials() (secret.Map, error) { return w.creds.Clone(), nil }
func (w *fakeWorkspace) Cleanup(context.Context) error {
	w.cleanups++
	return w.err
}

type countingProvider struct {
	path     string
	cleanups int
	err      error
}

func (p *countingProvider) Path() (string, error) { return p.path, nil }
func (p *countingProvider) Cleanup(context.Context) error {
	p.cleanups++
	return p.err
}

type fakeStore struct {
	scheme  string
	base    string
	objects []objectstore.Object
	prefix  string
}

func (s *fakeStore) List(_ context.Context, prefix string) ([]objectstore.Object, error) {
	s.prefix = prefix
	var out []objectstore.Object
	for _, o := range s.objects {
		if strings.HasPrefix(o.Key, s.Key(prefix)) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *fakeStore) Key(rel string) string {
	if s.base == "" {
		return rel
	}
	return s.base + "/" + rel
}

func (s *fakeStore) URI(key string) string {
	return s.scheme + "://bucket/" + key
}

var errCleanup = errors.New("cleanup failed")
