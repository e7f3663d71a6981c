package staging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider(t *testing.T) {
	dir := t.TempDir()
	p, err := NewLocalProvider(" " + dir + "/ ")
	require.NoError(t, err)

	path, err := p.Path()
	require.NoError(t, err)
	assert.Equal(t, dir, path)
	assert.Equal(t, "local:"+dir, Describe(p))

	require.NoError(t, p.Cleanup(context.Background()))
	_, err = os.Stat(dir)
	assert.NoError(t, err, "existing directories are kept")

	_, err = NewLocalProvider("  ")
	assert.True(t, IsConfigurationError(err))
}

func TestTemporaryLocalProvider(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested")
	p, err := NewTemporaryLocalProvider(base)
	require.NoError(t, err)

	path, err := p.Path()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "staging-"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, p.Cleanup(context.Background()))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	other, err := NewTemporaryLocalProvider(base)
	require.NoError(t, err)
	otherPath, _ := other.Path()
	assert.NotEqual(t, path, otherPath)
	require.NoError(t, other.Cleanup(context.Background()))
}

func TestNullProvider(t *testing.T) {
	var p NullProvider
	_, err := p.Path()
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = p.WorkspaceID()
	assert.ErrorIs(t, err, ErrNotImplemented)
	creds, err := p.Credentials()
	require.NoError(t, err)
	assert.Empty(t, creds)
	assert.NoError(t, p.Cleanup(context.Background()))
	assert.Equal(t, "null", Describe(p))
	assert.True(t, SameProvider(NullProvider{}, p))
	assert.Equal(t, "-", Describe(nil))
}

func TestSameProviderNil(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.True(t, SameProvider(nil, nil))
		assert.False(t, SameProvider(nil, NullProvider{}))
		assert.False(t, SameProvider(&LocalProvider{}, nil))
	})
}
