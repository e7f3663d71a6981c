package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescale/rescale-staging/internal/objectstore"
	"github.com/rescale/rescale-staging/internal/staging"
)

func TestObjectTableResolve(t *testing.T) {
	store := &fakeStore{scheme: "s3", base: "run", objects: []objectstore.Object{
		{Key: "run/in/tables/orders/orders.csv", Size: 10},
		{Key: "run/in/tables/events/part-0.csv", Size: 5},
		{Key: "run/in/tables/events/part-1.csv", Size: 6},
	}}
	s := NewObjectTable(KindS3Table, store, t.TempDir(), "/in/tables/", nil, FormatJSON, nil)
	ctx := context.Background()

	loc, err := s.Resolve(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "in/tables/orders/", store.prefix)
	assert.False(t, loc.Sliced)
	assert.Equal(t, "s3://bucket/run/in/tables/orders/orders.csv", loc.URI)

	loc, err = s.Resolve(ctx, "events")
	require.NoError(t, err)
	assert.True(t, loc.Sliced)
	assert.Equal(t, "s3://bucket/run/in/tables/events/", loc.URI)
	assert.Equal(t, []string{
		"s3://bucket/run/in/tables/events/part-0.csv",
		"s3://bucket/run/in/tables/events/part-1.csv",
	}, loc.Slices)

	_, err = s.Resolve(ctx, "missing")
	assert.True(t, staging.IsConfigurationError(err))
	assert.ErrorContains(t, err, `table "missing" not found at s3://bucket/run/in/tables/missing/`)
}

func TestObjectTableResolveSlicedUnderRepeatedPrefix(t *testing.T) {
	// The table prefix also occurs inside the store prefix.
	store := &fakeStore{scheme: "s3", base: "in/tables/t1/archive", objects: []objectstore.Object{
		{Key: "in/tables/t1/archive/in/tables/t1/part-0.csv"},
		{Key: "in/tables/t1/archive/in/tables/t1/part-1.csv"},
	}}
	s := NewObjectTable(KindS3Table, store, t.TempDir(), "in/tables", nil, FormatJSON, nil)

	loc, err := s.Resolve(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, loc.Sliced)
	assert.Equal(t, "s3://bucket/in/tables/t1/archive/in/tables/t1/", loc.URI)
}
