package strategy

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rescale/rescale-staging/internal/logging"
	"github.com/rescale/rescale-staging/internal/objectstore"
	"github.com/rescale/rescale-staging/internal/staging"
)

// ObjectTable stages tables in object storage (S3 or Azure Blob Storage).
// Each table is a prefix <destination>/<tableID>/ holding one or more slices.
type ObjectTable struct {
	tableBase
	store objectstore.Store
}

var _ TableStrategy = (*ObjectTable)(nil)

// NewObjectTable creates an object storage table strategy. kind is
// KindS3Table or KindABSTable.
func NewObjectTable(kind staging.StrategyKind, store objectstore.Store, metadataPath, destination string, states []TableState, format string, logger *logging.Logger) *ObjectTable {
	return &ObjectTable{
		tableBase: newTableBase(kind, destination, states, metadataPath, format, logger),
		store:     store,
	}
}

// Resolve lists the slices of tableID. A single object is addressed
// directly; more than one makes the location sliced.
func (s *ObjectTable) Resolve(ctx context.Context, tableID string) (TableLocation, error) {
	if err := checkTableID(tableID); err != nil {
		return TableLocation{}, err
	}

	prefix := path.Join(strings.Trim(s.destination, "/"), tableID) + "/"
	objects, err := s.store.List(ctx, prefix)
	if err != nil {
		return TableLocation{}, err
	}
	if len(objects) == 0 {
		return TableLocation{}, fmt.Errorf("%w: table %q not found at %s", staging.ErrConfiguration, tableID, s.store.URI(s.store.Key(prefix)))
	}

	if len(objects) == 1 {
		return TableLocation{TableID: tableID, URI: s.store.URI(objects[0].Key)}, nil
	}

	loc := TableLocation{TableID: tableID, Sliced: true}
	for _, obj := range objects {
		loc.Slices = append(loc.Slices, s.store.URI(obj.Key))
	}
	loc.URI = s.store.URI(s.store.Key(prefix))
	s.logger.Debug().Str("table", tableID).Int("slices", len(objects)).Msg("Resolved sliced table")
	return loc, nil
}
