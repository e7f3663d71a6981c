// Package objectstore lists objects in the S3 and Azure Blob Storage
// containers that back the s3 and abs staging types.
package objectstore

import (
	"context"
	"path"
	"strings"
)

// Object is one stored object.
type Object struct {
	// Key is the full object key, including the store prefix.
	Key  string
	Size int64
}

// Store is the storage client contract used by the table strategies.
type Store interface {
	// List returns every object whose key starts with the store prefix joined
	// with prefix, in key order.
	List(ctx context.Context, prefix string) ([]Object, error)
	// Key returns the full key List uses for the relative prefix rel.
	Key(rel string) string
	// URI returns the addressable location of key.
	URI(key string) string
}

// joinPrefix joins the configured base prefix with a relative prefix. A
// trailing slash on rel is kept so that "a/b/" does not match "a/bc".
func joinPrefix(base, rel string) string {
	joined := path.Join(strings.Trim(base, "/"), rel)
	if joined == "." {
		joined = ""
	}
	if strings.HasSuffix(rel, "/") && joined != "" {
		joined += "/"
	}
	return strings.TrimPrefix(joined, "/")
}
