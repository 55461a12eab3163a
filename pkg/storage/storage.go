// Package storage hides the difference between local paths and object
// store URIs for the few operations the job needs: listing inputs by glob,
// reading them, and replacing an output directory with a staged copy.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Store is a read/replace view over one filesystem-like backend.
type Store interface {
	// Glob returns the paths matching pattern, sorted. Wildcards never
	// cross a path separator.
	Glob(ctx context.Context, pattern string) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Replace makes dest hold exactly the files under localDir.
	Replace(ctx context.Context, dest, localDir string) error
}

var objectSchemes = []string{"s3://", "s3a://", "s3n://"}

// IsObjectStore reports whether uri addresses an S3-compatible store.
func IsObjectStore(uri string) bool {
	for _, s := range objectSchemes {
		if strings.HasPrefix(uri, s) {
			return true
		}
	}
	return false
}

// ObjectLocation is a parsed object store URI.
type ObjectLocation struct {
	Scheme string
	Bucket string
	Key    string
}

func (l ObjectLocation) String() string {
	if l.Key == "" {
		return l.Scheme + "://" + l.Bucket
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// ParseObjectURI splits "s3a://bucket/some/key" into its parts.
func ParseObjectURI(uri string) (ObjectLocation, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || !IsObjectStore(uri) {
		return ObjectLocation{}, fmt.Errorf("not an object store uri: %q", uri)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return ObjectLocation{}, fmt.Errorf("missing bucket in %q", uri)
	}
	return ObjectLocation{Scheme: scheme, Bucket: bucket, Key: key}, nil
}

// LocalPath strips an optional file:// scheme.
func LocalPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// staticPrefix returns the part of a glob pattern before its first wildcard.
func staticPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*?[\\"); i >= 0 {
		return pattern[:i]
	}
	return pattern
}
