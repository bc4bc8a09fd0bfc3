// Package storage resolves source file references to local paths. References
// are either local paths or s3://bucket/key URIs fetched into a temp directory.
package storage

import (
	"context"
	"io"
	"strings"
)

// Storage resolves source references and manages the temp files it creates.
type Storage interface {
	// Resolve returns a local path for ref, downloading it first if needed.
	Resolve(ctx context.Context, ref string) (path string, err error)

	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// Upload stores data under key in the object store and returns its URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	Upload(ctx context.Context, key string, data io.Reader) (url string, err error)
}

const s3Scheme = "s3://"

// ParseS3Ref splits an s3://bucket/key reference.
func ParseS3Ref(ref string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(ref, s3Scheme)
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
