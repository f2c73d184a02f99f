package storage

import (
	"context"
	"time"
)

// Listing is the fully-enumerated result of a prefix listing. Pagination
// tokens are consumed internally; callers always see the complete set.
type Listing struct {
	// Keys holds object keys in the order the store returned them.
	Keys []string

	// CommonPrefixes holds folder prefixes when a delimiter was given.
	CommonPrefixes []string
}

// ProgressFunc receives upload progress as a percentage in [0, 100].
type ProgressFunc func(percent float64)

// ObjectStore defines the interface for object storage operations.
// Failures are reported as error values, never panics; callers decide
// retry policy.
type ObjectStore interface {
	// List enumerates all keys under prefix, following continuation
	// tokens until exhausted. delimiter may be empty.
	List(ctx context.Context, prefix, delimiter string) (*Listing, error)

	// UploadFile uploads a local file under key, using multipart transfer
	// above the configured part size. The operation is bounded by a hard
	// timeout and cancelled cleanly when exceeded. progress may be nil.
	UploadFile(ctx context.Context, localPath, key, contentType string, progress ProgressFunc) error

	// Presign returns a time-limited URL for key. Signing is local; no
	// network round-trip occurs.
	Presign(key string, ttl time.Duration) (string, error)

	// BatchDelete removes the given keys. Reporting is all-or-nothing:
	// any per-key error fails the whole batch and the caller must assume
	// nothing was guaranteed deleted. Missing keys are not errors.
	BatchDelete(ctx context.Context, keys []string) error

	// Exists checks if an object exists.
	Exists(ctx context.Context, key string) (bool, error)
}
