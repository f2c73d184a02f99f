// Package mediainspect wraps the external media-inspection capability.
// Any failure here surfaces as a pipeline failure; nothing is retried.
package mediainspect

import (
	"context"
	"time"
)

// Inspector probes media files and extracts still frames.
type Inspector interface {
	// Probe returns the media duration of the file at path.
	Probe(ctx context.Context, path string) (time.Duration, error)

	// ExtractFrame writes a single frame taken at offset into a new
	// temporary image file and returns its path. The caller owns the
	// file and must remove it.
	ExtractFrame(ctx context.Context, path string, offset time.Duration) (string, error)
}
