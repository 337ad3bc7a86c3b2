// Package imagestore is the permanent home for inspection images. Keys are
// storage-relative paths with forward slashes regardless of host conventions,
// so stored references stay portable across environments.
package imagestore

import (
	"context"
	"io"

	"github.com/dbeaufort/fleetlens/internal/staging"
)

// SavedSet describes one inspection's relocated images. Dir is the
// inspection-scoped directory key; Before and After preserve upload order.
type SavedSet struct {
	Dir    string
	Before []string
	After  []string
}

type Store interface {
	// Promote copies staged files into a fresh inspection-scoped directory,
	// named before_<n>.ext / after_<n>.ext in input order. Files already
	// copied are left in place if a later copy fails; the directory is
	// uniquely keyed per inspection so a partial set is simply incomplete.
	Promote(ctx context.Context, inspectionID string, before, after []staging.Handle) (*SavedSet, error)

	// SaveBounded stores one rendered annotation image as bounded_<index>.jpg
	// inside the given inspection directory and returns its key.
	SaveBounded(ctx context.Context, dir string, index int, r io.Reader) (string, error)

	// Get opens a stored image by key, returning the content and MIME type.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
}
