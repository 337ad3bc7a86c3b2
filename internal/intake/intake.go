// Package intake validates uploaded inspection images and stages them in the
// transient area. A request is accepted whole or not at all: the first
// violation aborts the request.
package intake

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dbeaufort/fleetlens/internal/staging"
)

// MaxFileSize is the per-image upload limit.
const MaxFileSize = 10 << 20 // 10 MiB

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// ValidationError marks a user-correctable upload problem. The web layer maps
// it to a 4xx response.
type ValidationError struct {
	Filename string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed for %q: %s", e.Filename, e.Reason)
}

// File is one uploaded image as presented by the transport layer. ContentType
// is the client-declared type, not a sniffed one.
type File struct {
	Filename    string
	ContentType string
	Reader      io.Reader
}

// Validate checks filename, extension, and declared content type. Size is
// deliberately not checked here: it is enforced against actual bytes written,
// after staging.
func Validate(f File) error {
	if f.Filename == "" {
		return &ValidationError{Reason: "file must have a filename"}
	}

	ext := strings.ToLower(filepath.Ext(f.Filename))
	if !allowedExtensions[ext] {
		return &ValidationError{
			Filename: f.Filename,
			Reason:   "invalid file type, allowed: .jpg, .jpeg, .png, .webp",
		}
	}

	if !allowedContentTypes[f.ContentType] {
		return &ValidationError{
			Filename: f.Filename,
			Reason:   fmt.Sprintf("invalid content type %q, allowed: image/jpeg, image/png, image/webp", f.ContentType),
		}
	}

	return nil
}

// StageAll validates every file up front, then stages each one. Nothing is
// written if any validation fails. If staging or the post-write size check
// fails partway, the handles staged so far are returned alongside the error
// so the caller can clean them up.
func StageAll(ctx context.Context, area *staging.Area, files []File) ([]staging.Handle, error) {
	for _, f := range files {
		if err := Validate(f); err != nil {
			return nil, err
		}
	}

	handles := make([]staging.Handle, 0, len(files))
	for _, f := range files {
		h, err := area.Stage(ctx, f.Filename, f.Reader)
		if err != nil {
			return handles, fmt.Errorf("failed to stage %q: %w", f.Filename, err)
		}
		handles = append(handles, h)

		if h.Size > MaxFileSize {
			return handles, &ValidationError{
				Filename: f.Filename,
				Reason:   fmt.Sprintf("file too large: %d bytes, maximum allowed: %d bytes", h.Size, MaxFileSize),
			}
		}
	}

	return handles, nil
}
