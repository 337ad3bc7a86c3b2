// Package staging manages the transient holding area for uploaded images.
// Files live here only for the duration of one inspection request and are
// removed unconditionally when the request finishes.
package staging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Handle identifies one staged file. Ext keeps the original extension
// (lowercased, dot included) so permanent copies can preserve it.
type Handle struct {
	Path string
	Ext  string
	Size int64
}

type Area struct {
	dir string
}

func New(dir string) (*Area, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &Area{dir: dir}, nil
}

// Stage writes r to a fresh randomly-named file and returns its handle.
// Random names mean two concurrent requests never contend for a path.
func (a *Area) Stage(ctx context.Context, filename string, r io.Reader) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(a.dir, uuid.NewString()+ext)

	f, err := os.Create(path)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to create staging file: %w", err)
	}

	written, err := io.Copy(f, r)
	if err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close staging file after write error", "error", cerr)
		}
		if rerr := os.Remove(path); rerr != nil {
			slog.Error("failed to remove staging file after write error", "error", rerr)
		}
		return Handle{}, fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(path); rerr != nil {
			slog.Error("failed to remove staging file after close error", "error", rerr)
		}
		return Handle{}, fmt.Errorf("failed to close staging file: %w", err)
	}

	return Handle{Path: path, Ext: ext, Size: written}, nil
}

// Cleanup removes the staged files. Failures are logged, never returned:
// cleanup runs on every exit path and must not mask the original outcome.
func (a *Area) Cleanup(logger *slog.Logger, handles []Handle) {
	for _, h := range handles {
		if err := os.Remove(h.Path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			logger.Warn("failed to delete staged file", "path", h.Path, "error", err)
			continue
		}
		logger.Debug("deleted staged file", "path", h.Path)
	}
}

// SweepAll removes every file in the staging directory. Intended for a
// periodic maintenance sweep, not for per-request correctness.
func (a *Area) SweepAll(logger *slog.Logger) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		logger.Warn("failed to read staging directory", "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(a.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("failed to sweep staged file", "path", path, "error", err)
		}
	}
	logger.Info("staging sweep complete")
}
