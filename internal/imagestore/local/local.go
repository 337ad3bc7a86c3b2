package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dbeaufort/fleetlens/internal/imagestore"
	"github.com/dbeaufort/fleetlens/internal/staging"
)

type LocalStore struct {
	basePath string
}

func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

func (s *LocalStore) Promote(ctx context.Context, inspectionID string, before, after []staging.Handle) (*imagestore.SavedSet, error) {
	// Grouped by calendar date, then inspection id.
	dir := path.Join(time.Now().Format("2006-01-02"), inspectionID)
	if err := os.MkdirAll(filepath.Join(s.basePath, filepath.FromSlash(dir)), 0755); err != nil {
		return nil, fmt.Errorf("failed to create inspection directory: %w", err)
	}

	set := &imagestore.SavedSet{Dir: dir}

	for i, h := range before {
		key, err := s.copyInto(ctx, dir, fmt.Sprintf("before_%d%s", i+1, h.Ext), h.Path)
		if err != nil {
			return nil, err
		}
		set.Before = append(set.Before, key)
	}
	for i, h := range after {
		key, err := s.copyInto(ctx, dir, fmt.Sprintf("after_%d%s", i+1, h.Ext), h.Path)
		if err != nil {
			return nil, err
		}
		set.After = append(set.After, key)
	}

	return set, nil
}

func (s *LocalStore) copyInto(ctx context.Context, dir, name, srcPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open staged file: %w", err)
	}
	defer src.Close()

	key := path.Join(dir, name)
	dstPath := filepath.Join(s.basePath, filepath.FromSlash(key))

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create permanent file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to copy to permanent storage: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to close permanent file: %w", err)
	}

	return key, nil
}

func (s *LocalStore) SaveBounded(ctx context.Context, dir string, index int, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := path.Join(dir, fmt.Sprintf("bounded_%d.jpg", index))
	dstPath, err := s.safeJoin(key)
	if err != nil {
		return "", err
	}

	f, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create bounded file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to write bounded file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to close bounded file: %w", err)
	}

	return key, nil
}

func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("image not found")
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, extToMimeType(filePath), nil
}

// safeJoin resolves key relative to basePath and rejects directory traversal.
func (s *LocalStore) safeJoin(key string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}

func extToMimeType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
