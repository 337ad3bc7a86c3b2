package staging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStageWritesFile(t *testing.T) {
	area, err := New(t.TempDir())
	require.NoError(t, err)

	h, err := area.Stage(context.Background(), "front.JPG", bytes.NewReader([]byte("fake jpeg")))
	require.NoError(t, err)

	assert.Equal(t, ".jpg", h.Ext)
	assert.Equal(t, int64(9), h.Size)

	data, err := os.ReadFile(h.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake jpeg"), data)
}

func TestStageUniquePaths(t *testing.T) {
	area, err := New(t.TempDir())
	require.NoError(t, err)

	h1, err := area.Stage(context.Background(), "a.png", bytes.NewReader([]byte("one")))
	require.NoError(t, err)
	h2, err := area.Stage(context.Background(), "a.png", bytes.NewReader([]byte("two")))
	require.NoError(t, err)

	assert.NotEqual(t, h1.Path, h2.Path)
}

func TestCleanupRemovesFiles(t *testing.T) {
	area, err := New(t.TempDir())
	require.NoError(t, err)

	h1, err := area.Stage(context.Background(), "a.jpg", bytes.NewReader([]byte("one")))
	require.NoError(t, err)
	h2, err := area.Stage(context.Background(), "b.jpg", bytes.NewReader([]byte("two")))
	require.NoError(t, err)

	area.Cleanup(discardLogger(), []Handle{h1, h2})

	assert.NoFileExists(t, h1.Path)
	assert.NoFileExists(t, h2.Path)
}

func TestCleanupToleratesMissingFiles(t *testing.T) {
	area, err := New(t.TempDir())
	require.NoError(t, err)

	h, err := area.Stage(context.Background(), "a.jpg", bytes.NewReader([]byte("one")))
	require.NoError(t, err)
	require.NoError(t, os.Remove(h.Path))

	// Must not panic or error when the file is already gone.
	area.Cleanup(discardLogger(), []Handle{h})
}

func TestSweepAll(t *testing.T) {
	dir := t.TempDir()
	area, err := New(dir)
	require.NoError(t, err)

	_, err = area.Stage(context.Background(), "a.jpg", bytes.NewReader([]byte("one")))
	require.NoError(t, err)
	_, err = area.Stage(context.Background(), "b.png", bytes.NewReader([]byte("two")))
	require.NoError(t, err)

	area.SweepAll(discardLogger())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStageCancelledContext(t *testing.T) {
	area, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = area.Stage(ctx, "a.jpg", bytes.NewReader([]byte("one")))
	assert.Error(t, err)

	entries, readErr := os.ReadDir(filepath.Dir(area.dir + "/x"))
	require.NoError(t, readErr)
	assert.Empty(t, entries, "no file may be staged after cancellation")
}
