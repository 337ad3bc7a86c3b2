package annotate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbeaufort/fleetlens/internal/domain"
	"github.com/dbeaufort/fleetlens/internal/imagestore"
	"github.com/dbeaufort/fleetlens/internal/staging"
)

// memStore keeps images in memory so render tests need no filesystem.
type memStore struct {
	images map[string][]byte
	saved  map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{
		images: make(map[string][]byte),
		saved:  make(map[string][]byte),
	}
}

func (s *memStore) Promote(_ context.Context, _ string, _, _ []staging.Handle) (*imagestore.SavedSet, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *memStore) SaveBounded(_ context.Context, dir string, index int, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/bounded_%d.jpg", dir, index)
	s.saved[key] = data
	return key, nil
}

func (s *memStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	data, ok := s.images[key]
	if !ok {
		return nil, "", fmt.Errorf("no such key: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), "image/png", nil
}

func whitePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeSaved(t *testing.T, store *memStore, key string) image.Image {
	t.Helper()
	data, ok := store.saved[key]
	require.True(t, ok, "bounded image %s not saved", key)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func damageAt(imageIndex int, severity string, box domain.BoundingBox) domain.DamageItem {
	return domain.DamageItem{
		CarPart:           "rear bumper",
		DamageType:        "dent",
		Severity:          severity,
		RecommendedAction: "repair",
		EstimatedCostUSD:  450,
		ImageIndex:        imageIndex,
		BoundingBox:       box,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRenderCreatesBoundedImage(t *testing.T) {
	store := newMemStore()
	store.images["d/after_1.png"] = whitePNG(t, 200, 100)

	renderer := NewRenderer(store, testLogger())
	keys := renderer.Render(context.Background(), "d", []string{"d/after_1.png"}, domain.DamageReport{
		NewDamage: []domain.DamageItem{
			damageAt(1, "major", domain.BoundingBox{XMinPct: 0.25, YMinPct: 0.2, XMaxPct: 0.75, YMaxPct: 0.8}),
		},
		TotalEstimatedCostUSD: 450,
		Summary:               "1 new damage",
	})

	require.Equal(t, []string{"d/bounded_1.jpg"}, keys)

	img := decodeSaved(t, store, "d/bounded_1.jpg")
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	// Top border of the box runs at y=20 from x=50 to x=150: red for "major".
	assertColorNear(t, img, 51, 21, color.RGBA{R: 0xEF, G: 0x44, B: 0x44})
	// Interior of the box stays untouched white.
	assertColorNear(t, img, 100, 60, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF})
	// Outside the box stays white too.
	assertColorNear(t, img, 10, 60, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF})
}

func TestRenderSeverityColors(t *testing.T) {
	tests := []struct {
		severity string
		want     color.RGBA
	}{
		{"minor", color.RGBA{R: 0x10, G: 0xB9, B: 0x81}},
		{"moderate", color.RGBA{R: 0xF5, G: 0x9E, B: 0x0B}},
		{"major", color.RGBA{R: 0xEF, G: 0x44, B: 0x44}},
		{"catastrophic", color.RGBA{R: 0xEF, G: 0x44, B: 0x44}}, // unknown falls back to red
	}
	for _, tc := range tests {
		t.Run(tc.severity, func(t *testing.T) {
			store := newMemStore()
			store.images["d/after_1.png"] = whitePNG(t, 200, 100)

			renderer := NewRenderer(store, testLogger())
			keys := renderer.Render(context.Background(), "d", []string{"d/after_1.png"}, domain.DamageReport{
				NewDamage: []domain.DamageItem{
					damageAt(1, tc.severity, domain.BoundingBox{XMinPct: 0.25, YMinPct: 0.4, XMaxPct: 0.75, YMaxPct: 0.9}),
				},
			})

			require.Len(t, keys, 1)
			img := decodeSaved(t, store, keys[0])
			// Left border of the box at x=50, below the label area.
			assertColorNear(t, img, 51, 80, tc.want)
		})
	}
}

func TestRenderSkipsInvalidBoxes(t *testing.T) {
	store := newMemStore()
	store.images["d/after_1.png"] = whitePNG(t, 200, 100)
	store.images["d/after_2.png"] = whitePNG(t, 200, 100)

	renderer := NewRenderer(store, testLogger())
	keys := renderer.Render(context.Background(), "d",
		[]string{"d/after_1.png", "d/after_2.png"},
		domain.DamageReport{
			NewDamage: []domain.DamageItem{
				damageAt(1, "minor", domain.BoundingBox{XMinPct: 0.1, YMinPct: 0.1, XMaxPct: 0.5, YMaxPct: 0.5}),
				// max < min: malformed, must not abort the batch.
				damageAt(1, "major", domain.BoundingBox{XMinPct: 0.8, YMinPct: 0.8, XMaxPct: 0.2, YMaxPct: 0.2}),
				// Image 2 only has a malformed box, so it gets no bounded copy.
				damageAt(2, "major", domain.BoundingBox{XMinPct: -0.1, YMinPct: 0.1, XMaxPct: 0.5, YMaxPct: 1.5}),
			},
		})

	assert.Equal(t, []string{"d/bounded_1.jpg"}, keys)
	assert.NotContains(t, store.saved, "d/bounded_2.jpg")
}

func TestRenderIgnoresOutOfRangeImageIndex(t *testing.T) {
	store := newMemStore()
	store.images["d/after_1.png"] = whitePNG(t, 200, 100)

	renderer := NewRenderer(store, testLogger())
	keys := renderer.Render(context.Background(), "d", []string{"d/after_1.png"}, domain.DamageReport{
		NewDamage: []domain.DamageItem{
			damageAt(5, "major", domain.BoundingBox{XMinPct: 0.1, YMinPct: 0.1, XMaxPct: 0.5, YMaxPct: 0.5}),
			damageAt(0, "major", domain.BoundingBox{XMinPct: 0.1, YMinPct: 0.1, XMaxPct: 0.5, YMaxPct: 0.5}),
		},
	})

	assert.Empty(t, keys)
	assert.Empty(t, store.saved)
}

func TestRenderNoDamages(t *testing.T) {
	store := newMemStore()
	store.images["d/after_1.png"] = whitePNG(t, 200, 100)

	renderer := NewRenderer(store, testLogger())
	keys := renderer.Render(context.Background(), "d", []string{"d/after_1.png"}, domain.DamageReport{
		Summary: "No new damage detected.",
	})

	assert.Empty(t, keys)
	assert.Empty(t, store.saved)
}

func TestRenderContinuesPastBrokenImage(t *testing.T) {
	store := newMemStore()
	// Image 1 is missing from the store, image 2 is fine.
	store.images["d/after_2.png"] = whitePNG(t, 200, 100)

	renderer := NewRenderer(store, testLogger())
	keys := renderer.Render(context.Background(), "d",
		[]string{"d/after_1.png", "d/after_2.png"},
		domain.DamageReport{
			NewDamage: []domain.DamageItem{
				damageAt(1, "major", domain.BoundingBox{XMinPct: 0.1, YMinPct: 0.1, XMaxPct: 0.5, YMaxPct: 0.5}),
				damageAt(2, "minor", domain.BoundingBox{XMinPct: 0.1, YMinPct: 0.1, XMaxPct: 0.5, YMaxPct: 0.5}),
			},
		})

	assert.Equal(t, []string{"d/bounded_2.jpg"}, keys)
}

func TestRenderUndecodableImage(t *testing.T) {
	store := newMemStore()
	store.images["d/after_1.png"] = []byte("not an image at all")

	renderer := NewRenderer(store, testLogger())
	keys := renderer.Render(context.Background(), "d", []string{"d/after_1.png"}, domain.DamageReport{
		NewDamage: []domain.DamageItem{
			damageAt(1, "major", domain.BoundingBox{XMinPct: 0.1, YMinPct: 0.1, XMaxPct: 0.5, YMaxPct: 0.5}),
		},
	})

	assert.Empty(t, keys)
}

// assertColorNear tolerates JPEG compression noise when comparing channels.
func assertColorNear(t *testing.T, img image.Image, x, y int, want color.RGBA) {
	t.Helper()
	r, g, b, _ := img.At(x, y).RGBA()
	const tolerance = 20.0
	assert.InDelta(t, float64(want.R), float64(r>>8), tolerance, "red channel at (%d,%d)", x, y)
	assert.InDelta(t, float64(want.G), float64(g>>8), tolerance, "green channel at (%d,%d)", x, y)
	assert.InDelta(t, float64(want.B), float64(b>>8), tolerance, "blue channel at (%d,%d)", x, y)
}
