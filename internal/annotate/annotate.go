// Package annotate renders "bounded" copies of AFTER images: each confirmed
// damage is outlined with a severity-colored rectangle and a numbered label.
package annotate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"log/slog"
	"sort"

	_ "image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"github.com/dbeaufort/fleetlens/internal/domain"
	"github.com/dbeaufort/fleetlens/internal/imagestore"
)

// jpegQuality is deliberately high: bounded images are evidence artifacts.
const jpegQuality = 95

var severityColors = map[domain.Severity]color.RGBA{
	domain.SeverityMinor:    {R: 0x10, G: 0xB9, B: 0x81, A: 0xFF}, // green
	domain.SeverityModerate: {R: 0xF5, G: 0x9E, B: 0x0B, A: 0xFF}, // amber
	domain.SeverityMajor:    {R: 0xEF, G: 0x44, B: 0x44, A: 0xFF}, // red
}

// defaultColor is used for unknown severities.
var defaultColor = color.RGBA{R: 0xEF, G: 0x44, B: 0x44, A: 0xFF}

type Renderer struct {
	store  imagestore.Store
	logger *slog.Logger
}

func NewRenderer(store imagestore.Store, logger *slog.Logger) *Renderer {
	return &Renderer{store: store, logger: logger}
}

// Render produces one bounded image per AFTER image that has at least one
// valid damage item referencing it; images with nothing to highlight produce
// no output. Failures are per-image: a render that cannot complete is logged
// and skipped, the rest of the batch continues. The returned keys are ordered
// by AFTER image index.
func (r *Renderer) Render(ctx context.Context, dir string, afterKeys []string, report domain.DamageReport) []string {
	if len(report.NewDamage) == 0 {
		r.logger.Info("no damages detected, skipping bounded image generation")
		return nil
	}

	byIndex := make(map[int][]domain.DamageItem)
	for _, item := range report.NewDamage {
		// image_index is a loose reference from text-only model output;
		// range-check it against the actual image count.
		if item.ImageIndex < 1 || item.ImageIndex > len(afterKeys) {
			r.logger.Warn("damage references nonexistent after image",
				"car_part", item.CarPart, "image_index", item.ImageIndex, "after_count", len(afterKeys))
			continue
		}
		if !item.BoundingBox.IsValid() {
			r.logger.Warn("invalid bounding box, skipping damage",
				"car_part", item.CarPart, "image_index", item.ImageIndex)
			continue
		}
		byIndex[item.ImageIndex] = append(byIndex[item.ImageIndex], item)
	}

	indexes := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	var keys []string
	for _, idx := range indexes {
		key, err := r.renderOne(ctx, dir, afterKeys[idx-1], idx, byIndex[idx])
		if err != nil {
			r.logger.Error("failed to render bounded image", "image_index", idx, "error", err)
			continue
		}
		r.logger.Info("saved bounded image", "key", key, "boxes", len(byIndex[idx]))
		keys = append(keys, key)
	}

	return keys
}

func (r *Renderer) renderOne(ctx context.Context, dir, srcKey string, idx int, items []domain.DamageItem) (string, error) {
	src, _, err := r.store.Get(ctx, srcKey)
	if err != nil {
		return "", fmt.Errorf("failed to open source image: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			r.logger.Error("failed to close source image", "key", srcKey, "error", err)
		}
	}()

	img, err := decodeFlattened(src)
	if err != nil {
		return "", fmt.Errorf("failed to decode source image: %w", err)
	}

	width := img.Bounds().Dx()
	height := img.Bounds().Dy()

	for seq, item := range items {
		box := item.BoundingBox
		x1 := int(box.XMinPct * float64(width))
		y1 := int(box.YMinPct * float64(height))
		x2 := int(box.XMaxPct * float64(width))
		y2 := int(box.YMaxPct * float64(height))

		severity := domain.NormalizeSeverity(item.Severity)
		col, ok := severityColors[severity]
		if !ok {
			col = defaultColor
		}

		// Stroke scales with the smaller dimension so boxes stay visible on
		// both phone snapshots and full-resolution photos.
		stroke := max(3, min(width, height)/200)
		drawRectOutline(img, x1, y1, x2, y2, stroke, col)
		drawLabel(img, fmt.Sprintf("%d. %s (%s)", seq+1, item.CarPart, severity), x1, y1, col)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("failed to encode bounded image: %w", err)
	}

	key, err := r.store.SaveBounded(ctx, dir, idx, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to save bounded image: %w", err)
	}
	return key, nil
}

// decodeFlattened decodes an image and flattens any transparency onto a white
// RGB canvas; the bounded output format (JPEG) has no alpha channel.
func decodeFlattened(r io.Reader) (*image.RGBA, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Over)
	return canvas, nil
}

func drawRectOutline(img *image.RGBA, x1, y1, x2, y2, stroke int, col color.RGBA) {
	fill := image.NewUniform(col)
	// Top, bottom, left, right bars. Clamping is handled by draw.Draw
	// intersecting with the canvas bounds.
	draw.Draw(img, image.Rect(x1, y1, x2, y1+stroke), fill, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(x1, y2-stroke, x2, y2), fill, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(x1, y1, x1+stroke, y2), fill, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(x2-stroke, y1, x2, y2), fill, image.Point{}, draw.Src)
}

// drawLabel places the numbered label above the box top-left corner, or
// inside the box when there is no room above, on an opaque background in the
// box color. The label is clipped to stay within image bounds horizontally.
func drawLabel(img *image.RGBA, label string, x1, y1 int, col color.RGBA) {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, label).Ceil()
	textHeight := face.Height

	width := img.Bounds().Dx()

	labelX := x1 + 4
	labelY := y1 - textHeight - 8
	if y1 <= textHeight+10 {
		labelY = y1 + 4
	}
	if labelX+textWidth+8 > width {
		labelX = width - textWidth - 8
	}
	if labelY < 0 {
		labelY = y1 + 4
	}

	bg := image.Rect(labelX-4, labelY-2, labelX+textWidth+4, labelY+textHeight+2)
	draw.Draw(img, bg, image.NewUniform(col), image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(labelX, labelY+face.Ascent),
	}
	d.DrawString(label)
}
