// Package inspect orchestrates one damage inspection end to end: stage the
// uploads, obtain and parse the model's assessment, relocate images to
// permanent storage, render bounded copies, and persist the record. Staged
// files are removed on every exit path.
package inspect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/dbeaufort/fleetlens/internal/domain"
	"github.com/dbeaufort/fleetlens/internal/imagestore"
	"github.com/dbeaufort/fleetlens/internal/intake"
	"github.com/dbeaufort/fleetlens/internal/staging"
	"github.com/dbeaufort/fleetlens/internal/vision"
)

type InspectionCreator interface {
	Create(ctx context.Context, insp *domain.Inspection) (*domain.Inspection, error)
}

type BookingUpdater interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	SetStatus(ctx context.Context, id int64, status domain.BookingStatus, inspectionID string) error
}

type BookingImageLister interface {
	ListByBooking(ctx context.Context, bookingID int64, state domain.ImageState) ([]*domain.BookingImage, error)
}

// Renderer produces bounded annotation images for a saved inspection; it
// absorbs its own failures and returns the keys it managed to render.
type Renderer interface {
	Render(ctx context.Context, dir string, afterKeys []string, report domain.DamageReport) []string
}

type Service struct {
	area          *staging.Area
	images        imagestore.Store
	analyzer      vision.Analyzer
	renderer      Renderer
	inspections   InspectionCreator
	bookings      BookingUpdater
	bookingImages BookingImageLister
	logger        *slog.Logger
}

// Deps carries the service's collaborators. All fields are required except
// Bookings and BookingImages, which only the booking-scoped flow uses.
type Deps struct {
	Area          *staging.Area
	Images        imagestore.Store
	Analyzer      vision.Analyzer
	Renderer      Renderer
	Inspections   InspectionCreator
	Bookings      BookingUpdater
	BookingImages BookingImageLister
	Logger        *slog.Logger
}

func NewService(deps Deps) *Service {
	return &Service{
		area:          deps.Area,
		images:        deps.Images,
		analyzer:      deps.Analyzer,
		renderer:      deps.Renderer,
		inspections:   deps.Inspections,
		bookings:      deps.Bookings,
		bookingImages: deps.BookingImages,
		logger:        deps.Logger,
	}
}

// Request is a direct inspection: both image sets arrive with the request.
type Request struct {
	CarID  int64
	Before []intake.File
	After  []intake.File
}

// Run executes a direct inspection. The returned inspection is the persisted
// record, report included. Validation problems surface as
// *intake.ValidationError; later stages as the typed errors in this package.
func (s *Service) Run(ctx context.Context, req Request) (*domain.Inspection, error) {
	if len(req.Before) == 0 || len(req.After) == 0 {
		return nil, &intake.ValidationError{Reason: "at least one before image and one after image are required"}
	}

	all := make([]intake.File, 0, len(req.Before)+len(req.After))
	all = append(all, req.Before...)
	all = append(all, req.After...)

	// Whatever got staged is removed when this request finishes, success or
	// not. StageAll returns partial handles on failure for exactly this.
	handles, err := intake.StageAll(ctx, s.area, all)
	defer s.area.Cleanup(s.logger, handles)
	if err != nil {
		return nil, err
	}

	beforeHandles := handles[:len(req.Before)]
	afterHandles := handles[len(req.Before):]

	beforeImgs, err := loadStaged(beforeHandles)
	if err != nil {
		return nil, &AnalysisError{Err: err}
	}
	afterImgs, err := loadStaged(afterHandles)
	if err != nil {
		return nil, &AnalysisError{Err: err}
	}

	report, err := s.analyze(ctx, beforeImgs, afterImgs)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	saved, err := s.images.Promote(ctx, id, beforeHandles, afterHandles)
	if err != nil {
		return nil, &StorageError{Err: err}
	}

	return s.finish(ctx, &domain.Inspection{
		ID:           id,
		CarID:        req.CarID,
		Report:       report,
		BeforeImages: saved.Before,
		AfterImages:  saved.After,
	}, saved.Dir, saved.After)
}

// RunForBooking executes a return inspection against a booking: the BEFORE
// set is the booking's pickup images already in permanent storage, only the
// AFTER set arrives with the request. On success the booking is completed and
// linked to the inspection.
func (s *Service) RunForBooking(ctx context.Context, bookingID int64, after []intake.File) (*domain.Inspection, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	pickupImages, err := s.bookingImages.ListByBooking(ctx, bookingID, domain.ImageBefore)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if len(pickupImages) == 0 {
		return nil, &intake.ValidationError{Reason: "booking has no pickup images to compare against"}
	}
	if len(after) == 0 {
		return nil, &intake.ValidationError{Reason: "at least one after image is required"}
	}

	handles, err := intake.StageAll(ctx, s.area, after)
	defer s.area.Cleanup(s.logger, handles)
	if err != nil {
		return nil, err
	}

	beforeImgs := make([]vision.Image, 0, len(pickupImages))
	beforeKeys := make([]string, 0, len(pickupImages))
	for _, img := range pickupImages {
		loaded, err := s.loadStored(ctx, img.Path)
		if err != nil {
			return nil, &StorageError{Err: err}
		}
		beforeImgs = append(beforeImgs, loaded)
		beforeKeys = append(beforeKeys, img.Path)
	}

	afterImgs, err := loadStaged(handles)
	if err != nil {
		return nil, &AnalysisError{Err: err}
	}

	report, err := s.analyze(ctx, beforeImgs, afterImgs)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	saved, err := s.images.Promote(ctx, id, nil, handles)
	if err != nil {
		return nil, &StorageError{Err: err}
	}

	insp, err := s.finish(ctx, &domain.Inspection{
		ID:           id,
		CarID:        booking.CarID,
		BookingID:    &booking.ID,
		Report:       report,
		BeforeImages: beforeKeys,
		AfterImages:  saved.After,
	}, saved.Dir, saved.After)
	if err != nil {
		return nil, err
	}

	// The inspection record is authoritative; a failed booking transition is
	// recoverable by hand and must not fail the finished inspection.
	if err := s.bookings.SetStatus(ctx, booking.ID, domain.BookingCompleted, insp.ID); err != nil {
		s.logger.Error("failed to complete booking after inspection",
			"booking_id", booking.ID, "inspection_id", insp.ID, "error", err)
	}

	return insp, nil
}

func (s *Service) analyze(ctx context.Context, before, after []vision.Image) (domain.DamageReport, error) {
	s.logger.Info("requesting damage analysis", "before_count", len(before), "after_count", len(after))

	raw, err := s.analyzer.Analyze(ctx, before, after)
	if err != nil {
		return domain.DamageReport{}, &AnalysisError{Err: err}
	}

	// Parsing never fails: an unparseable response becomes a fallback report
	// and the inspection still completes.
	report := vision.ParseReport(raw)
	s.logger.Info("damage analysis complete",
		"damages", len(report.NewDamage),
		"total_cost_usd", report.TotalEstimatedCostUSD,
		"parse_error", report.ParseError != "")
	return report, nil
}

// finish renders bounded images and persists the record. Rendering failures
// are already absorbed by the renderer; persistence is the last fallible step.
func (s *Service) finish(ctx context.Context, insp *domain.Inspection, dir string, afterKeys []string) (*domain.Inspection, error) {
	insp.BoundedImages = s.renderer.Render(ctx, dir, afterKeys, insp.Report)
	insp.TotalDamageCost = insp.Report.TotalEstimatedCostUSD

	created, err := s.inspections.Create(ctx, insp)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	s.logger.Info("inspection complete",
		"inspection_id", created.ID,
		"car_id", created.CarID,
		"damages", len(created.Report.NewDamage),
		"bounded_images", len(created.BoundedImages))
	return created, nil
}

func (s *Service) loadStored(ctx context.Context, key string) (vision.Image, error) {
	rc, mimeType, err := s.images.Get(ctx, key)
	if err != nil {
		return vision.Image{}, fmt.Errorf("failed to open stored image %q: %w", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return vision.Image{}, fmt.Errorf("failed to read stored image %q: %w", key, err)
	}
	return vision.Image{Data: data, MIME: mimeType}, nil
}

func loadStaged(handles []staging.Handle) ([]vision.Image, error) {
	images := make([]vision.Image, 0, len(handles))
	for _, h := range handles {
		data, err := os.ReadFile(h.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read staged image: %w", err)
		}
		images = append(images, vision.Image{Data: data, MIME: mimeForExt(h.Ext)})
	}
	return images, nil
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
