package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dbeaufort/fleetlens/internal/domain"
	"github.com/dbeaufort/fleetlens/internal/intake"
	"github.com/dbeaufort/fleetlens/internal/staging"
)

type bookingPayload struct {
	CarID     int64      `json:"car_id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Notes     string     `json:"notes"`
}

type bookingJSON struct {
	ID           int64      `json:"id"`
	CarID        int64      `json:"car_id"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Status       string     `json:"status"`
	InspectionID string     `json:"inspection_id,omitempty"`
	Notes        string     `json:"notes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func bookingToJSON(b *domain.Booking) bookingJSON {
	return bookingJSON{
		ID:           b.ID,
		CarID:        b.CarID,
		StartDate:    b.StartDate,
		EndDate:      b.EndDate,
		Status:       string(b.Status),
		InspectionID: b.InspectionID,
		Notes:        b.Notes,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list bookings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}

	out := make([]bookingJSON, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, bookingToJSON(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var payload bookingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.StartDate.IsZero() {
		writeError(w, http.StatusBadRequest, "start_date is required")
		return
	}

	car, err := s.cars.GetByID(r.Context(), payload.CarID)
	if err != nil {
		s.logger.Error("failed to load car", "car_id", payload.CarID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create booking")
		return
	}
	if car == nil {
		writeError(w, http.StatusNotFound, "car not found")
		return
	}

	booking, err := s.bookings.Create(r.Context(), payload.CarID, payload.StartDate, payload.EndDate, payload.Notes)
	if err != nil {
		s.logger.Error("failed to create booking", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create booking")
		return
	}

	writeJSON(w, http.StatusCreated, bookingToJSON(booking))
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := s.bookings.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get booking", "booking_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get booking")
		return
	}
	if booking == nil {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}

	writeJSON(w, http.StatusOK, bookingToJSON(booking))
}

func (s *Server) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	if err := s.bookingImages.DeleteByBooking(r.Context(), id); err != nil {
		s.logger.Error("failed to delete booking images", "booking_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete booking")
		return
	}
	if err := s.bookings.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleUploadBookingImages stores pickup or return photos for a booking.
// Files travel through the transient area like inspection uploads, then land
// in a batch-scoped directory in permanent storage.
func (s *Server) handleUploadBookingImages(w http.ResponseWriter, r *http.Request) {
	bookingID, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := s.bookings.GetByID(r.Context(), bookingID)
	if err != nil {
		s.logger.Error("failed to get booking", "booking_id", bookingID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get booking")
		return
	}
	if booking == nil {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}

	if err := r.ParseMultipartForm(maxInspectForm); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer s.discardForm(r)

	state := domain.ImageState(r.FormValue("state"))
	if state != domain.ImageBefore && state != domain.ImageAfter {
		writeError(w, http.StatusBadRequest, "state must be before or after")
		return
	}
	angle := r.FormValue("angle")

	files, closeFiles, err := formImages(r, "images")
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read images")
		return
	}
	defer closeFiles()
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "at least one image is required")
		return
	}

	handles, err := intake.StageAll(r.Context(), s.area, files)
	defer s.area.Cleanup(s.logger, handles)
	if err != nil {
		var verr *intake.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.logger.Error("failed to stage booking images", "booking_id", bookingID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store images")
		return
	}

	// Each upload batch gets its own directory key so repeated uploads for
	// one booking never collide.
	batchID := fmt.Sprintf("booking-%d-%s", bookingID, uuid.NewString()[:8])
	var beforeHandles, afterHandles []staging.Handle
	if state == domain.ImageBefore {
		beforeHandles = handles
	} else {
		afterHandles = handles
	}

	saved, err := s.images.Promote(r.Context(), batchID, beforeHandles, afterHandles)
	if err != nil {
		s.logger.Error("failed to promote booking images", "booking_id", bookingID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store images")
		return
	}

	keys := saved.Before
	if state == domain.ImageAfter {
		keys = saved.After
	}

	images := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		img, err := s.bookingImages.Create(r.Context(), bookingID, state, key, angle)
		if err != nil {
			s.logger.Error("failed to record booking image", "booking_id", bookingID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to store images")
			return
		}
		images = append(images, map[string]any{
			"id":    img.ID,
			"state": string(img.State),
			"path":  img.Path,
			"angle": img.Angle,
		})
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"images":  images,
	})
}
