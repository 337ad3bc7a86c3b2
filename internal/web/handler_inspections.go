package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dbeaufort/fleetlens/internal/domain"
	"github.com/dbeaufort/fleetlens/internal/store"
)

type inspectionSummaryJSON struct {
	ID              string  `json:"id"`
	CarID           int64   `json:"car_id"`
	TotalDamageCost float64 `json:"total_damage_cost"`
	CreatedAt       string  `json:"created_at"`
}

func (s *Server) handleListInspections(w http.ResponseWriter, r *http.Request) {
	var summaries []*store.InspectionSummary
	var err error

	if raw := r.URL.Query().Get("car_id"); raw != "" {
		carID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid car_id")
			return
		}
		summaries, err = s.inspections.ListByCar(r.Context(), carID)
	} else {
		summaries, err = s.inspections.List(r.Context())
	}
	if err != nil {
		s.logger.Error("failed to list inspections", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list inspections")
		return
	}

	out := make([]inspectionSummaryJSON, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, inspectionSummaryJSON{
			ID:              sum.ID,
			CarID:           sum.CarID,
			TotalDamageCost: sum.TotalDamageCost,
			CreatedAt:       sum.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type inspectionDetailJSON struct {
	ID              string              `json:"id"`
	CarID           int64               `json:"car_id"`
	BookingID       *int64              `json:"booking_id,omitempty"`
	Report          domain.DamageReport `json:"report"`
	TotalDamageCost float64             `json:"total_damage_cost"`
	SavedImages     savedImages         `json:"saved_images"`
	CreatedAt       time.Time           `json:"created_at"`
}

func (s *Server) handleGetInspection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	insp, err := s.inspections.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get inspection", "inspection_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get inspection")
		return
	}
	if insp == nil {
		writeError(w, http.StatusNotFound, "inspection not found")
		return
	}

	writeJSON(w, http.StatusOK, inspectionDetailJSON{
		ID:              insp.ID,
		CarID:           insp.CarID,
		BookingID:       insp.BookingID,
		Report:          insp.Report,
		TotalDamageCost: insp.TotalDamageCost,
		SavedImages: savedImages{
			Before:  emptyIfNil(insp.BeforeImages),
			After:   emptyIfNil(insp.AfterImages),
			Bounded: emptyIfNil(insp.BoundedImages),
		},
		CreatedAt: insp.CreatedAt,
	})
}
