package web

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dbeaufort/fleetlens/internal/domain"
	"github.com/dbeaufort/fleetlens/internal/inspect"
	"github.com/dbeaufort/fleetlens/internal/intake"
)

// maxInspectForm bounds the in-memory portion of a multipart parse; larger
// bodies spill to disk. Per-image limits are enforced downstream.
const maxInspectForm = 64 << 20 // 64 MiB

type savedImages struct {
	Before  []string `json:"before"`
	After   []string `json:"after"`
	Bounded []string `json:"bounded"`
}

type inspectionResponse struct {
	Success      bool                `json:"success"`
	InspectionID string              `json:"inspection_id"`
	Report       domain.DamageReport `json:"report"`
	SavedImages  savedImages         `json:"saved_images"`
}

func inspectionResult(insp *domain.Inspection) inspectionResponse {
	return inspectionResponse{
		Success:      true,
		InspectionID: insp.ID,
		Report:       insp.Report,
		SavedImages: savedImages{
			Before:  emptyIfNil(insp.BeforeImages),
			After:   emptyIfNil(insp.AfterImages),
			Bounded: emptyIfNil(insp.BoundedImages),
		},
	}
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxInspectForm); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer s.discardForm(r)

	carID, err := strconv.ParseInt(r.FormValue("car_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "car_id is required")
		return
	}
	car, err := s.cars.GetByID(r.Context(), carID)
	if err != nil {
		s.logger.Error("failed to load car", "car_id", carID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load car")
		return
	}
	if car == nil {
		writeError(w, http.StatusNotFound, "car not found")
		return
	}

	before, closeBefore, err := formImages(r, "before")
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read before images")
		return
	}
	defer closeBefore()
	after, closeAfter, err := formImages(r, "after")
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read after images")
		return
	}
	defer closeAfter()

	insp, err := s.inspector.Run(r.Context(), inspect.Request{
		CarID:  carID,
		Before: before,
		After:  after,
	})
	if err != nil {
		s.writeInspectError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inspectionResult(insp))
}

func (s *Server) handleInspectBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	if err := r.ParseMultipartForm(maxInspectForm); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer s.discardForm(r)

	after, closeAfter, err := formImages(r, "after")
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read after images")
		return
	}
	defer closeAfter()

	insp, err := s.inspector.RunForBooking(r.Context(), bookingID, after)
	if err != nil {
		s.writeInspectError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inspectionResult(insp))
}

// writeInspectError maps pipeline errors onto HTTP statuses. User-correctable
// problems carry their reason; everything else stays generic.
func (s *Server) writeInspectError(w http.ResponseWriter, err error) {
	var verr *intake.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}
	if errors.Is(err, inspect.ErrBookingNotFound) {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}

	s.logger.Error("inspection failed", "error", err)

	var aerr *inspect.AnalysisError
	if errors.As(err, &aerr) {
		writeError(w, http.StatusBadGateway, "damage analysis failed")
		return
	}
	writeError(w, http.StatusInternalServerError, "inspection failed")
}

// formImages opens every file uploaded under the given multipart field, in
// order. The returned func closes them all; call it once handling is done.
func formImages(r *http.Request, field string) ([]intake.File, func(), error) {
	if r.MultipartForm == nil {
		return nil, func() {}, nil
	}

	var files []intake.File
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	for _, fh := range r.MultipartForm.File[field] {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		opened = append(opened, f)
		files = append(files, intake.File{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Reader:      f,
		})
	}

	return files, closeAll, nil
}

// discardForm removes the multipart parser's disk spill files.
func (s *Server) discardForm(r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		s.logger.Warn("failed to remove multipart temp files", "error", err)
	}
}

// emptyIfNil keeps JSON list fields as [] rather than null.
func emptyIfNil(paths []string) []string {
	if paths == nil {
		return []string{}
	}
	return paths
}
