// Package web is the HTTP surface: a JSON API over the inspection pipeline
// and the fleet's cars and bookings.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dbeaufort/fleetlens/internal/imagestore"
	"github.com/dbeaufort/fleetlens/internal/inspect"
	"github.com/dbeaufort/fleetlens/internal/staging"
	"github.com/dbeaufort/fleetlens/internal/store"
)

type Server struct {
	inspector     *inspect.Service
	cars          *store.CarStore
	bookings      *store.BookingStore
	bookingImages *store.BookingImageStore
	inspections   *store.InspectionStore
	images        imagestore.Store
	area          *staging.Area
	backend       string
	mux           *http.ServeMux
	logger        *slog.Logger
}

type Deps struct {
	Inspector     *inspect.Service
	Cars          *store.CarStore
	Bookings      *store.BookingStore
	BookingImages *store.BookingImageStore
	Inspections   *store.InspectionStore
	Images        imagestore.Store
	Area          *staging.Area
	VisionBackend string
	Logger        *slog.Logger
}

func NewServer(deps Deps) *Server {
	s := &Server{
		inspector:     deps.Inspector,
		cars:          deps.Cars,
		bookings:      deps.Bookings,
		bookingImages: deps.BookingImages,
		inspections:   deps.Inspections,
		images:        deps.Images,
		area:          deps.Area,
		backend:       deps.VisionBackend,
		mux:           http.NewServeMux(),
		logger:        deps.Logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /inspect", s.handleInspect)
	s.mux.HandleFunc("GET /inspections", s.handleListInspections)
	s.mux.HandleFunc("GET /inspections/{id}", s.handleGetInspection)

	s.mux.HandleFunc("GET /cars", s.handleListCars)
	s.mux.HandleFunc("POST /cars", s.handleCreateCar)
	s.mux.HandleFunc("GET /cars/{id}", s.handleGetCar)
	s.mux.HandleFunc("PUT /cars/{id}", s.handleUpdateCar)
	s.mux.HandleFunc("DELETE /cars/{id}", s.handleDeleteCar)

	s.mux.HandleFunc("GET /bookings", s.handleListBookings)
	s.mux.HandleFunc("POST /bookings", s.handleCreateBooking)
	s.mux.HandleFunc("GET /bookings/{id}", s.handleGetBooking)
	s.mux.HandleFunc("DELETE /bookings/{id}", s.handleDeleteBooking)
	s.mux.HandleFunc("POST /bookings/{id}/images", s.handleUploadBookingImages)
	s.mux.HandleFunc("POST /bookings/{id}/inspect", s.handleInspectBooking)

	s.mux.HandleFunc("GET /uploads/{path...}", s.handleGetImage)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:    addr,
		Handler: s,
		// Inspection requests hold the connection through a model round trip,
		// so the write timeout is generous.
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "ok",
		"vision_backend": s.backend,
	})
}
