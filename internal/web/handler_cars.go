package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dbeaufort/fleetlens/internal/domain"
)

type carPayload struct {
	Name         string `json:"name"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	Color        string `json:"color"`
	VIN          string `json:"vin"`
	LicensePlate string `json:"license_plate"`
	Mileage      int    `json:"mileage"`
	Status       string `json:"status"`
}

type carJSON struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	Color        string    `json:"color"`
	VIN          string    `json:"vin,omitempty"`
	LicensePlate string    `json:"license_plate,omitempty"`
	Mileage      int       `json:"mileage"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func carToJSON(car *domain.Car) carJSON {
	return carJSON{
		ID:           car.ID,
		Name:         car.Name,
		Make:         car.Make,
		Model:        car.Model,
		Year:         car.Year,
		Color:        car.Color,
		VIN:          car.VIN,
		LicensePlate: car.LicensePlate,
		Mileage:      car.Mileage,
		Status:       string(car.Status),
		CreatedAt:    car.CreatedAt,
		UpdatedAt:    car.UpdatedAt,
	}
}

// applyCarPayload validates the payload and copies it onto car. Status
// defaults to available when unset.
func applyCarPayload(car *domain.Car, p carPayload) string {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return "name is required"
	}
	if p.Make == "" || p.Model == "" {
		return "make and model are required"
	}
	if p.Year < 1950 || p.Year > time.Now().Year()+1 {
		return "year is out of range"
	}

	status := domain.CarStatus(p.Status)
	if p.Status == "" {
		status = domain.CarAvailable
	}
	if !status.IsValid() {
		return "invalid status"
	}

	car.Name = p.Name
	car.Make = p.Make
	car.Model = p.Model
	car.Year = p.Year
	car.Color = p.Color
	car.VIN = p.VIN
	car.LicensePlate = p.LicensePlate
	car.Mileage = p.Mileage
	car.Status = status
	return ""
}

func (s *Server) handleListCars(w http.ResponseWriter, r *http.Request) {
	cars, err := s.cars.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list cars", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list cars")
		return
	}

	out := make([]carJSON, 0, len(cars))
	for _, car := range cars {
		out = append(out, carToJSON(car))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCar(w http.ResponseWriter, r *http.Request) {
	var payload carPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	car := &domain.Car{}
	if msg := applyCarPayload(car, payload); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := s.cars.Create(r.Context(), car)
	if err != nil {
		s.logger.Error("failed to create car", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create car")
		return
	}

	writeJSON(w, http.StatusCreated, carToJSON(created))
}

func (s *Server) handleGetCar(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid car id")
		return
	}

	car, err := s.cars.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get car", "car_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get car")
		return
	}
	if car == nil {
		writeError(w, http.StatusNotFound, "car not found")
		return
	}

	writeJSON(w, http.StatusOK, carToJSON(car))
}

func (s *Server) handleUpdateCar(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid car id")
		return
	}

	car, err := s.cars.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get car", "car_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get car")
		return
	}
	if car == nil {
		writeError(w, http.StatusNotFound, "car not found")
		return
	}

	var payload carPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := applyCarPayload(car, payload); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.cars.Update(r.Context(), car); err != nil {
		s.logger.Error("failed to update car", "car_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update car")
		return
	}

	updated, err := s.cars.GetByID(r.Context(), id)
	if err != nil || updated == nil {
		s.logger.Error("failed to reload car", "car_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update car")
		return
	}
	writeJSON(w, http.StatusOK, carToJSON(updated))
}

func (s *Server) handleDeleteCar(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid car id")
		return
	}

	car, err := s.cars.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get car", "car_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete car")
		return
	}
	if car == nil {
		writeError(w, http.StatusNotFound, "car not found")
		return
	}

	if err := s.cars.Delete(r.Context(), id); err != nil {
		s.logger.Error("failed to delete car", "car_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete car")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
