package domain

import "time"

type CarStatus string

const (
	CarAvailable   CarStatus = "available"
	CarRented      CarStatus = "rented"
	CarMaintenance CarStatus = "maintenance"
	CarRetired     CarStatus = "retired"
)

func (s CarStatus) IsValid() bool {
	switch s {
	case CarAvailable, CarRented, CarMaintenance, CarRetired:
		return true
	}
	return false
}

type Car struct {
	ID           int64
	Name         string
	Make         string
	Model        string
	Year         int
	Color        string
	VIN          string
	LicensePlate string
	Mileage      int
	Status       CarStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingPending, BookingActive, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID           int64
	CarID        int64
	StartDate    time.Time
	EndDate      *time.Time
	Status       BookingStatus
	InspectionID string
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ImageState tags a booking image as taken at pickup or at return.
type ImageState string

const (
	ImageBefore ImageState = "before"
	ImageAfter  ImageState = "after"
)

type BookingImage struct {
	ID        int64
	BookingID int64
	State     ImageState
	Path      string
	Angle     string
	CreatedAt time.Time
}

// Inspection is the durable record of one before/after comparison. Immutable
// once created; there is no update path for the report.
type Inspection struct {
	ID              string
	CarID           int64
	BookingID       *int64
	Report          DamageReport
	TotalDamageCost float64
	BeforeImages    []string
	AfterImages     []string
	BoundedImages   []string
	CreatedAt       time.Time
}
