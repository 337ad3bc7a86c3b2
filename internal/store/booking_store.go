package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dbeaufort/fleetlens/internal/domain"
)

type BookingStore struct {
	db *sql.DB
}

func NewBookingStore(db *sql.DB) *BookingStore {
	return &BookingStore{db: db}
}

func (s *BookingStore) Create(ctx context.Context, carID int64, start time.Time, end *time.Time, notes string) (*domain.Booking, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings (car_id, start_date, end_date, status, notes)
		VALUES (?, ?, ?, ?, ?)
	`, carID, start, end, string(domain.BookingPending), notes)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *BookingStore) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	booking := &domain.Booking{}
	var end sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, car_id, start_date, end_date, status, inspection_id, notes, created_at, updated_at
		FROM bookings WHERE id = ?
	`, id).Scan(&booking.ID, &booking.CarID, &booking.StartDate, &end,
		&booking.Status, &booking.InspectionID, &booking.Notes, &booking.CreatedAt, &booking.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if end.Valid {
		booking.EndDate = &end.Time
	}

	return booking, nil
}

func (s *BookingStore) ListByCar(ctx context.Context, carID int64) ([]*domain.Booking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, car_id, start_date, end_date, status, inspection_id, notes, created_at, updated_at
		FROM bookings WHERE car_id = ? ORDER BY start_date DESC
	`, carID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

func (s *BookingStore) List(ctx context.Context) ([]*domain.Booking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, car_id, start_date, end_date, status, inspection_id, notes, created_at, updated_at
		FROM bookings ORDER BY start_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

func scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	for rows.Next() {
		booking := &domain.Booking{}
		var end sql.NullTime
		if err := rows.Scan(&booking.ID, &booking.CarID, &booking.StartDate, &end,
			&booking.Status, &booking.InspectionID, &booking.Notes, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		if end.Valid {
			booking.EndDate = &end.Time
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	return bookings, nil
}

// SetStatus transitions a booking. Completing a booking records the
// inspection that closed it.
func (s *BookingStore) SetStatus(ctx context.Context, id int64, status domain.BookingStatus, inspectionID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, inspection_id = ?, updated_at = datetime('now')
		WHERE id = ?
	`, string(status), inspectionID, id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("booking not found")
	}

	return nil
}

func (s *BookingStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM bookings WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("booking not found")
	}

	return nil
}
