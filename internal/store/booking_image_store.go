package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbeaufort/fleetlens/internal/domain"
)

type BookingImageStore struct {
	db *sql.DB
}

func NewBookingImageStore(db *sql.DB) *BookingImageStore {
	return &BookingImageStore{db: db}
}

func (s *BookingImageStore) Create(ctx context.Context, bookingID int64, state domain.ImageState, path, angle string) (*domain.BookingImage, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO booking_images (booking_id, state, path, angle) VALUES (?, ?, ?, ?)
	`, bookingID, string(state), path, angle)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking image: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	img := &domain.BookingImage{}
	err = s.db.QueryRowContext(ctx, `
		SELECT id, booking_id, state, path, angle, created_at FROM booking_images WHERE id = ?
	`, id).Scan(&img.ID, &img.BookingID, &img.State, &img.Path, &img.Angle, &img.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking image: %w", err)
	}

	return img, nil
}

// ListByBooking returns a booking's images for one state, in upload order.
// Order matters: the position in this list is the image index the damage
// report refers to.
func (s *BookingImageStore) ListByBooking(ctx context.Context, bookingID int64, state domain.ImageState) ([]*domain.BookingImage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, booking_id, state, path, angle, created_at
		FROM booking_images WHERE booking_id = ? AND state = ? ORDER BY id ASC
	`, bookingID, string(state))
	if err != nil {
		return nil, fmt.Errorf("failed to list booking images: %w", err)
	}
	defer rows.Close()

	var images []*domain.BookingImage
	for rows.Next() {
		img := &domain.BookingImage{}
		if err := rows.Scan(&img.ID, &img.BookingID, &img.State, &img.Path, &img.Angle, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan booking image: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating booking images: %w", err)
	}

	return images, nil
}

func (s *BookingImageStore) DeleteByBooking(ctx context.Context, bookingID int64) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM booking_images WHERE booking_id = ?
	`, bookingID); err != nil {
		return fmt.Errorf("failed to delete booking images: %w", err)
	}
	return nil
}
