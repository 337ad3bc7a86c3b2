package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbeaufort/fleetlens/internal/domain"
)

type CarStore struct {
	db *sql.DB
}

func NewCarStore(db *sql.DB) *CarStore {
	return &CarStore{db: db}
}

func (s *CarStore) Create(ctx context.Context, car *domain.Car) (*domain.Car, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO cars (name, make, model, year, color, vin, license_plate, mileage, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, car.Name, car.Make, car.Model, car.Year, car.Color,
		nullIfEmpty(car.VIN), nullIfEmpty(car.LicensePlate), car.Mileage, string(car.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to create car: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *CarStore) GetByID(ctx context.Context, id int64) (*domain.Car, error) {
	car := &domain.Car{}
	var vin, plate sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, make, model, year, color, vin, license_plate, mileage, status, created_at, updated_at
		FROM cars WHERE id = ?
	`, id).Scan(&car.ID, &car.Name, &car.Make, &car.Model, &car.Year, &car.Color,
		&vin, &plate, &car.Mileage, &car.Status, &car.CreatedAt, &car.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get car: %w", err)
	}
	car.VIN = vin.String
	car.LicensePlate = plate.String

	return car, nil
}

func (s *CarStore) List(ctx context.Context) ([]*domain.Car, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, make, model, year, color, vin, license_plate, mileage, status, created_at, updated_at
		FROM cars ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}
	defer rows.Close()

	var cars []*domain.Car
	for rows.Next() {
		car := &domain.Car{}
		var vin, plate sql.NullString
		if err := rows.Scan(&car.ID, &car.Name, &car.Make, &car.Model, &car.Year, &car.Color,
			&vin, &plate, &car.Mileage, &car.Status, &car.CreatedAt, &car.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan car: %w", err)
		}
		car.VIN = vin.String
		car.LicensePlate = plate.String
		cars = append(cars, car)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cars: %w", err)
	}

	return cars, nil
}

func (s *CarStore) Update(ctx context.Context, car *domain.Car) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cars
		SET name = ?, make = ?, model = ?, year = ?, color = ?, vin = ?,
		    license_plate = ?, mileage = ?, status = ?, updated_at = datetime('now')
		WHERE id = ?
	`, car.Name, car.Make, car.Model, car.Year, car.Color,
		nullIfEmpty(car.VIN), nullIfEmpty(car.LicensePlate), car.Mileage, string(car.Status), car.ID)
	if err != nil {
		return fmt.Errorf("failed to update car: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("car not found")
	}

	return nil
}

func (s *CarStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM cars WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete car: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("car not found")
	}

	return nil
}

// nullIfEmpty maps "" to NULL so UNIQUE columns accept multiple unset values.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
