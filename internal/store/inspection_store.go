package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dbeaufort/fleetlens/internal/domain"
)

type InspectionStore struct {
	db *sql.DB
}

func NewInspectionStore(db *sql.DB) *InspectionStore {
	return &InspectionStore{db: db}
}

// Create persists a completed inspection. The report and path lists are
// stored as JSON text columns; the record is never updated afterwards.
func (s *InspectionStore) Create(ctx context.Context, insp *domain.Inspection) (*domain.Inspection, error) {
	report, err := json.Marshal(insp.Report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode damage report: %w", err)
	}
	before, err := json.Marshal(emptyIfNil(insp.BeforeImages))
	if err != nil {
		return nil, fmt.Errorf("failed to encode before image paths: %w", err)
	}
	after, err := json.Marshal(emptyIfNil(insp.AfterImages))
	if err != nil {
		return nil, fmt.Errorf("failed to encode after image paths: %w", err)
	}
	bounded, err := json.Marshal(emptyIfNil(insp.BoundedImages))
	if err != nil {
		return nil, fmt.Errorf("failed to encode bounded image paths: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inspections (id, car_id, booking_id, damage_report, total_damage_cost, before_images, after_images, bounded_images)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, insp.ID, insp.CarID, insp.BookingID, string(report), insp.TotalDamageCost,
		string(before), string(after), string(bounded))
	if err != nil {
		return nil, fmt.Errorf("failed to create inspection: %w", err)
	}

	return s.GetByID(ctx, insp.ID)
}

func (s *InspectionStore) GetByID(ctx context.Context, id string) (*domain.Inspection, error) {
	insp := &domain.Inspection{}
	var bookingID sql.NullInt64
	var report, before, after, bounded string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, car_id, booking_id, damage_report, total_damage_cost, before_images, after_images, bounded_images, created_at
		FROM inspections WHERE id = ?
	`, id).Scan(&insp.ID, &insp.CarID, &bookingID, &report, &insp.TotalDamageCost,
		&before, &after, &bounded, &insp.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}

	if bookingID.Valid {
		insp.BookingID = &bookingID.Int64
	}
	if err := json.Unmarshal([]byte(report), &insp.Report); err != nil {
		return nil, fmt.Errorf("failed to decode damage report: %w", err)
	}
	if err := json.Unmarshal([]byte(before), &insp.BeforeImages); err != nil {
		return nil, fmt.Errorf("failed to decode before image paths: %w", err)
	}
	if err := json.Unmarshal([]byte(after), &insp.AfterImages); err != nil {
		return nil, fmt.Errorf("failed to decode after image paths: %w", err)
	}
	if err := json.Unmarshal([]byte(bounded), &insp.BoundedImages); err != nil {
		return nil, fmt.Errorf("failed to decode bounded image paths: %w", err)
	}

	return insp, nil
}

// InspectionSummary is the list-view projection: identity and cost without
// the full report payload.
type InspectionSummary struct {
	ID              string
	CarID           int64
	TotalDamageCost float64
	CreatedAt       string
}

func (s *InspectionStore) List(ctx context.Context) ([]*InspectionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, car_id, total_damage_cost, created_at
		FROM inspections ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	defer rows.Close()

	var summaries []*InspectionSummary
	for rows.Next() {
		sum := &InspectionSummary{}
		if err := rows.Scan(&sum.ID, &sum.CarID, &sum.TotalDamageCost, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inspections: %w", err)
	}

	return summaries, nil
}

func (s *InspectionStore) ListByCar(ctx context.Context, carID int64) ([]*InspectionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, car_id, total_damage_cost, created_at
		FROM inspections WHERE car_id = ? ORDER BY created_at DESC
	`, carID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	defer rows.Close()

	var summaries []*InspectionSummary
	for rows.Next() {
		sum := &InspectionSummary{}
		if err := rows.Scan(&sum.ID, &sum.CarID, &sum.TotalDamageCost, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inspections: %w", err)
	}

	return summaries, nil
}

// emptyIfNil keeps stored path lists as [] rather than null.
func emptyIfNil(paths []string) []string {
	if paths == nil {
		return []string{}
	}
	return paths
}
