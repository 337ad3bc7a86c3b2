package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dbeaufort/fleetlens/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	d, err := sql.Open("sqlite", "file::memory:?cache=shared&mode=rwc&_journal_mode=WAL&_foreign_keys=on")
	require.NoError(t, err)

	// Create tables manually for test
	_, err = d.Exec(`
		CREATE TABLE cars (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			name          TEXT    NOT NULL,
			make          TEXT    NOT NULL,
			model         TEXT    NOT NULL,
			year          INTEGER NOT NULL,
			color         TEXT    NOT NULL DEFAULT '',
			vin           TEXT    UNIQUE,
			license_plate TEXT    UNIQUE,
			mileage       INTEGER NOT NULL DEFAULT 0,
			status        TEXT    NOT NULL DEFAULT 'available',
			created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
			updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE bookings (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			car_id        INTEGER NOT NULL REFERENCES cars(id) ON DELETE CASCADE,
			start_date    DATETIME NOT NULL,
			end_date      DATETIME,
			status        TEXT    NOT NULL DEFAULT 'pending',
			inspection_id TEXT    NOT NULL DEFAULT '',
			notes         TEXT    NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
			updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE booking_images (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			booking_id INTEGER NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
			state      TEXT    NOT NULL,
			path       TEXT    NOT NULL,
			angle      TEXT    NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE inspections (
			id                TEXT PRIMARY KEY,
			car_id            INTEGER NOT NULL REFERENCES cars(id) ON DELETE CASCADE,
			booking_id        INTEGER REFERENCES bookings(id) ON DELETE SET NULL,
			damage_report     TEXT    NOT NULL,
			total_damage_cost REAL    NOT NULL DEFAULT 0,
			before_images     TEXT    NOT NULL DEFAULT '[]',
			after_images      TEXT    NOT NULL DEFAULT '[]',
			bounded_images    TEXT    NOT NULL DEFAULT '[]',
			created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
		);
	`)
	require.NoError(t, err)

	t.Cleanup(func() { _ = d.Close() })
	return d
}

func createTestCar(t *testing.T, d *sql.DB) *domain.Car {
	t.Helper()
	car, err := NewCarStore(d).Create(context.Background(), &domain.Car{
		Name:   "Toyota Corolla",
		Make:   "Toyota",
		Model:  "SE",
		Year:   2020,
		Color:  "Silver",
		Status: domain.CarAvailable,
	})
	require.NoError(t, err)
	return car
}

func TestCarStoreCreateAndGet(t *testing.T) {
	d := openTestDB(t)

	car := createTestCar(t, d)
	assert.NotZero(t, car.ID)
	assert.Equal(t, "Toyota Corolla", car.Name)
	assert.Equal(t, domain.CarAvailable, car.Status)

	retrieved, err := NewCarStore(d).GetByID(context.Background(), car.ID)
	require.NoError(t, err)
	assert.Equal(t, car.ID, retrieved.ID)
	assert.Equal(t, 2020, retrieved.Year)
}

func TestCarStoreGetMissing(t *testing.T) {
	d := openTestDB(t)

	car, err := NewCarStore(d).GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, car)
}

func TestCarStoreUpdate(t *testing.T) {
	d := openTestDB(t)
	store := NewCarStore(d)

	car := createTestCar(t, d)
	car.Status = domain.CarRented
	car.Mileage = 42000

	require.NoError(t, store.Update(context.Background(), car))

	updated, err := store.GetByID(context.Background(), car.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CarRented, updated.Status)
	assert.Equal(t, 42000, updated.Mileage)
}

func TestBookingStoreLifecycle(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	car := createTestCar(t, d)
	store := NewBookingStore(d)

	booking, err := store.Create(ctx, car.ID, time.Now(), nil, "weekend rental")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, booking.Status)
	assert.Nil(t, booking.EndDate)

	require.NoError(t, store.SetStatus(ctx, booking.ID, domain.BookingCompleted, "insp-123"))

	updated, err := store.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCompleted, updated.Status)
	assert.Equal(t, "insp-123", updated.InspectionID)
}

func TestBookingImageStoreOrder(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	car := createTestCar(t, d)
	booking, err := NewBookingStore(d).Create(ctx, car.ID, time.Now(), nil, "")
	require.NoError(t, err)

	store := NewBookingImageStore(d)
	_, err = store.Create(ctx, booking.ID, domain.ImageAfter, "temp/a.jpg", "front")
	require.NoError(t, err)
	_, err = store.Create(ctx, booking.ID, domain.ImageAfter, "temp/b.jpg", "rear")
	require.NoError(t, err)
	_, err = store.Create(ctx, booking.ID, domain.ImageBefore, "temp/c.jpg", "front")
	require.NoError(t, err)

	after, err := store.ListByBooking(ctx, booking.ID, domain.ImageAfter)
	require.NoError(t, err)
	require.Len(t, after, 2)
	// Upload order must be preserved: index positions feed image_index.
	assert.Equal(t, "temp/a.jpg", after[0].Path)
	assert.Equal(t, "temp/b.jpg", after[1].Path)

	before, err := store.ListByBooking(ctx, booking.ID, domain.ImageBefore)
	require.NoError(t, err)
	assert.Len(t, before, 1)
}

func TestInspectionStoreCreateAndGet(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	car := createTestCar(t, d)
	store := NewInspectionStore(d)

	report := domain.DamageReport{
		NewDamage: []domain.DamageItem{{
			CarPart:           "rear bumper",
			DamageType:        "dent",
			Severity:          "major",
			RecommendedAction: "repair",
			EstimatedCostUSD:  450,
			ImageIndex:        2,
			BoundingBox:       domain.BoundingBox{XMinPct: 0.1, YMinPct: 0.1, XMaxPct: 0.5, YMaxPct: 0.5},
		}},
		TotalEstimatedCostUSD: 450,
		Summary:               "1 new damage detected on rear bumper",
	}

	created, err := store.Create(ctx, &domain.Inspection{
		ID:              "insp-abc",
		CarID:           car.ID,
		Report:          report,
		TotalDamageCost: 450,
		BeforeImages:    []string{"2026-09-01/insp-abc/before_1.jpg"},
		AfterImages:     []string{"2026-09-01/insp-abc/after_1.jpg", "2026-09-01/insp-abc/after_2.jpg"},
		BoundedImages:   []string{"2026-09-01/insp-abc/bounded_2.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "insp-abc", created.ID)

	got, err := store.GetByID(ctx, "insp-abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 450.0, got.TotalDamageCost)
	require.Len(t, got.Report.NewDamage, 1)
	assert.Equal(t, "rear bumper", got.Report.NewDamage[0].CarPart)
	assert.Equal(t, 2, got.Report.NewDamage[0].ImageIndex)
	assert.Len(t, got.AfterImages, 2)
	assert.Equal(t, []string{"2026-09-01/insp-abc/bounded_2.jpg"}, got.BoundedImages)
}

func TestInspectionStoreGetMissing(t *testing.T) {
	d := openTestDB(t)

	got, err := NewInspectionStore(d).GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInspectionStoreList(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	car := createTestCar(t, d)
	store := NewInspectionStore(d)

	for _, id := range []string{"insp-1", "insp-2"} {
		_, err := store.Create(ctx, &domain.Inspection{
			ID:     id,
			CarID:  car.ID,
			Report: domain.DamageReport{NewDamage: []domain.DamageItem{}},
		})
		require.NoError(t, err)
	}

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 2)

	byCar, err := store.ListByCar(ctx, car.ID)
	require.NoError(t, err)
	assert.Len(t, byCar, 2)
}
