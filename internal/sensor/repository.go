package sensor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reading is one soil moisture sample for a zone.
//
// Moisture is a percentage (0-100). SoilTempC is optional; not every sensor
// reports temperature.
type Reading struct {
	ID         string    `json:"id"`
	ZoneID     string    `json:"zone_id"`
	Moisture   float64   `json:"moisture"`
	SoilTempC  *float64  `json:"soil_temp_c,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Age returns how long ago the reading was captured.
func (r *Reading) Age(now time.Time) time.Duration {
	return now.Sub(r.CapturedAt)
}

// Repository defines the interface for reading persistence operations.
type Repository interface {
	// Create stores a new reading. The ID is assigned when empty.
	// Returns ErrInvalidMoisture for values outside 0-100.
	Create(ctx context.Context, reading *Reading) error

	// LatestByZone retrieves the zone's most recent reading.
	// Returns ErrNoReadings when the zone has none.
	LatestByZone(ctx context.Context, zoneID string) (*Reading, error)

	// RecentByZone lists readings captured at or after since, newest first.
	RecentByZone(ctx context.Context, zoneID string, since time.Time) ([]Reading, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create stores a new reading.
func (r *SQLiteRepository) Create(ctx context.Context, reading *Reading) error {
	if reading.Moisture < 0 || reading.Moisture > 100 {
		return fmt.Errorf("%w: %.2f", ErrInvalidMoisture, reading.Moisture)
	}
	if reading.ID == "" {
		reading.ID = uuid.New().String()
	}
	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sensor_readings (id, zone_id, moisture, soil_temp_c, captured_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	var soilTemp sql.NullFloat64
	if reading.SoilTempC != nil {
		soilTemp = sql.NullFloat64{Float64: *reading.SoilTempC, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		reading.ID,
		reading.ZoneID,
		reading.Moisture,
		soilTemp,
		reading.CapturedAt.UTC().Format(time.RFC3339),
		reading.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}

	return nil
}

// LatestByZone retrieves the zone's most recent reading.
func (r *SQLiteRepository) LatestByZone(ctx context.Context, zoneID string) (*Reading, error) {
	query := `
		SELECT id, zone_id, moisture, soil_temp_c, captured_at, created_at
		FROM sensor_readings
		WHERE zone_id = ?
		ORDER BY captured_at DESC
		LIMIT 1`

	reading, err := scanReading(r.db.QueryRowContext(ctx, query, zoneID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoReadings
		}
		return nil, fmt.Errorf("querying latest reading: %w", err)
	}
	return reading, nil
}

// RecentByZone lists readings captured at or after since, newest first.
func (r *SQLiteRepository) RecentByZone(ctx context.Context, zoneID string, since time.Time) ([]Reading, error) {
	query := `
		SELECT id, zone_id, moisture, soil_temp_c, captured_at, created_at
		FROM sensor_readings
		WHERE zone_id = ? AND captured_at >= ?
		ORDER BY captured_at DESC`

	rows, err := r.db.QueryContext(ctx, query, zoneID, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows close

	var readings []Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reading row: %w", err)
		}
		readings = append(readings, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reading rows: %w", err)
	}

	return readings, nil
}

// scanner abstracts sql.Row and sql.Rows for scanReading.
type scanner interface {
	Scan(dest ...any) error
}

// scanReading converts a database row into a Reading.
func scanReading(row scanner) (*Reading, error) {
	var reading Reading
	var soilTemp sql.NullFloat64
	var capturedAt, createdAt string

	err := row.Scan(
		&reading.ID,
		&reading.ZoneID,
		&reading.Moisture,
		&soilTemp,
		&capturedAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if soilTemp.Valid {
		reading.SoilTempC = &soilTemp.Float64
	}
	if reading.CapturedAt, err = time.Parse(time.RFC3339, capturedAt); err != nil {
		return nil, fmt.Errorf("parsing captured_at: %w", err)
	}
	if reading.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &reading, nil
}
