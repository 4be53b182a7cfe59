package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/lapdelta/internal/telemetry"
	"github.com/banshee-data/lapdelta/internal/units"
)

// ErrLapNotFound is returned when no lap matches an id or label.
var ErrLapNotFound = errors.New("lap not found")

// Lap is one stored lap without its samples.
type Lap struct {
	ID         string  `json:"lap_id"`
	Label      string  `json:"label"`
	LapTime    float64 `json:"lap_time_s"`
	SpeedUnits string  `json:"speed_units"`
	Source     string  `json:"source"`
	Samples    int     `json:"samples"`
	CreatedAt  float64 `json:"created_at"`
}

// InsertLap stores a trace and returns the new lap id. Speeds are stored as
// given, in speedUnits; LoadTrace converts back to m/s.
func (db *DB) InsertLap(ctx context.Context, trace telemetry.Trace, speedUnits, source string) (string, error) {
	speedUnits = units.Normalize(speedUnits)
	if speedUnits == "" {
		speedUnits = units.MPS
	}
	if !units.IsValid(speedUnits) {
		return "", fmt.Errorf("invalid speed units %q (valid: %s)", speedUnits, units.GetValidUnitsString())
	}
	if err := trace.Validate(); err != nil {
		return "", err
	}

	id := uuid.New().String()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO laps (lap_id, label, lap_time_s, speed_units, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, trace.Label, trace.LapTime, speedUnits, source, db.nowUnix(),
	); err != nil {
		return "", fmt.Errorf("failed to insert lap: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO lap_samples (lap_id, seq, distance_m, speed, raw_time_s) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()
	for i, s := range trace.Samples {
		if _, err := stmt.ExecContext(ctx, id, i, s.Distance, s.Speed, s.RawTime); err != nil {
			return "", fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit lap: %w", err)
	}
	return id, nil
}

// GetLap returns the lap with the given id, or the most recent lap with
// that label.
func (db *DB) GetLap(ctx context.Context, idOrLabel string) (*Lap, error) {
	var lap Lap
	err := db.QueryRowContext(ctx, `
		SELECT l.lap_id, l.label, l.lap_time_s, l.speed_units, l.source, l.created_at,
			(SELECT COUNT(*) FROM lap_samples s WHERE s.lap_id = l.lap_id)
		FROM laps l
		WHERE l.lap_id = ? OR l.label = ?
		ORDER BY (l.lap_id = ?) DESC, l.created_at DESC
		LIMIT 1`,
		idOrLabel, idOrLabel, idOrLabel,
	).Scan(&lap.ID, &lap.Label, &lap.LapTime, &lap.SpeedUnits, &lap.Source, &lap.CreatedAt, &lap.Samples)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrLapNotFound, idOrLabel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query lap %s: %w", idOrLabel, err)
	}
	return &lap, nil
}

// LoadTrace implements telemetry.Source. Speeds are converted to m/s.
func (db *DB) LoadTrace(ctx context.Context, idOrLabel string) (telemetry.Trace, error) {
	lap, err := db.GetLap(ctx, idOrLabel)
	if err != nil {
		return telemetry.Trace{}, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT distance_m, speed, raw_time_s FROM lap_samples WHERE lap_id = ? ORDER BY seq`, lap.ID)
	if err != nil {
		return telemetry.Trace{}, fmt.Errorf("failed to query samples for lap %s: %w", lap.ID, err)
	}
	defer rows.Close()

	trace := telemetry.Trace{Label: lap.Label, LapTime: lap.LapTime, Samples: make([]telemetry.RawSample, 0, lap.Samples)}
	for rows.Next() {
		var s telemetry.RawSample
		if err := rows.Scan(&s.Distance, &s.Speed, &s.RawTime); err != nil {
			return telemetry.Trace{}, fmt.Errorf("failed to scan sample: %w", err)
		}
		s.Speed = units.ConvertToMPS(s.Speed, lap.SpeedUnits)
		trace.Samples = append(trace.Samples, s)
	}
	if err := rows.Err(); err != nil {
		return telemetry.Trace{}, fmt.Errorf("failed to read samples for lap %s: %w", lap.ID, err)
	}
	return trace, nil
}

// ListLaps returns all stored laps, newest first.
func (db *DB) ListLaps(ctx context.Context) ([]Lap, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT l.lap_id, l.label, l.lap_time_s, l.speed_units, l.source, l.created_at,
			(SELECT COUNT(*) FROM lap_samples s WHERE s.lap_id = l.lap_id)
		FROM laps l
		ORDER BY l.created_at DESC, l.label`)
	if err != nil {
		return nil, fmt.Errorf("failed to list laps: %w", err)
	}
	defer rows.Close()

	var laps []Lap
	for rows.Next() {
		var lap Lap
		if err := rows.Scan(&lap.ID, &lap.Label, &lap.LapTime, &lap.SpeedUnits, &lap.Source, &lap.CreatedAt, &lap.Samples); err != nil {
			return nil, fmt.Errorf("failed to scan lap: %w", err)
		}
		laps = append(laps, lap)
	}
	return laps, rows.Err()
}

// DeleteLap removes a lap and its samples.
func (db *DB) DeleteLap(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM laps WHERE lap_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lap %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrLapNotFound, id)
	}
	return nil
}
