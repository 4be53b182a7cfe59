package db

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/lapdelta/internal/delta"
)

// Run is one logged delta computation.
type Run struct {
	ID             string  `json:"run_id"`
	ReferenceLapID string  `json:"reference_lap_id"`
	TargetLapID    string  `json:"target_lap_id"`
	ConfigJSON     string  `json:"config_json"`
	FinalDelta     float64 `json:"final_delta_s"`
	MaxGap         float64 `json:"max_gap_s"`
	GridPoints     int     `json:"grid_points"`
	Diagnostics    int     `json:"diagnostics"`
	CreatedAt      float64 `json:"created_at"`
}

// RecordRun logs a finished computation and returns the run id.
func (db *DB) RecordRun(ctx context.Context, refLapID, tgtLapID string, res *delta.Result) (string, error) {
	cfg, err := json.Marshal(res.Config)
	if err != nil {
		return "", fmt.Errorf("failed to encode run config: %w", err)
	}

	maxGap := 0.0
	for _, d := range res.Delta.Delta {
		maxGap = math.Max(maxGap, math.Abs(d))
	}

	id := uuid.New().String()
	_, err = db.ExecContext(ctx, `
		INSERT INTO delta_runs (
			run_id, reference_lap_id, target_lap_id, config_json,
			final_delta_s, max_gap_s, grid_points, diagnostics, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, refLapID, tgtLapID, string(cfg),
		res.Delta.Final(), maxGap, res.Delta.Len(), len(res.Diagnostics), db.nowUnix(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT run_id, reference_lap_id, target_lap_id, config_json,
			final_delta_s, max_gap_s, grid_points, diagnostics, created_at
		FROM delta_runs
		ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.ReferenceLapID, &r.TargetLapID, &r.ConfigJSON,
			&r.FinalDelta, &r.MaxGap, &r.GridPoints, &r.Diagnostics, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// EngineConfig decodes the stored engine options.
func (r Run) EngineConfig() (delta.Config, error) {
	var cfg delta.Config
	if err := json.Unmarshal([]byte(r.ConfigJSON), &cfg); err != nil {
		return delta.Config{}, fmt.Errorf("failed to decode config of run %s: %w", r.ID, err)
	}
	return cfg, nil
}
