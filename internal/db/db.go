// Package db is the SQLite lap store: imported laps, their samples and a log
// of delta runs.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/lapdelta/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsFS returns the embedded schema migrations.
func MigrationsFS() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		// Unreachable: the directory is embedded at build time.
		panic(err)
	}
	return sub
}

type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// NewDB opens (or creates) the database at path and applies any pending
// migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(MigrationsFS()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenDB opens the database without touching the schema. Used by the
// migrate subcommand.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// A single connection keeps PRAGMAs and :memory: databases consistent.
	sqlDB.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return &DB{DB: sqlDB, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the clock used for created_at stamps.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}

func (db *DB) nowUnix() float64 {
	return float64(db.clock.Now().UnixNano()) / 1e9
}
