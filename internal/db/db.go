// Package db persists selective evaluation runs in SQLite: run settings,
// the per-pass coverage metric history, and calibrated coverage reports.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// LatestSchemaVersion is the highest migration shipped in migrations/.
const LatestSchemaVersion = 2

// DB wraps the SQLite handle shared by the stores.
type DB struct {
	*sql.DB
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// OpenDB opens the database at path and applies the connection PRAGMAs
// without touching the schema.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single connection keeps per-connection PRAGMAs in force.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return &DB{sqlDB}, nil
}

// NewDB opens the database at path and migrates it to the latest schema.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Runs returns a RunStore over this database.
func (db *DB) Runs() *RunStore { return NewRunStore(db.DB) }

// Passes returns a PassStore over this database.
func (db *DB) Passes() *PassStore { return NewPassStore(db.DB) }

// Reports returns a ReportStore over this database.
func (db *DB) Reports() *ReportStore { return NewReportStore(db.DB) }
