// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists the bronze, silver, and gold layers in a single
// SQLite database. The pipeline treats the store as an already
// concurrent-safe key-addressable collaborator; all schema knowledge
// lives here.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/anomaly-refinery/pkg/types"
)

const dbFile = "refinery.db"

// Store manages the pipeline database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the pipeline SQLite database under
// cfg.DataDir and creates the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	// The busy timeout makes concurrent single-statement writes queue on
	// the writer lock instead of failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS bronze (
			id TEXT PRIMARY KEY,
			equipment_id TEXT,
			description TEXT,
			detection_date TEXT,
			section TEXT,
			source_file TEXT,
			source_row INTEGER,
			ingested_at TEXT,
			processed INTEGER NOT NULL DEFAULT 0,
			raw TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bronze_processed ON bronze(processed)`,
		`CREATE TABLE IF NOT EXISTS silver (
			id TEXT PRIMARY KEY,
			bronze_id TEXT NOT NULL REFERENCES bronze(id),
			equipment_id TEXT NOT NULL,
			description TEXT NOT NULL,
			equipment_name TEXT,
			section TEXT,
			detection_date TEXT,
			availability TEXT,
			reliability TEXT,
			process_safety TEXT,
			quality_score REAL,
			created_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_silver_equipment ON silver(equipment_id)`,
		`CREATE TABLE IF NOT EXISTS gold (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			title TEXT,
			description TEXT,
			equipment_id TEXT NOT NULL UNIQUE,
			equipment_name TEXT,
			section TEXT,
			availability INTEGER,
			reliability INTEGER,
			process_safety INTEGER,
			criticite INTEGER,
			level TEXT,
			confidence TEXT,
			status TEXT,
			origin TEXT,
			detection_date TEXT,
			created_at TEXT,
			updated_at TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// LayerCounts holds per-layer record counts for the status command.
type LayerCounts struct {
	Bronze            int
	BronzeUnprocessed int
	Silver            int
	Gold              int
}

// Counts returns record counts for every layer.
func (s *Store) Counts(ctx context.Context) (LayerCounts, error) {
	var c LayerCounts
	queries := []struct {
		query string
		dest  *int
	}{
		{`SELECT count(*) FROM bronze`, &c.Bronze},
		{`SELECT count(*) FROM bronze WHERE processed = 0`, &c.BronzeUnprocessed},
		{`SELECT count(*) FROM silver`, &c.Silver},
		{`SELECT count(*) FROM gold`, &c.Gold},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return LayerCounts{}, fmt.Errorf("counting records: %w", err)
		}
	}
	return c, nil
}
