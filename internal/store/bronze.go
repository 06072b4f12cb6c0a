// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/anomaly-refinery/pkg/types"
)

// AppendBronze writes one raw landing record. Content fields are never
// updated afterwards; only MarkProcessed touches the row again. A missing
// ID is generated.
func (s *Store) AppendBronze(ctx context.Context, rec *types.BronzeRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.IngestedAt.IsZero() {
		rec.IngestedAt = time.Now().UTC()
	}

	rawJSON, err := json.Marshal(rec.Raw)
	if err != nil {
		return fmt.Errorf("encoding raw row: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bronze (id, equipment_id, description, detection_date, section,
			source_file, source_row, ingested_at, processed, raw)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		rec.ID, rec.EquipmentID, rec.Description, rec.DetectionDate, rec.Section,
		rec.SourceFile, rec.SourceRow, rec.IngestedAt.Format(time.RFC3339Nano),
		string(rawJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting bronze record: %w", err)
	}
	return nil
}

// MarkProcessed flips the processed flag for one bronze record.
func (s *Store) MarkProcessed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bronze SET processed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking bronze record processed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bronze record %s not found", id)
	}
	return nil
}

// FindUnprocessed returns all bronze records not yet consumed by the
// transformer, in insertion order. This is what makes the pipeline
// replayable after a mid-run crash.
func (s *Store) FindUnprocessed(ctx context.Context) ([]types.BronzeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, equipment_id, description, detection_date, section,
			source_file, source_row, ingested_at, processed, raw
		 FROM bronze WHERE processed = 0 ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying unprocessed bronze records: %w", err)
	}
	defer rows.Close()

	var records []types.BronzeRecord
	for rows.Next() {
		rec, err := scanBronze(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ClearBronze deletes every bronze record. Used before a re-seed.
func (s *Store) ClearBronze(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bronze`); err != nil {
		return fmt.Errorf("clearing bronze layer: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBronze(r rowScanner) (types.BronzeRecord, error) {
	var rec types.BronzeRecord
	var ingestedAt, rawJSON string
	var processed int

	err := r.Scan(&rec.ID, &rec.EquipmentID, &rec.Description, &rec.DetectionDate,
		&rec.Section, &rec.SourceFile, &rec.SourceRow, &ingestedAt, &processed, &rawJSON)
	if err != nil {
		return types.BronzeRecord{}, fmt.Errorf("scanning bronze record: %w", err)
	}

	rec.Processed = processed != 0
	if t, err := time.Parse(time.RFC3339Nano, ingestedAt); err == nil {
		rec.IngestedAt = t
	}
	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &rec.Raw); err != nil {
			return types.BronzeRecord{}, fmt.Errorf("decoding raw row for %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}
