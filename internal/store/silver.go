// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/anomaly-refinery/pkg/types"
)

// InsertSilver writes one cleaned record. Silver records are never
// updated; a re-ingestion of the same source produces new rows that
// supersede the old ones at the gold layer.
func (s *Store) InsertSilver(ctx context.Context, rec *types.SilverRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO silver (id, bronze_id, equipment_id, description, equipment_name,
			section, detection_date, availability, reliability, process_safety,
			quality_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.BronzeID, rec.EquipmentID, rec.Description, rec.EquipmentName,
		rec.Section, rec.DetectionDate.Format(time.RFC3339Nano),
		rec.Availability, rec.Reliability, rec.ProcessSafety,
		rec.QualityScore, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting silver record: %w", err)
	}
	return nil
}

// ListSilver returns all silver records in creation order, oldest first.
// The staged aggregator relies on this order so that the latest record
// for an equipment identifier wins the upsert.
func (s *Store) ListSilver(ctx context.Context) ([]types.SilverRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bronze_id, equipment_id, description, equipment_name,
			section, detection_date, availability, reliability, process_safety,
			quality_score, created_at
		 FROM silver ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying silver records: %w", err)
	}
	defer rows.Close()

	var records []types.SilverRecord
	for rows.Next() {
		var rec types.SilverRecord
		var detectionDate, createdAt string
		err := rows.Scan(&rec.ID, &rec.BronzeID, &rec.EquipmentID, &rec.Description,
			&rec.EquipmentName, &rec.Section, &detectionDate,
			&rec.Availability, &rec.Reliability, &rec.ProcessSafety,
			&rec.QualityScore, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning silver record: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, detectionDate); err == nil {
			rec.DetectionDate = t
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ClearSilver deletes every silver record.
func (s *Store) ClearSilver(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM silver`); err != nil {
		return fmt.Errorf("clearing silver layer: %w", err)
	}
	return nil
}
