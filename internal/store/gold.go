// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/anomaly-refinery/pkg/types"
)

// UpsertGold inserts or updates the anomaly for rec.EquipmentID and
// reports whether a new row was inserted. An existing row keeps its id,
// code, status, and created_at; score fields, level, confidence, and the
// descriptive fields are replaced and updated_at is refreshed. The upsert
// is one statement, so concurrent batch workers never hold a
// read-then-write transaction that could deadlock on the writer lock.
func (s *Store) UpsertGold(ctx context.Context, rec *types.GoldAnomaly) (inserted bool, err error) {
	now := time.Now().UTC()
	newID := rec.ID
	if newID == "" {
		newID = uuid.NewString()
	}

	var id, code, createdAt string
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO gold (id, code, title, description, equipment_id,
			equipment_name, section, availability, reliability, process_safety,
			criticite, level, confidence, status, origin, detection_date,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(equipment_id) DO UPDATE SET
			title=excluded.title, description=excluded.description,
			equipment_name=excluded.equipment_name, section=excluded.section,
			availability=excluded.availability, reliability=excluded.reliability,
			process_safety=excluded.process_safety, criticite=excluded.criticite,
			level=excluded.level, confidence=excluded.confidence,
			origin=excluded.origin, detection_date=excluded.detection_date,
			updated_at=excluded.updated_at
		 RETURNING id, code, created_at`,
		newID, rec.Code, rec.Title, rec.Description, rec.EquipmentID,
		rec.EquipmentName, rec.Section, rec.Availability, rec.Reliability,
		rec.ProcessSafety, rec.Criticite, string(rec.Level),
		string(rec.Confidence), rec.Status, rec.Origin,
		rec.DetectionDate.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	).Scan(&id, &code, &createdAt)
	if err != nil {
		return false, fmt.Errorf("upserting gold record: %w", err)
	}

	// On conflict the returned identity is the existing row's, not the
	// freshly generated one.
	rec.ID = id
	rec.Code = code
	if t, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		rec.CreatedAt = t
	}
	rec.UpdatedAt = now
	return id == newID, nil
}

// FindGoldByEquipment returns the anomaly for one equipment identifier,
// or nil when none exists.
func (s *Store) FindGoldByEquipment(ctx context.Context, equipmentID string) (*types.GoldAnomaly, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, code, title, description, equipment_id, equipment_name,
			section, availability, reliability, process_safety, criticite,
			level, confidence, status, origin, detection_date, created_at, updated_at
		 FROM gold WHERE equipment_id = ?`, equipmentID)

	rec, err := scanGold(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListGold returns all gold anomalies ordered by criticality score,
// highest first.
func (s *Store) ListGold(ctx context.Context) ([]types.GoldAnomaly, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, title, description, equipment_id, equipment_name,
			section, availability, reliability, process_safety, criticite,
			level, confidence, status, origin, detection_date, created_at, updated_at
		 FROM gold ORDER BY criticite DESC, equipment_id`)
	if err != nil {
		return nil, fmt.Errorf("querying gold records: %w", err)
	}
	defer rows.Close()

	var records []types.GoldAnomaly
	for rows.Next() {
		rec, err := scanGold(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ClearGold deletes every gold record.
func (s *Store) ClearGold(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM gold`); err != nil {
		return fmt.Errorf("clearing gold layer: %w", err)
	}
	return nil
}

func scanGold(r rowScanner) (types.GoldAnomaly, error) {
	var rec types.GoldAnomaly
	var level, confidence, detectionDate, createdAt, updatedAt string

	err := r.Scan(&rec.ID, &rec.Code, &rec.Title, &rec.Description,
		&rec.EquipmentID, &rec.EquipmentName, &rec.Section,
		&rec.Availability, &rec.Reliability, &rec.ProcessSafety,
		&rec.Criticite, &level, &confidence, &rec.Status, &rec.Origin,
		&detectionDate, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.GoldAnomaly{}, err
		}
		return types.GoldAnomaly{}, fmt.Errorf("scanning gold record: %w", err)
	}

	rec.Level = types.CriticalityLevel(level)
	rec.Confidence = types.ScoreConfidence(confidence)
	if t, err := time.Parse(time.RFC3339Nano, detectionDate); err == nil {
		rec.DetectionDate = t
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}
