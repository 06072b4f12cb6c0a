// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the records exchanged between pipeline stages and
// the configuration structs shared by the CLI and the stage packages.
package types

import "time"

// CriticalityLevel is the categorical bucket derived from the summed
// criticality score.
type CriticalityLevel string

const (
	LevelLow      CriticalityLevel = "Low"
	LevelMedium   CriticalityLevel = "Medium"
	LevelHigh     CriticalityLevel = "High"
	LevelCritical CriticalityLevel = "Critical"
)

// ScoreConfidence distinguishes anomalies scored by the prediction service
// from anomalies that received fallback scores after a failed prediction.
type ScoreConfidence string

const (
	// ConfidencePredicted marks sub-scores produced by the scoring service.
	ConfidencePredicted ScoreConfidence = "predicted"

	// ConfidenceDeclared marks sub-scores taken from the source sheet,
	// used when no scoring service is configured.
	ConfidenceDeclared ScoreConfidence = "declared"

	// ConfidenceNone marks the zero-score fallback after a failed
	// prediction. Such records classify as Low by construction.
	ConfidenceNone ScoreConfidence = "none"
)

// BronzeRecord is one raw ingested row, kept verbatim with provenance.
// Bronze records are never updated after insert; the Processed flag is the
// single exception, flipped once the transformer has consumed the row.
type BronzeRecord struct {
	// ID is a generated identifier for the landing row.
	ID string `json:"id" yaml:"id"`

	// EquipmentID is the equipment identifier exactly as it appeared in
	// the source file. It may be empty or malformed at this layer.
	EquipmentID string `json:"equipment_id" yaml:"equipment_id"`

	// Description is the free-text anomaly description, unmodified.
	Description string `json:"description" yaml:"description"`

	// DetectionDate is the raw, unparsed detection-date cell.
	DetectionDate string `json:"detection_date" yaml:"detection_date"`

	// Section is the raw owning section/department label.
	Section string `json:"section" yaml:"section"`

	// SourceFile is the name of the file the row was ingested from.
	SourceFile string `json:"source_file" yaml:"source_file"`

	// SourceRow is the 1-based row number within the source file,
	// counting the header as row 1.
	SourceRow int `json:"source_row" yaml:"source_row"`

	// IngestedAt is the ingestion timestamp.
	IngestedAt time.Time `json:"ingested_at" yaml:"ingested_at"`

	// Processed reports whether the transformer has consumed this row.
	Processed bool `json:"processed" yaml:"processed"`

	// Raw holds the complete original row keyed by source header label.
	Raw map[string]string `json:"raw" yaml:"raw"`
}

// SilverRecord is a cleaned, typed anomaly row. Silver records are never
// updated; re-ingesting the same source supersedes them.
type SilverRecord struct {
	// ID is a generated identifier for the cleaned row.
	ID string `json:"id" yaml:"id"`

	// BronzeID references the originating bronze record.
	BronzeID string `json:"bronze_id" yaml:"bronze_id"`

	// EquipmentID is the trimmed, non-empty equipment identifier. After
	// transformation it is the record's identity.
	EquipmentID string `json:"equipment_id" yaml:"equipment_id"`

	// Description is the whitespace-normalized anomaly description with
	// control characters stripped.
	Description string `json:"description" yaml:"description"`

	// EquipmentName is the cleaned equipment description label.
	EquipmentName string `json:"equipment_name" yaml:"equipment_name"`

	// Section is the cleaned owning-section label.
	Section string `json:"section" yaml:"section"`

	// DetectionDate is the parsed detection date. When the raw cell is
	// unparseable this falls back to the processing time.
	DetectionDate time.Time `json:"detection_date" yaml:"detection_date"`

	// Availability, Reliability, and ProcessSafety are the raw
	// criticality sub-scores as numeric strings in [1,5], defaulted to
	// "1" when the source cell was absent.
	Availability  string `json:"availability" yaml:"availability"`
	Reliability   string `json:"reliability" yaml:"reliability"`
	ProcessSafety string `json:"process_safety" yaml:"process_safety"`

	// QualityScore grades how much of the row arrived intact, in [0,1].
	// Each repaired field (defaulted sub-score, fallback date, missing
	// label) lowers the score.
	QualityScore float64 `json:"quality_score" yaml:"quality_score"`

	// CreatedAt is the transformation timestamp.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// GoldAnomaly is the finished, actionable anomaly record. At most one
// exists per equipment identifier; later pipeline runs update it in place.
type GoldAnomaly struct {
	// ID is a generated identifier.
	ID string `json:"id" yaml:"id"`

	// Code is the human-readable anomaly code (e.g. "ANO-2026-4F2A91").
	Code string `json:"code" yaml:"code"`

	// Title is the description truncated for display.
	Title string `json:"title" yaml:"title"`

	// Description is the full cleaned description.
	Description string `json:"description" yaml:"description"`

	// EquipmentID is the upsert key.
	EquipmentID string `json:"equipment_id" yaml:"equipment_id"`

	// EquipmentName is the equipment description label.
	EquipmentName string `json:"equipment_name" yaml:"equipment_name"`

	// Section is the owning-section label.
	Section string `json:"section" yaml:"section"`

	// Availability, Reliability, and ProcessSafety are the normalized
	// sub-scores. Zero means the prediction failed and no score exists.
	Availability  int `json:"availability" yaml:"availability"`
	Reliability   int `json:"reliability" yaml:"reliability"`
	ProcessSafety int `json:"process_safety" yaml:"process_safety"`

	// Criticite is the integer sum of the three sub-scores.
	Criticite int `json:"criticite" yaml:"criticite"`

	// Level is the categorical criticality bucket derived from Criticite.
	Level CriticalityLevel `json:"level" yaml:"level"`

	// Confidence marks whether the sub-scores came from the prediction
	// service or from the failed-prediction fallback.
	Confidence ScoreConfidence `json:"confidence" yaml:"confidence"`

	// Status is the downstream workflow state (owned by consumers, not
	// by the pipeline; new records start as "open").
	Status string `json:"status" yaml:"status"`

	// Origin tags where the record came from (e.g. the source filename).
	Origin string `json:"origin" yaml:"origin"`

	// DetectionDate is carried over from the silver record.
	DetectionDate time.Time `json:"detection_date" yaml:"detection_date"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// PredictionRequest is one element of the array payload sent to the
// external scoring service.
type PredictionRequest struct {
	AnomalyID     string `json:"anomaly_id"`
	EquipmentID   string `json:"equipment_id"`
	Description   string `json:"description"`
	EquipmentName string `json:"equipment_name"`
}

// PredictionResult is the per-record outcome of a scoring call. Every
// issued request yields exactly one result; a failed result carries no
// numeric scores.
type PredictionResult struct {
	// AnomalyID matches the SilverRecord ID the result belongs to.
	AnomalyID string `json:"anomaly_id"`

	// OK reports whether the service scored the record.
	OK bool `json:"ok"`

	// Reliability, Availability, and ProcessSafety are the sub-scores on
	// the service's own scale. Only meaningful when OK is true.
	Reliability   float64 `json:"reliability"`
	Availability  float64 `json:"availability"`
	ProcessSafety float64 `json:"process_safety"`

	// RiskLevel is the service's overall risk label, when provided.
	RiskLevel string `json:"risk_level,omitempty"`

	// Err describes why the record failed, when OK is false.
	Err string `json:"err,omitempty"`
}
