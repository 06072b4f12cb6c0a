// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PipelineReport aggregates per-stage counts for one pipeline run. Every
// run completes with a report; only a fatal whole-file parse failure
// aborts before one is produced.
type PipelineReport struct {
	// SourceFile is the ingested file, empty for stage-only runs.
	SourceFile string `json:"source_file,omitempty" yaml:"source_file,omitempty"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	// RowsParsed counts data rows successfully parsed from the source.
	RowsParsed int `json:"rows_parsed" yaml:"rows_parsed"`

	// RowsRejected counts rows dropped at parse time (malformed).
	RowsRejected int `json:"rows_rejected" yaml:"rows_rejected"`

	// SilverCreated counts cleaned records written to the silver layer.
	SilverCreated int `json:"silver_created" yaml:"silver_created"`

	// SilverRejected counts bronze rows dropped by validation.
	SilverRejected int `json:"silver_rejected" yaml:"silver_rejected"`

	// SilverDuplicates counts bronze rows superseded by a later row for
	// the same equipment identifier within the run.
	SilverDuplicates int `json:"silver_duplicates" yaml:"silver_duplicates"`

	// Prediction call outcomes, matched 1:1 with silver records sent.
	PredictionsAttempted int `json:"predictions_attempted" yaml:"predictions_attempted"`
	PredictionsSucceeded int `json:"predictions_succeeded" yaml:"predictions_succeeded"`
	PredictionsFailed    int `json:"predictions_failed" yaml:"predictions_failed"`

	// Gold upsert outcomes.
	GoldInserted int `json:"gold_inserted" yaml:"gold_inserted"`
	GoldUpdated  int `json:"gold_updated" yaml:"gold_updated"`

	// PersistenceErrors counts records skipped because a store write
	// failed.
	PersistenceErrors int `json:"persistence_errors" yaml:"persistence_errors"`
}

// HasFailures reports whether any record was rejected, failed, or skipped
// during the run.
func (r PipelineReport) HasFailures() bool {
	return r.RowsRejected > 0 || r.SilverRejected > 0 ||
		r.PredictionsFailed > 0 || r.PersistenceErrors > 0
}

// Merge folds the counters of other into r. The orchestrator uses it to
// combine stage reports into a full-run report.
func (r *PipelineReport) Merge(other PipelineReport) {
	r.RowsParsed += other.RowsParsed
	r.RowsRejected += other.RowsRejected
	r.SilverCreated += other.SilverCreated
	r.SilverRejected += other.SilverRejected
	r.SilverDuplicates += other.SilverDuplicates
	r.PredictionsAttempted += other.PredictionsAttempted
	r.PredictionsSucceeded += other.PredictionsSucceeded
	r.PredictionsFailed += other.PredictionsFailed
	r.GoldInserted += other.GoldInserted
	r.GoldUpdated += other.GoldUpdated
	r.PersistenceErrors += other.PersistenceErrors
}
