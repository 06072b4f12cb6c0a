// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the ingestion, transformation, prediction,
// and aggregation stages and aggregates their counters into a single
// report. It is the only surface exposed to external callers; per-record
// failures are absorbed into the report, and only a fatal whole-file
// parse failure aborts a run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/anomaly-refinery/internal/aggregate"
	"github.com/pdiddy/anomaly-refinery/internal/ingest"
	"github.com/pdiddy/anomaly-refinery/internal/transform"
	"github.com/pdiddy/anomaly-refinery/pkg/types"
)

// Store is the persistence collaborator across all three layers.
type Store interface {
	AppendBronze(ctx context.Context, rec *types.BronzeRecord) error
	MarkProcessed(ctx context.Context, id string) error
	FindUnprocessed(ctx context.Context) ([]types.BronzeRecord, error)
	InsertSilver(ctx context.Context, rec *types.SilverRecord) error
	ListSilver(ctx context.Context) ([]types.SilverRecord, error)
	UpsertGold(ctx context.Context, rec *types.GoldAnomaly) (bool, error)
}

// Scorer is the prediction gateway. A nil Scorer disables external
// scoring; the sheet-declared sub-scores then drive classification.
type Scorer interface {
	Predict(ctx context.Context, records []types.SilverRecord, w io.Writer) []types.PredictionResult
}

// Orchestrator wires the stages together over an injected store and
// scorer. Two concurrent runs operate on disjoint reports; overlapping
// runs on the same equipment identifiers rely on the store's upsert
// atomicity.
type Orchestrator struct {
	store  Store
	scorer Scorer
	cfg    types.PipelineConfig
}

// New builds an Orchestrator. scorer may be nil.
func New(store Store, scorer Scorer, cfg types.PipelineConfig) *Orchestrator {
	return &Orchestrator{store: store, scorer: scorer, cfg: cfg}
}

// RunFull executes the whole pipeline on one source file: parse to
// bronze, transform to silver, score, aggregate to gold. The returned
// error is non-nil only for the fatal whole-file parse failure or
// cancellation; everything else lands in the report counters.
func (o *Orchestrator) RunFull(ctx context.Context, data []byte, format ingest.Format, sourceFile string, w io.Writer) (types.PipelineReport, error) {
	report := types.PipelineReport{SourceFile: sourceFile, StartedAt: time.Now().UTC()}

	parsed, err := ingest.Parse(data, format, o.cfg.Ingestion)
	if err != nil {
		return report, err
	}

	ingestedAt := time.Now().UTC()
	for _, row := range parsed.Rows {
		if row.Err != "" {
			fmt.Fprintf(w, "rejected  row %d: %s\n", row.Number, row.Err)
			report.RowsRejected++
			continue
		}

		view := ingest.NewRowView(row.Values)
		rec := &types.BronzeRecord{
			EquipmentID:   view.Get(ingest.FieldEquipmentID),
			Description:   view.Get(ingest.FieldDescription),
			DetectionDate: view.Get(ingest.FieldDetectionDate),
			Section:       view.Get(ingest.FieldSection),
			SourceFile:    sourceFile,
			SourceRow:     row.Number,
			IngestedAt:    ingestedAt,
			Raw:           row.Values,
		}
		if err := o.store.AppendBronze(ctx, rec); err != nil {
			fmt.Fprintf(w, "warning: landing row %d failed: %v\n", row.Number, err)
			report.PersistenceErrors++
			continue
		}
		report.RowsParsed++
	}
	fmt.Fprintf(w, "parsed: %d rows, rejected: %d\n", report.RowsParsed, report.RowsRejected)

	stageReport, err := o.transformAndScore(ctx, sourceFile, w)
	report.Merge(stageReport)
	report.FinishedAt = time.Now().UTC()
	return report, err
}

// RunTransform executes only the bronze-to-silver stage, picking up
// whatever unprocessed rows the bronze layer holds. This is the resume
// point after a crash between landing and transformation.
func (o *Orchestrator) RunTransform(ctx context.Context, w io.Writer) (types.PipelineReport, error) {
	report := types.PipelineReport{StartedAt: time.Now().UTC()}

	transformer := transform.New(o.store, o.store, o.cfg.Transform)
	res, err := transformer.Run(ctx, w)
	report.SilverCreated = res.Created
	report.SilverRejected = res.Rejected
	report.SilverDuplicates = res.Duplicates
	report.PersistenceErrors = res.PersistenceErrors
	report.FinishedAt = time.Now().UTC()
	return report, err
}

// RunScore executes only the silver-to-gold stage over every silver
// record, oldest first, so the latest record per equipment identifier
// wins the upsert. Re-running it is idempotent.
func (o *Orchestrator) RunScore(ctx context.Context, w io.Writer) (types.PipelineReport, error) {
	report := types.PipelineReport{StartedAt: time.Now().UTC()}

	silvers, err := o.store.ListSilver(ctx)
	if err != nil {
		return report, fmt.Errorf("loading silver records: %w", err)
	}

	stageReport, err := o.scoreAndAggregate(ctx, silvers, "score-stage", w)
	report.Merge(stageReport)
	report.FinishedAt = time.Now().UTC()
	return report, err
}

// transformAndScore runs the transformer over unprocessed bronze rows and
// feeds the created silver records through scoring and aggregation.
func (o *Orchestrator) transformAndScore(ctx context.Context, origin string, w io.Writer) (types.PipelineReport, error) {
	var report types.PipelineReport

	transformer := transform.New(o.store, o.store, o.cfg.Transform)
	res, err := transformer.Run(ctx, w)
	report.SilverCreated = res.Created
	report.SilverRejected = res.Rejected
	report.SilverDuplicates = res.Duplicates
	report.PersistenceErrors = res.PersistenceErrors
	if err != nil {
		return report, err
	}

	stageReport, err := o.scoreAndAggregate(ctx, res.Records, origin, w)
	report.Merge(stageReport)
	return report, err
}

// scoreAndAggregate invokes the scorer (when configured) and upserts gold
// records for the given silver records.
func (o *Orchestrator) scoreAndAggregate(ctx context.Context, silvers []types.SilverRecord, origin string, w io.Writer) (types.PipelineReport, error) {
	var report types.PipelineReport
	if len(silvers) == 0 {
		return report, nil
	}

	pairs := make([]aggregate.Pair, len(silvers))
	for i, s := range silvers {
		pairs[i] = aggregate.Pair{Silver: s}
	}

	if o.scorer != nil {
		results := o.scorer.Predict(ctx, silvers, w)
		report.PredictionsAttempted = len(results)
		for i := range results {
			pairs[i].Prediction = &results[i]
			if results[i].OK {
				report.PredictionsSucceeded++
			} else {
				report.PredictionsFailed++
			}
		}
		fmt.Fprintf(w, "predictions: %d attempted, %d succeeded, %d failed\n",
			report.PredictionsAttempted, report.PredictionsSucceeded, report.PredictionsFailed)
	}

	aggregator := aggregate.New(o.store, o.cfg.Aggregate)
	res, err := aggregator.Run(ctx, pairs, origin, w)
	report.GoldInserted = res.Inserted
	report.GoldUpdated = res.Updated
	report.PersistenceErrors += res.PersistenceErrors
	return report, err
}
