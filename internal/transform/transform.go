// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package transform cleans and type-coerces bronze rows into silver
// records. Rows are processed in fixed-size batches with a barrier
// between batches; each row's transformation reads only that row, so the
// output is independent of processing order.
package transform

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/anomaly-refinery/internal/ingest"
	"github.com/pdiddy/anomaly-refinery/pkg/types"
)

const defaultBatchSize = 100

// BronzeSource is the bronze-layer view the transformer consumes.
type BronzeSource interface {
	FindUnprocessed(ctx context.Context) ([]types.BronzeRecord, error)
	MarkProcessed(ctx context.Context, id string) error
}

// SilverSink receives the cleaned records.
type SilverSink interface {
	InsertSilver(ctx context.Context, rec *types.SilverRecord) error
}

// Result summarizes one transformation run. Records holds the created
// silver records in bronze insertion order.
type Result struct {
	Created           int
	Rejected          int
	Duplicates        int
	PersistenceErrors int
	Records           []types.SilverRecord
}

// Total returns the number of bronze rows consumed.
func (r Result) Total() int {
	return r.Created + r.Rejected + r.Duplicates + r.PersistenceErrors
}

// Transformer turns unprocessed bronze rows into silver records.
type Transformer struct {
	source BronzeSource
	sink   SilverSink
	cfg    types.TransformConfig

	// now is the processing clock, injected for deterministic tests.
	now func() time.Time
}

// New builds a Transformer with defaults applied.
func New(source BronzeSource, sink SilverSink, cfg types.TransformConfig) *Transformer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Transformer{source: source, sink: sink, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Run consumes all unprocessed bronze rows. Rows that fail validation are
// counted and skipped; rows superseded by a later row for the same
// equipment identifier are marked processed without producing a silver
// record. Cancellation is honored at batch boundaries.
func (t *Transformer) Run(ctx context.Context, w io.Writer) (Result, error) {
	records, err := t.source.FindUnprocessed(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading unprocessed bronze rows: %w", err)
	}

	var result Result

	// After transformation a record's identity is its equipment
	// identifier, so within one run only the last row per identifier
	// yields a silver record. Deduplication happens up front to keep the
	// batch output order-independent.
	keep := make(map[string]string, len(records)) // equipment id -> bronze id
	for _, rec := range records {
		view := ingest.NewRowView(rec.Raw)
		if cleanText(firstNonEmpty(rec.Description, view.Get(ingest.FieldDescription))) == "" {
			continue // will be rejected, must not supersede a valid row
		}
		if equipmentID := equipmentIDOf(rec, view); equipmentID != "" {
			keep[equipmentID] = rec.ID
		}
	}

	for start := 0; start < len(records); start += t.cfg.BatchSize {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		end := start + t.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		// Clean concurrently, persist in row order after the barrier.
		outcomes := make([]outcome, len(batch))
		var wg sync.WaitGroup
		for i, rec := range batch {
			wg.Add(1)
			go func(i int, rec types.BronzeRecord) {
				defer wg.Done()
				outcomes[i] = t.transformOne(rec, keep)
			}(i, rec)
		}
		wg.Wait()

		for i, o := range outcomes {
			rec := batch[i]
			switch {
			case o.reject != "":
				fmt.Fprintf(w, "rejected  row %d (%s): %s\n", rec.SourceRow, rec.SourceFile, o.reject)
				result.Rejected++
			case o.duplicate:
				result.Duplicates++
			default:
				if err := t.sink.InsertSilver(ctx, o.silver); err != nil {
					fmt.Fprintf(w, "warning: persisting row %d failed: %v\n", rec.SourceRow, err)
					result.PersistenceErrors++
					continue
				}
				result.Created++
				result.Records = append(result.Records, *o.silver)
			}
			if err := t.source.MarkProcessed(ctx, rec.ID); err != nil {
				fmt.Fprintf(w, "warning: marking row %d processed failed: %v\n", rec.SourceRow, err)
			}
		}
	}

	fmt.Fprintf(w, "\ntransformed: %d, rejected: %d, superseded: %d, persistence errors: %d\n",
		result.Created, result.Rejected, result.Duplicates, result.PersistenceErrors)
	return result, nil
}

type outcome struct {
	silver    *types.SilverRecord
	reject    string
	duplicate bool
}

// equipmentIDOf resolves the equipment identifier from the typed bronze
// field or, failing that, from the raw row.
func equipmentIDOf(rec types.BronzeRecord, view ingest.RowView) string {
	if id := strings.TrimSpace(rec.EquipmentID); id != "" {
		return id
	}
	return view.Get(ingest.FieldEquipmentID)
}

// transformOne cleans a single bronze row. It has no side effects; the
// caller persists the result.
func (t *Transformer) transformOne(rec types.BronzeRecord, keep map[string]string) outcome {
	view := ingest.NewRowView(rec.Raw)

	description := cleanText(firstNonEmpty(rec.Description, view.Get(ingest.FieldDescription)))
	if description == "" {
		return outcome{reject: "empty description"}
	}

	equipmentID := equipmentIDOf(rec, view)
	if equipmentID == "" {
		return outcome{reject: "missing equipment identifier"}
	}
	if keep[equipmentID] != rec.ID {
		return outcome{duplicate: true}
	}

	quality := 1.0
	deduct := func(amount float64) {
		quality -= amount
		if quality < 0 {
			quality = 0
		}
	}

	equipmentName := cleanText(view.Get(ingest.FieldEquipmentName))
	if equipmentName == "" {
		deduct(0.1)
	}
	section := cleanText(firstNonEmpty(rec.Section, view.Get(ingest.FieldSection)))
	if section == "" {
		deduct(0.1)
	}

	rawDate := firstNonEmpty(rec.DetectionDate, view.Get(ingest.FieldDetectionDate))
	detectionDate, fellBack := parseDetectionDate(rawDate, t.now())
	if fellBack {
		deduct(0.2)
	}

	availability, repairedA := normalizeSubScore(view.Get(ingest.FieldAvailability))
	reliability, repairedR := normalizeSubScore(view.Get(ingest.FieldReliability))
	processSafety, repairedP := normalizeSubScore(view.Get(ingest.FieldProcessSafety))
	for _, repaired := range []bool{repairedA, repairedR, repairedP} {
		if repaired {
			deduct(0.15)
		}
	}

	return outcome{silver: &types.SilverRecord{
		BronzeID:      rec.ID,
		EquipmentID:   equipmentID,
		Description:   description,
		EquipmentName: equipmentName,
		Section:       section,
		DetectionDate: detectionDate,
		Availability:  availability,
		Reliability:   reliability,
		ProcessSafety: processSafety,
		QualityScore:  quality,
		CreatedAt:     t.now(),
	}}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
