// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate combines prediction outcomes with the criticality
// formula and upserts finished anomaly records into the gold layer, keyed
// by equipment identifier.
package aggregate

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/anomaly-refinery/pkg/types"
)

const (
	defaultBatchSize   = 100
	defaultTitleLength = 80
)

// Criticality thresholds, evaluated high to low.
const (
	thresholdCritical = 11
	thresholdHigh     = 8
	thresholdMedium   = 4
)

// GoldStore is the gold-layer view the aggregator writes to.
type GoldStore interface {
	UpsertGold(ctx context.Context, rec *types.GoldAnomaly) (inserted bool, err error)
}

// Pair couples a silver record with its prediction outcome. A nil
// Prediction means no scoring service was involved and the sheet-declared
// sub-scores apply.
type Pair struct {
	Silver     types.SilverRecord
	Prediction *types.PredictionResult
}

// Result summarizes one aggregation run.
type Result struct {
	Inserted          int
	Updated           int
	PersistenceErrors int
}

// Aggregator upserts gold anomalies from (silver, prediction) pairs.
type Aggregator struct {
	store GoldStore
	cfg   types.AggregateConfig
}

// New builds an Aggregator with defaults applied.
func New(store GoldStore, cfg types.AggregateConfig) *Aggregator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.TitleLength <= 0 {
		cfg.TitleLength = defaultTitleLength
	}
	return &Aggregator{store: store, cfg: cfg}
}

// ClassifyCriticality maps a summed score to its categorical level.
func ClassifyCriticality(criticite int) types.CriticalityLevel {
	switch {
	case criticite >= thresholdCritical:
		return types.LevelCritical
	case criticite >= thresholdHigh:
		return types.LevelHigh
	case criticite >= thresholdMedium:
		return types.LevelMedium
	default:
		return types.LevelLow
	}
}

// Run upserts one gold anomaly per equipment identifier, in fixed-size
// concurrent batches with a barrier between batches. Pairs sharing an
// equipment identifier collapse to the latest one before fan-out, so the
// final gold state never depends on worker scheduling. A failed upsert is
// counted and skipped. Cancellation is honored at batch boundaries.
func (a *Aggregator) Run(ctx context.Context, pairs []Pair, origin string, w io.Writer) (Result, error) {
	var result Result

	pairs = lastPerEquipment(pairs)

	for start := 0; start < len(pairs); start += a.cfg.BatchSize {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		end := start + a.cfg.BatchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		batch := pairs[start:end]

		type upsertOutcome struct {
			inserted bool
			err      error
		}
		outcomes := make([]upsertOutcome, len(batch))

		var wg sync.WaitGroup
		for i, pair := range batch {
			wg.Add(1)
			go func(i int, pair Pair) {
				defer wg.Done()
				inserted, err := a.store.UpsertGold(ctx, a.buildGold(pair, origin))
				outcomes[i] = upsertOutcome{inserted: inserted, err: err}
			}(i, pair)
		}
		wg.Wait()

		for i, o := range outcomes {
			switch {
			case o.err != nil:
				fmt.Fprintf(w, "warning: upsert for %s failed: %v\n", batch[i].Silver.EquipmentID, o.err)
				result.PersistenceErrors++
			case o.inserted:
				result.Inserted++
			default:
				result.Updated++
			}
		}
	}

	fmt.Fprintf(w, "\naggregated: %d inserted, %d updated, %d persistence errors\n",
		result.Inserted, result.Updated, result.PersistenceErrors)
	return result, nil
}

// lastPerEquipment keeps only the most recent pair per equipment
// identifier. Input order is silver creation order, so after the collapse
// no two concurrent workers ever write the same gold key and the latest
// record always determines the final state.
func lastPerEquipment(pairs []Pair) []Pair {
	last := make(map[string]int, len(pairs))
	for i, p := range pairs {
		last[p.Silver.EquipmentID] = i
	}
	if len(last) == len(pairs) {
		return pairs
	}
	out := make([]Pair, 0, len(last))
	for i, p := range pairs {
		if last[p.Silver.EquipmentID] == i {
			out = append(out, p)
		}
	}
	return out
}

// buildGold derives the finished anomaly record for one pair.
func (a *Aggregator) buildGold(pair Pair, origin string) *types.GoldAnomaly {
	silver := pair.Silver

	var availability, reliability, processSafety int
	confidence := types.ConfidenceDeclared

	switch {
	case pair.Prediction == nil:
		// No scoring service involved: the sheet-declared sub-scores
		// (already defaulted and bounded by the transformer) apply.
		availability = declaredScore(silver.Availability)
		reliability = declaredScore(silver.Reliability)
		processSafety = declaredScore(silver.ProcessSafety)

	case pair.Prediction.OK:
		availability = normalizeServiceScore(pair.Prediction.Availability)
		reliability = normalizeServiceScore(pair.Prediction.Reliability)
		processSafety = normalizeServiceScore(pair.Prediction.ProcessSafety)
		confidence = types.ConfidencePredicted

	default:
		// Failed prediction: zero sub-scores, which classify as Low.
		// Zero means unknown here, not absence of risk; the confidence
		// marker lets consumers tell these records apart.
		confidence = types.ConfidenceNone
	}

	criticite := reliability + availability + processSafety

	return &types.GoldAnomaly{
		Code:          newAnomalyCode(silver.DetectionDate),
		Title:         truncateTitle(silver.Description, a.cfg.TitleLength),
		Description:   silver.Description,
		EquipmentID:   silver.EquipmentID,
		EquipmentName: silver.EquipmentName,
		Section:       silver.Section,
		Availability:  availability,
		Reliability:   reliability,
		ProcessSafety: processSafety,
		Criticite:     criticite,
		Level:         ClassifyCriticality(criticite),
		Confidence:    confidence,
		Status:        "open",
		Origin:        origin,
		DetectionDate: silver.DetectionDate,
	}
}

// declaredScore parses a transformer-bounded sub-score string. The
// transformer guarantees a parseable integer in [1,5]; anything else is a
// programming error and reads as the minimum.
func declaredScore(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

// normalizeServiceScore maps a service sub-score onto the 0-5 integer
// scale. The service reports either fractions in [0,1] or direct 1-5
// values; fractions scale up, everything clamps. A bare 1.0 is ambiguous
// between the two scales and reads as a full fraction (5, not 1): the
// deployed scoring service emits fractions, so a direct-scale minimum of
// exactly 1.0 would be misread as maximal. Switching services means
// revisiting this cutoff.
func normalizeServiceScore(f float64) int {
	if f <= 1.0 {
		f *= 5
	}
	n := int(math.Round(f))
	if n < 0 {
		return 0
	}
	if n > 5 {
		return 5
	}
	return n
}

// newAnomalyCode generates a human-readable code like "ANO-2026-4F2A91".
func newAnomalyCode(detectionDate time.Time) string {
	year := detectionDate.Year()
	if year == 1 {
		year = time.Now().UTC().Year()
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("ANO-%d-%s", year, suffix)
}

// truncateTitle shortens a description to at most limit runes including
// the ellipsis, cutting at a word boundary when one is close enough.
func truncateTitle(description string, limit int) string {
	runes := []rune(description)
	if len(runes) <= limit {
		return description
	}
	cut := string(runes[:limit-1])
	if idx := strings.LastIndex(cut, " "); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
