// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/anomaly-refinery/pkg/types"
)

// fakeGoldStore keeps one anomaly per equipment identifier, like the real
// gold table.
type fakeGoldStore struct {
	mu      sync.Mutex
	byKey   map[string]*types.GoldAnomaly
	failFor map[string]bool
}

func newFakeGoldStore() *fakeGoldStore {
	return &fakeGoldStore{
		byKey:   make(map[string]*types.GoldAnomaly),
		failFor: make(map[string]bool),
	}
}

func (s *fakeGoldStore) UpsertGold(_ context.Context, rec *types.GoldAnomaly) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[rec.EquipmentID] {
		return false, errors.New("disk full")
	}
	cp := *rec
	_, exists := s.byKey[rec.EquipmentID]
	s.byKey[rec.EquipmentID] = &cp
	return !exists, nil
}

func TestClassifyCriticality(t *testing.T) {
	cases := []struct {
		criticite int
		want      types.CriticalityLevel
	}{
		{0, types.LevelLow},
		{3, types.LevelLow},
		{4, types.LevelMedium},
		{7, types.LevelMedium},
		{8, types.LevelHigh},
		{10, types.LevelHigh},
		{11, types.LevelCritical},
		{15, types.LevelCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyCriticality(tc.criticite), "criticite %d", tc.criticite)
	}
}

func pairFor(id, equipment string) Pair {
	return Pair{Silver: types.SilverRecord{
		ID:            id,
		EquipmentID:   equipment,
		Description:   "bearing vibration above limit",
		Availability:  "2",
		Reliability:   "3",
		ProcessSafety: "4",
		DetectionDate: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
	}}
}

func TestRunDeclaredScoresClassify(t *testing.T) {
	store := newFakeGoldStore()
	agg := New(store, types.AggregateConfig{})

	var buf bytes.Buffer
	res, err := agg.Run(context.Background(), []Pair{pairFor("s1", "EQ-1")}, "ingest", &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	rec := store.byKey["EQ-1"]
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.Availability)
	assert.Equal(t, 3, rec.Reliability)
	assert.Equal(t, 4, rec.ProcessSafety)
	assert.Equal(t, 9, rec.Criticite)
	assert.Equal(t, types.LevelHigh, rec.Level)
	assert.Equal(t, types.ConfidenceDeclared, rec.Confidence)
	assert.Equal(t, "open", rec.Status)
	assert.Equal(t, "ingest", rec.Origin)
	assert.True(t, strings.HasPrefix(rec.Code, "ANO-2026-"), "code %q carries the detection year", rec.Code)
}

func TestRunDefaultDeclaredScoresAreLow(t *testing.T) {
	store := newFakeGoldStore()
	agg := New(store, types.AggregateConfig{})

	pair := pairFor("s1", "EQ-1")
	pair.Silver.Availability = "1"
	pair.Silver.Reliability = "1"
	pair.Silver.ProcessSafety = "1"

	var buf bytes.Buffer
	_, err := agg.Run(context.Background(), []Pair{pair}, "ingest", &buf)
	require.NoError(t, err)

	rec := store.byKey["EQ-1"]
	assert.Equal(t, 3, rec.Criticite)
	assert.Equal(t, types.LevelLow, rec.Level)
}

func TestRunPredictedScoresOverrideDeclared(t *testing.T) {
	store := newFakeGoldStore()
	agg := New(store, types.AggregateConfig{})

	pair := pairFor("s1", "EQ-1")
	pair.Prediction = &types.PredictionResult{
		AnomalyID:     "s1",
		OK:            true,
		Reliability:   0.8, // fraction, scales to 4
		Availability:  1.0, // fraction boundary, scales to 5
		ProcessSafety: 3.0, // direct value
	}

	var buf bytes.Buffer
	_, err := agg.Run(context.Background(), []Pair{pair}, "ingest", &buf)
	require.NoError(t, err)

	rec := store.byKey["EQ-1"]
	assert.Equal(t, 4, rec.Reliability)
	assert.Equal(t, 5, rec.Availability)
	assert.Equal(t, 3, rec.ProcessSafety)
	assert.Equal(t, 12, rec.Criticite)
	assert.Equal(t, types.LevelCritical, rec.Level)
	assert.Equal(t, types.ConfidencePredicted, rec.Confidence)
}

func TestRunFailedPredictionClassifiesLow(t *testing.T) {
	store := newFakeGoldStore()
	agg := New(store, types.AggregateConfig{})

	pair := pairFor("s1", "EQ-1")
	pair.Prediction = &types.PredictionResult{AnomalyID: "s1", Err: "connection refused"}

	var buf bytes.Buffer
	_, err := agg.Run(context.Background(), []Pair{pair}, "ingest", &buf)
	require.NoError(t, err)

	rec := store.byKey["EQ-1"]
	assert.Equal(t, 0, rec.Criticite)
	assert.Equal(t, types.LevelLow, rec.Level)
	assert.Equal(t, types.ConfidenceNone, rec.Confidence)
}

func TestRunSameKeyLastPairWinsWithinOneRun(t *testing.T) {
	// Two silver records for the same equipment in a single call: the
	// later one must determine the gold state no matter how the batch
	// workers are scheduled.
	for i := 0; i < 10; i++ {
		store := newFakeGoldStore()
		agg := New(store, types.AggregateConfig{})

		older := pairFor("s1", "EQ-1")
		older.Silver.Availability = "1"
		older.Silver.Reliability = "1"
		older.Silver.ProcessSafety = "1"
		newer := pairFor("s2", "EQ-1")
		newer.Silver.Availability = "5"
		newer.Silver.Reliability = "5"
		newer.Silver.ProcessSafety = "5"

		var buf bytes.Buffer
		res, err := agg.Run(context.Background(), []Pair{older, newer}, "ingest", &buf)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Inserted)
		assert.Zero(t, res.Updated, "the superseded pair never reaches the store")

		rec := store.byKey["EQ-1"]
		require.NotNil(t, rec)
		assert.Equal(t, 15, rec.Criticite)
		assert.Equal(t, types.LevelCritical, rec.Level)
	}
}

func TestRunUpsertsByEquipmentID(t *testing.T) {
	store := newFakeGoldStore()
	agg := New(store, types.AggregateConfig{})

	first := pairFor("s1", "EQ-1")
	second := pairFor("s2", "EQ-1")
	second.Silver.Description = "updated description after re-inspection"

	var buf bytes.Buffer
	res, err := agg.Run(context.Background(), []Pair{first}, "ingest", &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	res, err = agg.Run(context.Background(), []Pair{second}, "ingest", &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Zero(t, res.Inserted)

	require.Len(t, store.byKey, 1)
	assert.Equal(t, "updated description after re-inspection", store.byKey["EQ-1"].Description)
}

func TestRunPersistenceFailureIsCounted(t *testing.T) {
	store := newFakeGoldStore()
	store.failFor["EQ-BAD"] = true
	agg := New(store, types.AggregateConfig{})

	pairs := []Pair{pairFor("s1", "EQ-1"), pairFor("s2", "EQ-BAD"), pairFor("s3", "EQ-3")}

	var buf bytes.Buffer
	res, err := agg.Run(context.Background(), pairs, "ingest", &buf)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.PersistenceErrors)
	assert.Contains(t, buf.String(), "warning: upsert for EQ-BAD failed")
	assert.Nil(t, store.byKey["EQ-BAD"])
}

func TestRunManyPairsAcrossBatches(t *testing.T) {
	store := newFakeGoldStore()
	agg := New(store, types.AggregateConfig{BatchSize: 7})

	var pairs []Pair
	for i := 0; i < 50; i++ {
		pairs = append(pairs, pairFor(fmt.Sprintf("s%02d", i), fmt.Sprintf("EQ-%02d", i)))
	}

	var buf bytes.Buffer
	res, err := agg.Run(context.Background(), pairs, "ingest", &buf)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Inserted)
	assert.Len(t, store.byKey, 50)
}

func TestRunCancellationStopsAtBatchBoundary(t *testing.T) {
	store := newFakeGoldStore()
	agg := New(store, types.AggregateConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err := agg.Run(ctx, []Pair{pairFor("s1", "EQ-1")}, "ingest", &buf)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.byKey)
}

func TestTruncateTitle(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"short stays intact", "pump leak", 80, "pump leak"},
		{"cuts at word boundary", "severe corrosion on outlet flange", 20, "severe corrosion…"},
		{"exact limit untouched", "abcde", 5, "abcde"},
		{"hard cap without spaces", "abcdefghij", 5, "abcd…"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := truncateTitle(tc.in, tc.limit)
			assert.Equal(t, tc.want, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), tc.limit)
		})
	}
}
