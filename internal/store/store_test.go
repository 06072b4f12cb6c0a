// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/anomaly-refinery/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.StoreConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func bronzeFixture(id, equipment string) *types.BronzeRecord {
	return &types.BronzeRecord{
		ID:            id,
		EquipmentID:   equipment,
		Description:   "pump seal leaking",
		DetectionDate: "12/05/2026",
		Section:       "utilities",
		SourceFile:    "anomalies.csv",
		SourceRow:     2,
		Raw:           map[string]string{"Num_equipement": equipment},
	}
}

func TestBronzeAppendAndFindUnprocessed(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendBronze(ctx, bronzeFixture("b1", "EQ-1")))
	require.NoError(t, s.AppendBronze(ctx, bronzeFixture("b2", "EQ-2")))

	records, err := s.FindUnprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b1", records[0].ID, "insertion order preserved")
	assert.Equal(t, "EQ-1", records[0].EquipmentID)
	assert.Equal(t, map[string]string{"Num_equipement": "EQ-1"}, records[0].Raw)
	assert.False(t, records[0].Processed)
	assert.False(t, records[0].IngestedAt.IsZero(), "ingestion timestamp filled in")
}

func TestBronzeGeneratesMissingID(t *testing.T) {
	s := testStore(t)

	rec := bronzeFixture("", "EQ-1")
	require.NoError(t, s.AppendBronze(context.Background(), rec))
	assert.NotEmpty(t, rec.ID)
}

func TestMarkProcessedExcludesFromUnprocessed(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendBronze(ctx, bronzeFixture("b1", "EQ-1")))
	require.NoError(t, s.AppendBronze(ctx, bronzeFixture("b2", "EQ-2")))
	require.NoError(t, s.MarkProcessed(ctx, "b1"))

	records, err := s.FindUnprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b2", records[0].ID)
}

func TestMarkProcessedUnknownID(t *testing.T) {
	s := testStore(t)
	err := s.MarkProcessed(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func silverFixture(id, bronzeID, equipment string) *types.SilverRecord {
	return &types.SilverRecord{
		ID:            id,
		BronzeID:      bronzeID,
		EquipmentID:   equipment,
		Description:   "pump seal leaking",
		EquipmentName: "feed pump",
		Section:       "utilities",
		DetectionDate: time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC),
		Availability:  "2",
		Reliability:   "3",
		ProcessSafety: "1",
		QualityScore:  0.9,
	}
}

func TestSilverInsertAndList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendBronze(ctx, bronzeFixture("b1", "EQ-1")))
	require.NoError(t, s.AppendBronze(ctx, bronzeFixture("b2", "EQ-2")))
	require.NoError(t, s.InsertSilver(ctx, silverFixture("s1", "b1", "EQ-1")))
	require.NoError(t, s.InsertSilver(ctx, silverFixture("s2", "b2", "EQ-2")))

	records, err := s.ListSilver(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "s1", records[0].ID, "creation order, oldest first")
	assert.Equal(t, "b1", records[0].BronzeID)
	assert.Equal(t, "3", records[0].Reliability)
	assert.InDelta(t, 0.9, records[0].QualityScore, 1e-9)
	assert.True(t, records[0].DetectionDate.Equal(time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC)))
}

func TestSilverRejectsUnknownBronze(t *testing.T) {
	s := testStore(t)
	err := s.InsertSilver(context.Background(), silverFixture("s1", "missing", "EQ-1"))
	require.Error(t, err, "foreign key to bronze is enforced")
}

func goldFixture(equipment string) *types.GoldAnomaly {
	return &types.GoldAnomaly{
		Code:          "ANO-2026-ABC123",
		Title:         "pump seal leaking",
		Description:   "pump seal leaking",
		EquipmentID:   equipment,
		EquipmentName: "feed pump",
		Section:       "utilities",
		Availability:  2,
		Reliability:   3,
		ProcessSafety: 4,
		Criticite:     9,
		Level:         types.LevelHigh,
		Confidence:    types.ConfidencePredicted,
		Status:        "open",
		Origin:        "ingest",
		DetectionDate: time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC),
	}
}

func TestUpsertGoldInsertThenUpdate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := goldFixture("EQ-1")
	inserted, err := s.UpsertGold(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NotEmpty(t, first.ID)

	second := goldFixture("EQ-1")
	second.Code = "ANO-2026-DEF456"
	second.Description = "seal replaced, still leaking"
	second.Criticite = 12
	second.Level = types.LevelCritical

	inserted, err = s.UpsertGold(ctx, second)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.FindGoldByEquipment(ctx, "EQ-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID, "identity survives the update")
	assert.Equal(t, "ANO-2026-ABC123", got.Code, "original code survives the update")
	assert.Equal(t, "seal replaced, still leaking", got.Description)
	assert.Equal(t, 12, got.Criticite)
	assert.Equal(t, types.LevelCritical, got.Level)
	assert.True(t, got.CreatedAt.Equal(first.CreatedAt))
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestUpsertGoldConcurrentDistinctKeys(t *testing.T) {
	// A full aggregation batch fires upserts concurrently; every healthy
	// write must land, none may fail on the writer lock.
	s := testStore(t)
	ctx := context.Background()

	const n = 100
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.UpsertGold(ctx, goldFixture(fmt.Sprintf("EQ-%03d", i)))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "upsert %d", i)
	}
	records, err := s.ListGold(ctx)
	require.NoError(t, err)
	assert.Len(t, records, n)
}

func TestUpsertGoldConcurrentSameKey(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	const n = 20
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.UpsertGold(ctx, goldFixture("EQ-SHARED"))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "upsert %d", i)
	}
	records, err := s.ListGold(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1, "the unique key constraint holds under concurrency")
	assert.Equal(t, "EQ-SHARED", records[0].EquipmentID)
}

func TestFindGoldByEquipmentMissing(t *testing.T) {
	s := testStore(t)
	got, err := s.FindGoldByEquipment(context.Background(), "EQ-404")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListGoldOrdersByCriticality(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	low := goldFixture("EQ-LOW")
	low.Criticite = 3
	low.Level = types.LevelLow
	high := goldFixture("EQ-HIGH")
	high.Criticite = 14
	high.Level = types.LevelCritical

	_, err := s.UpsertGold(ctx, low)
	require.NoError(t, err)
	_, err = s.UpsertGold(ctx, high)
	require.NoError(t, err)

	records, err := s.ListGold(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "EQ-HIGH", records[0].EquipmentID)
	assert.Equal(t, "EQ-LOW", records[1].EquipmentID)
}

func TestCountsAndClear(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendBronze(ctx, bronzeFixture("b1", "EQ-1")))
	require.NoError(t, s.AppendBronze(ctx, bronzeFixture("b2", "EQ-2")))
	require.NoError(t, s.MarkProcessed(ctx, "b1"))
	require.NoError(t, s.InsertSilver(ctx, silverFixture("s1", "b1", "EQ-1")))
	_, err := s.UpsertGold(ctx, goldFixture("EQ-1"))
	require.NoError(t, err)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, LayerCounts{Bronze: 2, BronzeUnprocessed: 1, Silver: 1, Gold: 1}, counts)

	require.NoError(t, s.ClearGold(ctx))
	require.NoError(t, s.ClearSilver(ctx))
	require.NoError(t, s.ClearBronze(ctx))

	counts, err = s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, LayerCounts{}, counts)
}
