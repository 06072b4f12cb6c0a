// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package predict batches silver records, invokes the external scoring
// service over HTTP, and maps outcomes back onto the originating records.
// A batch failure is isolated to its own records: the gateway never
// raises, never retries, and never drops a record silently — every
// request yields exactly one result.
package predict

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/anomaly-refinery/internal/httputil"
	"github.com/pdiddy/anomaly-refinery/pkg/types"
)

const (
	defaultBatchSize = 50
	maxBatchSize     = 100
	defaultTimeout   = 15 * time.Second
	predictPath      = "/predict"
)

// Gateway is the prediction-service client.
type Gateway struct {
	client *http.Client
	cfg    types.PredictionConfig
}

// New builds a Gateway with defaults applied. The batch size is capped at
// the service's array-payload limit.
func New(cfg types.PredictionConfig) *Gateway {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchSize > maxBatchSize {
		cfg.BatchSize = maxBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "anomaly-refinery/0.1"
	}
	return &Gateway{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

// Predict scores records and returns one result per record, in input
// order. HTTP failures, timeouts, malformed responses, and non-2xx
// statuses mark every record of the affected batch as failed; sibling
// batches continue. Cancellation stops before the next batch, after the
// in-flight one has completed.
func (g *Gateway) Predict(ctx context.Context, records []types.SilverRecord, w io.Writer) []types.PredictionResult {
	results := make([]types.PredictionResult, 0, len(records))

	for start := 0; start < len(records); start += g.cfg.BatchSize {
		end := start + g.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		select {
		case <-ctx.Done():
			// Remaining records fail with the cancellation reason so the
			// 1:1 request/result contract holds.
			for _, rec := range records[start:] {
				results = append(results, failedResult(rec.ID, ctx.Err().Error()))
			}
			return results
		default:
		}

		results = append(results, g.predictBatch(ctx, batch, w)...)
	}
	return results
}

// predictBatch scores one batch. It always returns len(batch) results.
func (g *Gateway) predictBatch(ctx context.Context, batch []types.SilverRecord, w io.Writer) []types.PredictionResult {
	payload := make([]types.PredictionRequest, len(batch))
	for i, rec := range batch {
		payload[i] = types.PredictionRequest{
			AnomalyID:     rec.ID,
			EquipmentID:   rec.EquipmentID,
			Description:   rec.Description,
			EquipmentName: rec.EquipmentName,
		}
	}

	headers := http.Header{}
	headers.Set("User-Agent", g.cfg.UserAgent)
	if g.cfg.APIKey != "" {
		headers.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	var resp predictResponse
	err := httputil.PostJSON(ctx, g.client, g.cfg.BaseURL+predictPath, headers, payload, &resp)
	if err != nil {
		fmt.Fprintf(w, "warning: scoring batch of %d failed: %v\n", len(batch), err)
		results := make([]types.PredictionResult, len(batch))
		for i, rec := range batch {
			results[i] = failedResult(rec.ID, err.Error())
		}
		return results
	}

	byID := make(map[string]resultElement, len(resp.Results))
	for _, el := range resp.Results {
		byID[el.AnomalyID] = el
	}

	results := make([]types.PredictionResult, len(batch))
	for i, rec := range batch {
		el, ok := byID[rec.ID]
		switch {
		case !ok:
			// Partial success: the service returned fewer results than
			// requests. The missing records fail, they are not dropped.
			results[i] = failedResult(rec.ID, "no result in service response")
		case el.Status != statusSuccess:
			results[i] = failedResult(rec.ID, fmt.Sprintf("service reported status %q", el.Status))
		default:
			results[i] = types.PredictionResult{
				AnomalyID:     rec.ID,
				OK:            true,
				Reliability:   el.Predictions.Reliability.Score,
				Availability:  el.Predictions.Availability.Score,
				ProcessSafety: el.Predictions.ProcessSafety.Score,
				RiskLevel:     el.RiskAssessment.OverallRiskLevel,
			}
		}
	}
	return results
}

func failedResult(anomalyID, reason string) types.PredictionResult {
	return types.PredictionResult{AnomalyID: anomalyID, Err: reason}
}
