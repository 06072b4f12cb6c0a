// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "anomaly-refinery/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// StoreConfig holds settings for the bronze/silver/gold SQLite store.
type StoreConfig struct {
	// DataDir is the directory holding the database file (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// IngestionConfig holds settings for the ingestion parser.
type IngestionConfig struct {
	// SheetName selects the worksheet to read from spreadsheet-binary
	// files. Empty means the first sheet.
	SheetName string `json:"sheet_name" yaml:"sheet_name"`
}

// TransformConfig holds settings for the bronze-to-silver transformer.
type TransformConfig struct {
	// BatchSize is the number of rows transformed per batch barrier
	// (default 100).
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// PredictionConfig holds settings for the external scoring service.
type PredictionConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the scoring service endpoint (e.g. "http://scoring:8001").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey is an optional bearer token for the scoring service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BatchSize is the number of records sent per scoring call
	// (default 50, capped at 100 by the service contract).
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// AggregateConfig holds settings for the silver-to-gold aggregator.
type AggregateConfig struct {
	// BatchSize is the number of records aggregated per batch barrier
	// (default 100).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// TitleLength is the maximum length of the derived anomaly title
	// (default 80).
	TitleLength int `json:"title_length" yaml:"title_length"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Store      StoreConfig      `json:"store" yaml:"store"`
	Ingestion  IngestionConfig  `json:"ingestion" yaml:"ingestion"`
	Transform  TransformConfig  `json:"transform" yaml:"transform"`
	Prediction PredictionConfig `json:"prediction" yaml:"prediction"`
	Aggregate  AggregateConfig  `json:"aggregate" yaml:"aggregate"`
}
