// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package predict

// Wire structures for the external scoring service.

type scoreValue struct {
	Score float64 `json:"score"`
}

type predictions struct {
	Reliability   scoreValue `json:"reliability"`
	Availability  scoreValue `json:"availability"`
	ProcessSafety scoreValue `json:"process_safety"`
}

type riskAssessment struct {
	OverallRiskLevel string `json:"overall_risk_level"`
}

type resultElement struct {
	AnomalyID      string         `json:"anomaly_id"`
	Status         string         `json:"status"`
	Predictions    predictions    `json:"predictions"`
	RiskAssessment riskAssessment `json:"risk_assessment"`
}

type batchInfo struct {
	SuccessfulPredictions int `json:"successful_predictions"`
	FailedPredictions     int `json:"failed_predictions"`
}

type predictResponse struct {
	Status    string          `json:"status"`
	BatchInfo batchInfo       `json:"batch_info"`
	Results   []resultElement `json:"results"`
}

const statusSuccess = "success"
