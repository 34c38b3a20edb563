package domain

import (
	"time"
)

// AnalysisResult is the complete fraud verdict for one claim. Keyed by claim
// id; the latest analysis overwrites any previous one.
type AnalysisResult struct {
	ClaimID               string    `json:"claim_id"`
	RuleScore             int       `json:"rule_based_score"`
	ClassifierProbability float64   `json:"classifier_probability"`
	CombinedScore         float64   `json:"combined_score"`
	FraudScore            float64   `json:"ai_fraud_score"`
	Explanation           string    `json:"explanation"`
	Action                string    `json:"action"`
	Recommendations       []string  `json:"follow_up_recommendations"`
	RiskLevel             string    `json:"risk_level"`
	Reasons               []string  `json:"reasons"`
	AnalysisTimestamp     time.Time `json:"analysis_timestamp"`
	ProcessingMs          int64     `json:"processing_time_ms"`
}

// ClassifierResult is the output of the classifier adapter.
type ClassifierResult struct {
	Label       string  `json:"label"` // "fraud", "not_fraud" or "error"
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
}

// Classifier labels.
const (
	LabelFraud    = "fraud"
	LabelNotFraud = "not_fraud"
	LabelError    = "error"
)

// Recommended dispositions.
const (
	ActionAccept           = "accept"
	ActionRequestDocuments = "request_documents"
	ActionEscalate         = "escalate_investigation"
	ActionReject           = "reject"
)

// Risk levels, ordered from least to most severe.
const (
	RiskMinimal  = "MINIMAL"
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskVeryHigh = "VERY_HIGH"
)

// RiskLevelFor maps a 0-100 score to a categorical risk level. Lower bounds
// are inclusive: exactly 20 is LOW, 19.999 is MINIMAL.
func RiskLevelFor(score float64) string {
	switch {
	case score >= 80:
		return RiskVeryHigh
	case score >= 60:
		return RiskHigh
	case score >= 40:
		return RiskMedium
	case score >= 20:
		return RiskLow
	default:
		return RiskMinimal
	}
}

// DashboardSummary aggregates high-risk analyses above a score threshold.
type DashboardSummary struct {
	HighRiskCount     int               `json:"high_risk_claims_count"`
	TotalAmountAtRisk float64           `json:"total_amount_at_risk"`
	TopClaims         []*AnalysisResult `json:"high_risk_claims"`
	GeneratedAt       time.Time         `json:"generated_at"`
}
