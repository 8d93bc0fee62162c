package model

import (
	"encoding/json"
	"time"
)

// EnrichmentStatus tracks the lifecycle of an enrichment attempt.
type EnrichmentStatus string

const (
	EnrichmentPending   EnrichmentStatus = "pending"
	EnrichmentCompleted EnrichmentStatus = "completed"
	EnrichmentFailed    EnrichmentStatus = "failed"
)

// Enrichment is an append-only record of one enrichment attempt for a lead.
// Rows are never updated in place; the most recent row wins on retrieval.
type Enrichment struct {
	ID        string           `json:"id"`
	LeadID    string           `json:"lead_id"`
	Source    string           `json:"source"`
	Data      json.RawMessage  `json:"data,omitempty"`
	Status    EnrichmentStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// Score is an append-only fit-score computation for a lead within a run.
type Score struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	RunID     string    `json:"run_id"`
	FitScore  int       `json:"fit_score"`
	Reasons   []string  `json:"reasons"`
	ICPName   string    `json:"icp_name"`
	CreatedAt time.Time `json:"created_at"`
}

// FitBand classifies a fit score for reporting.
type FitBand string

const (
	FitHigh   FitBand = "high"
	FitMedium FitBand = "medium"
	FitLow    FitBand = "low"
)

// BandFor returns the reporting band for a fit score: high >=70,
// medium 40-69, low <40.
func BandFor(fitScore int) FitBand {
	switch {
	case fitScore >= 70:
		return FitHigh
	case fitScore >= 40:
		return FitMedium
	default:
		return FitLow
	}
}
