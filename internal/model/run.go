// Package model defines the domain types shared across the pipeline:
// runs, leads, enrichments, and scores.
package model

import (
	"encoding/json"
	"time"
)

// RunStatus tracks pipeline run progress.
type RunStatus string

const (
	RunStatusCreated   RunStatus = "created"
	RunStatusIngesting RunStatus = "ingesting"
	RunStatusEnriching RunStatus = "enriching"
	RunStatusScoring   RunStatus = "scoring"
	RunStatusExporting RunStatus = "exporting"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether the run can no longer change state.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Run records one end-to-end pipeline invocation. ID, ICPConfig, and
// StartedAt are immutable after creation; counters only grow.
type Run struct {
	ID            string          `json:"id"`
	ICPName       string          `json:"icp_name"`
	ICPConfig     json.RawMessage `json:"icp_config,omitempty"`
	Source        string          `json:"source"`
	Status        RunStatus       `json:"status"`
	LeadsFetched  int             `json:"leads_fetched"`
	LeadsEnriched int             `json:"leads_enriched"`
	LeadsScored   int             `json:"leads_scored"`
	LeadsExported int             `json:"leads_exported"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// RunUpdate carries the mutable subset of Run fields. Nil fields are left
// unchanged; anything not listed here cannot be updated after creation.
type RunUpdate struct {
	Status        *RunStatus
	LeadsFetched  *int
	LeadsEnriched *int
	LeadsScored   *int
	LeadsExported *int
	ErrorMessage  *string
	CompletedAt   *time.Time
}

// IsEmpty reports whether the update would change nothing.
func (u RunUpdate) IsEmpty() bool {
	return u.Status == nil && u.LeadsFetched == nil && u.LeadsEnriched == nil &&
		u.LeadsScored == nil && u.LeadsExported == nil && u.ErrorMessage == nil &&
		u.CompletedAt == nil
}
