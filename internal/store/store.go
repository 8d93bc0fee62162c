// Package store persists runs, leads, enrichments, and scores. Two backends
// implement the same interface: SQLite for local single-user work and
// Postgres for shared deployments.
package store

import (
	"context"
	"time"

	"github.com/yorulabs/leadgen-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	ICPName string          `json:"icp_name,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// UpsertResult reports what an UpsertLead call did.
type UpsertResult struct {
	LeadID  string
	Created bool
}

// Stats aggregates store-wide counts for the stats command.
type Stats struct {
	TotalLeads    int            `json:"total_leads"`
	TotalRuns     int            `json:"total_runs"`
	CompletedRuns int            `json:"completed_runs"`
	FailedRuns    int            `json:"failed_runs"`
	BySource      map[string]int `json:"by_source"`
}

// Store defines the persistence interface for the lead pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, icpName string, icpConfig []byte, source string) (*model.Run, error)
	UpdateRun(ctx context.Context, runID string, upd model.RunUpdate) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	FailStaleRuns(ctx context.Context, olderThan time.Duration) (int, error)

	// Leads
	UpsertLead(ctx context.Context, lead *model.Lead) (*UpsertResult, error)
	GetLead(ctx context.Context, leadID string) (*model.Lead, error)
	GetLeadByEmail(ctx context.Context, email string) (*model.Lead, error)
	ListLeadsByRun(ctx context.Context, runID string) ([]model.Lead, error)

	// Enrichments. The log is append-only: SaveEnrichment is the only write,
	// and the most recent row per lead wins on retrieval.
	SaveEnrichment(ctx context.Context, e *model.Enrichment) error
	LatestEnrichment(ctx context.Context, leadID string) (*model.Enrichment, error)
	ListEnrichmentsByLead(ctx context.Context, leadID string) ([]model.Enrichment, error)
	FindPendingEnrichmentByEmail(ctx context.Context, email string) (*model.Enrichment, error)

	// Scores
	SaveScore(ctx context.Context, s *model.Score) error
	ListScoresByRun(ctx context.Context, runID string) ([]model.Score, error)

	// Aggregates
	Stats(ctx context.Context) (*Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
