// Package ingest pulls prospect records from external sources and lands them
// in the lead store. Every adapter normalizes to model.Lead and upserts by
// email, so re-running a source is idempotent.
package ingest

import (
	"context"
	"strings"
)

// Result summarizes one ingestion pass.
type Result struct {
	Fetched int // leads upserted
	Created int // of Fetched, how many were new rows
	Skipped int // records dropped (no usable email)
}

// Source is one lead supplier. A pipeline run uses exactly one source.
type Source interface {
	Name() string
	Ingest(ctx context.Context, runID string) (*Result, error)
}

// JoinName builds a display name from its parts, skipping blanks.
func JoinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// JoinLocation renders "city, state, country", skipping blanks.
func JoinLocation(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
