package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yorulabs/leadgen-cli/internal/model"
	"github.com/yorulabs/leadgen-cli/internal/store"
)

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("123456789abcdef"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestFormatRunsList(t *testing.T) {
	started := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	completed := started.Add(95 * time.Second)
	runs := []model.Run{
		{
			ID:           "aaaaaaaa-1111-2222-3333-444444444444",
			ICPName:      "saas-cto",
			Source:       "apollo_api",
			Status:       model.RunStatusCompleted,
			LeadsFetched: 42,
			LeadsScored:  42,
			StartedAt:    started,
			CompletedAt:  &completed,
		},
		{
			ID:        "bbbbbbbb-1111-2222-3333-444444444444",
			ICPName:   "fintech-vp",
			Source:    "csv",
			Status:    model.RunStatusIngesting,
			StartedAt: started,
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "aaaaaaaa")
	assert.NotContains(t, out, "aaaaaaaa-1111")
	assert.Contains(t, out, "saas-cto")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "1m35s")
	assert.Contains(t, out, "ingesting")
}

func TestFormatStats(t *testing.T) {
	var buf bytes.Buffer
	formatStats(&buf, &store.Stats{
		TotalLeads:    120,
		TotalRuns:     7,
		CompletedRuns: 5,
		FailedRuns:    2,
		BySource:      map[string]int{"apollo_api": 100, "csv": 20},
	})
	out := buf.String()

	assert.Contains(t, out, "120")
	assert.Contains(t, out, "apollo_api")
	assert.Contains(t, out, "csv")
}
