package enrich

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorulabs/leadgen-cli/internal/model"
	"github.com/yorulabs/leadgen-cli/internal/store"
	"github.com/yorulabs/leadgen-cli/pkg/clay"
)

type fakeClay struct {
	payloads []map[string]any
	failFor  map[string]error // keyed by email
}

func (f *fakeClay) SendLead(_ context.Context, payload map[string]any) (*clay.SendResult, error) {
	email, _ := payload["email"].(string)
	if err, ok := f.failFor[email]; ok {
		return nil, err
	}
	f.payloads = append(f.payloads, payload)
	return &clay.SendResult{StatusCode: 200, Text: "OK"}, nil
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedLeads(t *testing.T, st store.Store, runID string, n int) []model.Lead {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := st.UpsertLead(context.Background(), &model.Lead{
			Email:     fmt.Sprintf("lead%d@acme.com", i),
			FirstName: "Lead",
			Title:     "CTO",
			Source:    "csv",
			RunID:     runID,
		})
		require.NoError(t, err)
	}
	leads, err := st.ListLeadsByRun(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, leads, n)
	return leads
}

func TestDispatcher_SendsAndRecordsPending(t *testing.T) {
	st := newTestStore(t)
	leads := seedLeads(t, st, "run-1", 3)
	client := &fakeClay{}

	d := NewDispatcher(client, st)
	res, err := d.EnrichRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, 0, res.Failed)
	assert.Len(t, client.payloads, 3)

	e, err := st.LatestEnrichment(context.Background(), leads[0].ID)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, model.EnrichmentPending, e.Status)
	assert.Equal(t, SourceClay, e.Source)
}

func TestDispatcher_FailureIsolation(t *testing.T) {
	st := newTestStore(t)
	leads := seedLeads(t, st, "run-1", 3)
	client := &fakeClay{failFor: map[string]error{
		leads[1].Email: eris.New("clay: webhook returned 400"),
	}}

	d := NewDispatcher(client, st)
	res, err := d.EnrichRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], leads[1].Email)

	// Failed lead has no pending row.
	e, err := st.LatestEnrichment(context.Background(), leads[1].ID)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestDispatcher_ErrorsCappedAtTen(t *testing.T) {
	st := newTestStore(t)
	leads := seedLeads(t, st, "run-1", 15)
	failFor := map[string]error{}
	for _, l := range leads {
		failFor[l.Email] = eris.New("clay: webhook returned 500")
	}
	client := &fakeClay{failFor: failFor}

	d := NewDispatcher(client, st, WithBatchSize(100))
	res, err := d.EnrichRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 15, res.Failed)
	assert.Len(t, res.Errors, 10)
}

func TestDispatcher_EmptyRun(t *testing.T) {
	st := newTestStore(t)
	client := &fakeClay{}

	d := NewDispatcher(client, st)
	res, err := d.EnrichRun(context.Background(), "run-empty")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 0, res.Failed)
}

func TestPayload_Fields(t *testing.T) {
	p := Payload(&model.Lead{
		ID:          "lead-1",
		Email:       "jane@acme.com",
		FullName:    "Jane Doe",
		CompanyName: "Acme",
	})
	assert.Equal(t, "lead-1", p["lead_id"])
	assert.Equal(t, "jane@acme.com", p["email"])
	assert.Equal(t, "Jane Doe", p["full_name"])
	assert.Equal(t, "Acme", p["company_name"])
}
