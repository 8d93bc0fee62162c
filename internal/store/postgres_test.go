package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorulabs/leadgen-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, icp_name, icp_config, source, status`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "saas-founders", pgxmock.AnyArg(), "apollo_api",
			string(model.RunStatusCreated), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "saas-founders", []byte(`{}`), "apollo_api")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusCreated, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET`).
		WithArgs(string(model.RunStatusFailed), "missing-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	status := model.RunStatusFailed
	err := s.UpdateRun(context.Background(), "missing-run", model.RunUpdate{Status: &status})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertLead_ReturnsCreatedFlag(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO leads`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("lead-1", now, now))

	res, err := s.UpsertLead(context.Background(), &model.Lead{Email: "jane@acme.com"})
	require.NoError(t, err)
	assert.Equal(t, "lead-1", res.LeadID)
	assert.True(t, res.Created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertLead_UpdatedRowIsNotCreated(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Now().UTC().Add(-time.Hour)
	updated := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO leads`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("lead-1", created, updated))

	res, err := s.UpsertLead(context.Background(), &model.Lead{Email: "jane@acme.com"})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertLead_EmptyEmailRejected(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	_, err := s.UpsertLead(context.Background(), &model.Lead{Email: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email required")
}

func TestPostgresStore_LatestEnrichment_NoneIsNil(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, lead_id, source, data, status, created_at FROM enrichments`).
		WithArgs("lead-1").
		WillReturnError(pgx.ErrNoRows)

	e, err := s.LatestEnrichment(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindPendingEnrichmentByEmail_SupersededIsNil(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT e.id, e.lead_id, e.source, e.data, e.status, e.created_at`).
		WithArgs("jane@acme.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "lead_id", "source", "data", "status", "created_at"}).
			AddRow("e-2", "lead-1", "clay", `{"k":"v"}`, string(model.EnrichmentCompleted), time.Now().UTC()))

	e, err := s.FindPendingEnrichmentByEmail(context.Background(), "jane@acme.com")
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailStaleRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := s.FailStaleRuns(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveScore(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO scores`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveScore(context.Background(), &model.Score{
		LeadID:   "lead-1",
		RunID:    "run-1",
		FitScore: 85,
		Reasons:  []string{"title match", "size match"},
		ICPName:  "saas-founders",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
