package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/yorulabs/leadgen-cli/internal/db"
	"github.com/yorulabs/leadgen-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests to inject a mock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	icp_name       TEXT NOT NULL,
	icp_config     JSONB,
	source         TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'created',
	leads_fetched  INTEGER NOT NULL DEFAULT 0,
	leads_enriched INTEGER NOT NULL DEFAULT 0,
	leads_scored   INTEGER NOT NULL DEFAULT 0,
	leads_exported INTEGER NOT NULL DEFAULT 0,
	error_message  TEXT NOT NULL DEFAULT '',
	started_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS leads (
	id               TEXT PRIMARY KEY,
	email            TEXT NOT NULL UNIQUE,
	first_name       TEXT NOT NULL DEFAULT '',
	last_name        TEXT NOT NULL DEFAULT '',
	full_name        TEXT NOT NULL DEFAULT '',
	title            TEXT NOT NULL DEFAULT '',
	seniority        TEXT NOT NULL DEFAULT '',
	company_name     TEXT NOT NULL DEFAULT '',
	company_domain   TEXT NOT NULL DEFAULT '',
	company_size     TEXT NOT NULL DEFAULT '',
	company_industry TEXT NOT NULL DEFAULT '',
	location         TEXT NOT NULL DEFAULT '',
	city             TEXT NOT NULL DEFAULT '',
	state            TEXT NOT NULL DEFAULT '',
	country          TEXT NOT NULL DEFAULT '',
	linkedin_url     TEXT NOT NULL DEFAULT '',
	email_verified   BOOLEAN NOT NULL DEFAULT false,
	phone            TEXT NOT NULL DEFAULT '',
	source           TEXT NOT NULL DEFAULT '',
	raw_data         TEXT NOT NULL DEFAULT '',
	run_id           TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS enrichments (
	id         TEXT PRIMARY KEY,
	lead_id    TEXT NOT NULL REFERENCES leads(id),
	source     TEXT NOT NULL,
	data       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scores (
	id         TEXT PRIMARY KEY,
	lead_id    TEXT NOT NULL REFERENCES leads(id),
	run_id     TEXT NOT NULL REFERENCES runs(id),
	fit_score  INTEGER NOT NULL,
	reasons    TEXT NOT NULL DEFAULT '[]',
	icp_name   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_leads_run_id ON leads(run_id);
CREATE INDEX IF NOT EXISTS idx_enrichments_lead_id ON enrichments(lead_id);
CREATE INDEX IF NOT EXISTS idx_enrichments_status ON enrichments(status);
CREATE INDEX IF NOT EXISTS idx_scores_run_id ON scores(run_id);
CREATE INDEX IF NOT EXISTS idx_scores_lead_id ON scores(lead_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Runs

func (s *PostgresStore) CreateRun(ctx context.Context, icpName string, icpConfig []byte, source string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	var cfg any
	if len(icpConfig) > 0 {
		cfg = icpConfig
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, icp_name, icp_config, source, status, started_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, icpName, cfg, source, string(model.RunStatusCreated), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		ICPName:   icpName,
		ICPConfig: json.RawMessage(icpConfig),
		Source:    source,
		Status:    model.RunStatusCreated,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRun(ctx context.Context, runID string, upd model.RunUpdate) error {
	if upd.IsEmpty() {
		return nil
	}

	var sets []string
	var args []any
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Status != nil {
		add("status", string(*upd.Status))
	}
	if upd.LeadsFetched != nil {
		add("leads_fetched", *upd.LeadsFetched)
	}
	if upd.LeadsEnriched != nil {
		add("leads_enriched", *upd.LeadsEnriched)
	}
	if upd.LeadsScored != nil {
		add("leads_scored", *upd.LeadsScored)
	}
	if upd.LeadsExported != nil {
		add("leads_exported", *upd.LeadsExported)
	}
	if upd.ErrorMessage != nil {
		add("error_message", *upd.ErrorMessage)
	}
	if upd.CompletedAt != nil {
		add("completed_at", *upd.CompletedAt)
	}
	args = append(args, runID)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE runs SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args)),
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

const pgSelectRun = `SELECT id, icp_name, icp_config, source, status,
	leads_fetched, leads_enriched, leads_scored, leads_exported,
	error_message, started_at, completed_at FROM runs`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx, pgSelectRun+` WHERE id = $1`, runID)
	r, err := scanPgRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := pgSelectRun + ` WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.ICPName != "" {
		query += fmt.Sprintf(` AND icp_name = $%d`, argIdx)
		args = append(args, filter.ICPName)
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) FailStaleRuns(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	now := time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error_message = $2, completed_at = $3
		 WHERE status NOT IN ($4, $5) AND started_at <= $6`,
		string(model.RunStatusFailed), "reaped: stale run", now,
		string(model.RunStatusCompleted), string(model.RunStatusFailed), cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: fail stale runs")
	}
	return int(tag.RowsAffected()), nil
}

// Leads

const pgUpsertLead = `
INSERT INTO leads (
	id, email, first_name, last_name, full_name, title, seniority,
	company_name, company_domain, company_size, company_industry,
	location, city, state, country, linkedin_url, email_verified,
	phone, source, raw_data, run_id, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
ON CONFLICT (email) DO UPDATE SET
	first_name       = CASE WHEN excluded.first_name       <> '' THEN excluded.first_name       ELSE leads.first_name       END,
	last_name        = CASE WHEN excluded.last_name        <> '' THEN excluded.last_name        ELSE leads.last_name        END,
	full_name        = CASE WHEN excluded.full_name        <> '' THEN excluded.full_name        ELSE leads.full_name        END,
	title            = CASE WHEN excluded.title            <> '' THEN excluded.title            ELSE leads.title            END,
	seniority        = CASE WHEN excluded.seniority        <> '' THEN excluded.seniority        ELSE leads.seniority        END,
	company_name     = CASE WHEN excluded.company_name     <> '' THEN excluded.company_name     ELSE leads.company_name     END,
	company_domain   = CASE WHEN excluded.company_domain   <> '' THEN excluded.company_domain   ELSE leads.company_domain   END,
	company_size     = CASE WHEN excluded.company_size     <> '' THEN excluded.company_size     ELSE leads.company_size     END,
	company_industry = CASE WHEN excluded.company_industry <> '' THEN excluded.company_industry ELSE leads.company_industry END,
	location         = CASE WHEN excluded.location         <> '' THEN excluded.location         ELSE leads.location         END,
	city             = CASE WHEN excluded.city             <> '' THEN excluded.city             ELSE leads.city             END,
	state            = CASE WHEN excluded.state            <> '' THEN excluded.state            ELSE leads.state            END,
	country          = CASE WHEN excluded.country          <> '' THEN excluded.country          ELSE leads.country          END,
	linkedin_url     = CASE WHEN excluded.linkedin_url     <> '' THEN excluded.linkedin_url     ELSE leads.linkedin_url     END,
	email_verified   = leads.email_verified OR excluded.email_verified,
	phone            = CASE WHEN excluded.phone            <> '' THEN excluded.phone            ELSE leads.phone            END,
	source           = CASE WHEN excluded.source           <> '' THEN excluded.source           ELSE leads.source           END,
	raw_data         = CASE WHEN excluded.raw_data         <> '' THEN excluded.raw_data         ELSE leads.raw_data         END,
	run_id           = CASE WHEN excluded.run_id           <> '' THEN excluded.run_id           ELSE leads.run_id           END,
	updated_at       = excluded.updated_at
RETURNING id, created_at, updated_at`

func (s *PostgresStore) UpsertLead(ctx context.Context, lead *model.Lead) (*UpsertResult, error) {
	email := model.NormalizeEmail(lead.Email)
	if email == "" {
		return nil, eris.New("postgres: upsert lead: email required")
	}
	now := time.Now().UTC()
	newID := uuid.New().String()

	row := s.pool.QueryRow(ctx, pgUpsertLead,
		newID, email, lead.FirstName, lead.LastName, lead.FullName,
		lead.Title, lead.Seniority, lead.CompanyName, lead.CompanyDomain,
		lead.CompanySize, lead.CompanyIndustry, lead.Location, lead.City,
		lead.State, lead.Country, lead.LinkedInURL, lead.EmailVerified,
		lead.Phone, lead.Source, string(lead.RawData), lead.RunID, now, now,
	)

	var id string
	var createdAt, updatedAt time.Time
	if err := row.Scan(&id, &createdAt, &updatedAt); err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert lead %s", email)
	}

	return &UpsertResult{LeadID: id, Created: createdAt.Equal(updatedAt)}, nil
}

const pgSelectLead = `SELECT id, email, first_name, last_name, full_name, title,
	seniority, company_name, company_domain, company_size, company_industry,
	location, city, state, country, linkedin_url, email_verified, phone,
	source, raw_data, run_id, created_at, updated_at FROM leads`

func (s *PostgresStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx, pgSelectLead+` WHERE id = $1`, leadID)
	l, err := scanPgLead(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", leadID)
	}
	return l, nil
}

func (s *PostgresStore) GetLeadByEmail(ctx context.Context, email string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx, pgSelectLead+` WHERE email = $1`, model.NormalizeEmail(email))
	l, err := scanPgLead(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead by email %s", email)
	}
	return l, nil
}

func (s *PostgresStore) ListLeadsByRun(ctx context.Context, runID string) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx, pgSelectLead+` WHERE run_id = $1 ORDER BY created_at, id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list leads for run %s", runID)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanPgLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

// Enrichments

func (s *PostgresStore) SaveEnrichment(ctx context.Context, e *model.Enrichment) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO enrichments (id, lead_id, source, data, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.LeadID, e.Source, string(e.Data), string(e.Status), e.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert enrichment for lead %s", e.LeadID)
}

// ListEnrichmentsByLead returns the lead's full enrichment history, newest
// first. Rows are never rewritten; a later row supersedes an earlier one.
func (s *PostgresStore) ListEnrichmentsByLead(ctx context.Context, leadID string) ([]model.Enrichment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, source, data, status, created_at FROM enrichments
		 WHERE lead_id = $1 ORDER BY created_at DESC, id DESC`,
		leadID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list enrichments for lead %s", leadID)
	}
	defer rows.Close()

	var out []model.Enrichment
	for rows.Next() {
		e, err := scanPgEnrichment(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan enrichment")
		}
		out = append(out, *e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list enrichments iterate")
}

func (s *PostgresStore) LatestEnrichment(ctx context.Context, leadID string) (*model.Enrichment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, lead_id, source, data, status, created_at FROM enrichments
		 WHERE lead_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		leadID,
	)
	e, err := scanPgEnrichment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest enrichment")
	}
	return e, nil
}

// FindPendingEnrichmentByEmail resolves the lead by email and returns its
// most recent enrichment if that row is still pending. A completed or failed
// row appended later supersedes the pending one.
func (s *PostgresStore) FindPendingEnrichmentByEmail(ctx context.Context, email string) (*model.Enrichment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT e.id, e.lead_id, e.source, e.data, e.status, e.created_at
		 FROM enrichments e JOIN leads l ON l.id = e.lead_id
		 WHERE l.email = $1
		 ORDER BY e.created_at DESC, e.id DESC LIMIT 1`,
		model.NormalizeEmail(email),
	)
	e, err := scanPgEnrichment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find pending enrichment")
	}
	if e.Status != model.EnrichmentPending {
		return nil, nil
	}
	return e, nil
}

// Scores

func (s *PostgresStore) SaveScore(ctx context.Context, sc *model.Score) error {
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}

	reasonsJSON, err := json.Marshal(sc.Reasons)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal reasons")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO scores (id, lead_id, run_id, fit_score, reasons, icp_name, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sc.ID, sc.LeadID, sc.RunID, sc.FitScore, string(reasonsJSON), sc.ICPName, sc.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert score for lead %s", sc.LeadID)
}

func (s *PostgresStore) ListScoresByRun(ctx context.Context, runID string) ([]model.Score, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, run_id, fit_score, reasons, icp_name, created_at FROM scores
		 WHERE run_id = $1 ORDER BY fit_score DESC, created_at, id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list scores for run %s", runID)
	}
	defer rows.Close()

	var scores []model.Score
	for rows.Next() {
		var sc model.Score
		var reasonsJSON string
		if err := rows.Scan(&sc.ID, &sc.LeadID, &sc.RunID, &sc.FitScore, &reasonsJSON, &sc.ICPName, &sc.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan score")
		}
		if err := json.Unmarshal([]byte(reasonsJSON), &sc.Reasons); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal reasons")
		}
		scores = append(scores, sc)
	}
	return scores, eris.Wrap(rows.Err(), "postgres: list scores iterate")
}

// Aggregates

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{BySource: map[string]int{}}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&st.TotalLeads); err != nil {
		return nil, eris.Wrap(err, "postgres: count leads")
	}
	row := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = $1 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = $2 THEN 1 ELSE 0 END), 0)
		 FROM runs`,
		string(model.RunStatusCompleted), string(model.RunStatusFailed),
	)
	if err := row.Scan(&st.TotalRuns, &st.CompletedRuns, &st.FailedRuns); err != nil {
		return nil, eris.Wrap(err, "postgres: count runs")
	}

	rows, err := s.pool.Query(ctx, `SELECT source, COUNT(*) FROM leads GROUP BY source`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: leads by source")
	}
	defer rows.Close()
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source count")
		}
		st.BySource[src] = n
	}
	return st, eris.Wrap(rows.Err(), "postgres: stats iterate")
}

// helpers

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var icpConfig []byte
	var completedAt *time.Time

	err := row.Scan(&r.ID, &r.ICPName, &icpConfig, &r.Source, &r.Status,
		&r.LeadsFetched, &r.LeadsEnriched, &r.LeadsScored, &r.LeadsExported,
		&r.ErrorMessage, &r.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if len(icpConfig) > 0 {
		r.ICPConfig = json.RawMessage(icpConfig)
	}
	r.CompletedAt = completedAt
	return &r, nil
}

func scanPgLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var rawData string

	err := row.Scan(&l.ID, &l.Email, &l.FirstName, &l.LastName, &l.FullName,
		&l.Title, &l.Seniority, &l.CompanyName, &l.CompanyDomain,
		&l.CompanySize, &l.CompanyIndustry, &l.Location, &l.City, &l.State,
		&l.Country, &l.LinkedInURL, &l.EmailVerified, &l.Phone, &l.Source,
		&rawData, &l.RunID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if rawData != "" {
		l.RawData = json.RawMessage(rawData)
	}
	return &l, nil
}

func scanPgEnrichment(row pgx.Row) (*model.Enrichment, error) {
	var e model.Enrichment
	var data string

	err := row.Scan(&e.ID, &e.LeadID, &e.Source, &data, &e.Status, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if data != "" {
		e.Data = json.RawMessage(data)
	}
	return &e, nil
}
