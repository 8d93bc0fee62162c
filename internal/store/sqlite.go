package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/yorulabs/leadgen-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	icp_name       TEXT NOT NULL,
	icp_config     TEXT,
	source         TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'created',
	leads_fetched  INTEGER NOT NULL DEFAULT 0,
	leads_enriched INTEGER NOT NULL DEFAULT 0,
	leads_scored   INTEGER NOT NULL DEFAULT 0,
	leads_exported INTEGER NOT NULL DEFAULT 0,
	error_message  TEXT NOT NULL DEFAULT '',
	started_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at   DATETIME
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
	email_verified   INTEGER NOT NULL DEFAULT 0,
	phone            TEXT NOT NULL DEFAULT '',
	source           TEXT NOT NULL DEFAULT '',
	raw_data         TEXT NOT NULL DEFAULT '',
	run_id           TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS enrichments (
	id         TEXT PRIMARY KEY,
	lead_id    TEXT NOT NULL REFERENCES leads(id),
	source     TEXT NOT NULL,
	data       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS scores (
	id         TEXT PRIMARY KEY,
	lead_id    TEXT NOT NULL REFERENCES leads(id),
	run_id     TEXT NOT NULL REFERENCES runs(id),
	fit_score  INTEGER NOT NULL,
	reasons    TEXT NOT NULL DEFAULT '[]',
	icp_name   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_leads_run_id ON leads(run_id);
CREATE INDEX IF NOT EXISTS idx_enrichments_lead_id ON enrichments(lead_id);
CREATE INDEX IF NOT EXISTS idx_enrichments_status ON enrichments(status);
CREATE INDEX IF NOT EXISTS idx_scores_run_id ON scores(run_id);
CREATE INDEX IF NOT EXISTS idx_scores_lead_id ON scores(lead_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Runs

func (s *SQLiteStore) CreateRun(ctx context.Context, icpName string, icpConfig []byte, source string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, icp_name, icp_config, source, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, icpName, string(icpConfig), source, string(model.RunStatusCreated), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRun(ctx context.Context, runID string, upd model.RunUpdate) error {
	if upd.IsEmpty() {
		return nil
	}

	var sets []string
	var args []any
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}
	if upd.LeadsFetched != nil {
		sets = append(sets, "leads_fetched = ?")
		args = append(args, *upd.LeadsFetched)
	}
	if upd.LeadsEnriched != nil {
		sets = append(sets, "leads_enriched = ?")
		args = append(args, *upd.LeadsEnriched)
	}
	if upd.LeadsScored != nil {
		sets = append(sets, "leads_scored = ?")
		args = append(args, *upd.LeadsScored)
	}
	if upd.LeadsExported != nil {
		sets = append(sets, "leads_exported = ?")
		args = append(args, *upd.LeadsExported)
	}
	if upd.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *upd.ErrorMessage)
	}
	if upd.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, *upd.CompletedAt)
	}
	args = append(args, runID)

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, selectRunSQL+` WHERE id = ?`, runID)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := selectRunSQL + ` WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.ICPName != "" {
		query += ` AND icp_name = ?`
		args = append(args, filter.ICPName)
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) FailStaleRuns(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error_message = ?, completed_at = ?
		 WHERE status NOT IN (?, ?) AND started_at <= ?`,
		string(model.RunStatusFailed), "reaped: stale run", now,
		string(model.RunStatusCompleted), string(model.RunStatusFailed), cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: fail stale runs")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// Leads

// sqliteUpsertLead merges per column: a non-empty incoming value replaces the
// stored one, an empty incoming value keeps it. email_verified is sticky once
// true, raw_data is replaced wholesale when the incoming payload is present.
const sqliteUpsertLead = `
INSERT INTO leads (
	id, email, first_name, last_name, full_name, title, seniority,
	company_name, company_domain, company_size, company_industry,
	location, city, state, country, linkedin_url, email_verified,
	phone, source, raw_data, run_id, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(email) DO UPDATE SET
	first_name       = CASE WHEN excluded.first_name       != '' THEN excluded.first_name       ELSE leads.first_name       END,
	last_name        = CASE WHEN excluded.last_name        != '' THEN excluded.last_name        ELSE leads.last_name        END,
	full_name        = CASE WHEN excluded.full_name        != '' THEN excluded.full_name        ELSE leads.full_name        END,
	title            = CASE WHEN excluded.title            != '' THEN excluded.title            ELSE leads.title            END,
	seniority        = CASE WHEN excluded.seniority        != '' THEN excluded.seniority        ELSE leads.seniority        END,
	company_name     = CASE WHEN excluded.company_name     != '' THEN excluded.company_name     ELSE leads.company_name     END,
	company_domain   = CASE WHEN excluded.company_domain   != '' THEN excluded.company_domain   ELSE leads.company_domain   END,
	company_size     = CASE WHEN excluded.company_size     != '' THEN excluded.company_size     ELSE leads.company_size     END,
	company_industry = CASE WHEN excluded.company_industry != '' THEN excluded.company_industry ELSE leads.company_industry END,
	location         = CASE WHEN excluded.location         != '' THEN excluded.location         ELSE leads.location         END,
	city             = CASE WHEN excluded.city             != '' THEN excluded.city             ELSE leads.city             END,
	state            = CASE WHEN excluded.state            != '' THEN excluded.state            ELSE leads.state            END,
	country          = CASE WHEN excluded.country          != '' THEN excluded.country          ELSE leads.country          END,
	linkedin_url     = CASE WHEN excluded.linkedin_url     != '' THEN excluded.linkedin_url     ELSE leads.linkedin_url     END,
	email_verified   = MAX(leads.email_verified, excluded.email_verified),
	phone            = CASE WHEN excluded.phone            != '' THEN excluded.phone            ELSE leads.phone            END,
	source           = CASE WHEN excluded.source           != '' THEN excluded.source           ELSE leads.source           END,
	raw_data         = CASE WHEN excluded.raw_data         != '' THEN excluded.raw_data         ELSE leads.raw_data         END,
	run_id           = CASE WHEN excluded.run_id           != '' THEN excluded.run_id           ELSE leads.run_id           END,
	updated_at       = excluded.updated_at
RETURNING id, created_at, updated_at`

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead *model.Lead) (*UpsertResult, error) {
	email := model.NormalizeEmail(lead.Email)
	if email == "" {
		return nil, eris.New("sqlite: upsert lead: email required")
	}
	now := time.Now().UTC()
	newID := uuid.New().String()

	row := s.db.QueryRowContext(ctx, sqliteUpsertLead,
		newID, email, lead.FirstName, lead.LastName, lead.FullName,
		lead.Title, lead.Seniority, lead.CompanyName, lead.CompanyDomain,
		lead.CompanySize, lead.CompanyIndustry, lead.Location, lead.City,
		lead.State, lead.Country, lead.LinkedInURL, lead.EmailVerified,
		lead.Phone, lead.Source, string(lead.RawData), lead.RunID, now, now,
	)

	var id string
	var createdAt, updatedAt time.Time
	if err := row.Scan(&id, &createdAt, &updatedAt); err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert lead %s", email)
	}

	return &UpsertResult{LeadID: id, Created: createdAt.Equal(updatedAt)}, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx, selectLeadSQL+` WHERE id = ?`, leadID)
	return scanLead(row)
}

func (s *SQLiteStore) GetLeadByEmail(ctx context.Context, email string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx, selectLeadSQL+` WHERE email = ?`, model.NormalizeEmail(email))
	return scanLead(row)
}

// ListLeadsByRun returns the run's leads in fetch order.
func (s *SQLiteStore) ListLeadsByRun(ctx context.Context, runID string) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx, selectLeadSQL+` WHERE run_id = ? ORDER BY created_at, id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list leads for run %s", runID)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

// Enrichments

func (s *SQLiteStore) SaveEnrichment(ctx context.Context, e *model.Enrichment) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrichments (id, lead_id, source, data, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.LeadID, e.Source, string(e.Data), string(e.Status), e.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert enrichment for lead %s", e.LeadID)
}

// ListEnrichmentsByLead returns the lead's full enrichment history, newest
// first. Rows are never rewritten; a later row supersedes an earlier one.
func (s *SQLiteStore) ListEnrichmentsByLead(ctx context.Context, leadID string) ([]model.Enrichment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, source, data, status, created_at FROM enrichments
		 WHERE lead_id = ? ORDER BY created_at DESC, id DESC`,
		leadID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list enrichments for lead %s", leadID)
	}
	defer rows.Close()

	var out []model.Enrichment
	for rows.Next() {
		e, err := scanEnrichment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list enrichments iterate")
}

func (s *SQLiteStore) LatestEnrichment(ctx context.Context, leadID string) (*model.Enrichment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, lead_id, source, data, status, created_at FROM enrichments
		 WHERE lead_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		leadID,
	)
	e, err := scanEnrichment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// FindPendingEnrichmentByEmail resolves the lead by email and returns its
// most recent enrichment if that row is still pending. A completed or failed
// row appended later supersedes the pending one.
func (s *SQLiteStore) FindPendingEnrichmentByEmail(ctx context.Context, email string) (*model.Enrichment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT e.id, e.lead_id, e.source, e.data, e.status, e.created_at
		 FROM enrichments e JOIN leads l ON l.id = e.lead_id
		 WHERE l.email = ?
		 ORDER BY e.created_at DESC, e.id DESC LIMIT 1`,
		model.NormalizeEmail(email),
	)
	e, err := scanEnrichment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if e.Status != model.EnrichmentPending {
		return nil, nil
	}
	return e, nil
}

// Scores

func (s *SQLiteStore) SaveScore(ctx context.Context, sc *model.Score) error {
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}

	reasonsJSON, err := json.Marshal(sc.Reasons)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal reasons")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scores (id, lead_id, run_id, fit_score, reasons, icp_name, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.LeadID, sc.RunID, sc.FitScore, string(reasonsJSON), sc.ICPName, sc.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert score for lead %s", sc.LeadID)
}

// ListScoresByRun returns scores ordered by fit descending, ties broken by
// insertion order so exports are stable.
func (s *SQLiteStore) ListScoresByRun(ctx context.Context, runID string) ([]model.Score, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, run_id, fit_score, reasons, icp_name, created_at FROM scores
		 WHERE run_id = ? ORDER BY fit_score DESC, created_at, id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list scores for run %s", runID)
	}
	defer rows.Close()

	var scores []model.Score
	for rows.Next() {
		var sc model.Score
		var reasonsJSON string
		if err := rows.Scan(&sc.ID, &sc.LeadID, &sc.RunID, &sc.FitScore, &reasonsJSON, &sc.ICPName, &sc.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan score")
		}
		if err := json.Unmarshal([]byte(reasonsJSON), &sc.Reasons); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal reasons")
		}
		scores = append(scores, sc)
	}
	return scores, eris.Wrap(rows.Err(), "sqlite: list scores iterate")
}

// Aggregates

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{BySource: map[string]int{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&st.TotalLeads); err != nil {
		return nil, eris.Wrap(err, "sqlite: count leads")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		 FROM runs`,
		string(model.RunStatusCompleted), string(model.RunStatusFailed),
	)
	if err := row.Scan(&st.TotalRuns, &st.CompletedRuns, &st.FailedRuns); err != nil {
		return nil, eris.Wrap(err, "sqlite: count runs")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM leads GROUP BY source`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: leads by source")
	}
	defer rows.Close()
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source count")
		}
		st.BySource[src] = n
	}
	return st, eris.Wrap(rows.Err(), "sqlite: stats iterate")
}

// helpers

const selectRunSQL = `SELECT id, icp_name, icp_config, source, status,
	leads_fetched, leads_enriched, leads_scored, leads_exported,
	error_message, started_at, completed_at FROM runs`

const selectLeadSQL = `SELECT id, email, first_name, last_name, full_name, title,
	seniority, company_name, company_domain, company_size, company_industry,
	location, city, state, country, linkedin_url, email_verified, phone,
	source, raw_data, run_id, created_at, updated_at FROM leads`

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var icpConfig sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&r.ID, &r.ICPName, &icpConfig, &r.Source, &r.Status,
		&r.LeadsFetched, &r.LeadsEnriched, &r.LeadsScored, &r.LeadsExported,
		&r.ErrorMessage, &r.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if icpConfig.Valid && icpConfig.String != "" {
		r.ICPConfig = json.RawMessage(icpConfig.String)
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var rawData string

	err := row.Scan(&l.ID, &l.Email, &l.FirstName, &l.LastName, &l.FullName,
		&l.Title, &l.Seniority, &l.CompanyName, &l.CompanyDomain,
		&l.CompanySize, &l.CompanyIndustry, &l.Location, &l.City, &l.State,
		&l.Country, &l.LinkedInURL, &l.EmailVerified, &l.Phone, &l.Source,
		&rawData, &l.RunID, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("lead not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}

	if rawData != "" {
		l.RawData = json.RawMessage(rawData)
	}
	return &l, nil
}

func scanEnrichment(row scannable) (*model.Enrichment, error) {
	var e model.Enrichment
	var data string

	err := row.Scan(&e.ID, &e.LeadID, &e.Source, &data, &e.Status, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan enrichment")
	}
	if data != "" {
		e.Data = json.RawMessage(data)
	}
	return &e, nil
}
