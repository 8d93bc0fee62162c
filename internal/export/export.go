// Package export renders the scored leads of a run into deliverable files:
// a flat CSV, a JSON run summary, and an optional XLSX workbook.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/yorulabs/leadgen-cli/internal/model"
	"github.com/yorulabs/leadgen-cli/internal/scorer"
	"github.com/yorulabs/leadgen-cli/internal/store"
)

// csvHeader is the fixed 19-column lead projection shared by CSV and XLSX.
var csvHeader = []string{
	"email", "full_name", "first_name", "last_name", "title", "seniority",
	"company_name", "company_domain", "company_size", "company_industry",
	"city", "state", "country", "linkedin_url", "phone",
	"fit_score", "score_reasons", "email_verified", "source",
}

// Artifact describes one written export file.
type Artifact struct {
	Path string
	Rows int
}

// row joins a lead with its score for this run. Leads never scored carry 0.
type row struct {
	lead    *model.Lead
	fit     int
	reasons []string
}

// Exporter writes run artifacts into a target directory.
type Exporter struct {
	store   store.Store
	dir     string
	csvName string
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithCSVFilename overrides the date-stamped name of the CSV artifact.
func WithCSVFilename(name string) Option {
	return func(e *Exporter) { e.csvName = name }
}

// New creates an exporter writing into dir.
func New(st store.Store, dir string, opts ...Option) *Exporter {
	e := &Exporter{store: st, dir: dir}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportCSV writes leads_<date>.csv (or the configured override) for the run,
// ordered by fit score descending with ties kept in fetch order, and records
// the exported count on the run.
func (e *Exporter) ExportCSV(ctx context.Context, run *model.Run) (*Artifact, error) {
	rows, err := e.rowsForRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	name := e.csvName
	if name == "" {
		name = "leads_" + time.Now().UTC().Format("2006-01-02") + ".csv"
	}
	path := filepath.Join(e.dir, name)
	if err := e.ensureDir(); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return nil, eris.Wrap(err, "export: write csv header")
	}
	for _, r := range rows {
		if err := w.Write(projectRow(r)); err != nil {
			return nil, eris.Wrap(err, "export: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "export: flush csv")
	}

	if err := e.bumpExported(ctx, run.ID, len(rows)); err != nil {
		return nil, err
	}
	zap.L().Info("csv exported", zap.String("path", path), zap.Int("rows", len(rows)))
	return &Artifact{Path: path, Rows: len(rows)}, nil
}

// ExportXLSX writes leads_<date>.xlsx with the same projection as the CSV.
func (e *Exporter) ExportXLSX(ctx context.Context, run *model.Run) (*Artifact, error) {
	rows, err := e.rowsForRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Leads")
	if err != nil {
		return nil, eris.Wrap(err, "export: add xlsx sheet")
	}

	hr := sheet.AddRow()
	for _, col := range csvHeader {
		hr.AddCell().SetString(col)
	}
	for _, r := range rows {
		xr := sheet.AddRow()
		for i, v := range projectRow(r) {
			cell := xr.AddCell()
			if csvHeader[i] == "fit_score" {
				cell.SetInt(r.fit)
			} else {
				cell.SetString(v)
			}
		}
	}

	path := filepath.Join(e.dir, "leads_"+time.Now().UTC().Format("2006-01-02")+".xlsx")
	if err := e.ensureDir(); err != nil {
		return nil, err
	}
	if err := file.Save(path); err != nil {
		return nil, eris.Wrapf(err, "export: save %s", path)
	}

	if err := e.bumpExported(ctx, run.ID, len(rows)); err != nil {
		return nil, err
	}
	zap.L().Info("xlsx exported", zap.String("path", path), zap.Int("rows", len(rows)))
	return &Artifact{Path: path, Rows: len(rows)}, nil
}

// Summary is the run_<id>.json payload.
type Summary struct {
	RunID        string              `json:"run_id"`
	ICPName      string              `json:"icp_name"`
	Source       string              `json:"source"`
	GeneratedAt  time.Time           `json:"generated_at"`
	TotalLeads   int                 `json:"total_leads"`
	Distribution scorer.Distribution `json:"distribution"`
	TopLeads     []TopLead           `json:"top_leads"`
	ICPConfig    json.RawMessage     `json:"icp_config,omitempty"`
}

// TopLead is one of the summary's best-scoring leads.
type TopLead struct {
	Email       string   `json:"email"`
	FullName    string   `json:"full_name,omitempty"`
	Title       string   `json:"title,omitempty"`
	CompanyName string   `json:"company_name,omitempty"`
	FitScore    int      `json:"fit_score"`
	Reasons     []string `json:"reasons,omitempty"`
}

// ExportJSON writes run_<id>.json: band counts, score stats, the top ten
// leads with their top three reasons, and the ICP snapshot from the ledger.
func (e *Exporter) ExportJSON(ctx context.Context, run *model.Run) (*Artifact, error) {
	rows, err := e.rowsForRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	scores := make([]int, len(rows))
	for i, r := range rows {
		scores[i] = r.fit
	}

	summary := Summary{
		RunID:        run.ID,
		ICPName:      run.ICPName,
		Source:       run.Source,
		GeneratedAt:  time.Now().UTC(),
		TotalLeads:   len(rows),
		Distribution: scorer.Distribute(scores),
		ICPConfig:    run.ICPConfig,
	}
	for _, r := range rows[:min(10, len(rows))] {
		summary.TopLeads = append(summary.TopLeads, TopLead{
			Email:       r.lead.Email,
			FullName:    r.lead.FullName,
			Title:       r.lead.Title,
			CompanyName: r.lead.CompanyName,
			FitScore:    r.fit,
			Reasons:     r.reasons[:min(3, len(r.reasons))],
		})
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal summary")
	}

	path := filepath.Join(e.dir, "run_"+run.ID+".json")
	if err := e.ensureDir(); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, eris.Wrapf(err, "export: write %s", path)
	}

	if err := e.bumpExported(ctx, run.ID, len(rows)); err != nil {
		return nil, err
	}
	zap.L().Info("summary exported", zap.String("path", path), zap.Int("leads", len(rows)))
	return &Artifact{Path: path, Rows: len(rows)}, nil
}

// rowsForRun joins leads with their scores, ordered fit desc with ties in
// fetch order.
func (e *Exporter) rowsForRun(ctx context.Context, runID string) ([]row, error) {
	leads, err := e.store.ListLeadsByRun(ctx, runID)
	if err != nil {
		return nil, eris.Wrap(err, "export: list leads")
	}
	scores, err := e.store.ListScoresByRun(ctx, runID)
	if err != nil {
		return nil, eris.Wrap(err, "export: list scores")
	}

	byLead := make(map[string]*model.Score, len(scores))
	for i := range scores {
		byLead[scores[i].LeadID] = &scores[i]
	}

	rows := make([]row, len(leads))
	for i := range leads {
		rows[i] = row{lead: &leads[i]}
		if s, ok := byLead[leads[i].ID]; ok {
			rows[i].fit = s.FitScore
			rows[i].reasons = s.Reasons
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].fit > rows[j].fit })
	return rows, nil
}

func (e *Exporter) ensureDir() error {
	return eris.Wrapf(os.MkdirAll(e.dir, 0o755), "export: mkdir %s", e.dir)
}

func (e *Exporter) bumpExported(ctx context.Context, runID string, n int) error {
	err := e.store.UpdateRun(ctx, runID, model.RunUpdate{LeadsExported: &n})
	return eris.Wrap(err, "export: record exported count")
}

func projectRow(r row) []string {
	l := r.lead
	return []string{
		l.Email, l.FullName, l.FirstName, l.LastName, l.Title, l.Seniority,
		l.CompanyName, l.CompanyDomain, l.CompanySize, l.CompanyIndustry,
		l.City, l.State, l.Country, l.LinkedInURL, l.Phone,
		strconv.Itoa(r.fit), strings.Join(r.reasons, "; "),
		strconv.FormatBool(l.EmailVerified), l.Source,
	}
}
