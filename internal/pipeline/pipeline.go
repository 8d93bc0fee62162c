// Package pipeline drives one end-to-end run: ingest, enrich, score, export.
// Each invocation gets a fresh run id in the ledger and walks the status
// machine created → ingesting → enriching → scoring → exporting → completed.
// Ingest and scoring failures fail the run; enrichment and export are
// best-effort and only log.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/yorulabs/leadgen-cli/internal/enrich"
	"github.com/yorulabs/leadgen-cli/internal/export"
	"github.com/yorulabs/leadgen-cli/internal/icp"
	"github.com/yorulabs/leadgen-cli/internal/ingest"
	"github.com/yorulabs/leadgen-cli/internal/model"
	"github.com/yorulabs/leadgen-cli/internal/scorer"
	"github.com/yorulabs/leadgen-cli/internal/store"
)

// StepStatus is the outcome class of one pipeline step.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"
	StepSkipped StepStatus = "skipped"
)

// StepResult reports one step of a run.
type StepResult struct {
	Name    string     `json:"name"`
	Status  StepStatus `json:"status"`
	Message string     `json:"message,omitempty"`
	Count   int        `json:"count,omitempty"`
}

// Outcome is the full report of one pipeline invocation.
type Outcome struct {
	RunID  string          `json:"run_id"`
	Status model.RunStatus `json:"status"`
	Steps  []StepResult    `json:"steps"`
}

// Enricher dispatches a run's leads for enrichment.
type Enricher interface {
	EnrichRun(ctx context.Context, runID string) (*enrich.Result, error)
}

// Scorer scores a run's leads.
type Scorer interface {
	ScoreRun(ctx context.Context, runID string) (*scorer.Result, error)
}

// Exporter writes a run's artifacts.
type Exporter interface {
	ExportCSV(ctx context.Context, run *model.Run) (*export.Artifact, error)
	ExportJSON(ctx context.Context, run *model.Run) (*export.Artifact, error)
	ExportXLSX(ctx context.Context, run *model.Run) (*export.Artifact, error)
}

// Pipeline wires the steps of a run together.
type Pipeline struct {
	store    store.Store
	source   ingest.Source
	icp      *icp.Config
	enricher Enricher // nil skips the enrichment step
	scorer   Scorer
	exporter Exporter
	xlsx     bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEnricher enables the enrichment step.
func WithEnricher(e Enricher) Option {
	return func(p *Pipeline) { p.enricher = e }
}

// WithScorer replaces the default ICP scorer.
func WithScorer(s Scorer) Option {
	return func(p *Pipeline) { p.scorer = s }
}

// WithExporter replaces the default exporter.
func WithExporter(e Exporter) Option {
	return func(p *Pipeline) { p.exporter = e }
}

// WithXLSX adds the XLSX workbook to the export step.
func WithXLSX() Option {
	return func(p *Pipeline) { p.xlsx = true }
}

// New creates a pipeline for one ICP and source. By default it scores with
// the rule scorer, exports into exportDir, and skips enrichment.
func New(st store.Store, source ingest.Source, icpCfg *icp.Config, exportDir string, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    st,
		source:   source,
		icp:      icpCfg,
		scorer:   scorer.New(st, icpCfg),
		exporter: export.New(st, exportDir),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline once. A non-nil Outcome is always returned when a
// run was created; the error covers ledger failures before or during the run.
// Panics in any step are caught and fail the run.
func (p *Pipeline) Run(ctx context.Context) (outcome *Outcome, err error) {
	snapshot, err := p.icp.Snapshot()
	if err != nil {
		return nil, err
	}
	run, err := p.store.CreateRun(ctx, p.icp.Name, snapshot, p.source.Name())
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	outcome = &Outcome{RunID: run.ID, Status: model.RunStatusCreated}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("icp", p.icp.Name))
	log.Info("run started", zap.String("source", p.source.Name()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panicked", zap.Any("panic", r))
			msg := fmt.Sprintf("panic: %v", r)
			p.failRun(run.ID, msg)
			outcome.Status = model.RunStatusFailed
			outcome.Steps = append(outcome.Steps, StepResult{Name: "pipeline", Status: StepError, Message: msg})
			err = eris.Errorf("pipeline: run %s panicked: %v", run.ID, r)
		}
	}()

	if !p.ingestStep(ctx, run.ID, outcome, log) {
		return outcome, nil
	}
	p.enrichStep(ctx, run.ID, outcome, log)
	if !p.scoreStep(ctx, run.ID, outcome, log) {
		return outcome, nil
	}
	p.exportStep(ctx, run.ID, outcome, log)

	now := time.Now().UTC()
	status := model.RunStatusCompleted
	if err := p.store.UpdateRun(ctx, run.ID, model.RunUpdate{Status: &status, CompletedAt: &now}); err != nil {
		return outcome, eris.Wrap(err, "pipeline: complete run")
	}
	outcome.Status = model.RunStatusCompleted
	log.Info("run completed")
	return outcome, nil
}

// ingestStep returns false when the run has been failed.
func (p *Pipeline) ingestStep(ctx context.Context, runID string, outcome *Outcome, log *zap.Logger) bool {
	p.setStatus(ctx, runID, model.RunStatusIngesting)
	res, err := p.source.Ingest(ctx, runID)
	if err != nil {
		log.Error("ingest failed", zap.Error(err))
		p.failRun(runID, err.Error())
		outcome.Status = model.RunStatusFailed
		outcome.Steps = append(outcome.Steps, StepResult{Name: "ingest", Status: StepError, Message: err.Error()})
		return false
	}

	fetched := res.Fetched
	if err := p.store.UpdateRun(ctx, runID, model.RunUpdate{LeadsFetched: &fetched}); err != nil {
		log.Warn("recording fetched count failed", zap.Error(err))
	}
	outcome.Steps = append(outcome.Steps, StepResult{
		Name:    "ingest",
		Status:  StepSuccess,
		Message: fmt.Sprintf("%d fetched, %d new, %d skipped", res.Fetched, res.Created, res.Skipped),
		Count:   res.Fetched,
	})
	return true
}

func (p *Pipeline) enrichStep(ctx context.Context, runID string, outcome *Outcome, log *zap.Logger) {
	if p.enricher == nil {
		outcome.Steps = append(outcome.Steps, StepResult{
			Name:    "enrich",
			Status:  StepSkipped,
			Message: "clay webhook not configured",
		})
		return
	}

	p.setStatus(ctx, runID, model.RunStatusEnriching)
	res, err := p.enricher.EnrichRun(ctx, runID)
	if err != nil {
		// Best-effort step: the run continues on to scoring.
		log.Warn("enrichment failed", zap.Error(err))
		outcome.Steps = append(outcome.Steps, StepResult{Name: "enrich", Status: StepError, Message: err.Error()})
		return
	}

	sent := res.Sent
	if err := p.store.UpdateRun(ctx, runID, model.RunUpdate{LeadsEnriched: &sent}); err != nil {
		log.Warn("recording enriched count failed", zap.Error(err))
	}
	outcome.Steps = append(outcome.Steps, StepResult{
		Name:    "enrich",
		Status:  StepSuccess,
		Message: fmt.Sprintf("%d sent, %d failed", res.Sent, res.Failed),
		Count:   sent,
	})
}

// scoreStep returns false when the run has been failed.
func (p *Pipeline) scoreStep(ctx context.Context, runID string, outcome *Outcome, log *zap.Logger) bool {
	p.setStatus(ctx, runID, model.RunStatusScoring)
	res, err := p.scorer.ScoreRun(ctx, runID)
	if err != nil {
		log.Error("scoring failed", zap.Error(err))
		p.failRun(runID, err.Error())
		outcome.Status = model.RunStatusFailed
		outcome.Steps = append(outcome.Steps, StepResult{Name: "score", Status: StepError, Message: err.Error()})
		return false
	}

	scored := res.Scored
	if err := p.store.UpdateRun(ctx, runID, model.RunUpdate{LeadsScored: &scored}); err != nil {
		log.Warn("recording scored count failed", zap.Error(err))
	}
	outcome.Steps = append(outcome.Steps, StepResult{
		Name:    "score",
		Status:  StepSuccess,
		Message: fmt.Sprintf("%d scored (%d high / %d medium / %d low)", res.Scored, res.Distribution.High, res.Distribution.Medium, res.Distribution.Low),
		Count:   scored,
	})
	return true
}

func (p *Pipeline) exportStep(ctx context.Context, runID string, outcome *Outcome, log *zap.Logger) {
	p.setStatus(ctx, runID, model.RunStatusExporting)
	run, err := p.store.GetRun(ctx, runID)
	if err != nil {
		log.Warn("loading run for export failed", zap.Error(err))
		outcome.Steps = append(outcome.Steps, StepResult{Name: "export", Status: StepError, Message: err.Error()})
		return
	}

	var paths, failures []string
	var rows int
	exports := []func(context.Context, *model.Run) (*export.Artifact, error){
		p.exporter.ExportCSV,
		p.exporter.ExportJSON,
	}
	if p.xlsx {
		exports = append(exports, p.exporter.ExportXLSX)
	}
	for _, fn := range exports {
		art, err := fn(ctx, run)
		if err != nil {
			// Best-effort: a failed artifact neither fails the run nor stops
			// the remaining artifacts.
			log.Warn("export artifact failed", zap.Error(err))
			failures = append(failures, err.Error())
			continue
		}
		paths = append(paths, art.Path)
		rows = art.Rows
	}

	step := StepResult{
		Name:    "export",
		Status:  StepSuccess,
		Message: fmt.Sprintf("wrote %v", paths),
		Count:   rows,
	}
	if len(failures) > 0 {
		step.Status = StepError
		step.Message = fmt.Sprintf("wrote %v; failed: %s", paths, strings.Join(failures, "; "))
	}
	outcome.Steps = append(outcome.Steps, step)
}

func (p *Pipeline) setStatus(ctx context.Context, runID string, status model.RunStatus) {
	if err := p.store.UpdateRun(ctx, runID, model.RunUpdate{Status: &status}); err != nil {
		zap.L().Warn("status transition failed",
			zap.String("run_id", runID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// failRun marks the run failed. Uses a fresh context so a canceled run still
// gets its terminal state recorded.
func (p *Pipeline) failRun(runID, message string) {
	status := model.RunStatusFailed
	now := time.Now().UTC()
	upd := model.RunUpdate{Status: &status, ErrorMessage: &message, CompletedAt: &now}
	if err := p.store.UpdateRun(context.Background(), runID, upd); err != nil {
		zap.L().Error("marking run failed failed", zap.String("run_id", runID), zap.Error(err))
	}
}
