// Package enrich pushes leads to a Clay webhook for asynchronous enrichment.
// Clay replies out of band; the serve command's callback endpoint completes
// the pending rows this package creates.
package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yorulabs/leadgen-cli/internal/model"
	"github.com/yorulabs/leadgen-cli/internal/store"
	"github.com/yorulabs/leadgen-cli/pkg/clay"
)

// SourceClay is the source recorded on enrichment rows.
const SourceClay = "clay"

// maxErrors caps how many per-lead errors a Result carries.
const maxErrors = 10

// defaultBatchSize is the number of sends between courtesy pauses.
const defaultBatchSize = 10

// Result summarizes one enrichment pass over a run.
type Result struct {
	Sent   int      // pending enrichment rows created
	Failed int      // leads whose send failed
	Errors []string // first maxErrors failure messages
}

// Dispatcher sends run leads to Clay one at a time, pausing between batches.
type Dispatcher struct {
	client    clay.Client
	store     store.Store
	batchSize int
	limiter   *rate.Limiter
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithBatchSize overrides the courtesy-pause batch size.
func WithBatchSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// NewDispatcher creates a Clay enrichment dispatcher.
func NewDispatcher(client clay.Client, st store.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:    client,
		store:     st,
		batchSize: defaultBatchSize,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// EnrichRun sends every lead of a run to the webhook. Individual failures are
// recorded and do not stop the pass; the error return is reserved for store
// failures.
func (d *Dispatcher) EnrichRun(ctx context.Context, runID string) (*Result, error) {
	log := zap.L().With(zap.String("run_id", runID))

	leads, err := d.store.ListLeadsByRun(ctx, runID)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list leads")
	}

	result := &Result{}
	for i := range leads {
		if i > 0 && i%d.batchSize == 0 {
			if err := d.limiter.Wait(ctx); err != nil {
				return result, eris.Wrap(err, "enrich: batch pacing")
			}
		}

		if err := d.sendOne(ctx, &leads[i]); err != nil {
			result.Failed++
			if len(result.Errors) < maxErrors {
				result.Errors = append(result.Errors, err.Error())
			}
			log.Warn("clay send failed",
				zap.String("lead_id", leads[i].ID),
				zap.String("email", leads[i].Email),
				zap.Error(err),
			)
			continue
		}
		result.Sent++
	}

	log.Info("enrichment dispatched",
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, lead *model.Lead) error {
	if _, err := d.client.SendLead(ctx, Payload(lead)); err != nil {
		return eris.Wrapf(err, "enrich: send lead %s", lead.Email)
	}

	e := &model.Enrichment{
		LeadID: lead.ID,
		Source: SourceClay,
		Status: model.EnrichmentPending,
	}
	if err := d.store.SaveEnrichment(ctx, e); err != nil {
		return eris.Wrapf(err, "enrich: save pending row for %s", lead.Email)
	}
	return nil
}

// Payload is the JSON body Clay receives for a lead. Field names are the
// column keys configured on the Clay table.
func Payload(lead *model.Lead) map[string]any {
	return map[string]any{
		"lead_id":          lead.ID,
		"email":            lead.Email,
		"full_name":        lead.FullName,
		"first_name":       lead.FirstName,
		"last_name":        lead.LastName,
		"title":            lead.Title,
		"company_name":     lead.CompanyName,
		"company_domain":   lead.CompanyDomain,
		"linkedin_url":     lead.LinkedInURL,
		"location":         lead.Location,
		"company_industry": lead.CompanyIndustry,
	}
}
