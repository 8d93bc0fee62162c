// Package scorer computes 0-100 ICP fit scores for the leads of a run. Each
// rule checks one lead dimension against the ICP filters and awards that
// dimension's weight on a match. Unconstrained dimensions award their weight
// unconditionally so a fully matching lead always reaches the weight total.
package scorer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/yorulabs/leadgen-cli/internal/icp"
	"github.com/yorulabs/leadgen-cli/internal/model"
	"github.com/yorulabs/leadgen-cli/internal/store"
)

// Distribution summarizes the scores of a run for reporting.
type Distribution struct {
	High   int     `json:"high"`
	Medium int     `json:"medium"`
	Low    int     `json:"low"`
	Avg    float64 `json:"avg"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
}

// Result summarizes one scoring pass.
type Result struct {
	Scored       int
	Distribution Distribution
}

// Scorer scores leads against one ICP config.
type Scorer struct {
	store store.Store
	icp   *icp.Config
}

// New creates a scorer for the given ICP config.
func New(st store.Store, cfg *icp.Config) *Scorer {
	return &Scorer{store: st, icp: cfg}
}

// ScoreRun scores every lead of a run and persists one Score row per lead.
func (s *Scorer) ScoreRun(ctx context.Context, runID string) (*Result, error) {
	leads, err := s.store.ListLeadsByRun(ctx, runID)
	if err != nil {
		return nil, eris.Wrap(err, "scorer: list leads")
	}

	result := &Result{}
	var scores []int
	for i := range leads {
		fit, reasons := s.ScoreLead(&leads[i])
		score := &model.Score{
			LeadID:   leads[i].ID,
			RunID:    runID,
			FitScore: fit,
			Reasons:  reasons,
			ICPName:  s.icp.Name,
		}
		if err := s.store.SaveScore(ctx, score); err != nil {
			return result, eris.Wrapf(err, "scorer: save score for %s", leads[i].Email)
		}
		result.Scored++
		scores = append(scores, fit)
	}

	result.Distribution = Distribute(scores)
	zap.L().Info("run scored",
		zap.String("run_id", runID),
		zap.String("icp", s.icp.Name),
		zap.Int("scored", result.Scored),
		zap.Int("high", result.Distribution.High),
		zap.Int("medium", result.Distribution.Medium),
		zap.Int("low", result.Distribution.Low),
	)
	return result, nil
}

// ScoreLead evaluates one lead. The score is the sum of matched rule weights,
// clamped to 0-100; reasons name each matched rule.
func (s *Scorer) ScoreLead(lead *model.Lead) (int, []string) {
	w := s.icp.Weights
	f := s.icp.Filters
	total := 0
	var reasons []string

	award := func(weight int, reason string) {
		total += weight
		if reason != "" {
			reasons = append(reasons, reason)
		}
	}

	if len(f.Titles) == 0 {
		award(w.Title, "")
	} else if match := containsFold(f.Titles, lead.Title); match != "" {
		award(w.Title, fmt.Sprintf("title matches %q", match))
	}

	if len(f.Seniorities) == 0 {
		award(w.Seniority, "")
	} else if match := equalsFold(f.Seniorities, lead.Seniority); match != "" {
		award(w.Seniority, fmt.Sprintf("seniority is %s", match))
	}

	if len(f.Industries) == 0 {
		award(w.Industry, "")
	} else if match := containsFold(f.Industries, lead.CompanyIndustry); match != "" {
		award(w.Industry, fmt.Sprintf("industry matches %q", match))
	}

	if len(f.CompanySizes) == 0 {
		award(w.CompanySize, "")
	} else if match := equalsFold(f.CompanySizes, lead.CompanySize); match != "" {
		award(w.CompanySize, fmt.Sprintf("company size %s", match))
	}

	if len(f.Locations) == 0 {
		award(w.Location, "")
	} else if match := containsFold(f.Locations, lead.Location); match != "" {
		award(w.Location, fmt.Sprintf("located in %s", match))
	}

	if lead.EmailVerified {
		award(w.EmailVerified, "email verified")
	}

	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	return total, reasons
}

// Distribute bands a score list and computes the summary stats.
func Distribute(scores []int) Distribution {
	d := Distribution{}
	if len(scores) == 0 {
		return d
	}

	sum := 0
	d.Min = scores[0]
	d.Max = scores[0]
	for _, fit := range scores {
		sum += fit
		if fit < d.Min {
			d.Min = fit
		}
		if fit > d.Max {
			d.Max = fit
		}
		switch model.BandFor(fit) {
		case model.FitHigh:
			d.High++
		case model.FitMedium:
			d.Medium++
		default:
			d.Low++
		}
	}
	d.Avg = float64(sum) / float64(len(scores))
	return d
}

// containsFold returns the first candidate that appears in value (or the
// reverse), case-insensitively. "VP of Engineering" matches filter "VP".
func containsFold(candidates []string, value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ""
	}
	for _, c := range candidates {
		cl := strings.ToLower(strings.TrimSpace(c))
		if cl == "" {
			continue
		}
		if strings.Contains(v, cl) || strings.Contains(cl, v) {
			return c
		}
	}
	return ""
}

// equalsFold returns the first candidate equal to value, case-insensitively.
func equalsFold(candidates []string, value string) string {
	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(value)) && strings.TrimSpace(value) != "" {
			return c
		}
	}
	return ""
}
