package ingest

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/yorulabs/leadgen-cli/internal/model"
	"github.com/yorulabs/leadgen-cli/internal/store"
	"github.com/yorulabs/leadgen-cli/pkg/apify"
	"github.com/yorulabs/leadgen-cli/pkg/apollo"
)

// SourceApify is the source name recorded on runs and leads.
const SourceApify = "apify_linkedin"

// profileItem is the shape the LinkedIn profile scraper actors emit.
type profileItem struct {
	FullName    string `json:"fullName"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Headline    string `json:"headline"`
	JobTitle    string `json:"jobTitle"`
	CompanyName string `json:"companyName"`
	Location    string `json:"location"`
	Email       string `json:"email"`
	LinkedInURL string `json:"linkedinUrl"`
}

// ApifyConfig configures a LinkedIn scrape ingestion.
type ApifyConfig struct {
	ActorID     string
	ProfileURLs []string
	Limit       int
}

// ApifySource scrapes LinkedIn profiles via an Apify actor and fills in
// missing emails through Apollo match when an Apollo client is provided.
type ApifySource struct {
	scraper apify.Client
	matcher apollo.Client // optional
	store   store.Store
	cfg     ApifyConfig
}

// NewApifySource creates a LinkedIn scrape source. matcher may be nil, in
// which case profiles without an email are skipped.
func NewApifySource(scraper apify.Client, matcher apollo.Client, st store.Store, cfg ApifyConfig) *ApifySource {
	return &ApifySource{scraper: scraper, matcher: matcher, store: st, cfg: cfg}
}

func (s *ApifySource) Name() string { return SourceApify }

func (s *ApifySource) Ingest(ctx context.Context, runID string) (*Result, error) {
	log := zap.L().With(zap.String("source", SourceApify), zap.String("run_id", runID))

	items, err := s.scraper.RunActorSync(ctx, s.cfg.ActorID, map[string]any{
		"profileUrls": s.cfg.ProfileURLs,
	})
	if err != nil {
		return nil, eris.Wrap(err, "ingest: apify run actor")
	}
	log.Info("scrape finished", zap.Int("items", len(items)))

	result := &Result{}
	for _, raw := range items {
		if s.cfg.Limit > 0 && result.Fetched >= s.cfg.Limit {
			break
		}

		var item profileItem
		if err := json.Unmarshal(raw, &item); err != nil {
			result.Skipped++
			continue
		}

		lead := s.leadFromProfile(ctx, &item, raw)
		if lead.Email == "" {
			result.Skipped++
			continue
		}
		lead.RunID = runID

		up, err := s.store.UpsertLead(ctx, lead)
		if err != nil {
			return result, eris.Wrap(err, "ingest: apify upsert")
		}
		result.Fetched++
		if up.Created {
			result.Created++
		}
	}
	return result, nil
}

func (s *ApifySource) leadFromProfile(ctx context.Context, item *profileItem, raw json.RawMessage) *model.Lead {
	lead := &model.Lead{
		Email:       model.NormalizeEmail(item.Email),
		FirstName:   item.FirstName,
		LastName:    item.LastName,
		FullName:    item.FullName,
		Title:       item.JobTitle,
		CompanyName: item.CompanyName,
		Location:    item.Location,
		LinkedInURL: item.LinkedInURL,
		Source:      SourceApify,
		RawData:     raw,
	}
	if lead.Title == "" {
		lead.Title = item.Headline
	}
	if lead.FullName == "" {
		lead.FullName = JoinName(item.FirstName, item.LastName)
	}

	// Scraped profiles rarely expose an email; resolve through Apollo match.
	if lead.Email == "" && s.matcher != nil && lead.LinkedInURL != "" {
		person, err := s.matcher.MatchPerson(ctx, apollo.MatchRequest{LinkedInURL: lead.LinkedInURL})
		if err != nil {
			zap.L().Debug("apollo match failed",
				zap.String("linkedin_url", lead.LinkedInURL),
				zap.Error(err),
			)
			return lead
		}
		matched := LeadFromPerson(person)
		matched.RawData = nil // keep the scrape payload
		lead.Merge(*matched)
		lead.Email = matched.Email
		lead.Source = SourceApify
	}
	return lead
}
