package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yorulabs/leadgen-cli/internal/icp"
	"github.com/yorulabs/leadgen-cli/internal/model"
	"github.com/yorulabs/leadgen-cli/internal/store"
	"github.com/yorulabs/leadgen-cli/pkg/apollo"
)

// SourceApollo is the source name recorded on runs and leads.
const SourceApollo = "apollo_api"

// ApolloConfig configures an Apollo search ingestion.
type ApolloConfig struct {
	Filters icp.Filters
	PerPage int
	Limit   int // 0 = fetch everything the search returns
}

// ApolloSource pages through an Apollo people search.
type ApolloSource struct {
	client  apollo.Client
	store   store.Store
	cfg     ApolloConfig
	limiter *rate.Limiter
}

// NewApolloSource creates an Apollo search source.
func NewApolloSource(client apollo.Client, st store.Store, cfg ApolloConfig) *ApolloSource {
	return &ApolloSource{
		client: client,
		store:  st,
		cfg:    cfg,
		// Courtesy pacing between pages, on top of the client's 429 handling.
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

func (s *ApolloSource) Name() string { return SourceApollo }

func (s *ApolloSource) Ingest(ctx context.Context, runID string) (*Result, error) {
	log := zap.L().With(zap.String("source", SourceApollo), zap.String("run_id", runID))
	result := &Result{}

	for page := 1; ; page++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return result, eris.Wrap(err, "ingest: apollo pacing")
		}

		resp, err := s.client.SearchPeople(ctx, apollo.SearchRequest{
			Page:                           page,
			PerPage:                        s.cfg.PerPage,
			PersonTitles:                   s.cfg.Filters.Titles,
			PersonSeniorities:              s.cfg.Filters.Seniorities,
			PersonLocations:                s.cfg.Filters.Locations,
			OrganizationNumEmployeesRanges: s.cfg.Filters.CompanySizes,
			QKeywords:                      joinKeywords(s.cfg.Filters.Keywords),
		})
		if err != nil {
			return result, eris.Wrapf(err, "ingest: apollo search page %d", page)
		}

		for i := range resp.People {
			if s.cfg.Limit > 0 && result.Fetched >= s.cfg.Limit {
				return result, nil
			}

			lead := LeadFromPerson(&resp.People[i])
			if lead.Email == "" {
				result.Skipped++
				continue
			}
			lead.RunID = runID

			up, err := s.store.UpsertLead(ctx, lead)
			if err != nil {
				return result, eris.Wrap(err, "ingest: apollo upsert")
			}
			result.Fetched++
			if up.Created {
				result.Created++
			}
		}

		log.Debug("page ingested",
			zap.Int("page", page),
			zap.Int("total_pages", resp.Pagination.TotalPages),
			zap.Int("fetched", result.Fetched),
		)

		if page >= resp.Pagination.TotalPages || len(resp.People) == 0 {
			return result, nil
		}
		if s.cfg.Limit > 0 && result.Fetched >= s.cfg.Limit {
			return result, nil
		}
	}
}

// LeadFromPerson normalizes an Apollo person record.
func LeadFromPerson(p *apollo.Person) *model.Lead {
	lead := &model.Lead{
		Email:         model.NormalizeEmail(p.Email),
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		FullName:      p.Name,
		Title:         p.Title,
		Seniority:     p.Seniority,
		City:          p.City,
		State:         p.State,
		Country:       p.Country,
		LinkedInURL:   p.LinkedInURL,
		EmailVerified: p.EmailStatus == "verified",
		Source:        SourceApollo,
	}
	lead.Location = JoinLocation(p.City, p.State, p.Country)
	if lead.FullName == "" {
		lead.FullName = JoinName(p.FirstName, p.LastName)
	}
	if len(p.PhoneNumbers) > 0 {
		lead.Phone = p.PhoneNumbers[0].RawNumber
	}
	if org := p.Organization; org != nil {
		lead.CompanyName = org.Name
		lead.CompanyDomain = org.PrimaryDomain
		lead.CompanyIndustry = org.Industry
		lead.CompanySize = model.CompanySizeBucket(org.EstimatedNumEmployees)
	}
	if raw, err := json.Marshal(p); err == nil {
		lead.RawData = raw
	}
	return lead
}

func joinKeywords(keywords []string) string {
	out := ""
	for i, k := range keywords {
		if i > 0 {
			out += " "
		}
		out += k
	}
	return out
}
