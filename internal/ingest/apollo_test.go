package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorulabs/leadgen-cli/internal/icp"
	"github.com/yorulabs/leadgen-cli/pkg/apollo"
)

type fakeApollo struct {
	pages    [][]apollo.Person
	requests []apollo.SearchRequest
	matched  *apollo.Person
	matchErr error
}

func (f *fakeApollo) SearchPeople(_ context.Context, req apollo.SearchRequest) (*apollo.SearchResponse, error) {
	f.requests = append(f.requests, req)
	page := req.Page
	if page < 1 || page > len(f.pages) {
		return &apollo.SearchResponse{Pagination: apollo.Pagination{Page: page, TotalPages: len(f.pages)}}, nil
	}
	return &apollo.SearchResponse{
		People:     f.pages[page-1],
		Pagination: apollo.Pagination{Page: page, TotalPages: len(f.pages)},
	}, nil
}

func (f *fakeApollo) MatchPerson(context.Context, apollo.MatchRequest) (*apollo.Person, error) {
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	return f.matched, nil
}

func makePeople(start, n int) []apollo.Person {
	people := make([]apollo.Person, n)
	for i := range people {
		people[i] = apollo.Person{
			Email:       fmt.Sprintf("person%d@acme.com", start+i),
			FirstName:   "Person",
			LastName:    fmt.Sprintf("N%d", start+i),
			EmailStatus: "verified",
		}
	}
	return people
}

func TestApolloSource_PagesUntilExhausted(t *testing.T) {
	st := newTestStore(t)
	client := &fakeApollo{pages: [][]apollo.Person{makePeople(0, 3), makePeople(3, 2)}}

	src := NewApolloSource(client, st, ApolloConfig{
		Filters: icp.Filters{Titles: []string{"VP of Engineering"}, Keywords: []string{"saas", "b2b"}},
		PerPage: 3,
	})
	res, err := src.Ingest(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Fetched)
	assert.Equal(t, 5, res.Created)
	assert.Equal(t, 0, res.Skipped)

	require.Len(t, client.requests, 2)
	assert.Equal(t, 1, client.requests[0].Page)
	assert.Equal(t, 2, client.requests[1].Page)
	assert.Equal(t, []string{"VP of Engineering"}, client.requests[0].PersonTitles)
	assert.Equal(t, "saas b2b", client.requests[0].QKeywords)

	leads, err := st.ListLeadsByRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Len(t, leads, 5)
	assert.True(t, leads[0].EmailVerified)
}

func TestApolloSource_StopsAtLimit(t *testing.T) {
	st := newTestStore(t)
	client := &fakeApollo{pages: [][]apollo.Person{makePeople(0, 5), makePeople(5, 5)}}

	src := NewApolloSource(client, st, ApolloConfig{Limit: 3})
	res, err := src.Ingest(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Fetched)
	assert.Len(t, client.requests, 1) // never asked for page 2
}

func TestApolloSource_SkipsPeopleWithoutEmail(t *testing.T) {
	st := newTestStore(t)
	people := makePeople(0, 2)
	people = append(people, apollo.Person{FirstName: "No", LastName: "Email"})
	client := &fakeApollo{pages: [][]apollo.Person{people}}

	src := NewApolloSource(client, st, ApolloConfig{})
	res, err := src.Ingest(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 1, res.Skipped)
}

func TestLeadFromPerson(t *testing.T) {
	p := &apollo.Person{
		ID:          "p1",
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "Jane@Acme.com",
		Title:       "CTO",
		Seniority:   "c_suite",
		City:        "Austin",
		State:       "Texas",
		Country:     "United States",
		EmailStatus: "verified",
		PhoneNumbers: []apollo.PhoneNumber{
			{RawNumber: "+1 555 0100"},
		},
		Organization: &apollo.Organization{
			Name:                  "Acme",
			PrimaryDomain:         "acme.com",
			Industry:              "software",
			EstimatedNumEmployees: 180,
		},
	}

	lead := LeadFromPerson(p)
	assert.Equal(t, "jane@acme.com", lead.Email)
	assert.Equal(t, "Jane Doe", lead.FullName)
	assert.Equal(t, "Austin, Texas, United States", lead.Location)
	assert.Equal(t, "51-200", lead.CompanySize)
	assert.Equal(t, "+1 555 0100", lead.Phone)
	assert.True(t, lead.EmailVerified)
	assert.Equal(t, SourceApollo, lead.Source)
	assert.NotEmpty(t, lead.RawData)
}
