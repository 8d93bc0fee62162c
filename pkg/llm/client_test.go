package llm

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMessenger returns a canned text completion.
type fakeMessenger struct {
	text string
	err  error

	gotSystem string
	gotModel  string
}

func (f *fakeMessenger) New(_ context.Context, params sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	if len(params.System) > 0 {
		f.gotSystem = params.System[0].Text
	}
	f.gotModel = string(params.Model)
	if f.err != nil {
		return nil, f.err
	}
	return &sdk.Message{
		Content: []sdk.ContentBlockUnion{{Type: "text", Text: f.text}},
	}, nil
}

func newTestClient(fake *fakeMessenger) *client {
	return &client{messages: fake, model: defaultModel}
}

func TestParseFilters(t *testing.T) {
	fake := &fakeMessenger{text: `{"titles": ["CTO", "VP Engineering"], "company_sizes": ["51-200"]}`}
	c := newTestClient(fake)

	filters, err := c.ParseFilters(context.Background(), "engineering leaders at mid-size companies")
	require.NoError(t, err)
	assert.Equal(t, []string{"CTO", "VP Engineering"}, filters.Titles)
	assert.Equal(t, []string{"51-200"}, filters.CompanySizes)
	assert.Contains(t, fake.gotSystem, "JSON filters")
}

func TestParseFilters_FencedJSON(t *testing.T) {
	fake := &fakeMessenger{text: "```json\n{\"titles\": [\"CEO\"]}\n```"}
	c := newTestClient(fake)

	filters, err := c.ParseFilters(context.Background(), "ceos")
	require.NoError(t, err)
	assert.Equal(t, []string{"CEO"}, filters.Titles)
}

func TestParseFilters_EmptyResult(t *testing.T) {
	fake := &fakeMessenger{text: `{}`}
	c := newTestClient(fake)

	_, err := c.ParseFilters(context.Background(), "hmm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no filters")
}

func TestParseFilters_MalformedJSON(t *testing.T) {
	fake := &fakeMessenger{text: `certainly! here are your filters`}
	c := newTestClient(fake)

	_, err := c.ParseFilters(context.Background(), "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse filters")
}

func TestAssess_NeedsClarification(t *testing.T) {
	fake := &fakeMessenger{text: `{
		"needs_clarification": true,
		"reason": "no role or industry named",
		"questions": ["What roles?", "What industry?", "Company size?", "Where?"]
	}`}
	c := newTestClient(fake)

	a, err := c.Assess(context.Background(), "find me some leads")
	require.NoError(t, err)
	assert.True(t, a.NeedsClarification)
	// Questions are capped at three.
	assert.Len(t, a.Questions, 3)
}

func TestAssess_ReadyToRun(t *testing.T) {
	fake := &fakeMessenger{text: `{
		"needs_clarification": false,
		"parsed_so_far": {"titles": ["CFO"], "locations": ["Chicago"]}
	}`}
	c := newTestClient(fake)

	a, err := c.Assess(context.Background(), "CFOs in Chicago")
	require.NoError(t, err)
	assert.False(t, a.NeedsClarification)
	require.NotNil(t, a.ParsedSoFar)
	assert.Equal(t, []string{"CFO"}, a.ParsedSoFar.Titles)
}

func TestEnrichQuery(t *testing.T) {
	got := EnrichQuery("find founders", map[string]string{
		"What industry?": "fintech",
		"Company size?":  "under 200",
	})
	assert.Contains(t, got, "find founders")
	assert.Contains(t, got, "Additional context:")
	assert.Contains(t, got, "- Company size?: under 200")
	assert.Contains(t, got, "- What industry?: fintech")
}

func TestEnrichQuery_NoAnswers(t *testing.T) {
	assert.Equal(t, "q", EnrichQuery("q", nil))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
