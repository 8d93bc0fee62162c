// Package llm turns free-text lead queries into structured ICP filters using
// the Anthropic API, and decides when a query is too vague to run.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/yorulabs/leadgen-cli/internal/icp"
)

const (
	defaultModel    = "claude-haiku-4-5-20251001"
	maxOutputTokens = 1024
)

// Client parses and assesses lead-search queries.
type Client interface {
	// ParseFilters extracts ICP filters from a free-text query.
	ParseFilters(ctx context.Context, query string) (*icp.Filters, error)
	// Assess decides whether the query needs clarification before running.
	Assess(ctx context.Context, query string) (*Assessment, error)
}

// Assessment is the clarification verdict for a query.
type Assessment struct {
	NeedsClarification bool         `json:"needs_clarification"`
	Reason             string       `json:"reason,omitempty"`
	Questions          []string     `json:"questions,omitempty"`
	ParsedSoFar        *icp.Filters `json:"parsed_so_far,omitempty"`
}

// messenger is the slice of the SDK message service we call. Tests substitute
// a fake.
type messenger interface {
	New(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Option configures the client.
type Option func(*client)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *client) {
		if model != "" {
			c.model = model
		}
	}
}

type client struct {
	messages messenger
	model    string
}

// NewClient creates an Anthropic-backed query parser.
func NewClient(apiKey string, opts ...Option) Client {
	sdkClient := sdk.NewClient(option.WithAPIKey(apiKey))
	c := &client{
		messages: &sdkClient.Messages,
		model:    defaultModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

const parseSystemPrompt = `You convert lead-search queries into JSON filters.
Respond with a single JSON object and nothing else, using these keys (omit empty ones):
titles, seniorities, industries, company_sizes, locations, keywords — all arrays of strings.
company_sizes values must be drawn from: "1-50", "51-200", "201-500", "501-1000", "1000+".`

func (c *client) ParseFilters(ctx context.Context, query string) (*icp.Filters, error) {
	text, err := c.complete(ctx, parseSystemPrompt, query)
	if err != nil {
		return nil, err
	}

	var filters icp.Filters
	if err := json.Unmarshal([]byte(stripFences(text)), &filters); err != nil {
		return nil, eris.Wrapf(err, "llm: parse filters from %q", text)
	}
	if filters.IsEmpty() {
		return nil, eris.Errorf("llm: query produced no filters: %s", query)
	}
	return &filters, nil
}

const assessSystemPrompt = `You judge whether a lead-search query is specific enough to run.
Respond with a single JSON object and nothing else:
{"needs_clarification": bool, "reason": string, "questions": [up to 3 strings],
 "parsed_so_far": {titles, seniorities, industries, company_sizes, locations, keywords}}.
A query needs clarification when it names no role, industry, or audience at all.`

func (c *client) Assess(ctx context.Context, query string) (*Assessment, error) {
	text, err := c.complete(ctx, assessSystemPrompt, query)
	if err != nil {
		return nil, err
	}

	var a Assessment
	if err := json.Unmarshal([]byte(stripFences(text)), &a); err != nil {
		return nil, eris.Wrapf(err, "llm: parse assessment from %q", text)
	}
	if len(a.Questions) > 3 {
		a.Questions = a.Questions[:3]
	}
	return &a, nil
}

func (c *client) complete(ctx context.Context, system, user string) (string, error) {
	msg, err := c.messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: maxOutputTokens,
		System:    []sdk.TextBlockParam{{Text: system}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(user))},
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: create message")
	}

	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", eris.New("llm: empty completion")
}

// stripFences removes a markdown code fence if the model wrapped its JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// EnrichQuery folds clarification answers back into the original query so a
// re-parse sees the full context. Pure string assembly, no API call.
func EnrichQuery(query string, answers map[string]string) string {
	if len(answers) == 0 {
		return query
	}

	questions := make([]string, 0, len(answers))
	for q := range answers {
		questions = append(questions, q)
	}
	sort.Strings(questions)

	var b strings.Builder
	b.WriteString(query)
	b.WriteString("\n\nAdditional context:")
	for _, q := range questions {
		fmt.Fprintf(&b, "\n- %s: %s", q, answers[q])
	}
	return b.String()
}
