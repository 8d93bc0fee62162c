// Package clay posts lead payloads to a Clay table webhook. Clay ingests
// fire-and-forget: a 2xx acknowledges receipt, enrichment results come back
// asynchronously through the table's HTTP API destination.
package clay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/yorulabs/leadgen-cli/internal/resilience"
)

// Clay webhook 429s clear quickly compared to Apollo's quota window.
const rateLimitBase = 2 * time.Second

// Client sends lead payloads to a Clay webhook.
type Client interface {
	SendLead(ctx context.Context, payload map[string]any) (*SendResult, error)
}

// SendResult captures the webhook acknowledgment. Clay replies with either a
// JSON document or a bare text body; both count as accepted.
type SendResult struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body,omitempty"`
	Text       string          `json:"text,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithAuthKey sets the optional webhook auth token.
func WithAuthKey(key string) Option {
	return func(c *httpClient) {
		c.authKey = key
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	webhookURL string
	authKey    string
	http       *http.Client
	retry      resilience.RetryConfig
}

// NewClient creates a Clay webhook client for a single table webhook URL.
func NewClient(webhookURL string, opts ...Option) Client {
	c := &httpClient{
		webhookURL: webhookURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: resilience.RetryConfig{
			MaxAttempts:   3,
			BaseBackoff:   time.Second,
			RateLimitBase: rateLimitBase,
			OnRetry:       resilience.RetryLogger("clay", "send_lead"),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SendLead(ctx context.Context, payload map[string]any) (*SendResult, error) {
	if c.webhookURL == "" {
		return nil, eris.New("clay: webhook URL not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "clay: marshal payload")
	}

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*SendResult, error) {
		return c.sendOnce(ctx, body)
	})
}

func (c *httpClient) sendOnce(ctx context.Context, body []byte) (*SendResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "clay: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authKey != "" {
		req.Header.Set("x-clay-webhook-auth", c.authKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "clay: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "clay: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := eris.Errorf("clay: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}

	result := &SendResult{StatusCode: resp.StatusCode}
	if json.Valid(respBody) {
		result.Body = json.RawMessage(respBody)
	} else {
		result.Text = strings.TrimSpace(string(respBody))
	}
	return result, nil
}
