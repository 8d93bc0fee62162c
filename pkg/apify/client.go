// Package apify runs Apify actors and collects their dataset output. Used for
// the LinkedIn profile scrape source.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/yorulabs/leadgen-cli/internal/resilience"
)

const defaultBaseURL = "https://api.apify.com/v2"

// Client runs actors on the Apify platform.
type Client interface {
	// RunActorSync starts the actor with the given input, waits for the run
	// to finish, and returns the default dataset items.
	RunActorSync(ctx context.Context, actorID string, input any) ([]json.RawMessage, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
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
	token   string
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates an Apify API client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			// Scrape runs block until the actor finishes.
			Timeout: 10 * time.Minute,
		},
		retry: resilience.RetryConfig{
			MaxAttempts: 3,
			BaseBackoff: time.Second,
			OnRetry:     resilience.RetryLogger("apify", "run_actor"),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) RunActorSync(ctx context.Context, actorID string, input any) ([]json.RawMessage, error) {
	if actorID == "" {
		return nil, eris.New("apify: actor ID required")
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "apify: marshal input")
	}

	url := c.baseURL + "/acts/" + actorID + "/run-sync-get-dataset-items"
	respBody, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.runOnce(ctx, url, body)
	})
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, eris.Wrap(err, "apify: unmarshal dataset items")
	}
	return items, nil
}

func (c *httpClient) runOnce(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "apify: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "apify: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "apify: read response")
	}

	// run-sync returns 201 when the run finished and the dataset is attached.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		apiErr := eris.Errorf("apify: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}
	return respBody, nil
}
