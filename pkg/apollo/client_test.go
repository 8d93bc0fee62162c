package apollo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorulabs/leadgen-cli/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:   3,
		BaseBackoff:   time.Millisecond,
		RateLimitBase: time.Millisecond,
	}
}

func TestSearchPeople_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/mixed_people/search", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1, req.Page)
		assert.Equal(t, 25, req.PerPage)
		assert.Equal(t, []string{"CEO"}, req.PersonTitles)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"people": [{
				"id": "p1",
				"first_name": "Jane",
				"last_name": "Doe",
				"email": "jane@acme.com",
				"title": "CEO",
				"organization": {"name": "Acme", "primary_domain": "acme.com", "estimated_num_employees": 120}
			}],
			"pagination": {"page": 1, "per_page": 25, "total_entries": 1, "total_pages": 1}
		}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	resp, err := client.SearchPeople(context.Background(), SearchRequest{PersonTitles: []string{"CEO"}})
	require.NoError(t, err)
	require.Len(t, resp.People, 1)
	assert.Equal(t, "jane@acme.com", resp.People[0].Email)
	assert.Equal(t, 120, resp.People[0].Organization.EstimatedNumEmployees)
	assert.Equal(t, 1, resp.Pagination.TotalPages)
}

func TestSearchPeople_RateLimitThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": "rate limited"}`))
			return
		}
		_, _ = w.Write([]byte(`{"people": [], "pagination": {"page": 1, "total_pages": 1}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	_, err := client.SearchPeople(context.Background(), SearchRequest{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearchPeople_ServerErrorExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	_, err := client.SearchPeople(context.Background(), SearchRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearchPeople_AuthErrorFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid api key"}`))
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	_, err := client.SearchPeople(context.Background(), SearchRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestMatchPerson_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/people/match", r.URL.Path)
		_, _ = w.Write([]byte(`{"person": {"id": "p1", "email": "jane@acme.com", "title": "CTO"}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	p, err := client.MatchPerson(context.Background(), MatchRequest{LinkedInURL: "https://linkedin.com/in/jane"})
	require.NoError(t, err)
	assert.Equal(t, "jane@acme.com", p.Email)
}

func TestMatchPerson_RequiresIdentifier(t *testing.T) {
	client := NewClient("test-key", WithRetryConfig(fastRetry()))
	_, err := client.MatchPerson(context.Background(), MatchRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires email or linkedin_url")
}

func TestMatchPerson_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"person": null}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	_, err := client.MatchPerson(context.Background(), MatchRequest{Email: "x@y.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no person matched")
}
