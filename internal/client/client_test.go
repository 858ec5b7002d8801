package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validFeedBody = `{"matches":[{"id":101,"utcDate":"2024-08-17T14:00:00Z","homeTeam":{"id":1,"name":"Arsenal"},"awayTeam":{"id":2,"name":"Chelsea"},"score":{"fullTime":{"home":2,"away":1}}}]}`

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, "test-token", time.Second, 5*time.Second).
		WithRetryPolicy(3, time.Millisecond)
}

func TestFetchMatchesSuccess(t *testing.T) {
	var gotPath, gotToken, gotFrom, gotTo string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Auth-Token")
		gotFrom = r.URL.Query().Get("dateFrom")
		gotTo = r.URL.Query().Get("dateTo")
		fmt.Fprint(w, validFeedBody)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	page, err := c.FetchMatches(context.Background(), "E0", "2024-08-17", "2024-08-23")
	require.NoError(t, err)

	assert.Equal(t, "/competitions/E0/matches", gotPath)
	assert.Equal(t, "test-token", gotToken)
	assert.Equal(t, "2024-08-17", gotFrom)
	assert.Equal(t, "2024-08-23", gotTo)

	assert.Equal(t, "E0", page.Competition)
	assert.Equal(t, 1, page.MatchCount)
	assert.JSONEq(t, validFeedBody, string(page.Body))
}

func TestFetchMatchesRejectsBadDates(t *testing.T) {
	c := newTestClient("http://unused.invalid")

	_, err := c.FetchMatches(context.Background(), "E0", "17/08/2024", "2024-08-23")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)

	_, err = c.FetchMatches(context.Background(), "E0", "2024-08-17", "soon")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)
}

func TestFetchMatchesRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, validFeedBody)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	page, err := c.FetchMatches(context.Background(), "E0", "2024-08-17", "2024-08-23")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load(), "Two failures then success")
	assert.Equal(t, 1, page.MatchCount)
}

func TestFetchMatchesExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.FetchMatches(context.Background(), "E0", "2024-08-17", "2024-08-23")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindTransient, apiErr.Kind)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, int32(4), calls.Load(), "Initial attempt plus three retries")
}

func TestFetchMatchesForbiddenIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.FetchMatches(context.Background(), "CL", "2024-08-17", "2024-08-23")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindPermission, apiErr.Kind)
	assert.Equal(t, "CL", apiErr.Competition)
	assert.Equal(t, int32(1), calls.Load(), "403 must not consume the retry budget")
}

func TestFetchMatchesRateLimitCarriesHints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Requests-Available-Minute", "0")
		w.Header().Set("X-RequestCounter-Reset", "42")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.FetchMatches(context.Background(), "E0", "2024-08-17", "2024-08-23")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindRateLimit, apiErr.Kind)
	assert.Equal(t, 0, apiErr.RequestsRemaining)
	assert.Equal(t, 42, apiErr.ResetSeconds)
	assert.Contains(t, apiErr.Error(), "resets in 42s")
}

func TestFetchMatchesRateLimitHintsDefaultUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.FetchMatches(context.Background(), "E0", "2024-08-17", "2024-08-23")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, -1, apiErr.RequestsRemaining)
	assert.Equal(t, -1, apiErr.ResetSeconds)
}

func TestFetchMatchesMalformedJSON(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"matches": [`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.FetchMatches(context.Background(), "E0", "2024-08-17", "2024-08-23")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.Equal(t, int32(1), calls.Load(), "A malformed 200 body is not retried")
}

func TestFetchMatchesNetworkFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	c := newTestClient(server.URL)
	_, err := c.FetchMatches(context.Background(), "E0", "2024-08-17", "2024-08-23")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindTransient, apiErr.Kind)
}

func TestFetchMatchesContextCancelDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-token", time.Second, 5*time.Second).
		WithRetryPolicy(3, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.FetchMatches(ctx, "E0", "2024-08-17", "2024-08-23")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second, "Cancel must cut the backoff short")
}
