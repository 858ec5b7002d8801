package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"matchrank/internal/metrics"
	"matchrank/internal/models"
)

// Rate-limit hint headers sent by the feed alongside 429 responses.
const (
	headerRequestsAvailable = "X-Requests-Available-Minute"
	headerCounterReset      = "X-RequestCounter-Reset"
)

// MatchesPage is one fetched response for a (competition, date-range) window.
// Body is the raw response so the parser can persist per-match payloads intact.
type MatchesPage struct {
	Competition string
	DateFrom    string
	DateTo      string
	Body        []byte
	MatchCount  int
}

// Client fetches match lists from the upstream feed with retry and
// structured error classification.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a feed client. connectTimeout bounds dialing, requestTimeout
// bounds the whole attempt including reading the body.
func NewClient(baseURL, token string, connectTimeout, requestTimeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		maxRetries: 3,
		retryDelay: 1 * time.Second,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// WithRetryPolicy overrides the retry count and backoff base. Used by tests
// to keep retries fast.
func (c *Client) WithRetryPolicy(maxRetries int, retryDelay time.Duration) *Client {
	c.maxRetries = maxRetries
	c.retryDelay = retryDelay
	return c
}

// FetchMatches performs one bounded fetch for a (competition, date-range)
// window. Dates are YYYY-MM-DD. Retries transient statuses up to the retry
// budget with exponential backoff; 403 and post-budget 429 are reported
// without further attempts.
func (c *Client) FetchMatches(ctx context.Context, competitionCode, dateFrom, dateTo string) (*MatchesPage, error) {
	for _, d := range []string{dateFrom, dateTo} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return nil, newAPIError(KindValidation, competitionCode,
				fmt.Sprintf("invalid date %q, want YYYY-MM-DD", d), 0)
		}
	}

	url := fmt.Sprintf("%s/competitions/%s/matches", c.baseURL, competitionCode)
	start := time.Now()

	var lastErr *APIError
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("competition", competitionCode).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying feed request after backoff")
			metrics.FetchRetriesTotal.Inc()

			select {
			case <-ctx.Done():
				return nil, newAPIError(KindTransient, competitionCode, ctx.Err().Error(), 0)
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, newAPIError(KindValidation, competitionCode,
				fmt.Sprintf("failed to create request: %v", err), 0)
		}

		req.Header.Set("X-Auth-Token", c.token)
		req.Header.Set("Accept", "application/json")

		q := req.URL.Query()
		q.Set("dateFrom", dateFrom)
		q.Set("dateTo", dateTo)
		req.URL.RawQuery = q.Encode()

		log.Debug().
			Str("competition", competitionCode).
			Str("date_from", dateFrom).
			Str("date_to", dateTo).
			Int("attempt", attempt+1).
			Msg("Fetching matches")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Network failure (timeout, refused connection): retryable.
			lastErr = newAPIError(KindTransient, competitionCode,
				fmt.Sprintf("request failed: %v", err), 0)
			if attempt < c.maxRetries {
				continue
			}
			break
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = newAPIError(KindTransient, competitionCode,
				fmt.Sprintf("failed to read response body: %v", readErr), resp.StatusCode)
			if attempt < c.maxRetries {
				continue
			}
			break
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var peek models.FeedResponse
			if err := json.Unmarshal(body, &peek); err != nil {
				metrics.RecordFetch(competitionCode, "invalid_json", time.Since(start).Seconds())
				return nil, newAPIError(KindValidation, competitionCode,
					fmt.Sprintf("malformed JSON response: %v", err), resp.StatusCode)
			}
			metrics.RecordFetch(competitionCode, "ok", time.Since(start).Seconds())
			log.Debug().
				Str("competition", competitionCode).
				Int("matches", len(peek.Matches)).
				Int("size", len(body)).
				Msg("Fetch successful")
			return &MatchesPage{
				Competition: competitionCode,
				DateFrom:    dateFrom,
				DateTo:      dateTo,
				Body:        body,
				MatchCount:  len(peek.Matches),
			}, nil

		case http.StatusTooManyRequests:
			lastErr = c.rateLimitError(competitionCode, resp)
			if attempt < c.maxRetries {
				log.Warn().
					Str("competition", competitionCode).
					Int("attempt", attempt+1).
					Msg("Rate limited, will retry")
				continue
			}

		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			lastErr = newAPIError(KindTransient, competitionCode,
				"feed returned retryable status", resp.StatusCode)
			if attempt < c.maxRetries {
				log.Warn().
					Str("competition", competitionCode).
					Int("status", resp.StatusCode).
					Int("attempt", attempt+1).
					Msg("Received retryable error, will retry")
				continue
			}

		case http.StatusForbidden:
			// Entitlement failure: fatal for this competition, never retried.
			metrics.RecordFetch(competitionCode, "forbidden", time.Since(start).Seconds())
			return nil, newAPIError(KindPermission, competitionCode,
				"feed denied access to competition", resp.StatusCode)

		default:
			metrics.RecordFetch(competitionCode, "error", time.Since(start).Seconds())
			return nil, newAPIError(KindTransient, competitionCode,
				fmt.Sprintf("feed returned unexpected status: %s", string(body)), resp.StatusCode)
		}
		break
	}

	metrics.RecordFetch(competitionCode, string(lastErr.Kind), time.Since(start).Seconds())
	return nil, lastErr
}

// rateLimitError builds a 429 error carrying the feed's remaining-quota and
// reset hints when present.
func (c *Client) rateLimitError(competitionCode string, resp *http.Response) *APIError {
	apiErr := newAPIError(KindRateLimit, competitionCode,
		"feed rate limit exceeded", resp.StatusCode)
	if v := resp.Header.Get(headerRequestsAvailable); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiErr.RequestsRemaining = n
		}
	}
	if v := resp.Header.Get(headerCounterReset); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiErr.ResetSeconds = n
		}
	}
	return apiErr
}
