package client

import "fmt"

// ErrorKind classifies fetch failures for the scheduler's error taxonomy.
type ErrorKind string

const (
	// KindValidation: malformed dates or an unparseable response body.
	KindValidation ErrorKind = "validation"
	// KindTransient: timeouts, connection failures, retryable statuses after
	// the retry budget is spent.
	KindTransient ErrorKind = "transient"
	// KindPermission: HTTP 403, fatal for the competition but not the run.
	KindPermission ErrorKind = "permission"
	// KindRateLimit: HTTP 429 past the retry budget.
	KindRateLimit ErrorKind = "rate_limit"
)

// APIError is the typed error returned by the fetch client. RateLimit errors
// carry quota hints when the feed provided them; -1 means unknown.
type APIError struct {
	Kind        ErrorKind
	StatusCode  int
	Competition string
	Message     string

	RequestsRemaining int
	ResetSeconds      int
}

func (e *APIError) Error() string {
	if e.Kind == KindRateLimit && e.RequestsRemaining >= 0 {
		return fmt.Sprintf("%s: %s (status %d, %d requests remaining, resets in %ds)",
			e.Competition, e.Message, e.StatusCode, e.RequestsRemaining, e.ResetSeconds)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Competition, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Competition, e.Message)
}

func newAPIError(kind ErrorKind, competition, message string, status int) *APIError {
	return &APIError{
		Kind:              kind,
		StatusCode:        status,
		Competition:       competition,
		Message:           message,
		RequestsRemaining: -1,
		ResetSeconds:      -1,
	}
}
