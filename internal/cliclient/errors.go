package cliclient

import "fmt"

// APIError is a failure envelope returned by the daemon. Code carries the
// error classification when the daemon provided one, and CorrelationID ties
// the failure to the daemon's logs.
type APIError struct {
	Status        int
	Code          string
	Message       string
	CorrelationID string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: status %d", e.Status)
	}
	return e.Message
}

// HasCorrelationID reports whether the daemon attached a correlation ID.
func (e *APIError) HasCorrelationID() bool {
	return e.CorrelationID != ""
}

// FormatWithCorrelationID renders the message with a log-correlation hint.
func (e *APIError) FormatWithCorrelationID() string {
	if !e.HasCorrelationID() {
		return e.Error()
	}
	return fmt.Sprintf("%s (correlation_id: %s, check daemon logs for details)", e.Error(), e.CorrelationID)
}
