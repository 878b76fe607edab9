package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError wraps a failed call to the model service.
type TransportError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, truncate(e.Err.Error(), 200))
	}
	return fmt.Sprintf("%s: %s", e.Provider, truncate(e.Err.Error(), 200))
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient: rate limiting, server
// errors, and failures without any response.
func (e *TransportError) Retryable() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// ErrEmptyResponse is returned when the service answers without content.
var ErrEmptyResponse = errors.New("empty response")

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
