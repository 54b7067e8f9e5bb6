package gist

import (
	"fmt"
	"time"
)

// AuthError means the stored credential is missing, invalid or expired.
// Terminal: never retried, the user must re-authenticate.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// RateLimitError means the server-side quota is exhausted (or a proactive
// wait would exceed the configured cap). Carries the server-reported reset
// time so the caller can wait or surface it.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exhausted, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// APIError is any other non-2xx response, surfaced verbatim with the
// server message. Not retried.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// NetworkError wraps a transport-level failure after the retry budget is
// spent.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DataIntegrityError means remote content exists but fails to parse or
// validate. Treated as "no usable remote data" rather than a crash.
type DataIntegrityError struct {
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("remote data integrity: %s", e.Reason)
}
