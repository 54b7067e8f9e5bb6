package gist

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimit reflects the most recently observed server-reported quota.
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// Known reports whether any quota information has been observed yet.
func (r RateLimit) Known() bool {
	return r.Limit > 0
}

// parseRateLimit reads the X-RateLimit-* response headers. Returns the
// zero value when the headers are absent.
func parseRateLimit(h http.Header) RateLimit {
	limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit"))
	if err != nil {
		return RateLimit{}
	}
	remaining, _ := strconv.Atoi(h.Get("X-RateLimit-Remaining"))

	var resetAt time.Time
	if reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		resetAt = time.Unix(reset, 0)
	}

	return RateLimit{
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
