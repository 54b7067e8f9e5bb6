package handlers

import (
	"net/http"
	"time"

	"github.com/markstack/markstack/internal/domain"
	"github.com/markstack/markstack/internal/gist"
	"github.com/markstack/markstack/internal/httpserver/deps"
)

type syncRequest struct {
	Trigger domain.SyncTrigger `json:"trigger"`
}

type resolveRequest struct {
	Resolution domain.Resolution `json:"resolution"`
}

// Sync runs one sync attempt. Failures are reported in-band inside the
// SyncResult, so the HTTP status is 200 for any completed attempt.
func Sync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := syncRequest{Trigger: domain.TriggerManual}
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		switch req.Trigger {
		case domain.TriggerManual, domain.TriggerAuto, domain.TriggerStartup, domain.TriggerBeforeClose:
		default:
			respondError(w, http.StatusBadRequest, "unknown trigger")
			return
		}

		result := d.Scheduler.SyncNow(r.Context(), req.Trigger)
		respondJSON(w, http.StatusOK, result)
	}
}

// Resolve applies a conflict resolution strategy to the pending conflict.
func Resolve(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resolveRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !req.Resolution.Valid() {
			respondError(w, http.StatusBadRequest, "resolution must be local, remote or merge")
			return
		}

		result := d.Scheduler.ResolveNow(r.Context(), req.Resolution)
		respondJSON(w, http.StatusOK, result)
	}
}

type syncStatusResponse struct {
	State         string               `json:"state"`
	DeviceID      string               `json:"deviceId"`
	LastUpdated   time.Time            `json:"lastUpdated"`
	LastResult    *domain.SyncResult   `json:"lastResult,omitempty"`
	Conflict      *domain.SyncConflict `json:"conflict,omitempty"`
	RateLimit     gist.RateLimit       `json:"rateLimit"`
	Authenticated bool                 `json:"authenticated"`
}

// SyncStatus reports engine state, the last result, any pending conflict
// and the most recently observed remote quota.
func SyncStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, syncStatusResponse{
			State:         string(d.Engine.State()),
			DeviceID:      d.Engine.DeviceID(),
			LastUpdated:   d.Local.LastUpdated(),
			LastResult:    d.Engine.LastResult(),
			Conflict:      d.Engine.Conflict(),
			RateLimit:     d.Gist.RateLimitStatus(),
			Authenticated: d.Gist.IsAuthenticated(),
		})
	}
}
