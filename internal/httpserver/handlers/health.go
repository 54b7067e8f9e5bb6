package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/markstack/markstack/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
}

func Healthz(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		respondJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
			UptimeSeconds: time.Since(start).Seconds(),
		})
	}
}

type readyzResponse struct {
	Ready      bool   `json:"ready"`
	Redis      string `json:"redis"`
	SyncState  string `json:"sync_state"`
	Authorized bool   `json:"authenticated"`
}

// Readyz reports whether the daemon can serve: Redis reachable and the
// engine constructed. An unauthenticated daemon is still ready - local
// bookmarks work offline.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		redisStatus := "ok"
		ready := true
		if err := d.RedisClient.Ping(ctx).Err(); err != nil {
			redisStatus = err.Error()
			ready = false
		}

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		respondJSON(w, status, readyzResponse{
			Ready:      ready,
			Redis:      redisStatus,
			SyncState:  string(d.Engine.State()),
			Authorized: d.Gist.IsAuthenticated(),
		})
	}
}
