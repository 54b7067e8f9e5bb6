package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/markstack/markstack/internal/httpserver/deps"
	"github.com/markstack/markstack/internal/httpserver/handlers"
)

func init() { Register(registerSync) }

func registerSync(r chi.Router, d deps.Deps) {
	r.Post("/api/sync", handlers.Sync(d))
	r.Post("/api/sync/resolve", handlers.Resolve(d))
	r.Get("/api/sync/status", handlers.SyncStatus(d))
}
