package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/markstack/markstack/internal/httpserver/deps"
	"github.com/markstack/markstack/internal/httpserver/handlers"
)

func init() { Register(registerBackups) }

func registerBackups(r chi.Router, d deps.Deps) {
	r.Post("/api/backups", handlers.CreateBackup(d))
	r.Get("/api/backups", handlers.ListBackups(d))
	r.Post("/api/backups/{id}/restore", handlers.RestoreBackup(d))
}
