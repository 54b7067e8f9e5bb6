package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/markstack/markstack/internal/httpserver/deps"
	"github.com/markstack/markstack/internal/httpserver/handlers"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.Get("/api/bookmarks", handlers.GetBookmarks(d))

	r.Post("/api/groups", handlers.CreateGroup(d))
	r.Put("/api/groups/{id}", handlers.UpdateGroup(d))
	r.Delete("/api/groups/{id}", handlers.DeleteGroup(d))

	r.Post("/api/entries", handlers.CreateEntry(d))
	r.Put("/api/entries/{id}", handlers.UpdateEntry(d))
	r.Delete("/api/entries/{id}", handlers.DeleteEntry(d))
}
