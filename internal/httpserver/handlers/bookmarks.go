package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/markstack/markstack/internal/domain"
	"github.com/markstack/markstack/internal/httpserver/deps"
)

var validate = validator.New()

// GetBookmarks returns the full local snapshot with groups and entries in
// display order.
func GetBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := d.Local.Snapshot()
		domain.SortGroups(snap.Groups)
		domain.SortEntries(snap.Entries)
		respondJSON(w, http.StatusOK, snap)
	}
}

func CreateGroup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var g domain.BookmarkGroup
		if err := decodeBody(r, &g); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if g.Name == "" {
			respondError(w, http.StatusBadRequest, "group name is required")
			return
		}
		respondJSON(w, http.StatusCreated, d.Local.CreateGroup(g))
	}
}

func UpdateGroup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var g domain.BookmarkGroup
		if err := decodeBody(r, &g); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		g.ID = chi.URLParam(r, "id")
		if err := validate.Struct(&g); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		updated, err := d.Local.UpdateGroup(g)
		if err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}

func DeleteGroup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Local.DeleteGroup(chi.URLParam(r, "id")); err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func CreateEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e domain.BookmarkEntry
		if err := decodeBody(r, &e); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if e.Title == "" || e.URL == "" || e.GroupID == "" {
			respondError(w, http.StatusBadRequest, "title, url and groupId are required")
			return
		}

		created, err := d.Local.CreateEntry(e)
		if err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondJSON(w, http.StatusCreated, created)
	}
}

func UpdateEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e domain.BookmarkEntry
		if err := decodeBody(r, &e); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		e.ID = chi.URLParam(r, "id")
		if err := validate.Struct(&e); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		updated, err := d.Local.UpdateEntry(e)
		if err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}

func DeleteEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Local.DeleteEntry(chi.URLParam(r, "id")); err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
