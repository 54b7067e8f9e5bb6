package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markstack/markstack/internal/backup"
	"github.com/markstack/markstack/internal/httpserver/deps"
	"github.com/markstack/markstack/internal/logger"
)

type createBackupRequest struct {
	Label string `json:"label"`
}

// CreateBackup snapshots the current local data into the remote document.
func CreateBackup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBackupRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		info, err := d.Backups.Create(r.Context(), d.Local.Snapshot(), req.Label)
		if err != nil {
			d.Logger.Error("backup creation failed", logger.Error(err))
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		respondJSON(w, http.StatusCreated, info)
	}
}

// ListBackups returns all backups in the remote document, newest first.
func ListBackups(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		backups, err := d.Backups.List(r.Context())
		if err != nil {
			d.Logger.Error("backup listing failed", logger.Error(err))
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		if backups == nil {
			backups = []backup.Info{}
		}
		respondJSON(w, http.StatusOK, backups)
	}
}

// RestoreBackup fetches a backup snapshot and applies it as the local
// state. The next sync uploads it like any other local edit.
func RestoreBackup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		snap, err := d.Backups.Restore(r.Context(), id)
		if err != nil {
			d.Logger.Error("backup restore failed",
				logger.String("backup_id", id),
				logger.Error(err))
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}

		d.Local.Replace(snap)
		respondJSON(w, http.StatusOK, snap)
	}
}
