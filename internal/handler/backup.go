package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/juanlo017/cerves-app/internal/backup"
	"github.com/juanlo017/cerves-app/internal/model"
	"github.com/juanlo017/cerves-app/internal/store"
)

const backupListLimit = 50

type BackupHandler struct {
	manager *backup.Manager
	backups *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, backups: bs, logger: logger}
}

// Run handles POST /api/admin/backups
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	record, err := h.manager.RunNow(r.Context(), model.BackupManual)
	switch {
	case errors.Is(err, backup.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
	case errors.Is(err, backup.ErrRunning):
		writeError(w, http.StatusConflict, "a backup is already running")
	case err != nil && record != nil:
		writeJSON(w, http.StatusBadGateway, record)
	case err != nil:
		writeError(w, http.StatusInternalServerError, "backup failed")
	default:
		writeJSON(w, http.StatusCreated, record)
	}
}

type backupListResponse struct {
	Status  backup.Status `json:"status"`
	Backups any           `json:"backups"`
}

// List handles GET /api/admin/backups
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.backups.List(backupListLimit)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	writeJSON(w, http.StatusOK, backupListResponse{Status: h.manager.Status(), Backups: list})
}

// Download handles GET /api/admin/backups/{id}/download. The body stays
// encrypted; restoring needs the passphrase.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	body, record, err := h.manager.Download(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, backup.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	case errors.Is(err, backup.ErrNotFound):
		writeError(w, http.StatusNotFound, "backup not found")
		return
	case err != nil:
		h.logger.Error("download backup", "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch backup")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+record.Filename+`"`)
	if record.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(record.SizeBytes, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("stream backup", "id", record.ID, "error", err)
	}
}
