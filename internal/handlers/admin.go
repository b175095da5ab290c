package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jeremyjsx/quill/internal/middleware"
	"github.com/jeremyjsx/quill/internal/posts"
	"github.com/jeremyjsx/quill/internal/snapshots"
)

// Admin identifies the site owner on the dashboard.
type Admin struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AdminHandler struct {
	svc       *posts.Service
	snapshots *snapshots.Exporter
	admin     Admin
	logger    *slog.Logger
}

// NewAdminHandler builds the admin endpoints. exporter may be nil when no
// snapshot bucket is configured.
func NewAdminHandler(svc *posts.Service, exporter *snapshots.Exporter, admin Admin, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		svc:       svc,
		snapshots: exporter,
		admin:     admin,
		logger:    logger,
	}
}

type dashboardResponse struct {
	Admin Admin `json:"admin"`
	*posts.DashboardSummary
}

func (h *AdminHandler) Dashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := h.svc.GetDashboardSummary(r.Context())
		if err != nil {
			writeServiceError(w, r, h.logger, "dashboard", err)
			return
		}
		writeJSON(w, http.StatusOK, dashboardResponse{Admin: h.admin, DashboardSummary: summary})
	}
}

func (h *AdminHandler) ExportSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.snapshots == nil {
			writeError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "snapshot storage is not configured", nil)
			return
		}

		key, err := h.snapshots.Export(r.Context())
		if err != nil {
			h.writeSnapshotError(w, r, "export snapshot", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"key": key})
	}
}

func (h *AdminHandler) GetSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.snapshots == nil {
			writeError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "snapshot storage is not configured", nil)
			return
		}

		data, err := h.snapshots.Fetch(r.Context(), r.PathValue("name"))
		if err != nil {
			h.writeSnapshotError(w, r, "fetch snapshot", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func (h *AdminHandler) writeSnapshotError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, snapshots.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid snapshot name", nil)
	case errors.Is(err, snapshots.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "snapshot not found", nil)
	case errors.Is(err, posts.ErrStorageUnavailable), errors.Is(err, posts.ErrInvalidInput):
		writeServiceError(w, r, h.logger, op, err)
	default:
		h.logger.Error(op+" failed", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "snapshot storage unavailable", nil)
	}
}
