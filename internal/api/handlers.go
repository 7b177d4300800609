package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/pindex/internal/report"
	"github.com/hyperengineering/pindex/internal/store"
	"github.com/hyperengineering/pindex/internal/types"
)

// maxBodyBytes bounds request bodies. Details may carry four inline images.
const maxBodyBytes = 10 << 20

// ReportBuilder assembles a project report.
type ReportBuilder interface {
	Build(ctx context.Context, projectID string) (*report.Report, error)
}

// ProjectExporter writes a project report archive.
type ProjectExporter interface {
	Export(ctx context.Context, projectID string) (*types.ExportResult, error)
}

// dialecter is implemented by stores that can name their database.
type dialecter interface {
	Dialect() store.Dialect
}

// Handler implements the API handlers
type Handler struct {
	store    store.Store
	reports  ReportBuilder
	exporter ProjectExporter
	apiKey   string
	version  string
}

// NewHandler creates a new Handler. exporter may be nil, in which case the
// export endpoint answers 503.
func NewHandler(s store.Store, reports ReportBuilder, exporter ProjectExporter, apiKey, version string) *Handler {
	return &Handler{
		store:    s,
		reports:  reports,
		exporter: exporter,
		apiKey:   apiKey,
		version:  version,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		slog.Error("health check failed", "error", err)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	database := "unknown"
	if d, ok := h.store.(dialecter); ok {
		database = string(d.Dialect())
	}

	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:       "healthy",
		Version:      h.version,
		Database:     database,
		ProjectCount: stats.ProjectCount,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON decodes the request body into v, writing a 400 problem and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteProblem(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit))
			return false
		}
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return false
	}
	return true
}
