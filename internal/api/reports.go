package api

import (
	"log/slog"
	"net/http"
)

// Analytics handles GET /api/v1/projects/{projectID}/analytics
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	project := MustProjectFromContext(r.Context())
	rep, err := h.reports.Build(r.Context(), project.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep.Analytics)
}

// Report handles GET /api/v1/projects/{projectID}/report
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	project := MustProjectFromContext(r.Context())
	rep, err := h.reports.Build(r.Context(), project.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Export handles POST /api/v1/projects/{projectID}/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		WriteProblem(w, r, http.StatusServiceUnavailable, "Report export is not configured")
		return
	}

	project := MustProjectFromContext(r.Context())
	result, err := h.exporter.Export(r.Context(), project.ID)
	if err != nil {
		slog.Error("export failed",
			"project_id", project.ID,
			"request_id", GetRequestID(r.Context()),
			"error", err,
		)
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
