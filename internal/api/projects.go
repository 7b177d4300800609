package api

import (
	"log/slog"
	"net/http"

	"github.com/hyperengineering/pindex/internal/types"
	"github.com/hyperengineering/pindex/internal/validation"
)

// ListProjects handles GET /api/v1/projects
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if projects == nil {
		projects = []types.ProjectSummary{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// CreateProject handles POST /api/v1/projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req types.NewProject
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := validation.ValidateNewProject(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	p, err := h.store.CreateProject(r.Context(), req)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	slog.Info("project created", "project_id", p.ID, "request_id", GetRequestID(r.Context()))
	writeJSON(w, http.StatusCreated, p)
}

// GetProject handles GET /api/v1/projects/{projectID}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MustProjectFromContext(r.Context()))
}

// UpdateProject handles PUT /api/v1/projects/{projectID}
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	project := MustProjectFromContext(r.Context())

	var req types.NewProject
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := validation.ValidateNewProject(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	p, err := h.store.UpdateProject(r.Context(), project.ID, req)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProject handles DELETE /api/v1/projects/{projectID}
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	project := MustProjectFromContext(r.Context())
	if err := h.store.DeleteProject(r.Context(), project.ID); err != nil {
		MapStoreError(w, r, err)
		return
	}
	slog.Info("project deleted", "project_id", project.ID, "request_id", GetRequestID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
