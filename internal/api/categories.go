package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/pindex/internal/types"
	"github.com/hyperengineering/pindex/internal/validation"
)

// ListCategories handles GET /api/v1/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if categories == nil {
		categories = []types.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// CreateCategory handles POST /api/v1/categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if errs := validation.ValidateCategoryName(req.Name); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	c, err := h.store.CreateCategory(r.Context(), req.Name)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// RemoveCategory handles DELETE /api/v1/projects/{projectID}/categories/{categoryID}.
// The project's items in the category are deleted; the category itself goes
// only when no other project uses it and it is not builtin.
func (h *Handler) RemoveCategory(w http.ResponseWriter, r *http.Request) {
	project := MustProjectFromContext(r.Context())
	categoryID := chi.URLParam(r, "categoryID")

	deleted, err := h.store.RemoveCategory(r.Context(), project.ID, categoryID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.RemoveCategoryResult{
		CategoryID:      categoryID,
		CategoryDeleted: deleted,
	})
}
