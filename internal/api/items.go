package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/pindex/internal/report"
	"github.com/hyperengineering/pindex/internal/types"
	"github.com/hyperengineering/pindex/internal/validation"
)

// Checklist handles GET /api/v1/projects/{projectID}/checklist
func (h *Handler) Checklist(w http.ResponseWriter, r *http.Request) {
	project := MustProjectFromContext(r.Context())

	items, err := h.store.ListItems(r.Context(), project.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.GroupChecklist(items, categories))
}

// CreateItem handles POST /api/v1/projects/{projectID}/items
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	project := MustProjectFromContext(r.Context())

	var req types.CreateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := validation.ValidateCreateItem(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	item, err := h.store.CreateItem(r.Context(), types.NewChecklistItem{
		ProjectID:   project.ID,
		CategoryID:  req.CategoryID,
		ItemType:    req.ItemType,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// DeleteItem handles DELETE /api/v1/projects/{projectID}/items/{itemID}
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	project := MustProjectFromContext(r.Context())
	if err := h.store.DeleteItem(r.Context(), project.ID, chi.URLParam(r, "itemID")); err != nil {
		MapStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleItem handles POST /api/v1/projects/{projectID}/items/{itemID}/toggle
func (h *Handler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	project := MustProjectFromContext(r.Context())
	item, err := h.store.ToggleItem(r.Context(), project.ID, chi.URLParam(r, "itemID"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// GetDetail handles GET /api/v1/projects/{projectID}/items/{itemID}/detail
func (h *Handler) GetDetail(w http.ResponseWriter, r *http.Request) {
	project := MustProjectFromContext(r.Context())
	detail, err := h.store.GetDetail(r.Context(), project.ID, chi.URLParam(r, "itemID"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// SaveDetail handles PUT /api/v1/projects/{projectID}/items/{itemID}/detail.
// The stored PI is recomputed from the submitted counts and the item is
// marked complete.
func (h *Handler) SaveDetail(w http.ResponseWriter, r *http.Request) {
	project := MustProjectFromContext(r.Context())

	var in types.DetailInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if errs := validation.ValidateDetailInput(in); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	detail, err := h.store.SaveDetail(r.Context(), project.ID, chi.URLParam(r, "itemID"), in)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
