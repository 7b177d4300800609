package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/pindex/internal/catalog"
	"github.com/hyperengineering/pindex/internal/rollup"
	"github.com/hyperengineering/pindex/internal/types"
	"github.com/hyperengineering/pindex/internal/validation"
)

// stageParam parses the {stage} URL parameter. Anything outside 1..6 is
// reported as not found.
func stageParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "stage"))
	if err != nil || validation.ValidateStage("stage", n) != nil {
		WriteProblem(w, r, http.StatusNotFound, "Unknown stage")
		return 0, false
	}
	return n, true
}

// Stage handles GET /api/v1/projects/{projectID}/stages/{stage}
func (h *Handler) Stage(w http.ResponseWriter, r *http.Request) {
	project := MustProjectFromContext(r.Context())
	stage, ok := stageParam(w, r)
	if !ok {
		return
	}

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

	view, _ := rollup.ProjectStage(items, stage, catalog.BuildCategoryIndex(categories))
	writeJSON(w, http.StatusOK, view)
}

// StageMethod handles
// POST /api/v1/projects/{projectID}/stages/{stage}/methods/{category}/{method}.
// It returns the item recording the method in the stage, creating it on
// first use.
func (h *Handler) StageMethod(w http.ResponseWriter, r *http.Request) {
	project := MustProjectFromContext(r.Context())
	stage, ok := stageParam(w, r)
	if !ok {
		return
	}

	number, err := strconv.Atoi(chi.URLParam(r, "category"))
	key := chi.URLParam(r, "method")
	if err != nil || validation.ValidateMethod("method", number, key) != nil {
		WriteProblem(w, r, http.StatusNotFound, "Unknown participation method")
		return
	}
	pc, _ := catalog.ParticipationCategoryByNumber(number)
	method, _ := pc.Method(key)

	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	categoryID, ok := catalog.BuildCategoryIndex(categories).ID(pc.StorageCategory)
	if !ok {
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	item, created, err := h.store.FindOrCreateItem(r.Context(), types.NewChecklistItem{
		ProjectID:   project.ID,
		CategoryID:  categoryID,
		ItemType:    pc.ItemType(),
		Title:       catalog.MethodTitle(method),
		Description: pc.Subtitle,
		StageNumber: &stage,
		MethodKey:   method.Key,
	})
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, types.MethodItemResponse{Item: *item, Created: created})
}
