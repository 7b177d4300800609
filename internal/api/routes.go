package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)

		// Protected routes (auth required)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey))

			r.Get("/categories", h.ListCategories)
			r.Post("/categories", h.CreateCategory)

			r.Get("/projects", h.ListProjects)
			r.Post("/projects", h.CreateProject)

			r.Route("/projects/{projectID}", func(r chi.Router) {
				r.Use(h.ProjectCtx)

				r.Get("/", h.GetProject)
				r.Put("/", h.UpdateProject)
				r.Delete("/", h.DeleteProject)

				r.Get("/checklist", h.Checklist)
				r.Post("/items", h.CreateItem)
				r.Delete("/items/{itemID}", h.DeleteItem)
				r.Post("/items/{itemID}/toggle", h.ToggleItem)
				r.Get("/items/{itemID}/detail", h.GetDetail)
				r.Put("/items/{itemID}/detail", h.SaveDetail)

				r.Get("/stages/{stage}", h.Stage)
				r.Post("/stages/{stage}/methods/{category}/{method}", h.StageMethod)

				r.Get("/analytics", h.Analytics)
				r.Get("/report", h.Report)
				r.Post("/export", h.Export)

				r.Delete("/categories/{categoryID}", h.RemoveCategory)
			})
		})
	})

	return r
}
