package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all routes on the given chi router. apiMiddleware
// is applied to the /api/v1 group only.
func MountRoutes(r chi.Router, h *Handlers, apiMiddleware ...func(http.Handler) http.Handler) {
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)

	if h.Hub != nil {
		r.Get("/ws", h.ServeWS)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiMiddleware...)

		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Roadmaps
		r.Post("/roadmaps/generate", h.GenerateRoadmap)
		r.Post("/roadmaps/steps/generate", h.GenerateSteps)
		r.Post("/roadmaps", h.CreateRoadmap)
		r.Get("/roadmaps", h.ListRoadmaps)
		r.Get("/roadmaps/{id}", h.GetRoadmap)
		r.Delete("/roadmaps/{id}", h.DeleteRoadmap)
		r.Put("/roadmaps/{id}/tasks/{taskId}", h.ToggleTask)

		// Profile
		r.Get("/profile", h.GetProfile)
		r.Put("/profile", h.UpdateProfile)

		// Insights
		r.Get("/insights/{industry}", h.GetInsight)
	})
}
