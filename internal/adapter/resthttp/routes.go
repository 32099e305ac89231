package resthttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tasks", h.ListTasks)
		r.Post("/tasks", h.CreateTask)
		r.Get("/tasks/{id}", h.GetTask)
		r.Patch("/tasks/{id}", h.UpdateTask)
		r.Delete("/tasks/{id}", h.DeleteTask)
		r.Patch("/tasks/{id}/status", h.ChangeTaskStatus)
		r.Post("/tasks/{id}/complete", h.CompleteTask)
		r.Get("/tasks/{id}/status-log", h.GetStatusLog)

		r.Get("/board", h.GetBoard)
	})
}
