package web

import "github.com/gofiber/fiber/v3"

// RegisterRoutes mounts every API endpoint on router.
func RegisterRoutes(router fiber.Router, h *APIHandlers) {
	router.Get("/health", h.HealthCheck)

	p := router.Group("/projects")
	p.Get("/", h.GetProjects)
	p.Get("/:id", h.GetProject)
	p.Put("/:id", h.SaveProject)
	p.Post("/:id/workflows/:workflowId", h.CoupleWorkflow)
	p.Delete("/:id/workflows/:workflowId", h.DecoupleWorkflow)
	p.Post("/:id/evaluate", h.EvaluateProject)
	p.Post("/:id/events", h.PublishProjectEvent)
	p.Get("/:id/actions", h.GetProjectActions)

	router.Get("/actions/:id", h.GetAction)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/validate", h.ValidateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.SaveWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)

	router.Get("/registry/nodes", h.GetAvailableNodes)
}
