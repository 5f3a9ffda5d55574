package api

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the dynamic write routes under /api.
func RegisterRoutes(app *fiber.App, h *Handler) {
	api := app.Group("/api")

	api.Post("/:type/save", h.Save)
	api.Post("/:type", h.Create)
	api.Put("/:type/:id", h.Update)
	api.Patch("/:type/:id", h.Patch)
	api.Delete("/:type/:id", h.Delete)
	api.Delete("/:type", h.Delete)
}
