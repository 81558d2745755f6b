package inferenceHandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *InferenceHandler) Home(ctx *fiber.Ctx) error {
	return ctx.Render("home", fiber.Map{
		"ModelName": ctx.Query("model_name"),
	})
}

func (h *InferenceHandler) About(ctx *fiber.Ctx) error {
	return ctx.Render("about", fiber.Map{
		"Title":   "About",
		"Classes": h.inferenceService.Classes(),
	})
}
