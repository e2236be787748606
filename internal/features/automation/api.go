package automation

import (
	"github.com/gofiber/fiber/v2"

	"go-pubflow/internal/common/api"
)

type AutomationApi struct {
	controller *AutomationController
}

func NewAutomationApi(controller *AutomationController) api.Route {
	return &AutomationApi{
		controller: controller,
	}
}

func (h *AutomationApi) Setup(app *fiber.App) {
	group := app.Group("/api/automations")

	group.Get("/", h.controller.ListAutomations)
	group.Get("/:id", h.controller.GetAutomation)
	group.Post("/", h.controller.CreateAutomation)
	group.Put("/:id", h.controller.UpdateAutomation)
	group.Post("/:id/move", h.controller.MoveAutomation)
	group.Delete("/:id", h.controller.DeleteAutomation)
}
