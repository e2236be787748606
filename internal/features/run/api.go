package run

import (
	"github.com/gofiber/fiber/v2"

	"go-pubflow/internal/common/api"
)

type RunApi struct {
	controller *RunController
}

func NewRunApi(controller *RunController) api.Route {
	return &RunApi{
		controller: controller,
	}
}

func (h *RunApi) Setup(app *fiber.App) {
	group := app.Group("/api/runs")

	group.Get("/", h.controller.ListRuns)
	group.Get("/:id", h.controller.GetRun)
	group.Post("/:id/cancel", h.controller.CancelRun)
}
