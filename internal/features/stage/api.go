package stage

import (
	"github.com/gofiber/fiber/v2"

	"go-pubflow/internal/common/api"
)

type StageApi struct {
	controller *StageController
}

func NewStageApi(controller *StageController) api.Route {
	return &StageApi{
		controller: controller,
	}
}

func (h *StageApi) Setup(app *fiber.App) {
	group := app.Group("/api/stages")

	group.Get("/", h.controller.ListStages)
	group.Get("/:id", h.controller.GetStage)
	group.Post("/", h.controller.CreateStage)
	group.Put("/:id", h.controller.UpdateStage)
	group.Delete("/:id", h.controller.DeleteStage)
}
