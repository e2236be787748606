package pub

import (
	"github.com/gofiber/fiber/v2"

	"go-pubflow/internal/common/api"
)

type PubApi struct {
	controller *PubController
}

func NewPubApi(controller *PubController) api.Route {
	return &PubApi{
		controller: controller,
	}
}

func (h *PubApi) Setup(app *fiber.App) {
	group := app.Group("/api/pubs")

	group.Get("/", h.controller.ListPubs)
	group.Get("/:id", h.controller.GetPub)
	group.Post("/", h.controller.CreatePub)
	group.Put("/:id", h.controller.UpdatePub)
	group.Post("/:id/move", h.controller.MovePub)
	group.Delete("/:id", h.controller.DeletePub)
}
