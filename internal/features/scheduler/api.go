package scheduler

import (
	"github.com/gofiber/fiber/v2"

	"go-pubflow/internal/common/api"
)

type EventApi struct {
	controller *SchedulerController
}

func NewEventApi(controller *SchedulerController) api.Route {
	return &EventApi{
		controller: controller,
	}
}

func (h *EventApi) Setup(app *fiber.App) {
	app.Post("/api/automations/:id/trigger", h.controller.TriggerManual)
	app.Post("/api/events/webhook", h.controller.HandleWebhook)
}
