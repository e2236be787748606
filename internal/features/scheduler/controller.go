package scheduler

import (
	"github.com/gofiber/fiber/v2"
)

type SchedulerController struct {
	Service SchedulerService
}

func NewSchedulerController(service SchedulerService) *SchedulerController {
	return &SchedulerController{
		Service: service,
	}
}

// TriggerManual godoc
// @Summary Manually fire an automation for a pub
// @Tags events
// @Accept json
// @Produce json
// @Router /api/automations/{id}/trigger [post]
func (ctrl *SchedulerController) TriggerManual(c *fiber.Ctx) error {
	automationID := c.Params("id")
	var body struct {
		PubID string `json:"pub_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.PubID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "pub_id is required"})
	}

	if err := ctrl.Service.TriggerManual(c.UserContext(), automationID, body.PubID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// HandleWebhook godoc
// @Summary Feed an external webhook event into the engine
// @Tags events
// @Accept json
// @Produce json
// @Router /api/events/webhook [post]
func (ctrl *SchedulerController) HandleWebhook(c *fiber.Ctx) error {
	var body struct {
		PubID   string                 `json:"pub_id"`
		Payload map[string]interface{} `json:"payload"`
	}
	if err := c.BodyParser(&body); err != nil || body.PubID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "pub_id is required"})
	}

	if err := ctrl.Service.HandleWebhook(c.UserContext(), body.PubID, body.Payload); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusAccepted)
}
