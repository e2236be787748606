package pub

import (
	"github.com/gofiber/fiber/v2"
)

type PubController struct {
	Service PubService
}

func NewPubController(service PubService) *PubController {
	return &PubController{
		Service: service,
	}
}

// CreatePub godoc
// @Summary Create pub
// @Tags pubs
// @Accept json
// @Produce json
// @Router /api/pubs [post]
func (ctrl *PubController) CreatePub(c *fiber.Ctx) error {
	var p Pub
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.CreatePub(c.UserContext(), &p); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(p)
}

// GetPub godoc
// @Summary Get pub
// @Tags pubs
// @Produce json
// @Router /api/pubs/{id} [get]
func (ctrl *PubController) GetPub(c *fiber.Ctx) error {
	id := c.Params("id")
	p, err := ctrl.Service.GetPub(c.UserContext(), id)
	if err != nil || p == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Pub not found"})
	}
	return c.JSON(p)
}

// ListPubs godoc
// @Summary List pubs in a stage
// @Tags pubs
// @Produce json
// @Param stage_id query string true "Stage ID"
// @Router /api/pubs [get]
func (ctrl *PubController) ListPubs(c *fiber.Ctx) error {
	stageID := c.Query("stage_id")
	if stageID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "stage_id is required"})
	}
	pubs, err := ctrl.Service.ListPubs(c.UserContext(), stageID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(pubs)
}

// UpdatePub godoc
// @Summary Update pub
// @Tags pubs
// @Accept json
// @Produce json
// @Router /api/pubs/{id} [put]
func (ctrl *PubController) UpdatePub(c *fiber.Ctx) error {
	var p Pub
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.UpdatePub(c.UserContext(), &p); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(p)
}

// MovePub godoc
// @Summary Move pub to another stage
// @Description Moves the pub and feeds the stage-transition events into the automation engine
// @Tags pubs
// @Accept json
// @Produce json
// @Router /api/pubs/{id}/move [post]
func (ctrl *PubController) MovePub(c *fiber.Ctx) error {
	id := c.Params("id")
	var body struct {
		StageID string `json:"stage_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.StageID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "stage_id is required"})
	}

	p, err := ctrl.Service.MovePub(c.UserContext(), id, body.StageID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(p)
}

// DeletePub godoc
// @Summary Delete pub
// @Tags pubs
// @Router /api/pubs/{id} [delete]
func (ctrl *PubController) DeletePub(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := ctrl.Service.DeletePub(c.UserContext(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
