package stage

import (
	"github.com/gofiber/fiber/v2"
)

type StageController struct {
	Service StageService
}

func NewStageController(service StageService) *StageController {
	return &StageController{
		Service: service,
	}
}

// CreateStage godoc
// @Summary Create stage
// @Tags stages
// @Accept json
// @Produce json
// @Router /api/stages [post]
func (ctrl *StageController) CreateStage(c *fiber.Ctx) error {
	var st Stage
	if err := c.BodyParser(&st); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.CreateStage(c.UserContext(), &st); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(st)
}

// GetStage godoc
// @Summary Get stage
// @Tags stages
// @Produce json
// @Router /api/stages/{id} [get]
func (ctrl *StageController) GetStage(c *fiber.Ctx) error {
	id := c.Params("id")
	st, err := ctrl.Service.GetStage(c.UserContext(), id)
	if err != nil || st == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Stage not found"})
	}
	return c.JSON(st)
}

// ListStages godoc
// @Summary List stages
// @Tags stages
// @Produce json
// @Router /api/stages [get]
func (ctrl *StageController) ListStages(c *fiber.Ctx) error {
	stages, err := ctrl.Service.ListStages(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(stages)
}

// UpdateStage godoc
// @Summary Update stage
// @Tags stages
// @Accept json
// @Produce json
// @Router /api/stages/{id} [put]
func (ctrl *StageController) UpdateStage(c *fiber.Ctx) error {
	var st Stage
	if err := c.BodyParser(&st); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.UpdateStage(c.UserContext(), &st); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(st)
}

// DeleteStage godoc
// @Summary Delete stage and cascade its automations
// @Tags stages
// @Router /api/stages/{id} [delete]
func (ctrl *StageController) DeleteStage(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := ctrl.Service.DeleteStage(c.UserContext(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
