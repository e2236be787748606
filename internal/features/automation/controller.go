package automation

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-pubflow/internal/common/models"
)

type AutomationController struct {
	Service AutomationService
}

func NewAutomationController(service AutomationService) *AutomationController {
	return &AutomationController{
		Service: service,
	}
}

// CreateAutomation godoc
// @Summary Create an automation on a stage
// @Tags automations
// @Accept json
// @Produce json
// @Router /api/automations [post]
func (ctrl *AutomationController) CreateAutomation(c *fiber.Ctx) error {
	var def AutomationDefinition
	if err := c.BodyParser(&def); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.CreateAutomation(c.UserContext(), &def); err != nil {
		return validationAware(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(def)
}

// GetAutomation godoc
// @Summary Get an automation
// @Tags automations
// @Produce json
// @Router /api/automations/{id} [get]
func (ctrl *AutomationController) GetAutomation(c *fiber.Ctx) error {
	id := c.Params("id")
	def, err := ctrl.Service.GetAutomation(c.UserContext(), id)
	if err != nil || def == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Automation not found"})
	}
	return c.JSON(def)
}

// ListAutomations godoc
// @Summary List automations, optionally scoped to one stage
// @Tags automations
// @Produce json
// @Param stage_id query string false "stage id"
// @Router /api/automations [get]
func (ctrl *AutomationController) ListAutomations(c *fiber.Ctx) error {
	defs, err := ctrl.Service.ListAutomations(c.UserContext(), c.Query("stage_id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(defs)
}

// UpdateAutomation godoc
// @Summary Replace an automation definition
// @Tags automations
// @Accept json
// @Produce json
// @Router /api/automations/{id} [put]
func (ctrl *AutomationController) UpdateAutomation(c *fiber.Ctx) error {
	oid, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid automation id"})
	}

	var def AutomationDefinition
	if err := c.BodyParser(&def); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	def.ID = oid

	if err := ctrl.Service.UpdateAutomation(c.UserContext(), &def); err != nil {
		return validationAware(c, err)
	}

	return c.JSON(def)
}

// MoveAutomation godoc
// @Summary Reorder an automation within its stage
// @Tags automations
// @Accept json
// @Router /api/automations/{id}/move [post]
func (ctrl *AutomationController) MoveAutomation(c *fiber.Ctx) error {
	var body struct {
		AfterID string `json:"after_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.MoveAutomation(c.UserContext(), c.Params("id"), body.AfterID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteAutomation godoc
// @Summary Delete an automation and cancel its pending runs
// @Tags automations
// @Router /api/automations/{id} [delete]
func (ctrl *AutomationController) DeleteAutomation(c *fiber.Ctx) error {
	if err := ctrl.Service.DeleteAutomation(c.UserContext(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// validationAware keeps field-level validation errors structured in the
// response instead of flattening them to one string.
func validationAware(c *fiber.Ctx, err error) error {
	var verrs models.ValidationErrors
	if errors.As(err, &verrs) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"errors": verrs})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
