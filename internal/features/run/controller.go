package run

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RunController struct {
	Repo RunRepository
}

func NewRunController(repo RunRepository) *RunController {
	return &RunController{
		Repo: repo,
	}
}

// GetRun godoc
// @Summary Get a run
// @Tags runs
// @Produce json
// @Router /api/runs/{id} [get]
func (ctrl *RunController) GetRun(c *fiber.Ctx) error {
	ar, err := ctrl.Repo.GetByID(c.UserContext(), c.Params("id"))
	if err != nil || ar == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Run not found"})
	}
	return c.JSON(ar)
}

// ListRuns godoc
// @Summary List recent runs for an automation or a pub
// @Tags runs
// @Produce json
// @Param automation_id query string false "automation id"
// @Param pub_id query string false "pub id"
// @Param limit query int false "max results"
// @Router /api/runs [get]
func (ctrl *RunController) ListRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit")

	if id := c.Query("automation_id"); id != "" {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid automation id"})
		}
		runs, err := ctrl.Repo.ListByAutomation(c.UserContext(), oid, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(runs)
	}

	if id := c.Query("pub_id"); id != "" {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid pub id"})
		}
		runs, err := ctrl.Repo.ListByPub(c.UserContext(), oid, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(runs)
	}

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "automation_id or pub_id is required"})
}

// CancelRun godoc
// @Summary Cancel a scheduled run before its timer elapses
// @Tags runs
// @Router /api/runs/{id}/cancel [post]
func (ctrl *RunController) CancelRun(c *fiber.Ctx) error {
	oid, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid run id"})
	}

	if err := ctrl.Repo.Cancel(c.UserContext(), oid); err != nil {
		if errors.Is(err, ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Run is no longer scheduled"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
