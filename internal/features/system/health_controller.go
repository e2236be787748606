package system

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"go-pubflow/internal/database"
)

type HealthController struct {
	Mongodb *database.MongodbDB
}

func NewHealthController(mongodb *database.MongodbDB) *HealthController {
	return &HealthController{
		Mongodb: mongodb,
	}
}

// GetHealth godoc
// @Summary Liveness and database health
// @Tags system
// @Produce json
// @Router /api/health [get]
func (ctrl *HealthController) GetHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	dbStatus := "up"
	if err := ctrl.Mongodb.DB.Client().Ping(ctx, nil); err != nil {
		dbStatus = "down"
	}

	status := fiber.StatusOK
	if dbStatus != "up" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"status":   "ok",
		"database": dbStatus,
		"time":     time.Now().UTC(),
	})
}
