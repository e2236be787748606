package system

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"go-pubflow/internal/common/api"
)

type SystemApi struct {
	health *HealthController
	ws     *WebSocketController
}

func NewSystemApi(health *HealthController, ws *WebSocketController) api.Route {
	return &SystemApi{
		health: health,
		ws:     ws,
	}
}

func (h *SystemApi) Setup(app *fiber.App) {
	app.Get("/api/health", h.health.GetHealth)
	app.Get("/api/ws/runs", websocket.New(h.ws.HandleWebSocket))
}
