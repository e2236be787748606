package system

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"go-pubflow/internal/features/run"
)

type runMessage struct {
	Type string             `json:"type"`
	Run  *run.AutomationRun `json:"run"`
}

// WebSocketController fans run updates out to every connected client. The
// scheduler pushes through NotifyRun each time a run reaches a new state.
type WebSocketController struct {
	Logger *zap.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func NewWebSocketController(logger *zap.Logger) *WebSocketController {
	return &WebSocketController{
		Logger: logger,
		conns:  make(map[*websocket.Conn]bool),
	}
}

func (h *WebSocketController) HandleWebSocket(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, c)
		h.mu.Unlock()
		c.Close()
	}()

	// clients only listen; reading just detects the close
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *WebSocketController) NotifyRun(ar *run.AutomationRun) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := runMessage{Type: "run", Run: ar}
	for c := range h.conns {
		if err := c.WriteJSON(msg); err != nil {
			h.Logger.Warn("dropping websocket client", zap.Error(err))
			c.Close()
			delete(h.conns, c)
		}
	}
}
