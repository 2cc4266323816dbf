package handler

import (
	"brainstorm-be/internal/pkg/logger"
	internalWS "brainstorm-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SessionChecker reports whether a browser session is live.
type SessionChecker interface {
	Exists(sessionID string) bool
}

type BrowserHandler struct {
	hub      *internalWS.Hub
	sessions SessionChecker
	logger   logger.ILogger
}

func NewBrowserHandler(hub *internalWS.Hub, sessions SessionChecker, log logger.ILogger) *BrowserHandler {
	return &BrowserHandler{
		hub:      hub,
		sessions: sessions,
		logger:   log,
	}
}

// ServeWs attaches the browser to a live session. Pending questions are
// replayed once the socket is open.
func (h *BrowserHandler) ServeWs(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if !h.sessions.Exists(sessionID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "session not found"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("BrowserHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID})
			internalWS.ServeWs(h.hub, conn, sessionID)
			h.logger.Info("BrowserHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *BrowserHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/sessions/:id", h.ServeWs)
}
