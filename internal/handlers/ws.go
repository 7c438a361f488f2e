package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/mkhedmin/mkhedmin-api/internal/middleware"
	"github.com/mkhedmin/mkhedmin-api/internal/realtime"
)

const localWSUser = "wsUserId"

type RealtimeHandler struct {
	Auth middleware.Authenticator
	Hub  *realtime.Hub
	Log  *slog.Logger
}

// Upgrade authenticates the ?token= query before switching protocols.
// Browsers cannot set an Authorization header on a websocket handshake.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	u, _, err := h.Auth.Authenticate(c.UserContext(), c.Query("token"))
	if err != nil {
		return err
	}
	c.Locals(localWSUser, u.ID)
	return c.Next()
}

func (h *RealtimeHandler) Serve(c *websocket.Conn) {
	userID, ok := c.Locals(localWSUser).(uuid.UUID)
	if !ok {
		_ = c.Close()
		return
	}

	h.Log.Info("realtime connected", "user_id", userID)
	h.Hub.Serve(realtime.NewClient(userID, realtime.NewWebSocketConn(c)))
	h.Log.Info("realtime disconnected", "user_id", userID)
}
