package handler

import (
	"encoding/json"
	"time"

	"pokeguide-backend/internal/middleware"
	"pokeguide-backend/internal/model"
	"pokeguide-backend/internal/service"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const wsReadTimeout = 60 * time.Second

type WSHandler struct {
	hub      *service.WSHub
	verifier middleware.TokenVerifier
	log      *zap.Logger
}

func NewWSHandler(hub *service.WSHub, verifier middleware.TokenVerifier, log *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, verifier: verifier, log: log}
}

// Upgrade authenticates the access token passed as ?token= since browsers
// cannot set headers on a websocket handshake.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "token required"})
	}
	principal, err := h.verifier.Verify(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}

	middleware.SetPrincipal(c, principal)
	return websocket.New(h.handleConnection)(c)
}

func (h *WSHandler) handleConnection(c *websocket.Conn) {
	principal, _ := c.Locals(middleware.PrincipalKey).(*model.Principal)
	if principal == nil {
		_ = c.Close()
		return
	}

	client := &service.WSClient{
		Conn:   c,
		UserID: principal.UserID,
		Role:   principal.Role,
		Send:   make(chan []byte, 256),
	}

	if !h.hub.Register(client) {
		_ = c.Close()
		return
	}
	defer h.hub.Unregister(client)

	go func() {
		defer c.Close()
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	_ = c.SetReadDeadline(time.Now().Add(wsReadTimeout))
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}
		_ = c.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var event model.WSEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			continue
		}

		switch event.Type {
		case "ping":
			pong, _ := json.Marshal(model.WSEvent{Type: "pong"})
			select {
			case client.Send <- pong:
			default:
			}
		default:
			h.log.Debug("ws: unknown event", zap.String("type", event.Type), zap.String("user_id", client.UserID))
		}
	}
}
