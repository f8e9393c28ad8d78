package handler

import (
	"strings"

	"pokeguide-backend/internal/middleware"
	"pokeguide-backend/internal/model"
	"pokeguide-backend/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authSvc *service.AuthService
	log     *zap.Logger
}

func NewAuthHandler(authSvc *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, log: log}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req model.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return badRequest(c, "name, email and password are required")
	}

	if _, err := h.authSvc.Register(c.UserContext(), &req); err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req model.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	resp, err := h.authSvc.Login(c.UserContext(), &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(resp)
}

// Refresh accepts the refresh token in the JSON body or as a bearer token.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req model.RefreshRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		token, _ = middleware.BearerToken(c)
	}
	if token == "" {
		return badRequest(c, "refreshToken is required")
	}

	resp, err := h.authSvc.Refresh(c.UserContext(), token)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req model.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refreshToken is required")
	}

	if err := h.authSvc.Revoke(c.UserContext(), strings.TrimSpace(req.RefreshToken)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	p := middleware.PrincipalFrom(c)
	if err := h.authSvc.RevokeAll(c.UserContext(), p.UserID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.authSvc.Me(c.UserContext(), middleware.PrincipalFrom(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}
