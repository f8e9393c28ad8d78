package handler

import (
	"pokeguide-backend/internal/middleware"
	"pokeguide-backend/internal/model"
	"pokeguide-backend/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AdminHandler struct {
	adminSvc *service.AdminService
	log      *zap.Logger
}

func NewAdminHandler(adminSvc *service.AdminService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc, log: log}
}

func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.adminSvc.Stats(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(stats)
}

func (h *AdminHandler) ChangeRole(c *fiber.Ctx) error {
	var req model.RoleChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	user, err := h.adminSvc.ChangeRole(c.UserContext(), middleware.PrincipalFrom(c), c.Params("id"), req.Role)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}

func (h *AdminHandler) Announce(c *fiber.Ctx) error {
	var req model.WSAnnounce
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	online, err := h.adminSvc.Announce(req.Message)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"success": true, "online": online})
}
