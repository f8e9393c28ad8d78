package handler

import (
	"pokeguide-backend/internal/model"
	"pokeguide-backend/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type DamageHandler struct {
	damageSvc *service.DamageService
	log       *zap.Logger
}

func NewDamageHandler(damageSvc *service.DamageService, log *zap.Logger) *DamageHandler {
	return &DamageHandler{damageSvc: damageSvc, log: log}
}

func (h *DamageHandler) Calculate(c *fiber.Ctx) error {
	var req model.DamageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.damageSvc.Compute(c.UserContext(), &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}
