package handler

import (
	"time"

	"pokeguide-backend/internal/middleware"
	"pokeguide-backend/internal/model"

	"github.com/gofiber/fiber/v2"
)

type Routes struct {
	Auth   *AuthHandler
	Damage *DamageHandler
	Admin  *AdminHandler
	Health *HealthHandler
	WS     *WSHandler

	Verifier middleware.TokenVerifier
	// LimiterStorage is shared rate-limit state; nil keeps it in memory.
	LimiterStorage fiber.Storage
}

func (r *Routes) Mount(app *fiber.App) {
	if r.Health != nil {
		app.Get("/health", r.Health.Health)
		app.Get("/ready", r.Health.Ready)
	}

	requireUser := middleware.Auth(r.Verifier)

	auth := app.Group("/auth")
	auth.Post("/register", middleware.RateLimit("register", 5, time.Minute, r.LimiterStorage), r.Auth.Register)
	auth.Post("/login", middleware.RateLimit("login", 10, time.Minute, r.LimiterStorage), r.Auth.Login)
	auth.Post("/refresh", middleware.RateLimit("refresh", 20, time.Minute, r.LimiterStorage), r.Auth.Refresh)
	auth.Post("/logout", r.Auth.Logout)
	auth.Post("/logout-all", requireUser, r.Auth.LogoutAll)
	auth.Get("/me", requireUser, r.Auth.Me)

	api := app.Group("/api")
	api.Post("/dmgcalc", middleware.RateLimit("dmgcalc", 60, time.Minute, r.LimiterStorage), r.Damage.Calculate)

	admin := api.Group("/admin", requireUser, middleware.RequireRole(model.RoleAdmin))
	admin.Get("/stats", r.Admin.Stats)
	admin.Put("/users/:id/role", r.Admin.ChangeRole)
	admin.Post("/announce", r.Admin.Announce)

	if r.WS != nil {
		app.Get("/ws", r.WS.Upgrade)
	}
}
