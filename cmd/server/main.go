package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"pokeguide-backend/internal/config"
	"pokeguide-backend/internal/database"
	"pokeguide-backend/internal/discord"
	"pokeguide-backend/internal/handler"
	"pokeguide-backend/internal/logger"
	"pokeguide-backend/internal/middleware"
	"pokeguide-backend/internal/repository"
	"pokeguide-backend/internal/service"
	"pokeguide-backend/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := telemetry.Init(ctx, telemetry.Config{
		Enabled:       cfg.OTelEnabled,
		ServiceName:   "pokeguide-backend",
		Environment:   cfg.Env,
		CollectorAddr: cfg.OTelCollectorAddr,
	}); err != nil {
		log.Fatal("init telemetry", zap.Error(err))
	}

	// Database
	if err := database.Migrate(cfg.DatabaseURL, "up"); err != nil {
		log.Fatal("run migrations", zap.Error(err))
	}
	log.Info("migrations applied")

	db, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	var limiterStorage fiber.Storage
	if cfg.RedisURL != "" {
		redisStorage, err := database.NewRedisStorage(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("connect to redis", zap.Error(err))
		}
		defer redisStorage.Close()
		limiterStorage = redisStorage
		log.Info("rate limiter backed by redis")
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	pokedexRepo := repository.NewPokedexRepository(db)

	// Services
	wsHub := service.NewWSHub(log)
	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	authSvc := service.NewAuthService(userRepo, sessionRepo, tokens, wsHub, service.AuthServiceConfig{
		RefreshTokenTTL: cfg.RefreshTokenTTL(),
		BcryptCost:      cfg.BcryptCost,
	}, log)
	damageSvc := service.NewDamageService(pokedexRepo, log)

	var audit service.AuditNotifier
	notifier, err := discord.NewAuditNotifier(cfg.DiscordAuditWebhook, log)
	if err != nil {
		log.Fatal("discord audit notifier", zap.Error(err))
	}
	if notifier != nil {
		audit = notifier
	}
	adminSvc := service.NewAdminService(userRepo, sessionRepo, wsHub, audit, log)

	// Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(middleware.Logger(log))
	app.Use(middleware.Metrics())
	app.Use(middleware.CORS(cfg.CORSOrigins))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routes := &handler.Routes{
		Auth:           handler.NewAuthHandler(authSvc, log),
		Damage:         handler.NewDamageHandler(damageSvc, log),
		Admin:          handler.NewAdminHandler(adminSvc, log),
		Health:         handler.NewHealthHandler(db),
		WS:             handler.NewWSHandler(wsHub, tokens, log),
		Verifier:       tokens,
		LimiterStorage: limiterStorage,
	}
	routes.Mount(app)

	go wsHub.Run()
	go authSvc.RunJanitor(ctx, cfg.TokenCleanupInterval)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	log.Info("pokeguide backend running", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	<-ctx.Done()
	log.Info("shutting down")

	_ = app.ShutdownWithTimeout(5 * time.Second)
	wsHub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Warn("telemetry shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
