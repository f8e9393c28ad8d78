// Command migrate applies or rolls back the embedded database migrations.
//
//	migrate up
//	migrate down
package main

import (
	"fmt"
	"os"

	"pokeguide-backend/internal/config"
	"pokeguide-backend/internal/database"
	"pokeguide-backend/internal/logger"

	"go.uber.org/zap"
)

func main() {
	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := database.Migrate(cfg.DatabaseURL, direction); err != nil {
		log.Fatal("migrate", zap.String("direction", direction), zap.Error(err))
	}
	log.Info("migrations applied", zap.String("direction", direction))
}
