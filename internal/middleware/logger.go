package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	slowRequestThreshold = 500 * time.Millisecond
	errorStatusFloor     = fiber.StatusBadRequest
)

// Logger logs only slow or failed requests to keep log volume flat.
func Logger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		chainErr := c.Next()
		if chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		latency := time.Since(start)
		status := c.Response().StatusCode()
		if !shouldLog(status, latency) {
			return nil
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		}
		if p := PrincipalFrom(c); p != nil {
			fields = append(fields, zap.String("user_id", p.UserID))
		}
		if status >= fiber.StatusInternalServerError {
			log.Error("request", fields...)
		} else {
			log.Info("request", fields...)
		}
		return nil
	}
}

func shouldLog(status int, latency time.Duration) bool {
	return status >= errorStatusFloor || latency >= slowRequestThreshold
}
