package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger logs one line per request once the handler chain has run.
func Logger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		switch {
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}

		attrs := []any{
			"method", c.Method(),
			"url", c.OriginalURL(),
			"status", status,
			"ip", c.IP(),
			"duration", time.Since(start),
		}
		if requestID, ok := c.Locals("requestid").(string); ok && requestID != "" {
			attrs = append(attrs, "request_id", requestID)
		}
		if principal := PrincipalFrom(c); !principal.Anonymous() {
			attrs = append(attrs, "user_id", principal.UserID)
		}
		if err != nil {
			attrs = append(attrs, "error", err)
		}

		logger.Log(c.UserContext(), level, "Request", attrs...)
		return err
	}
}
