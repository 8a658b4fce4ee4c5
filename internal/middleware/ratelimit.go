package middleware

import (
	"errors"
	"log/slog"
	"time"

	"campusflow/internal/apperr"
	apihttp "campusflow/internal/http"
	"campusflow/internal/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// IPRateLimit limits requests per client IP. A nil storage keeps counters in
// memory.
func IPRateLimit(max int, expiration time.Duration, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: expiration,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() // Limit by IP address
		},
		LimitReached: func(c *fiber.Ctx) error {
			return apihttp.ErrorResponse(c, fiber.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many requests. Please try again later.")
		},
	})
}

// PrincipalRateLimit limits one operation per authenticated principal. It is a
// no-op when no limiter is configured and fails open on Redis errors.
func PrincipalRateLimit(rl *ratelimit.RateLimiter, operation string, max int64, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl == nil {
			return c.Next()
		}

		principal := PrincipalFrom(c)
		if principal.Anonymous() {
			return apihttp.Error(c, apperr.Unauthorized("authentication required"))
		}

		err := rl.Allow(c.UserContext(), operation, principal.UserID.String(), max, window)
		switch {
		case errors.Is(err, ratelimit.ErrTooManyAttempts):
			return apihttp.ErrorResponse(c, fiber.StatusTooManyRequests, "TOO_MANY_REQUESTS", err.Error())
		case err != nil:
			slog.WarnContext(c.UserContext(), "Rate limiter unavailable", "operation", operation, "error", err)
		}
		return c.Next()
	}
}
