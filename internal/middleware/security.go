package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// SecurityHeadersMiddleware adds security headers to API responses
func SecurityHeadersMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// JSON only, nothing here renders markup.
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Strict Transport Security (only for HTTPS)
		if c.Protocol() == "https" {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")

		return c.Next()
	}
}
