package middleware

import (
	"strings"

	"campusflow/internal/apperr"
	apihttp "campusflow/internal/http"
	"campusflow/internal/identity"
	"campusflow/internal/model"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

type TokenVerifier interface {
	Verify(raw string) (model.Principal, error)
}

// Authenticated rejects requests without a valid bearer token and stores the
// principal in the request locals.
func Authenticated(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := verify(c, verifier)
		if err != nil {
			return apihttp.Error(c, apperr.Unauthorized("invalid or missing bearer token"))
		}

		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// OptionalAuthentication stores the principal when a valid token is present
// and lets anonymous requests through.
func OptionalAuthentication(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if principal, err := verify(c, verifier); err == nil {
			c.Locals(principalKey, principal)
		}
		return c.Next()
	}
}

// RequireAdmin must run after Authenticated.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := identity.RequireAdmin(PrincipalFrom(c)); err != nil {
			return apihttp.Error(c, err)
		}
		return c.Next()
	}
}

// PrincipalFrom returns the request principal, anonymous when none was set.
func PrincipalFrom(c *fiber.Ctx) model.Principal {
	principal, _ := c.Locals(principalKey).(model.Principal)
	return principal
}

func verify(c *fiber.Ctx, verifier TokenVerifier) (model.Principal, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return model.Principal{}, identity.ErrMissingToken
	}
	return verifier.Verify(token)
}
