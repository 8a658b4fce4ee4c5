// Package http holds the JSON response helpers shared by handlers and
// middleware.
package http

import (
	"log/slog"

	"campusflow/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindCapacityExceeded, apperr.KindModuleDisabled, apperr.KindBadInput:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorResponse(c *fiber.Ctx, code int, status string, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

// Error writes err in the error envelope. Internal causes are logged, never
// serialized.
func Error(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		slog.ErrorContext(c.UserContext(), "Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return ErrorResponse(c, StatusFor(kind), string(kind), apperr.MessageOf(err))
}

func JSONResponse(c *fiber.Ctx, code int, data any) error {
	return c.Status(code).JSON(data)
}

func SetNoCacheHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")
}
