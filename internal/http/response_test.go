package http_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"campusflow/internal/apperr"
	apihttp "campusflow/internal/http"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindUnauthorized, fiber.StatusUnauthorized},
		{apperr.KindForbidden, fiber.StatusForbidden},
		{apperr.KindNotFound, fiber.StatusNotFound},
		{apperr.KindConflict, fiber.StatusConflict},
		{apperr.KindCapacityExceeded, fiber.StatusBadRequest},
		{apperr.KindModuleDisabled, fiber.StatusBadRequest},
		{apperr.KindBadInput, fiber.StatusBadRequest},
		{apperr.KindInternal, fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, apihttp.StatusFor(tt.kind))
		})
	}
}

type envelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func TestError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantStatus  string
		wantMessage string
	}{
		{
			name:        "conflict",
			err:         apperr.Conflict("already registered"),
			wantCode:    fiber.StatusConflict,
			wantStatus:  string(apperr.KindConflict),
			wantMessage: "already registered",
		},
		{
			name:        "internal_cause_hidden",
			err:         apperr.Internal(errors.New("connection refused")),
			wantCode:    fiber.StatusInternalServerError,
			wantStatus:  string(apperr.KindInternal),
			wantMessage: apperr.MessageOf(apperr.Internal(errors.New("connection refused"))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return apihttp.Error(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantCode, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.NotContains(t, string(body), "connection refused")

			var env envelope
			require.NoError(t, json.Unmarshal(body, &env))
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Equal(t, tt.wantStatus, env.Error.Status)
			assert.Equal(t, tt.wantMessage, env.Error.Message)
		})
	}
}

func TestSetNoCacheHeaders(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		apihttp.SetNoCacheHeaders(c)
		return apihttp.JSONResponse(c, fiber.StatusCreated, fiber.Map{"ok": true})
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get(fiber.HeaderCacheControl))
	assert.Equal(t, "0", resp.Header.Get(fiber.HeaderExpires))
}
