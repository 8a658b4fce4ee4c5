package telemetry_test

import (
	"net/http/httptest"
	"testing"

	"campusflow/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestFiberMiddleware_NamesSpanByRoute(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	app := fiber.New()
	app.Use(telemetry.FiberMiddleware("campusflow-test"))
	app.Get("/events/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/boom", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusInternalServerError) })

	for _, path := range []string{"/events/42", "/boom"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
	}

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, "GET /events/:id", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.Int("http.status_code", fiber.StatusOK))
	assert.Equal(t, codes.Unset, spans[0].Status.Code)

	assert.Equal(t, "GET /boom", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
}
