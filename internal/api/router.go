package api

import (
	"errors"
	"log/slog"

	"campusflow/internal/config"
	apihttp "campusflow/internal/http"
	"campusflow/internal/middleware"
	"campusflow/internal/ratelimit"
	"campusflow/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// RouterParams carries everything the HTTP surface is wired from.
type RouterParams struct {
	Config   *config.Config
	Logger   *slog.Logger
	Verifier middleware.TokenVerifier
	Handler  *APIHandler
	Health   *HealthHandler
	// RateLimiter enables per-principal limits when set.
	RateLimiter *ratelimit.RateLimiter
	// LimiterStorage backs the per-IP limiter; nil keeps it in memory.
	LimiterStorage fiber.Storage
	// PosterDir is served under the public poster URL for local storage.
	PosterDir string
}

func NewRouter(p RouterParams) *fiber.App {
	cfg := p.Config

	app := fiber.New(fiber.Config{
		AppName:      cfg.Telemetry.ServiceName,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: errorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	if cfg.Telemetry.Enabled {
		app.Use(telemetry.FiberMiddleware(cfg.Telemetry.ServiceName))
	}
	app.Use(middleware.Logger(p.Logger))
	app.Use(middleware.SecurityHeadersMiddleware())

	if p.PosterDir != "" {
		app.Static(cfg.Storage.PublicBaseURL, p.PosterDir, fiber.Static{
			ByteRange: true,
			Browse:    false,
			MaxAge:    3600,
		})
	}

	h := p.Handler
	auth := middleware.Authenticated(p.Verifier)
	optionalAuth := middleware.OptionalAuthentication(p.Verifier)
	admin := middleware.RequireAdmin()
	registerLimit := middleware.PrincipalRateLimit(p.RateLimiter, ratelimit.OperationRegister, cfg.RateLimit.RegisterMax, cfg.RateLimit.PrincipalSpan)
	checkInLimit := middleware.PrincipalRateLimit(p.RateLimiter, ratelimit.OperationCheckIn, cfg.RateLimit.CheckInMax, cfg.RateLimit.PrincipalSpan)

	api := app.Group("/api", middleware.IPRateLimit(cfg.RateLimit.Max, cfg.RateLimit.Expiration, p.LimiterStorage))

	// Public API routes
	api.Get("/health", p.Health.Healthy)

	// Event routes; fixed segments go before /:id.
	events := api.Group("/events")
	events.Get("/recommended", auth, h.RecommendedEvents)
	events.Post("/attendance", auth, checkInLimit, h.CheckIn)
	events.Get("", optionalAuth, h.ListEvents)
	events.Post("", auth, h.CreateEvent)
	events.Get("/:id", optionalAuth, h.GetEvent)
	events.Delete("/:id", auth, h.DeleteEvent)
	events.Patch("/:id/status", auth, h.UpdateEventStatus)
	events.Put("/:id/poster", auth, h.UploadEventPoster)
	events.Post("/:id/register", auth, registerLimit, h.Register)
	events.Get("/:id/register", auth, h.RegistrationStatus)

	api.Get("/registrations/:id/ticket", auth, h.RegistrationTicket)

	users := api.Group("/users", auth)
	users.Get("/me", h.Me)
	users.Get("/me/registrations", h.MyRegistrations)

	adminGroup := api.Group("/admin", auth, admin)
	adminGroup.Get("/analytics", h.Analytics)
	adminGroup.Get("/users", h.ListStudents)

	notifications := api.Group("/notifications", auth)
	notifications.Get("", h.ListNotifications)
	notifications.Post("/:id/read", h.MarkNotificationAsRead)

	app.Use(func(c *fiber.Ctx) error {
		return apihttp.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "route not found")
	})

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return apihttp.ErrorResponse(c, fe.Code, statusText(fe.Code), fe.Message)
	}
	return apihttp.Error(c, err)
}

func statusText(code int) string {
	switch code {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return "BAD_INPUT"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	default:
		return "INTERNAL"
	}
}
