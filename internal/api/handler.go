package api

import (
	"log/slog"
	"mime/multipart"
	"strconv"

	"campusflow/internal/analytics"
	"campusflow/internal/apperr"
	"campusflow/internal/attendance"
	"campusflow/internal/event"
	apihttp "campusflow/internal/http"
	"campusflow/internal/middleware"
	"campusflow/internal/model"
	"campusflow/internal/notifications"
	"campusflow/internal/recommendation"
	"campusflow/internal/registration"
	"campusflow/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type APIHandler struct {
	logger          *slog.Logger
	events          *event.Manager
	registrations   *registration.Manager
	attendance      *attendance.Manager
	recommendations *recommendation.Manager
	analytics       *analytics.Manager
	users           *user.Manager
	notifications   *notifications.Manager
}

func NewAPIHandler(
	logger *slog.Logger,
	events *event.Manager,
	registrations *registration.Manager,
	attendanceManager *attendance.Manager,
	recommendations *recommendation.Manager,
	analyticsManager *analytics.Manager,
	users *user.Manager,
	notifier *notifications.Manager,
) APIHandler {
	return APIHandler{
		logger:          logger,
		events:          events,
		registrations:   registrations,
		attendance:      attendanceManager,
		recommendations: recommendations,
		analytics:       analyticsManager,
		users:           users,
		notifications:   notifier,
	}
}

// Events

func (h *APIHandler) ListEvents(c *fiber.Ctx) error {
	events, err := h.events.List(c.UserContext())
	if err != nil {
		return apihttp.Error(c, err)
	}
	return c.JSON(events)
}

func (h *APIHandler) GetEvent(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "event not found")
	if err != nil {
		return apihttp.Error(c, err)
	}

	ev, err := h.events.Get(c.UserContext(), id)
	if err != nil {
		return apihttp.Error(c, err)
	}
	return c.JSON(ev)
}

func (h *APIHandler) CreateEvent(c *fiber.Ctx) error {
	var params event.CreateParams
	if err := c.BodyParser(&params); err != nil {
		return apihttp.Error(c, apperr.BadInput("invalid request body"))
	}

	ev, err := h.events.Create(c.UserContext(), middleware.PrincipalFrom(c), params)
	if err != nil {
		return apihttp.Error(c, err)
	}
	return apihttp.JSONResponse(c, fiber.StatusCreated, ev)
}

func (h *APIHandler) DeleteEvent(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "event not found")
	if err != nil {
		return apihttp.Error(c, err)
	}

	if err := h.events.Delete(c.UserContext(), middleware.PrincipalFrom(c), id); err != nil {
		return apihttp.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type updateStatusRequest struct {
	Status model.EventStatus `json:"status"`
}

func (h *APIHandler) UpdateEventStatus(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "event not found")
	if err != nil {
		return apihttp.Error(c, err)
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apihttp.Error(c, apperr.BadInput("invalid request body"))
	}

	ev, err := h.events.UpdateStatus(c.UserContext(), middleware.PrincipalFrom(c), id, req.Status)
	if err != nil {
		return apihttp.Error(c, err)
	}
	return c.JSON(ev)
}

func (h *APIHandler) UploadEventPoster(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "event not found")
	if err != nil {
		return apihttp.Error(c, err)
	}

	header, err := c.FormFile("poster")
	if err != nil {
		return apihttp.Error(c, apperr.BadInput("poster file is required"))
	}

	file, err := header.Open()
	if err != nil {
		return apihttp.Error(c, apperr.BadInput("poster file could not be read"))
	}
	defer closeFile(h.logger, file)

	ev, err := h.events.UploadPoster(c.UserContext(), middleware.PrincipalFrom(c), id, event.Poster{
		Filename:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		return apihttp.Error(c, err)
	}
	return c.JSON(ev)
}

func (h *APIHandler) RecommendedEvents(c *fiber.Ctx) error {
	events, err := h.recommendations.ListRecommended(c.UserContext(), middleware.PrincipalFrom(c))
	if err != nil {
		return apihttp.Error(c, err)
	}
	return c.JSON(events)
}

// Registrations

func (h *APIHandler) Register(c *fiber.Ctx) error {
	eventID, err := pathID(c, "id", "event not found")
	if err != nil {
		return apihttp.Error(c, err)
	}

	reg, err := h.registrations.Register(c.UserContext(), middleware.PrincipalFrom(c), eventID)
	if err != nil {
		return apihttp.Error(c, err)
	}
	return apihttp.JSONResponse(c, fiber.StatusCreated, reg)
}

func (h *APIHandler) RegistrationStatus(c *fiber.Ctx) error {
	eventID, err := pathID(c, "id", "event not found")
	if err != nil {
		// An unknown event simply has no registration.
		return c.JSON(registration.Status{})
	}

	status, err := h.registrations.Status(c.UserContext(), middleware.PrincipalFrom(c), eventID)
	if err != nil {
		return apihttp.Error(c, err)
	}
	return c.JSON(status)
}

type ticketResponse struct {
	Payload attendance.Ticket `json:"payload"`
	QRData  string            `json:"qrData"`
}

func (h *APIHandler) RegistrationTicket(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "registration not found")
	if err != nil {
		return apihttp.Error(c, err)
	}

	ticket, err := h.registrations.Ticket(c.UserContext(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return apihttp.Error(c, err)
	}

	qr, err := ticket.Encode()
	if err != nil {
		return apihttp.Error(c, apperr.Internal(err))
	}
	apihttp.SetNoCacheHeaders(c)
	return c.JSON(ticketResponse{Payload: ticket, QRData: qr})
}

// Attendance

// checkInRequest accepts either the decoded payload fields or the raw QR text.
type checkInRequest struct {
	QRData string `json:"qrData"`
	attendance.Payload
}

func (h *APIHandler) CheckIn(c *fiber.Ctx) error {
	var req checkInRequest
	if err := c.BodyParser(&req); err != nil {
		return apihttp.Error(c, apperr.BadInput("invalid QR code data"))
	}

	payload := req.Payload
	if req.QRData != "" {
		parsed, err := attendance.ParseTicket(req.QRData)
		if err != nil {
			return apihttp.Error(c, err)
		}
		payload = parsed
	}

	result, err := h.attendance.CheckIn(c.UserContext(), middleware.PrincipalFrom(c), payload)
	if err != nil {
		return apihttp.Error(c, err)
	}
	return c.JSON(result)
}

// Analytics

func (h *APIHandler) Analytics(c *fiber.Ctx) error {
	snapshot, err := h.analytics.Snapshot(c.UserContext(), middleware.PrincipalFrom(c))
	if err != nil {
		return apihttp.Error(c, err)
	}
	return c.JSON(snapshot)
}

// Users

func (h *APIHandler) Me(c *fiber.Ctx) error {
	u, err := h.users.Me(c.UserContext(), middleware.PrincipalFrom(c))
	if err != nil {
		return apihttp.Error(c, err)
	}
	return c.JSON(u)
}

func (h *APIHandler) MyRegistrations(c *fiber.Ctx) error {
	regs, err := h.registrations.ListForUser(c.UserContext(), middleware.PrincipalFrom(c))
	if err != nil {
		return apihttp.Error(c, err)
	}
	return c.JSON(regs)
}

func (h *APIHandler) ListStudents(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	students, err := h.users.ListStudents(c.UserContext(), middleware.PrincipalFrom(c), user.ListParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return apihttp.Error(c, err)
	}
	return c.JSON(students)
}

// Notifications

func (h *APIHandler) ListNotifications(c *fiber.Ctx) error {
	list, err := h.notifications.List(c.UserContext(), middleware.PrincipalFrom(c))
	if err != nil {
		return apihttp.Error(c, err)
	}
	return c.JSON(list)
}

func (h *APIHandler) MarkNotificationAsRead(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "notification not found")
	if err != nil {
		return apihttp.Error(c, err)
	}

	if err := h.notifications.MarkRead(c.UserContext(), middleware.PrincipalFrom(c), id); err != nil {
		return apihttp.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// pathID parses a UUID route parameter. A malformed id cannot name a record,
// so it reports the same NotFound as a missing one.
func pathID(c *fiber.Ctx, name, notFound string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.NotFound(notFound)
	}
	return id, nil
}

func closeFile(logger *slog.Logger, file multipart.File) {
	if err := file.Close(); err != nil {
		logger.Warn("Failed to close uploaded file", "error", err)
	}
}
