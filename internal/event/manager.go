// Package event manages the event catalog.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"campusflow/internal/apperr"
	"campusflow/internal/audit"
	"campusflow/internal/database"
	"campusflow/internal/identity"
	"campusflow/internal/model"
	"campusflow/internal/storage"
	"campusflow/internal/util"
	"campusflow/internal/validator"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("campusflow/event")

type Store interface {
	CreateEvent(ctx context.Context, params database.CreateEventParams) (model.Event, error)
	GetEventByID(ctx context.Context, id uuid.UUID) (model.Event, error)
	ListEvents(ctx context.Context, params database.ListEventsParams) ([]model.Event, error)
	UpdateEventByID(ctx context.Context, id uuid.UUID, params database.UpdateEventParams) (model.Event, error)
	DeleteEventByID(ctx context.Context, id uuid.UUID) error
}

var posterContentTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

type Manager struct {
	logger        *slog.Logger
	db            Store
	auditor       *audit.Auditor
	validator     *validator.Validator
	posters       storage.Storage
	maxPosterSize int64
}

func NewManager(logger *slog.Logger, db Store, auditor *audit.Auditor, v *validator.Validator, posters storage.Storage, maxPosterSize int64) Manager {
	return Manager{
		logger:        logger,
		db:            db,
		auditor:       auditor,
		validator:     v,
		posters:       posters,
		maxPosterSize: maxPosterSize,
	}
}

// CreateParams is the admin input for a new event.
type CreateParams struct {
	Title              string              `json:"title" validate:"required,max=200"`
	Description        string              `json:"description" validate:"max=5000"`
	Category           model.EventCategory `json:"category" validate:"required,event_category"`
	Date               time.Time           `json:"date" validate:"required"`
	Venue              string              `json:"venue" validate:"required,max=200"`
	Capacity           int                 `json:"capacity" validate:"gte=0"`
	AllowedCourses     []string            `json:"allowedCourses" validate:"dive,required,max=100"`
	AllowedDepartments []string            `json:"allowedDepartments" validate:"dive,required,max=100"`
	AllowedYears       []int               `json:"allowedYears" validate:"dive,min=1,max=8"`
	Status             model.EventStatus   `json:"status" validate:"omitempty,event_status"`
	Modules            *model.EventModules `json:"modules"`
	Details            json.RawMessage     `json:"details"`
	Tags               []string            `json:"tags" validate:"max=20,dive,required,max=50"`
}

// Create adds an event organized by the principal.
func (m *Manager) Create(ctx context.Context, principal model.Principal, params CreateParams) (model.Event, error) {
	ctx, span := tracer.Start(ctx, "event.Create")
	defer span.End()

	if err := identity.RequireAdmin(principal); err != nil {
		return model.Event{}, err
	}

	if err := m.validator.Validate(params); err != nil {
		return model.Event{}, apperr.BadInput(validator.Describe(err))
	}

	details, err := model.DecodeDetails(params.Category, params.Details)
	if err != nil {
		return model.Event{}, apperr.BadInput(strings.TrimPrefix(err.Error(), "model: "))
	}

	status := params.Status
	if status == "" {
		status = model.EventStatusPublished
	}
	modules := model.DefaultEventModules()
	if params.Modules != nil {
		modules = *params.Modules
	}

	event, err := m.db.CreateEvent(ctx, database.CreateEventParams{
		Title:              strings.TrimSpace(params.Title),
		Description:        params.Description,
		Category:           params.Category,
		Date:               params.Date,
		Venue:              strings.TrimSpace(params.Venue),
		OrganizerID:        principal.UserID,
		Capacity:           params.Capacity,
		AllowedCourses:     params.AllowedCourses,
		AllowedDepartments: params.AllowedDepartments,
		AllowedYears:       params.AllowedYears,
		Status:             status,
		Modules:            modules,
		Details:            details,
		Tags:               params.Tags,
	})
	if err != nil {
		return model.Event{}, m.internal(ctx, "failed to create event", err)
	}
	span.SetAttributes(attribute.String("event.id", event.ID.String()))

	m.logger.InfoContext(ctx, "event: created", "event_id", event.ID, "organizer_id", principal.UserID)
	m.record(ctx, principal, audit.AuditLogEventTypeEventCreate, map[string]any{
		"event_id": event.ID,
		"title":    event.Title,
	})
	return event, nil
}

// Get returns a non-archived event.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (model.Event, error) {
	event, err := m.load(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	if event.Archived() {
		return model.Event{}, apperr.NotFound("event not found")
	}
	return event, nil
}

// List returns every non-archived event, soonest first.
func (m *Manager) List(ctx context.Context) ([]model.Event, error) {
	events, err := m.db.ListEvents(ctx, database.ListEventsParams{ExcludeArchived: true})
	if err != nil {
		return nil, m.internal(ctx, "failed to list events", err)
	}
	return events, nil
}

// Delete removes the event and, by cascade, its registrations.
func (m *Manager) Delete(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if err := identity.RequireAdmin(principal); err != nil {
		return err
	}

	event, err := m.load(ctx, id)
	if err != nil {
		return err
	}
	if err := identity.CanManageEvent(principal, event); err != nil {
		return err
	}

	if err := m.db.DeleteEventByID(ctx, id); err != nil {
		if errors.Is(err, database.ErrEventNotFound) {
			return apperr.NotFound("event not found")
		}
		return m.internal(ctx, "failed to delete event", err)
	}

	m.logger.InfoContext(ctx, "event: deleted", "event_id", id, "actor_id", principal.UserID)
	m.record(ctx, principal, audit.AuditLogEventTypeEventDelete, map[string]any{
		"event_id": id,
		"title":    event.Title,
	})
	return nil
}

// UpdateStatus moves the event to another lifecycle status.
func (m *Manager) UpdateStatus(ctx context.Context, principal model.Principal, id uuid.UUID, status model.EventStatus) (model.Event, error) {
	if err := identity.RequireAdmin(principal); err != nil {
		return model.Event{}, err
	}
	if !status.Valid() {
		return model.Event{}, apperr.BadInput("unknown event status")
	}

	event, err := m.load(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	if err := identity.CanManageEvent(principal, event); err != nil {
		return model.Event{}, err
	}

	updated, err := m.db.UpdateEventByID(ctx, id, database.UpdateEventParams{Status: util.Some(status)})
	if err != nil {
		if errors.Is(err, database.ErrEventNotFound) {
			return model.Event{}, apperr.NotFound("event not found")
		}
		return model.Event{}, m.internal(ctx, "failed to update event status", err)
	}

	m.record(ctx, principal, audit.AuditLogEventTypeEventStatusChange, map[string]any{
		"event_id": id,
		"from":     event.Status,
		"to":       status,
	})
	return updated, nil
}

// Poster is an uploaded image.
type Poster struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UploadPoster stores the image and points the event at it.
func (m *Manager) UploadPoster(ctx context.Context, principal model.Principal, id uuid.UUID, poster Poster) (model.Event, error) {
	ctx, span := tracer.Start(ctx, "event.UploadPoster")
	defer span.End()

	if err := identity.RequireAdmin(principal); err != nil {
		return model.Event{}, err
	}
	if m.posters == nil {
		return model.Event{}, apperr.ModuleDisabled("poster storage is not configured")
	}
	if !isPosterContentType(poster.ContentType) {
		return model.Event{}, apperr.BadInput("poster must be a PNG, JPEG, WebP or GIF image")
	}
	if poster.Size <= 0 || (m.maxPosterSize > 0 && poster.Size > m.maxPosterSize) {
		return model.Event{}, apperr.BadInput("poster size is out of range")
	}

	event, err := m.load(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	if err := identity.CanManageEvent(principal, event); err != nil {
		return model.Event{}, err
	}

	key, err := m.posters.Store(ctx, event.ID, poster.Filename, poster.Content, poster.ContentType)
	if err != nil {
		return model.Event{}, m.internal(ctx, "failed to store poster", err)
	}

	updated, err := m.db.UpdateEventByID(ctx, id, database.UpdateEventParams{
		PosterURL: util.Some(m.posters.PublicURL(key)),
	})
	if err != nil {
		if delErr := m.posters.Delete(ctx, key); delErr != nil {
			m.logger.WarnContext(ctx, "event: failed to remove orphaned poster", "key", key, "error", delErr)
		}
		if errors.Is(err, database.ErrEventNotFound) {
			return model.Event{}, apperr.NotFound("event not found")
		}
		return model.Event{}, m.internal(ctx, "failed to set poster url", err)
	}

	m.record(ctx, principal, audit.AuditLogEventTypeEventPosterUpload, map[string]any{
		"event_id": id,
		"key":      key,
		"size":     poster.Size,
	})
	return updated, nil
}

func isPosterContentType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	for _, allowed := range posterContentTypes {
		if mediaType == allowed {
			return true
		}
	}
	return false
}

func (m *Manager) load(ctx context.Context, id uuid.UUID) (model.Event, error) {
	event, err := m.db.GetEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrEventNotFound) {
			return model.Event{}, apperr.NotFound("event not found")
		}
		return model.Event{}, m.internal(ctx, "failed to load event", err)
	}
	return event, nil
}

func (m *Manager) record(ctx context.Context, principal model.Principal, eventType audit.AuditLogEventType, data map[string]any) {
	if m.auditor == nil {
		return
	}
	m.auditor.Record(ctx, audit.LogEventParam{ActorID: principal.UserID, Type: eventType, Data: data})
}

func (m *Manager) internal(ctx context.Context, msg string, err error) error {
	m.logger.ErrorContext(ctx, "event: "+msg, "error", err)
	return apperr.Internal(err)
}
