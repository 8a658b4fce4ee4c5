package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"campusflow/internal/model"
	"campusflow/internal/util"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationExists   = errors.New("registration already exists")
	ErrCapacityReached      = errors.New("event capacity reached")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Store is the persistence contract shared by the PostgreSQL and SQLite
// backends.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	CreateUser(ctx context.Context, params CreateUserParams) (model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context, params ListUsersParams) ([]model.User, error)
	CountUsers(ctx context.Context, params CountUsersParams) (int, error)

	CreateEvent(ctx context.Context, params CreateEventParams) (model.Event, error)
	GetEventByID(ctx context.Context, id uuid.UUID) (model.Event, error)
	ListEvents(ctx context.Context, params ListEventsParams) ([]model.Event, error)
	UpdateEventByID(ctx context.Context, id uuid.UUID, params UpdateEventParams) (model.Event, error)
	DeleteEventByID(ctx context.Context, id uuid.UUID) error
	CountEvents(ctx context.Context, params CountEventsParams) (int, error)
	TopEventsByRegistrations(ctx context.Context, params TopEventsParams) ([]model.EventCount, error)

	CreateRegistration(ctx context.Context, params CreateRegistrationParams) (model.Registration, error)
	GetRegistrationByID(ctx context.Context, id uuid.UUID) (model.Registration, error)
	GetRegistrationByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (model.Registration, error)
	CountRegistrations(ctx context.Context, params CountRegistrationsParams) (int, error)
	ListRegistrationsWithEvent(ctx context.Context, params ListRegistrationsParams) ([]model.RegistrationWithEvent, error)
	MarkRegistrationAttended(ctx context.Context, id uuid.UUID, at time.Time) (model.Registration, bool, error)

	CreateNotification(ctx context.Context, params CreateNotificationParams) (model.Notification, error)
	ListNotifications(ctx context.Context, params ListNotificationsParams) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error

	CreateAuditLogEvent(ctx context.Context, params CreateAuditLogEventParams) (model.AuditLogEvent, error)
}

type CreateUserParams struct {
	Name            string
	Email           string
	PasswordHash    string
	Role            model.UserRole
	ProfileComplete bool
	Course          string
	Department      string
	Year            int
	Interests       []string
}

type ListUsersParams struct {
	Role   util.Optional[model.UserRole]
	Limit  int
	Offset int
}

type CountUsersParams struct {
	Role util.Optional[model.UserRole]
}

type CreateEventParams struct {
	Title              string
	Description        string
	Category           model.EventCategory
	Date               time.Time
	Venue              string
	OrganizerID        uuid.UUID
	Capacity           int
	AllowedCourses     []string
	AllowedDepartments []string
	AllowedYears       []int
	Status             model.EventStatus
	Modules            model.EventModules
	Details            model.EventDetails
	Tags               []string
}

// ListEventsParams filters events; results are ordered by date ascending.
type ListEventsParams struct {
	Status          util.Optional[model.EventStatus]
	ExcludeArchived bool
	DateFrom        util.Optional[time.Time]
	OrganizerID     util.Optional[uuid.UUID]
}

type UpdateEventParams struct {
	Status    util.Optional[model.EventStatus]
	PosterURL util.Optional[string]
}

type CountEventsParams struct {
	ExcludeArchived bool
}

type TopEventsParams struct {
	Status model.RegistrationStatus
	Limit  int
}

type CreateRegistrationParams struct {
	EventID uuid.UUID
	UserID  uuid.UUID
	Status  model.RegistrationStatus
	// CapacityLimit > 0 makes the insert re-check the registered count while
	// holding a lock on the event.
	CapacityLimit int
}

type CountRegistrationsParams struct {
	EventID util.Optional[uuid.UUID]
	Status  util.Optional[model.RegistrationStatus]
}

// ListRegistrationsParams filters registrations; results are newest first.
type ListRegistrationsParams struct {
	UserID  util.Optional[uuid.UUID]
	EventID util.Optional[uuid.UUID]
}

type CreateNotificationParams struct {
	UserID      uuid.UUID
	Title       string
	Message     string
	Type        model.NotificationType
	RelatedLink string
}

type ListNotificationsParams struct {
	UserID     uuid.UUID
	UnreadOnly bool
	Limit      int
}

type CreateAuditLogEventParams struct {
	ActorID   uuid.UUID
	EventType string
	EventData json.RawMessage
}
