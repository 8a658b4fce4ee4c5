// Package registration owns the registration ledger: the registered state of
// a user for an event, guarded by module flags, duplicates and capacity.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"campusflow/internal/apperr"
	"campusflow/internal/attendance"
	"campusflow/internal/audit"
	"campusflow/internal/database"
	"campusflow/internal/identity"
	"campusflow/internal/model"
	"campusflow/internal/notifications"
	"campusflow/internal/telemetry"
	"campusflow/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("campusflow/registration")

type Store interface {
	GetEventByID(ctx context.Context, id uuid.UUID) (model.Event, error)
	CreateRegistration(ctx context.Context, params database.CreateRegistrationParams) (model.Registration, error)
	GetRegistrationByID(ctx context.Context, id uuid.UUID) (model.Registration, error)
	GetRegistrationByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (model.Registration, error)
	CountRegistrations(ctx context.Context, params database.CountRegistrationsParams) (int, error)
	ListRegistrationsWithEvent(ctx context.Context, params database.ListRegistrationsParams) ([]model.RegistrationWithEvent, error)
}

type Options struct {
	// StrictCapacity re-checks capacity inside the insert transaction.
	StrictCapacity bool
}

type Manager struct {
	logger    *slog.Logger
	db        Store
	auditor   *audit.Auditor
	notifier  *notifications.Manager
	telemetry *telemetry.Telemetry
	opts      Options
}

func NewManager(logger *slog.Logger, db Store, auditor *audit.Auditor, notifier *notifications.Manager, tel *telemetry.Telemetry, opts Options) Manager {
	return Manager{
		logger:    logger,
		db:        db,
		auditor:   auditor,
		notifier:  notifier,
		telemetry: tel,
		opts:      opts,
	}
}

// Status is the answer to "is this user registered for this event".
type Status struct {
	IsRegistered bool                `json:"isRegistered"`
	Registration *model.Registration `json:"registration"`
}

// Register creates a registered entry for the principal. Role is checked
// before the event, so an admin gets Forbidden even for a missing event.
// A principal without a user record gets NotFound.
func (m *Manager) Register(ctx context.Context, principal model.Principal, eventID uuid.UUID) (model.Registration, error) {
	ctx, span := tracer.Start(ctx, "registration.Register")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", eventID.String()))

	reg, err := m.register(ctx, principal, eventID)
	if err != nil {
		outcome := telemetry.OutcomeRejected
		if apperr.Is(err, apperr.KindInternal) {
			outcome = telemetry.OutcomeError
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("registration.outcome", string(apperr.KindOf(err))))
		m.telemetry.RecordRegistration(ctx, outcome)
		return model.Registration{}, err
	}

	m.telemetry.RecordRegistration(ctx, telemetry.OutcomeSuccess)
	return reg, nil
}

func (m *Manager) register(ctx context.Context, principal model.Principal, eventID uuid.UUID) (model.Registration, error) {
	if err := identity.RequireParticipant(principal); err != nil {
		return model.Registration{}, err
	}

	event, err := m.db.GetEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, database.ErrEventNotFound) {
			return model.Registration{}, apperr.NotFound("event not found")
		}
		return model.Registration{}, m.internal(ctx, "failed to load event", err)
	}
	if event.Archived() {
		return model.Registration{}, apperr.NotFound("event not found")
	}

	if !event.Modules.Registration {
		return model.Registration{}, apperr.ModuleDisabled("registration is not enabled for this event")
	}

	if _, err := m.db.GetRegistrationByEventAndUser(ctx, event.ID, principal.UserID); err == nil {
		return model.Registration{}, apperr.Conflict("already registered")
	} else if !errors.Is(err, database.ErrRegistrationNotFound) {
		return model.Registration{}, m.internal(ctx, "failed to check existing registration", err)
	}

	if !event.Unlimited() {
		count, err := m.db.CountRegistrations(ctx, database.CountRegistrationsParams{
			EventID: util.Some(event.ID),
			Status:  util.Some(model.RegistrationStatusRegistered),
		})
		if err != nil {
			return model.Registration{}, m.internal(ctx, "failed to count registrations", err)
		}
		if count >= event.Capacity {
			return model.Registration{}, apperr.CapacityExceeded("registration full")
		}
	}

	params := database.CreateRegistrationParams{
		EventID: event.ID,
		UserID:  principal.UserID,
		Status:  model.RegistrationStatusRegistered,
	}
	if m.opts.StrictCapacity && !event.Unlimited() {
		params.CapacityLimit = event.Capacity
	}

	reg, err := m.db.CreateRegistration(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrRegistrationExists):
			return model.Registration{}, apperr.Conflict("already registered")
		case errors.Is(err, database.ErrCapacityReached):
			return model.Registration{}, apperr.CapacityExceeded("registration full")
		case errors.Is(err, database.ErrEventNotFound):
			return model.Registration{}, apperr.NotFound("event not found")
		case errors.Is(err, database.ErrUserNotFound):
			return model.Registration{}, apperr.NotFound("user not found")
		}
		return model.Registration{}, m.internal(ctx, "failed to create registration", err)
	}

	m.logger.InfoContext(ctx, "registration: user registered",
		"registration_id", reg.ID,
		"event_id", event.ID,
		"user_id", principal.UserID,
	)

	if m.auditor != nil {
		m.auditor.Record(ctx, audit.LogEventParam{
			ActorID: principal.UserID,
			Type:    audit.AuditLogEventTypeRegistrationCreate,
			Data: map[string]any{
				"registration_id": reg.ID,
				"event_id":        event.ID,
			},
		})
	}
	if m.notifier != nil {
		m.notifier.NotifyQuietly(ctx, notifications.NotifyParam{
			UserID:      principal.UserID,
			Title:       "Registration confirmed",
			Message:     fmt.Sprintf("You are registered for %s.", event.Title),
			Type:        model.NotificationTypeSuccess,
			RelatedLink: "/events/" + event.ID.String(),
		})
	}

	return reg, nil
}

// Status reports whether the principal holds a registration for the event.
// Absence is not an error.
func (m *Manager) Status(ctx context.Context, principal model.Principal, eventID uuid.UUID) (Status, error) {
	if err := identity.RequireAuthenticated(principal); err != nil {
		return Status{}, err
	}

	reg, err := m.db.GetRegistrationByEventAndUser(ctx, eventID, principal.UserID)
	if err != nil {
		if errors.Is(err, database.ErrRegistrationNotFound) {
			return Status{IsRegistered: false}, nil
		}
		return Status{}, m.internal(ctx, "failed to load registration status", err)
	}
	return Status{IsRegistered: true, Registration: &reg}, nil
}

// ListForUser returns the principal's registrations with events populated,
// newest first.
func (m *Manager) ListForUser(ctx context.Context, principal model.Principal) ([]model.RegistrationWithEvent, error) {
	if err := identity.RequireAuthenticated(principal); err != nil {
		return nil, err
	}

	regs, err := m.db.ListRegistrationsWithEvent(ctx, database.ListRegistrationsParams{
		UserID: util.Some(principal.UserID),
	})
	if err != nil {
		return nil, m.internal(ctx, "failed to list registrations", err)
	}
	return regs, nil
}

// Ticket returns the QR payload of a registration the principal may view.
func (m *Manager) Ticket(ctx context.Context, principal model.Principal, registrationID uuid.UUID) (attendance.Ticket, error) {
	if err := identity.RequireAuthenticated(principal); err != nil {
		return attendance.Ticket{}, err
	}

	reg, err := m.db.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, database.ErrRegistrationNotFound) {
			return attendance.Ticket{}, apperr.NotFound("registration not found")
		}
		return attendance.Ticket{}, m.internal(ctx, "failed to load registration", err)
	}
	if err := identity.CanViewRegistration(principal, reg); err != nil {
		return attendance.Ticket{}, err
	}

	return attendance.TicketFor(reg), nil
}

func (m *Manager) internal(ctx context.Context, msg string, err error) error {
	m.logger.ErrorContext(ctx, "registration: "+msg, "error", err)
	return apperr.Internal(err)
}
