// Package attendance implements ticket check-in: the single transition of a
// registration from registered to attended.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"campusflow/internal/apperr"
	"campusflow/internal/audit"
	"campusflow/internal/database"
	"campusflow/internal/identity"
	"campusflow/internal/model"
	"campusflow/internal/notifications"
	"campusflow/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("campusflow/attendance")

type Store interface {
	GetRegistrationByID(ctx context.Context, id uuid.UUID) (model.Registration, error)
	MarkRegistrationAttended(ctx context.Context, id uuid.UUID, at time.Time) (model.Registration, bool, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
}

type Manager struct {
	logger    *slog.Logger
	db        Store
	auditor   *audit.Auditor
	notifier  *notifications.Manager
	telemetry *telemetry.Telemetry
	now       func() time.Time
}

func NewManager(logger *slog.Logger, db Store, auditor *audit.Auditor, notifier *notifications.Manager, tel *telemetry.Telemetry) Manager {
	return Manager{
		logger:    logger,
		db:        db,
		auditor:   auditor,
		notifier:  notifier,
		telemetry: tel,
		now:       time.Now,
	}
}

type Attendee struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Result struct {
	Message          string    `json:"message"`
	Timestamp        time.Time `json:"timestamp"`
	AlreadyCheckedIn bool      `json:"alreadyCheckedIn"`
	User             Attendee  `json:"user"`
}

// CheckIn marks the ticket's registration as attended. Scanning an already
// attended ticket succeeds and reports the original check-in time.
func (m *Manager) CheckIn(ctx context.Context, principal model.Principal, payload Payload) (Result, error) {
	ctx, span := tracer.Start(ctx, "attendance.CheckIn")
	defer span.End()

	res, err := m.checkIn(ctx, principal, payload)
	switch {
	case err != nil:
		outcome := telemetry.OutcomeRejected
		if apperr.Is(err, apperr.KindInternal) {
			outcome = telemetry.OutcomeError
			span.SetStatus(codes.Error, err.Error())
		}
		m.telemetry.RecordCheckIn(ctx, outcome)
		return Result{}, err
	case res.AlreadyCheckedIn:
		m.telemetry.RecordCheckIn(ctx, telemetry.OutcomeRepeat)
	default:
		m.telemetry.RecordCheckIn(ctx, telemetry.OutcomeSuccess)
	}
	span.SetAttributes(attribute.Bool("attendance.repeat", res.AlreadyCheckedIn))
	return res, nil
}

func (m *Manager) checkIn(ctx context.Context, principal model.Principal, payload Payload) (Result, error) {
	if err := identity.RequireAdmin(principal); err != nil {
		return Result{}, err
	}

	ticket, err := payload.Validate()
	if err != nil {
		return Result{}, err
	}

	reg, err := m.db.GetRegistrationByID(ctx, ticket.RegistrationID)
	if err != nil {
		if errors.Is(err, database.ErrRegistrationNotFound) {
			return Result{}, apperr.NotFound("registration not found")
		}
		return Result{}, m.internal(ctx, "failed to load registration", err)
	}
	if reg.EventID != ticket.EventID || reg.UserID != ticket.UserID {
		return Result{}, apperr.BadInput("ticket does not match registration")
	}

	transitioned := false
	if !reg.Attended() {
		reg, transitioned, err = m.db.MarkRegistrationAttended(ctx, reg.ID, m.now().UTC())
		if err != nil {
			if errors.Is(err, database.ErrRegistrationNotFound) {
				return Result{}, apperr.NotFound("registration not found")
			}
			return Result{}, m.internal(ctx, "failed to mark attendance", err)
		}
	}

	attendee := m.attendee(ctx, reg.UserID)
	attendedAt := reg.AttendedAt.UnwrapOr(reg.UpdatedAt)

	if !transitioned {
		return Result{
			Message:          "Already checked in",
			Timestamp:        attendedAt,
			AlreadyCheckedIn: true,
			User:             attendee,
		}, nil
	}

	m.logger.InfoContext(ctx, "attendance: checked in",
		"registration_id", reg.ID,
		"event_id", reg.EventID,
		"user_id", reg.UserID,
		"operator_id", principal.UserID,
	)
	if m.auditor != nil {
		m.auditor.Record(ctx, audit.LogEventParam{
			ActorID: principal.UserID,
			Type:    audit.AuditLogEventTypeAttendanceCheckIn,
			Data: map[string]any{
				"registration_id": reg.ID,
				"event_id":        reg.EventID,
				"user_id":         reg.UserID,
			},
		})
	}
	if m.notifier != nil {
		m.notifier.NotifyQuietly(ctx, notifications.NotifyParam{
			UserID:      reg.UserID,
			Title:       "Checked in",
			Message:     fmt.Sprintf("Your attendance was recorded at %s.", attendedAt.Format(time.Kitchen)),
			Type:        model.NotificationTypeEventUpdate,
			RelatedLink: "/events/" + reg.EventID.String(),
		})
	}

	return Result{
		Message:   "Check-in successful",
		Timestamp: attendedAt,
		User:      attendee,
	}, nil
}

// attendee resolves the display name, falling back to the id when the user
// record is gone.
func (m *Manager) attendee(ctx context.Context, userID uuid.UUID) Attendee {
	user, err := m.db.GetUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, database.ErrUserNotFound) {
			m.logger.WarnContext(ctx, "attendance: failed to resolve attendee", "user_id", userID, "error", err)
		}
		return Attendee{ID: userID, Name: userID.String()}
	}
	return Attendee{ID: user.ID, Name: user.Name}
}

func (m *Manager) internal(ctx context.Context, msg string, err error) error {
	m.logger.ErrorContext(ctx, "attendance: "+msg, "error", err)
	return apperr.Internal(err)
}
