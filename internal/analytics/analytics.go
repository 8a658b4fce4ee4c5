// Package analytics computes read-only dashboard rollups.
package analytics

import (
	"context"
	"log/slog"

	"campusflow/internal/apperr"
	"campusflow/internal/database"
	"campusflow/internal/identity"
	"campusflow/internal/model"
	"campusflow/internal/util"

	"go.opentelemetry.io/otel"
)

// TopEventsLimit is the length of the ranking in a snapshot.
const TopEventsLimit = 5

var tracer = otel.Tracer("campusflow/analytics")

type Store interface {
	CountEvents(ctx context.Context, params database.CountEventsParams) (int, error)
	CountUsers(ctx context.Context, params database.CountUsersParams) (int, error)
	CountRegistrations(ctx context.Context, params database.CountRegistrationsParams) (int, error)
	TopEventsByRegistrations(ctx context.Context, params database.TopEventsParams) ([]model.EventCount, error)
}

type Manager struct {
	logger *slog.Logger
	db     Store
}

func NewManager(logger *slog.Logger, db Store) Manager {
	return Manager{logger: logger, db: db}
}

type Snapshot struct {
	TotalEvents        int                `json:"totalEvents"`
	TotalStudents      int                `json:"totalStudents"`
	TotalRegistrations int                `json:"totalRegistrations"`
	TopEvents          []model.EventCount `json:"topEvents"`
}

func (m *Manager) Snapshot(ctx context.Context, principal model.Principal) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "analytics.Snapshot")
	defer span.End()

	if err := identity.RequireAdmin(principal); err != nil {
		return Snapshot{}, err
	}

	events, err := m.db.CountEvents(ctx, database.CountEventsParams{ExcludeArchived: true})
	if err != nil {
		return Snapshot{}, m.internal(ctx, "failed to count events", err)
	}

	students, err := m.db.CountUsers(ctx, database.CountUsersParams{Role: util.Some(model.UserRoleStudent)})
	if err != nil {
		return Snapshot{}, m.internal(ctx, "failed to count students", err)
	}

	registrations, err := m.db.CountRegistrations(ctx, database.CountRegistrationsParams{
		Status: util.Some(model.RegistrationStatusRegistered),
	})
	if err != nil {
		return Snapshot{}, m.internal(ctx, "failed to count registrations", err)
	}

	top, err := m.db.TopEventsByRegistrations(ctx, database.TopEventsParams{
		Status: model.RegistrationStatusRegistered,
		Limit:  TopEventsLimit,
	})
	if err != nil {
		return Snapshot{}, m.internal(ctx, "failed to rank events", err)
	}
	if top == nil {
		top = []model.EventCount{}
	}

	return Snapshot{
		TotalEvents:        events,
		TotalStudents:      students,
		TotalRegistrations: registrations,
		TopEvents:          top,
	}, nil
}

func (m *Manager) internal(ctx context.Context, msg string, err error) error {
	m.logger.ErrorContext(ctx, "analytics: "+msg, "error", err)
	return apperr.Internal(err)
}
