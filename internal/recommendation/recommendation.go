// Package recommendation narrows the catalog to upcoming events a user is
// eligible for.
package recommendation

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"campusflow/internal/apperr"
	"campusflow/internal/database"
	"campusflow/internal/identity"
	"campusflow/internal/model"
	"campusflow/internal/util"

	"github.com/google/uuid"
)

type Store interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	ListEvents(ctx context.Context, params database.ListEventsParams) ([]model.Event, error)
}

type Manager struct {
	logger *slog.Logger
	db     Store
	now    func() time.Time
}

func NewManager(logger *slog.Logger, db Store) Manager {
	return Manager{logger: logger, db: db, now: time.Now}
}

// Eligible reports whether the user passes every allow-list of the event. An
// empty allow-list admits everyone; a non-empty one must contain the user's
// value for that dimension.
func Eligible(event model.Event, user model.User) bool {
	return allows(event.AllowedCourses, user.Course) &&
		allows(event.AllowedDepartments, user.Department) &&
		allows(event.AllowedYears, user.Year)
}

func allows[T comparable](allowList []T, value T) bool {
	return len(allowList) == 0 || slices.Contains(allowList, value)
}

// ListRecommended returns published future events the principal is eligible
// for, soonest first.
func (m *Manager) ListRecommended(ctx context.Context, principal model.Principal) ([]model.Event, error) {
	if err := identity.RequireAuthenticated(principal); err != nil {
		return nil, err
	}

	user, err := m.db.GetUserByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		m.logger.ErrorContext(ctx, "recommendation: failed to load user", "user_id", principal.UserID, "error", err)
		return nil, apperr.Internal(err)
	}

	events, err := m.db.ListEvents(ctx, database.ListEventsParams{
		Status:   util.Some(model.EventStatusPublished),
		DateFrom: util.Some(m.now().UTC()),
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "recommendation: failed to list events", "error", err)
		return nil, apperr.Internal(err)
	}

	recommended := make([]model.Event, 0, len(events))
	for _, event := range events {
		if Eligible(event, user) {
			recommended = append(recommended, event)
		}
	}
	return recommended, nil
}
