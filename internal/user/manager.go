package user

import (
	"context"
	"errors"
	"log/slog"

	"campusflow/internal/apperr"
	"campusflow/internal/database"
	"campusflow/internal/identity"
	"campusflow/internal/model"
	"campusflow/internal/util"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Store interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	ListUsers(ctx context.Context, params database.ListUsersParams) ([]model.User, error)
}

type Manager struct {
	logger *slog.Logger
	db     Store
}

func NewManager(logger *slog.Logger, db Store) Manager {
	return Manager{logger: logger, db: db}
}

// Me returns the principal's own profile.
func (m *Manager) Me(ctx context.Context, principal model.Principal) (model.User, error) {
	if err := identity.RequireAuthenticated(principal); err != nil {
		return model.User{}, err
	}

	user, err := m.db.GetUserByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return model.User{}, apperr.NotFound("user not found")
		}
		m.logger.ErrorContext(ctx, "user: failed to get user by ID", "user_id", principal.UserID, "error", err)
		return model.User{}, apperr.Internal(err)
	}
	return user, nil
}

type ListParams struct {
	Limit  int
	Offset int
}

// ListStudents lists student accounts, newest first.
func (m *Manager) ListStudents(ctx context.Context, principal model.Principal, params ListParams) ([]model.User, error) {
	if err := identity.RequireAdmin(principal); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	users, err := m.db.ListUsers(ctx, database.ListUsersParams{
		Role:   util.Some(model.UserRoleStudent),
		Limit:  limit,
		Offset: max(params.Offset, 0),
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "user: failed to list students", "error", err)
		return nil, apperr.Internal(err)
	}
	return users, nil
}
