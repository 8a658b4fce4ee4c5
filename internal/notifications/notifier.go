package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"campusflow/internal/apperr"
	"campusflow/internal/database"
	"campusflow/internal/identity"
	"campusflow/internal/model"

	"github.com/google/uuid"
)

const defaultLimit = 20

type Store interface {
	CreateNotification(ctx context.Context, params database.CreateNotificationParams) (model.Notification, error)
	ListNotifications(ctx context.Context, params database.ListNotificationsParams) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error
}

type Manager struct {
	logger *slog.Logger
	db     Store
}

func NewManager(logger *slog.Logger, db Store) Manager {
	return Manager{logger: logger, db: db}
}

type NotifyParam struct {
	UserID      uuid.UUID
	Title       string
	Message     string
	Type        model.NotificationType
	RelatedLink string
}

func (n *Manager) Notify(ctx context.Context, params NotifyParam) error {
	if params.Type == "" {
		params.Type = model.NotificationTypeInfo
	}
	if _, err := n.db.CreateNotification(ctx, database.CreateNotificationParams{
		UserID:      params.UserID,
		Title:       params.Title,
		Message:     params.Message,
		Type:        params.Type,
		RelatedLink: params.RelatedLink,
	}); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// NotifyQuietly is Notify for side effects that must not fail the caller.
func (n *Manager) NotifyQuietly(ctx context.Context, params NotifyParam) {
	if err := n.Notify(ctx, params); err != nil {
		n.logger.WarnContext(ctx, "notifications: failed to notify user", "user_id", params.UserID, "error", err)
	}
}

// List returns the principal's notifications, unread first.
func (n *Manager) List(ctx context.Context, principal model.Principal) ([]model.Notification, error) {
	if err := identity.RequireAuthenticated(principal); err != nil {
		return nil, err
	}

	notifications, err := n.db.ListNotifications(ctx, database.ListNotificationsParams{
		UserID: principal.UserID,
		Limit:  defaultLimit,
	})
	if err != nil {
		n.logger.ErrorContext(ctx, "notifications: failed to list", "user_id", principal.UserID, "error", err)
		return nil, apperr.Internal(err)
	}
	return notifications, nil
}

// MarkRead marks one of the principal's notifications as read.
func (n *Manager) MarkRead(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if err := identity.RequireAuthenticated(principal); err != nil {
		return err
	}

	if err := n.db.MarkNotificationRead(ctx, id, principal.UserID); err != nil {
		if errors.Is(err, database.ErrNotificationNotFound) {
			return apperr.NotFound("notification not found")
		}
		n.logger.ErrorContext(ctx, "notifications: failed to mark read", "notification_id", id, "error", err)
		return apperr.Internal(err)
	}
	return nil
}
