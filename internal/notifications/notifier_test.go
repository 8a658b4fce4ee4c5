package notifications_test

import (
	"context"
	"testing"

	"campusflow/internal/apperr"
	"campusflow/internal/logger"
	"campusflow/internal/model"
	"campusflow/internal/notifications"
	"campusflow/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_NotifyListMarkRead(t *testing.T) {
	store := testutil.OpenSQLite(t)
	ctx := context.Background()
	manager := notifications.NewManager(logger.Discard(), store)
	student := testutil.CreateUser(t, store, model.UserRoleStudent, nil)
	principal := testutil.PrincipalOf(student)

	require.NoError(t, manager.Notify(ctx, notifications.NotifyParam{UserID: student.ID, Title: "First", Message: "one"}))
	require.NoError(t, manager.Notify(ctx, notifications.NotifyParam{
		UserID:  student.ID,
		Title:   "Second",
		Message: "two",
		Type:    model.NotificationTypeWarning,
	}))

	list, err := manager.List(ctx, principal)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Second", list[0].Title)
	assert.Equal(t, model.NotificationTypeInfo, list[1].Type)

	require.NoError(t, manager.MarkRead(ctx, principal, list[0].ID))

	list, err = manager.List(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, "First", list[0].Title)
	assert.False(t, list[0].IsRead)
	assert.True(t, list[1].IsRead)
}

func TestManager_MarkReadForeignNotification(t *testing.T) {
	store := testutil.OpenSQLite(t)
	ctx := context.Background()
	manager := notifications.NewManager(logger.Discard(), store)
	owner := testutil.CreateUser(t, store, model.UserRoleStudent, nil)
	other := testutil.CreateUser(t, store, model.UserRoleStudent, nil)

	require.NoError(t, manager.Notify(ctx, notifications.NotifyParam{UserID: owner.ID, Title: "Mine"}))
	list, err := manager.List(ctx, testutil.PrincipalOf(owner))
	require.NoError(t, err)
	require.Len(t, list, 1)

	err = manager.MarkRead(ctx, testutil.PrincipalOf(other), list[0].ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = manager.MarkRead(ctx, testutil.PrincipalOf(owner), uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = manager.List(ctx, model.Principal{})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}
