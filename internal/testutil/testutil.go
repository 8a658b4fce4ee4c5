// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"campusflow/internal/database"
	"campusflow/internal/database/sqlite"
	"campusflow/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	TestJWTSecret = "test-jwt-secret"
	TestIssuer    = "campusflow-test"
)

// OpenSQLite returns a migrated store in a temporary directory.
func OpenSQLite(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "campusflow.db"))
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// CreateUser inserts a user with the given role. Nil mutators are allowed.
func CreateUser(t *testing.T, store database.Store, role model.UserRole, mutate func(*database.CreateUserParams)) model.User {
	t.Helper()

	params := database.CreateUserParams{
		Name:            "Test " + string(role),
		Email:           uuid.NewString() + "@campusflow.test",
		PasswordHash:    "hash",
		Role:            role,
		ProfileComplete: true,
		Course:          "B.Tech",
		Department:      "CSE",
		Year:            2,
		Interests:       []string{"ai"},
	}
	if mutate != nil {
		mutate(&params)
	}

	user, err := store.CreateUser(context.Background(), params)
	require.NoError(t, err, "Failed to create test user")
	return user
}

// CreateEvent inserts a published technical event a week from now.
func CreateEvent(t *testing.T, store database.Store, organizerID uuid.UUID, mutate func(*database.CreateEventParams)) model.Event {
	t.Helper()

	params := database.CreateEventParams{
		Title:       "Test Event",
		Description: "An event for tests",
		Category:    model.EventCategoryTechnical,
		Date:        time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Millisecond),
		Venue:       "Lab 1",
		OrganizerID: organizerID,
		Capacity:    10,
		Status:      model.EventStatusPublished,
		Modules:     model.DefaultEventModules(),
		Details:     model.TechnicalDetails{},
	}
	if mutate != nil {
		mutate(&params)
	}

	event, err := store.CreateEvent(context.Background(), params)
	require.NoError(t, err, "Failed to create test event")
	return event
}

// PrincipalOf returns the principal a verified token for user would carry.
func PrincipalOf(user model.User) model.Principal {
	return model.Principal{
		UserID:          user.ID,
		Role:            user.Role,
		ProfileComplete: user.ProfileComplete,
	}
}
