package database_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"campusflow/internal/database"
	"campusflow/internal/model"
	"campusflow/internal/testutil"
	"campusflow/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPostgres connects to TEST_DATABASE_URL and resets the schema data.
func setupPostgres(t *testing.T) *database.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, database.Migrate(url), "Failed to migrate test database")

	db := database.NewDatabase()
	require.NoError(t, db.Connect(context.Background(), url, 20))
	t.Cleanup(func() { _ = db.Close() })

	_, err := db.Pool.Exec(context.Background(),
		`TRUNCATE TABLE tbl_audit_log_event, tbl_notification, tbl_registration, tbl_event, tbl_user CASCADE`)
	require.NoError(t, err)
	return &db
}

func TestDatabase_RegistrationLedger(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, db, model.UserRoleAdmin, nil)
	student := testutil.CreateUser(t, db, model.UserRoleStudent, nil)
	ev := testutil.CreateEvent(t, db, admin.ID, func(p *database.CreateEventParams) {
		p.Details = model.TechnicalDetails{GuestSpeaker: "Ada"}
	})

	got, err := db.GetEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TechnicalDetails{GuestSpeaker: "Ada"}, got.Details)

	reg, err := db.CreateRegistration(ctx, database.CreateRegistrationParams{
		EventID: ev.ID,
		UserID:  student.ID,
		Status:  model.RegistrationStatusRegistered,
	})
	require.NoError(t, err)

	_, err = db.CreateRegistration(ctx, database.CreateRegistrationParams{
		EventID: ev.ID,
		UserID:  student.ID,
		Status:  model.RegistrationStatusRegistered,
	})
	assert.ErrorIs(t, err, database.ErrRegistrationExists)

	at := time.Now().UTC().Truncate(time.Microsecond)
	_, changed, err := db.MarkRegistrationAttended(ctx, reg.ID, at)
	require.NoError(t, err)
	assert.True(t, changed)

	again, changed, err := db.MarkRegistrationAttended(ctx, reg.ID, at.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, again.AttendedAt.Val.Equal(at))

	count, err := db.CountRegistrations(ctx, database.CountRegistrationsParams{
		EventID: util.Some(ev.ID),
		Status:  util.Some(model.RegistrationStatusAttended),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDatabase_StrictCapacityUnderContention(t *testing.T) {
	db := setupPostgres(t)
	admin := testutil.CreateUser(t, db, model.UserRoleAdmin, nil)
	const capacity = 3
	ev := testutil.CreateEvent(t, db, admin.ID, func(p *database.CreateEventParams) { p.Capacity = capacity })

	const students = 12
	ids := make([]model.User, students)
	for i := range ids {
		ids[i] = testutil.CreateUser(t, db, model.UserRoleStudent, nil)
	}

	var wg sync.WaitGroup
	errs := make([]error, students)
	for i := range students {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = db.CreateRegistration(context.Background(), database.CreateRegistrationParams{
				EventID:       ev.ID,
				UserID:        ids[i].ID,
				Status:        model.RegistrationStatusRegistered,
				CapacityLimit: capacity,
			})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, database.ErrCapacityReached)
	}
	assert.Equal(t, capacity, succeeded)
}

func TestDatabase_CreateRegistrationMissingReference(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, db, model.UserRoleAdmin, nil)
	student := testutil.CreateUser(t, db, model.UserRoleStudent, nil)
	ev := testutil.CreateEvent(t, db, admin.ID, nil)

	_, err := db.CreateRegistration(ctx, database.CreateRegistrationParams{
		EventID: ev.ID,
		UserID:  uuid.New(),
		Status:  model.RegistrationStatusRegistered,
	})
	assert.ErrorIs(t, err, database.ErrUserNotFound)

	_, err = db.CreateRegistration(ctx, database.CreateRegistrationParams{
		EventID: uuid.New(),
		UserID:  student.ID,
		Status:  model.RegistrationStatusRegistered,
	})
	assert.ErrorIs(t, err, database.ErrEventNotFound)
}
