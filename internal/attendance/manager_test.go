package attendance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"campusflow/internal/apperr"
	"campusflow/internal/attendance"
	"campusflow/internal/audit"
	"campusflow/internal/database"
	"campusflow/internal/database/sqlite"
	"campusflow/internal/logger"
	"campusflow/internal/model"
	"campusflow/internal/notifications"
	"campusflow/internal/testutil"
	"campusflow/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store        *sqlite.Store
	manager      attendance.Manager
	admin        model.User
	student      model.User
	event        model.Event
	registration model.Registration
}

func newFixture(t *testing.T) fixture {
	store := testutil.OpenSQLite(t)
	auditor := audit.NewAuditor(logger.Discard(), store)
	notifier := notifications.NewManager(logger.Discard(), store)

	admin := testutil.CreateUser(t, store, model.UserRoleAdmin, nil)
	student := testutil.CreateUser(t, store, model.UserRoleStudent, func(p *database.CreateUserParams) {
		p.Name = "Asha Rao"
	})
	event := testutil.CreateEvent(t, store, admin.ID, nil)
	reg, err := store.CreateRegistration(context.Background(), database.CreateRegistrationParams{
		EventID: event.ID,
		UserID:  student.ID,
		Status:  model.RegistrationStatusRegistered,
	})
	require.NoError(t, err)

	return fixture{
		store:        store,
		manager:      attendance.NewManager(logger.Discard(), store, &auditor, &notifier, nil),
		admin:        admin,
		student:      student,
		event:        event,
		registration: reg,
	}
}

func (f fixture) payload() attendance.Payload {
	return attendance.Payload{
		RegistrationID: f.registration.ID.String(),
		EventID:        f.event.ID.String(),
		UserID:         f.student.ID.String(),
	}
}

func TestManager_CheckIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	operator := testutil.PrincipalOf(f.admin)

	first, err := f.manager.CheckIn(ctx, operator, f.payload())
	require.NoError(t, err)
	assert.Equal(t, "Check-in successful", first.Message)
	assert.False(t, first.AlreadyCheckedIn)
	assert.Equal(t, attendance.Attendee{ID: f.student.ID, Name: "Asha Rao"}, first.User)
	assert.WithinDuration(t, time.Now(), first.Timestamp, time.Minute)

	reg, err := f.store.GetRegistrationByID(ctx, f.registration.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationStatusAttended, reg.Status)
	require.True(t, reg.AttendedAt.IsSet)

	// The repeat scan reports the original timestamp.
	second, err := f.manager.CheckIn(ctx, operator, f.payload())
	require.NoError(t, err)
	assert.Equal(t, "Already checked in", second.Message)
	assert.True(t, second.AlreadyCheckedIn)
	assert.True(t, first.Timestamp.Equal(second.Timestamp))
	assert.True(t, reg.AttendedAt.Val.Equal(second.Timestamp))

	trail, err := f.store.ListAuditLogEvents(ctx, f.admin.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, string(audit.AuditLogEventTypeAttendanceCheckIn), trail[0].Type)
}

func TestManager_CheckInRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	otherEvent := testutil.CreateEvent(t, f.store, f.admin.ID, nil)
	otherStudent := testutil.CreateUser(t, f.store, model.UserRoleStudent, nil)

	tests := []struct {
		name         string
		principal    model.Principal
		payload      func(attendance.Payload) attendance.Payload
		expectedKind apperr.Kind
	}{
		{
			name:         "anonymous_operator",
			principal:    model.Principal{},
			expectedKind: apperr.KindUnauthorized,
		},
		{
			name:         "student_operator",
			principal:    testutil.PrincipalOf(f.student),
			expectedKind: apperr.KindForbidden,
		},
		{
			name:      "unknown_registration",
			principal: testutil.PrincipalOf(f.admin),
			payload: func(p attendance.Payload) attendance.Payload {
				p.RegistrationID = uuid.NewString()
				return p
			},
			expectedKind: apperr.KindNotFound,
		},
		{
			name:      "event_mismatch",
			principal: testutil.PrincipalOf(f.admin),
			payload: func(p attendance.Payload) attendance.Payload {
				p.EventID = otherEvent.ID.String()
				return p
			},
			expectedKind: apperr.KindBadInput,
		},
		{
			name:      "user_mismatch",
			principal: testutil.PrincipalOf(f.admin),
			payload: func(p attendance.Payload) attendance.Payload {
				p.UserID = otherStudent.ID.String()
				return p
			},
			expectedKind: apperr.KindBadInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := f.payload()
			if tt.payload != nil {
				payload = tt.payload(payload)
			}

			_, err := f.manager.CheckIn(ctx, tt.principal, payload)
			require.Error(t, err)
			assert.Equal(t, tt.expectedKind, apperr.KindOf(err))
		})
	}

	reg, err := f.store.GetRegistrationByID(ctx, f.registration.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationStatusRegistered, reg.Status)
}

// MockStore fails the test on any call that was not set up.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetRegistrationByID(ctx context.Context, id uuid.UUID) (model.Registration, error) {
	args := m.Called(id)
	return args.Get(0).(model.Registration), args.Error(1)
}

func (m *MockStore) MarkRegistrationAttended(ctx context.Context, id uuid.UUID, at time.Time) (model.Registration, bool, error) {
	args := m.Called(id, at)
	return args.Get(0).(model.Registration), args.Bool(1), args.Error(2)
}

func (m *MockStore) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(id)
	return args.Get(0).(model.User), args.Error(1)
}

func TestManager_CheckInMalformedPayloadSkipsStore(t *testing.T) {
	db := &MockStore{}
	manager := attendance.NewManager(logger.Discard(), db, nil, nil, nil)
	operator := model.Principal{UserID: uuid.New(), Role: model.UserRoleAdmin}

	_, err := manager.CheckIn(context.Background(), operator, attendance.Payload{
		RegistrationID: "abc",
		EventID:        uuid.NewString(),
		UserID:         uuid.NewString(),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindBadInput, apperr.KindOf(err))
	db.AssertNotCalled(t, "GetRegistrationByID", mock.Anything)
	db.AssertExpectations(t)
}

func TestManager_CheckInUnknownUserFallsBackToID(t *testing.T) {
	db := &MockStore{}
	reg := model.Registration{
		ID:      uuid.New(),
		EventID: uuid.New(),
		UserID:  uuid.New(),
		Status:  model.RegistrationStatusRegistered,
	}
	attended := reg
	attended.Status = model.RegistrationStatusAttended
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	attended.AttendedAt = util.Some(at)

	db.On("GetRegistrationByID", reg.ID).Return(reg, nil)
	db.On("MarkRegistrationAttended", reg.ID, mock.AnythingOfType("time.Time")).Return(attended, true, nil)
	db.On("GetUserByID", reg.UserID).Return(model.User{}, database.ErrUserNotFound)

	manager := attendance.NewManager(logger.Discard(), db, nil, nil, nil)
	res, err := manager.CheckIn(context.Background(), model.Principal{UserID: uuid.New(), Role: model.UserRoleSuperAdmin}, attendance.Payload{
		RegistrationID: reg.ID.String(),
		EventID:        reg.EventID.String(),
		UserID:         reg.UserID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, reg.UserID.String(), res.User.Name)
	assert.Equal(t, at, res.Timestamp)
	db.AssertExpectations(t)
}

func TestManager_CheckInConcurrentScans(t *testing.T) {
	f := newFixture(t)
	operator := testutil.PrincipalOf(f.admin)

	const scans = 8
	var wg sync.WaitGroup
	results := make([]attendance.Result, scans)
	errs := make([]error, scans)
	for i := range scans {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.manager.CheckIn(context.Background(), operator, f.payload())
		}()
	}
	wg.Wait()

	fresh := 0
	for i := range scans {
		require.NoError(t, errs[i])
		if !results[i].AlreadyCheckedIn {
			fresh++
		}
		assert.True(t, results[0].Timestamp.Equal(results[i].Timestamp))
	}
	assert.Equal(t, 1, fresh)
}
