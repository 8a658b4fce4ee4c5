package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campusflow/internal/analytics"
	"campusflow/internal/api"
	"campusflow/internal/attendance"
	"campusflow/internal/audit"
	"campusflow/internal/config"
	"campusflow/internal/database"
	"campusflow/internal/database/sqlite"
	"campusflow/internal/event"
	"campusflow/internal/identity"
	"campusflow/internal/logger"
	"campusflow/internal/model"
	"campusflow/internal/notifications"
	"campusflow/internal/recommendation"
	"campusflow/internal/registration"
	"campusflow/internal/storage"
	"campusflow/internal/testutil"
	"campusflow/internal/user"
	"campusflow/internal/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	app     *fiber.App
	store   *sqlite.Store
	issuer  *identity.Issuer
	admin   model.User
	student model.User
}

func newTestApp(t *testing.T) testApp {
	t.Helper()

	cfg := &config.Config{
		Server:    config.ServerConfig{Environment: config.EnvironmentTest},
		Storage:   config.StorageConfig{PublicBaseURL: "/uploads", MaxPosterSize: 1 << 20},
		Telemetry: config.TelemetryConfig{ServiceName: "campusflow-test"},
		RateLimit: config.RateLimitConfig{Max: 1000, Expiration: time.Minute},
		Auth:      config.AuthConfig{JWTSecret: testutil.TestJWTSecret, Issuer: testutil.TestIssuer},
	}

	store := testutil.OpenSQLite(t)
	slogger := logger.Discard()
	posters, err := storage.NewLocalStorage(t.TempDir(), cfg.Storage.PublicBaseURL)
	require.NoError(t, err)

	auditor := audit.NewAuditor(slogger, store)
	notifier := notifications.NewManager(slogger, store)
	events := event.NewManager(slogger, store, &auditor, validator.New(), posters, cfg.Storage.MaxPosterSize)
	registrations := registration.NewManager(slogger, store, &auditor, &notifier, nil, registration.Options{StrictCapacity: true})
	checkIns := attendance.NewManager(slogger, store, &auditor, &notifier, nil)
	recommender := recommendation.NewManager(slogger, store)
	dashboard := analytics.NewManager(slogger, store)
	users := user.NewManager(slogger, store)

	handler := api.NewAPIHandler(slogger, &events, &registrations, &checkIns, &recommender, &dashboard, &users, &notifier)
	app := api.NewRouter(api.RouterParams{
		Config:    cfg,
		Logger:    slogger,
		Verifier:  identity.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Handler:   &handler,
		Health:    api.NewHealthHandler(slogger, store, "test"),
		PosterDir: posters.BasePath(),
	})

	return testApp{
		app:     app,
		store:   store,
		issuer:  identity.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		admin:   testutil.CreateUser(t, store, model.UserRoleAdmin, nil),
		student: testutil.CreateUser(t, store, model.UserRoleStudent, nil),
	}
}

func (a testApp) token(t *testing.T, u model.User) string {
	t.Helper()
	token, err := a.issuer.Issue(testutil.PrincipalOf(u), time.Hour)
	require.NoError(t, err)
	return token
}

func (a testApp) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func decodeError(t *testing.T, data []byte) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(data, &env), string(data))
	return env
}

func TestRouter_Health(t *testing.T) {
	a := newTestApp(t)

	status, body := a.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"healthy"`)
}

func TestRouter_RegistrationAndCheckInFlow(t *testing.T) {
	a := newTestApp(t)
	adminToken := a.token(t, a.admin)
	studentToken := a.token(t, a.student)

	// Create
	status, body := a.do(t, http.MethodPost, "/api/events", adminToken, map[string]any{
		"title":    "Hack Night",
		"category": "technical",
		"date":     time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339),
		"venue":    "Hall A",
		"capacity": 50,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created model.Event
	require.NoError(t, json.Unmarshal(body, &created))

	status, body = a.do(t, http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusOK, status)
	var listed []model.Event
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)

	// Register
	status, body = a.do(t, http.MethodPost, "/api/events/"+created.ID.String()+"/register", studentToken, nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	var reg model.Registration
	require.NoError(t, json.Unmarshal(body, &reg))
	assert.Equal(t, model.RegistrationStatusRegistered, reg.Status)

	status, body = a.do(t, http.MethodPost, "/api/events/"+created.ID.String()+"/register", studentToken, nil)
	assert.Equal(t, http.StatusConflict, status)
	env := decodeError(t, body)
	assert.Equal(t, "CONFLICT", env.Error.Status)
	assert.Equal(t, http.StatusConflict, env.Error.Code)

	status, body = a.do(t, http.MethodGet, "/api/events/"+created.ID.String()+"/register", studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	var regStatus registration.Status
	require.NoError(t, json.Unmarshal(body, &regStatus))
	assert.True(t, regStatus.IsRegistered)

	// Ticket
	status, body = a.do(t, http.MethodGet, "/api/registrations/"+reg.ID.String()+"/ticket", studentToken, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var ticket struct {
		Payload attendance.Ticket `json:"payload"`
		QRData  string            `json:"qrData"`
	}
	require.NoError(t, json.Unmarshal(body, &ticket))
	assert.Equal(t, reg.ID, ticket.Payload.RegistrationID)

	// Check-in
	status, body = a.do(t, http.MethodPost, "/api/events/attendance", studentToken, map[string]string{"qrData": ticket.QRData})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", decodeError(t, body).Error.Status)

	status, body = a.do(t, http.MethodPost, "/api/events/attendance", adminToken, map[string]string{"qrData": ticket.QRData})
	require.Equal(t, http.StatusOK, status, string(body))
	var first attendance.Result
	require.NoError(t, json.Unmarshal(body, &first))
	assert.False(t, first.AlreadyCheckedIn)

	status, body = a.do(t, http.MethodPost, "/api/events/attendance", adminToken, map[string]string{
		"registrationId": reg.ID.String(),
		"eventId":        created.ID.String(),
		"userId":         a.student.ID.String(),
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var second attendance.Result
	require.NoError(t, json.Unmarshal(body, &second))
	assert.True(t, second.AlreadyCheckedIn)
	assert.True(t, first.Timestamp.Equal(second.Timestamp))

	status, body = a.do(t, http.MethodPost, "/api/events/attendance", adminToken, map[string]string{"registrationId": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_INPUT", decodeError(t, body).Error.Status)

	// Analytics
	status, body = a.do(t, http.MethodGet, "/api/admin/analytics", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	var snapshot analytics.Snapshot
	require.NoError(t, json.Unmarshal(body, &snapshot))
	assert.Equal(t, 1, snapshot.TotalEvents)
	assert.Equal(t, 1, snapshot.TotalStudents)

	status, _ = a.do(t, http.MethodGet, "/api/admin/analytics", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Notifications from registration and check-in
	status, body = a.do(t, http.MethodGet, "/api/notifications", studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	var notes []model.Notification
	require.NoError(t, json.Unmarshal(body, &notes))
	require.Len(t, notes, 2)

	status, _ = a.do(t, http.MethodPost, "/api/notifications/"+notes[0].ID.String()+"/read", studentToken, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestRouter_CapacityAndModuleErrors(t *testing.T) {
	a := newTestApp(t)
	full := testutil.CreateEvent(t, a.store, a.admin.ID, func(p *database.CreateEventParams) { p.Capacity = 1 })
	closed := testutil.CreateEvent(t, a.store, a.admin.ID, func(p *database.CreateEventParams) {
		p.Modules = model.EventModules{}
	})

	status, _ := a.do(t, http.MethodPost, "/api/events/"+full.ID.String()+"/register", a.token(t, a.student), nil)
	require.Equal(t, http.StatusCreated, status)

	other := testutil.CreateUser(t, a.store, model.UserRoleStudent, nil)
	status, body := a.do(t, http.MethodPost, "/api/events/"+full.ID.String()+"/register", a.token(t, other), nil)
	assert.Equal(t, http.StatusBadRequest, status)
	env := decodeError(t, body)
	assert.Equal(t, "CAPACITY_EXCEEDED", env.Error.Status)
	assert.Equal(t, "registration full", env.Error.Message)

	status, body = a.do(t, http.MethodPost, "/api/events/"+closed.ID.String()+"/register", a.token(t, other), nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "MODULE_DISABLED", decodeError(t, body).Error.Status)

	status, body = a.do(t, http.MethodPost, "/api/events/"+full.ID.String()+"/register", a.token(t, a.admin), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", decodeError(t, body).Error.Status)
}

func TestRouter_RegisterUnknownUser(t *testing.T) {
	a := newTestApp(t)
	ev := testutil.CreateEvent(t, a.store, a.admin.ID, nil)

	token, err := a.issuer.Issue(model.Principal{UserID: uuid.New(), Role: model.UserRoleStudent}, time.Hour)
	require.NoError(t, err)

	status, body := a.do(t, http.MethodPost, "/api/events/"+ev.ID.String()+"/register", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	env := decodeError(t, body)
	assert.Equal(t, "NOT_FOUND", env.Error.Status)
	assert.Equal(t, "user not found", env.Error.Message)
}

func TestRouter_AuthAndRouting(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
		kind   string
	}{
		{name: "missing_token", method: http.MethodGet, path: "/api/users/me", status: http.StatusUnauthorized, kind: "UNAUTHORIZED"},
		{name: "bad_token", method: http.MethodGet, path: "/api/users/me", token: "not-a-jwt", status: http.StatusUnauthorized, kind: "UNAUTHORIZED"},
		{name: "malformed_event_id", method: http.MethodGet, path: "/api/events/not-a-uuid", status: http.StatusNotFound, kind: "NOT_FOUND"},
		{name: "unknown_event", method: http.MethodGet, path: "/api/events/" + uuid.NewString(), status: http.StatusNotFound, kind: "NOT_FOUND"},
		{name: "unknown_route", method: http.MethodGet, path: "/api/nothing", status: http.StatusNotFound, kind: "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := a.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, decodeError(t, body).Error.Status)
		})
	}

	status, body := a.do(t, http.MethodGet, "/api/users/me", a.token(t, a.student), nil)
	require.Equal(t, http.StatusOK, status)
	var me model.User
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, a.student.ID, me.ID)

	status, body = a.do(t, http.MethodGet, "/api/events/"+uuid.NewString()+"/register", a.token(t, a.student), nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"isRegistered":false,"registration":null}`, string(body))
}
