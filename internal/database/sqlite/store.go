// Package sqlite provides an embedded SQLite implementation of the campus
// store, used for local development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"campusflow/internal/database"
	"campusflow/internal/database/sqlite/migrations"
	"campusflow/internal/model"
	"campusflow/internal/util"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists campus state in SQLite. Writes are serialised over a single
// connection.
type Store struct {
	sqlDB *sql.DB
}

var _ database.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies the embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: ping db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	if _, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY, applied_at INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var count int
		if err := sqlDB.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, name).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		content, err := fs.ReadFile(migrationFS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, name, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func rowExists(ctx context.Context, tx *sql.Tx, query string, args ...any) bool {
	var one int
	return tx.QueryRowContext(ctx, query, args...).Scan(&one) == nil
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func encodeList[T any](values []T) (string, error) {
	if values == nil {
		values = []T{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("sqlite: failed to encode list: %w", err)
	}
	return string(data), nil
}

func decodeList[T any](raw string, target *[]T) error {
	var values []T
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return fmt.Errorf("sqlite: failed to decode list: %w", err)
	}
	if values == nil {
		values = []T{}
	}
	*target = values
	return nil
}

const userColumns = `id, name, email, password_hash, role, profile_complete, course, department, year, interests, created_at, updated_at`

func scanUser(row rowScanner) (model.User, error) {
	var user model.User
	var interests string
	var createdAt, updatedAt int64
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.ProfileComplete,
		&user.Course, &user.Department, &user.Year, &interests, &createdAt, &updatedAt); err != nil {
		return user, err
	}
	if err := decodeList(interests, &user.Interests); err != nil {
		return user, err
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

func (s *Store) CreateUser(ctx context.Context, params database.CreateUserParams) (model.User, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	user := model.User{
		ID:              uuid.New(),
		Name:            params.Name,
		Email:           strings.ToLower(params.Email),
		PasswordHash:    params.PasswordHash,
		Role:            params.Role,
		ProfileComplete: params.ProfileComplete,
		Course:          params.Course,
		Department:      params.Department,
		Year:            params.Year,
		Interests:       params.Interests,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if user.Interests == nil {
		user.Interests = []string{}
	}

	interests, err := encodeList(user.Interests)
	if err != nil {
		return user, err
	}

	if _, err := s.sqlDB.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID.String(), user.Name, user.Email, user.PasswordHash, string(user.Role), user.ProfileComplete,
		user.Course, user.Department, user.Year, interests, toMillis(user.CreatedAt), toMillis(user.UpdatedAt)); err != nil {
		if isUniqueViolation(err) {
			return user, database.ErrUserExists
		}
		return user, fmt.Errorf("sqlite: failed to insert user (email=%s): %w", user.Email, err)
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	user, err := scanUser(s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user, database.ErrUserNotFound
		}
		return user, fmt.Errorf("sqlite: failed to scan user (id=%s): %w", id, err)
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	user, err := scanUser(s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user, database.ErrUserNotFound
		}
		return user, fmt.Errorf("sqlite: failed to scan user: %w", err)
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context, params database.ListUsersParams) ([]model.User, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + userColumns + ` FROM users WHERE 1=1`)
	var args []any

	if params.Role.IsSet {
		query.WriteString(" AND role = ?")
		args = append(args, string(params.Role.Val))
	}
	query.WriteString(" ORDER BY created_at DESC, rowid DESC")
	if params.Limit > 0 {
		query.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, params.Limit, params.Offset)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate users: %w", err)
	}
	return users, nil
}

func (s *Store) CountUsers(ctx context.Context, params database.CountUsersParams) (int, error) {
	query := `SELECT COUNT(*) FROM users`
	var args []any
	if params.Role.IsSet {
		query += ` WHERE role = ?`
		args = append(args, string(params.Role.Val))
	}

	var count int
	if err := s.sqlDB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: failed to count users: %w", err)
	}
	return count, nil
}

const eventColumns = `id, title, description, category, date, venue, organizer_id, capacity, allowed_courses, allowed_departments, allowed_years, status, modules, details, tags, poster_url, created_at, updated_at`

func scanEvent(row rowScanner) (model.Event, error) {
	var event model.Event
	var date, createdAt, updatedAt int64
	var courses, departments, years, modules, tags string
	var details sql.NullString
	if err := row.Scan(&event.ID, &event.Title, &event.Description, &event.Category, &date, &event.Venue,
		&event.OrganizerID, &event.Capacity, &courses, &departments, &years, &event.Status, &modules, &details,
		&tags, &event.PosterURL, &createdAt, &updatedAt); err != nil {
		return event, err
	}
	if err := decodeEvent(&event, courses, departments, years, modules, details, tags); err != nil {
		return event, err
	}
	event.Date = fromMillis(date)
	event.CreatedAt = fromMillis(createdAt)
	event.UpdatedAt = fromMillis(updatedAt)
	return event, nil
}

func decodeEvent(event *model.Event, courses, departments, years, modules string, details sql.NullString, tags string) error {
	if err := decodeList(courses, &event.AllowedCourses); err != nil {
		return err
	}
	if err := decodeList(departments, &event.AllowedDepartments); err != nil {
		return err
	}
	if err := decodeList(years, &event.AllowedYears); err != nil {
		return err
	}
	if err := decodeList(tags, &event.Tags); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(modules), &event.Modules); err != nil {
		return fmt.Errorf("sqlite: failed to decode event modules (id=%s): %w", event.ID, err)
	}
	d, err := model.DecodeDetails(event.Category, []byte(details.String))
	if err != nil {
		return fmt.Errorf("sqlite: failed to decode event details (id=%s): %w", event.ID, err)
	}
	event.Details = d
	return nil
}

func (s *Store) CreateEvent(ctx context.Context, params database.CreateEventParams) (model.Event, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	event := model.Event{
		ID:                 uuid.New(),
		Title:              params.Title,
		Description:        params.Description,
		Category:           params.Category,
		Date:               params.Date.UTC().Truncate(time.Millisecond),
		Venue:              params.Venue,
		OrganizerID:        params.OrganizerID,
		Capacity:           params.Capacity,
		AllowedCourses:     params.AllowedCourses,
		AllowedDepartments: params.AllowedDepartments,
		AllowedYears:       params.AllowedYears,
		Status:             params.Status,
		Modules:            params.Modules,
		Details:            params.Details,
		Tags:               params.Tags,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	courses, err := encodeList(event.AllowedCourses)
	if err != nil {
		return event, err
	}
	departments, err := encodeList(event.AllowedDepartments)
	if err != nil {
		return event, err
	}
	years, err := encodeList(event.AllowedYears)
	if err != nil {
		return event, err
	}
	tags, err := encodeList(event.Tags)
	if err != nil {
		return event, err
	}
	modules, err := json.Marshal(event.Modules)
	if err != nil {
		return event, fmt.Errorf("sqlite: failed to encode event modules: %w", err)
	}
	details, err := event.EncodeDetails()
	if err != nil {
		return event, err
	}

	if _, err := s.sqlDB.ExecContext(ctx, `INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID.String(), event.Title, event.Description, string(event.Category), toMillis(event.Date), event.Venue,
		event.OrganizerID.String(), event.Capacity, courses, departments, years, string(event.Status), string(modules),
		string(details), tags, event.PosterURL, toMillis(event.CreatedAt), toMillis(event.UpdatedAt)); err != nil {
		return event, fmt.Errorf("sqlite: failed to insert event (title=%s): %w", event.Title, err)
	}

	// Round-trip through the decoder so callers see the stored shape.
	return s.GetEventByID(ctx, event.ID)
}

func (s *Store) GetEventByID(ctx context.Context, id uuid.UUID) (model.Event, error) {
	event, err := scanEvent(s.sqlDB.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event, database.ErrEventNotFound
		}
		return event, fmt.Errorf("sqlite: failed to scan event (id=%s): %w", id, err)
	}
	return event, nil
}

func (s *Store) ListEvents(ctx context.Context, params database.ListEventsParams) ([]model.Event, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + eventColumns + ` FROM events WHERE 1=1`)
	var args []any

	if params.Status.IsSet {
		query.WriteString(" AND status = ?")
		args = append(args, string(params.Status.Val))
	}
	if params.ExcludeArchived {
		query.WriteString(" AND status <> ?")
		args = append(args, string(model.EventStatusArchived))
	}
	if params.DateFrom.IsSet {
		query.WriteString(" AND date >= ?")
		args = append(args, toMillis(params.DateFrom.Val))
	}
	if params.OrganizerID.IsSet {
		query.WriteString(" AND organizer_id = ?")
		args = append(args, params.OrganizerID.Val.String())
	}
	query.WriteString(" ORDER BY date ASC, created_at ASC")

	rows, err := s.sqlDB.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate events: %w", err)
	}
	return events, nil
}

func (s *Store) UpdateEventByID(ctx context.Context, id uuid.UUID, params database.UpdateEventParams) (model.Event, error) {
	var query strings.Builder
	query.WriteString(`UPDATE events SET `)
	var args []any

	if params.Status.IsSet {
		query.WriteString("status = ?, ")
		args = append(args, string(params.Status.Val))
	}
	if params.PosterURL.IsSet {
		query.WriteString("poster_url = ?, ")
		args = append(args, params.PosterURL.Val)
	}
	query.WriteString("updated_at = ? WHERE id = ?")
	args = append(args, toMillis(time.Now()), id.String())

	result, err := s.sqlDB.ExecContext(ctx, query.String(), args...)
	if err != nil {
		return model.Event{}, fmt.Errorf("sqlite: failed to update event (id=%s): %w", id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return model.Event{}, database.ErrEventNotFound
	}
	return s.GetEventByID(ctx, id)
}

func (s *Store) DeleteEventByID(ctx context.Context, id uuid.UUID) error {
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete event (id=%s): %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return database.ErrEventNotFound
	}
	return nil
}

func (s *Store) CountEvents(ctx context.Context, params database.CountEventsParams) (int, error) {
	query := `SELECT COUNT(*) FROM events`
	var args []any
	if params.ExcludeArchived {
		query += ` WHERE status <> ?`
		args = append(args, string(model.EventStatusArchived))
	}

	var count int
	if err := s.sqlDB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: failed to count events: %w", err)
	}
	return count, nil
}

func (s *Store) TopEventsByRegistrations(ctx context.Context, params database.TopEventsParams) ([]model.EventCount, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT e.id, e.title, COUNT(r.id) AS total
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.status = ?
		GROUP BY e.id, e.title
		ORDER BY total DESC, e.title ASC
		LIMIT ?`, string(params.Status), params.Limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to aggregate registrations: %w", err)
	}
	defer rows.Close()

	counts := []model.EventCount{}
	for rows.Next() {
		var c model.EventCount
		if err := rows.Scan(&c.EventID, &c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan event count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate event counts: %w", err)
	}
	return counts, nil
}

const registrationColumns = `id, event_id, user_id, status, attended_at, team_name, team_members, feedback_rating, feedback_comment, created_at, updated_at`

func scanRegistration(row rowScanner) (model.Registration, error) {
	var reg model.Registration
	var attendedAt, rating sql.NullInt64
	var members string
	var createdAt, updatedAt int64
	if err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &attendedAt, &reg.TeamName, &members,
		&rating, &reg.FeedbackComment, &createdAt, &updatedAt); err != nil {
		return reg, err
	}
	fillRegistration(&reg, attendedAt, rating, createdAt, updatedAt)
	if err := decodeList(members, &reg.TeamMembers); err != nil {
		return reg, err
	}
	if len(reg.TeamMembers) == 0 {
		reg.TeamMembers = nil
	}
	return reg, nil
}

func fillRegistration(reg *model.Registration, attendedAt, rating sql.NullInt64, createdAt, updatedAt int64) {
	if attendedAt.Valid {
		reg.AttendedAt.Val = fromMillis(attendedAt.Int64)
		reg.AttendedAt.IsSet = true
	}
	if rating.Valid {
		reg.FeedbackRating.Val = int(rating.Int64)
		reg.FeedbackRating.IsSet = true
	}
	reg.CreatedAt = fromMillis(createdAt)
	reg.UpdatedAt = fromMillis(updatedAt)
}

func nullableMillis(reg model.Registration) any {
	if !reg.AttendedAt.IsSet {
		return nil
	}
	return toMillis(reg.AttendedAt.Val)
}

func nullableRating(reg model.Registration) any {
	if !reg.FeedbackRating.IsSet {
		return nil
	}
	return int64(reg.FeedbackRating.Val)
}

// CreateRegistration inserts a registration. With a capacity limit the count
// and insert share one transaction; the single connection serialises them.
func (s *Store) CreateRegistration(ctx context.Context, params database.CreateRegistrationParams) (model.Registration, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	reg := model.Registration{
		ID:        uuid.New(),
		EventID:   params.EventID,
		UserID:    params.UserID,
		Status:    params.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	members, err := encodeList(reg.TeamMembers)
	if err != nil {
		return reg, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return reg, fmt.Errorf("sqlite: failed to begin registration transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if params.CapacityLimit > 0 {
		registered, err := countRegistrations(ctx, tx, database.CountRegistrationsParams{
			EventID: util.Some(reg.EventID),
			Status:  util.Some(model.RegistrationStatusRegistered),
		})
		if err != nil {
			return reg, err
		}
		if registered >= params.CapacityLimit {
			return reg, database.ErrCapacityReached
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO registrations (`+registrationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.ID.String(), reg.EventID.String(), reg.UserID.String(), string(reg.Status), nullableMillis(reg), reg.TeamName,
		members, nullableRating(reg), reg.FeedbackComment, toMillis(reg.CreatedAt), toMillis(reg.UpdatedAt)); err != nil {
		if isUniqueViolation(err) {
			return reg, database.ErrRegistrationExists
		}
		if isForeignKeyViolation(err) {
			// SQLite does not name the failed key.
			if !rowExists(ctx, tx, `SELECT 1 FROM events WHERE id = ?`, reg.EventID.String()) {
				return reg, database.ErrEventNotFound
			}
			return reg, database.ErrUserNotFound
		}
		return reg, fmt.Errorf("sqlite: failed to insert registration (event_id=%s, user_id=%s): %w", reg.EventID, reg.UserID, err)
	}

	if err := tx.Commit(); err != nil {
		return reg, fmt.Errorf("sqlite: failed to commit registration: %w", err)
	}
	return reg, nil
}

func (s *Store) GetRegistrationByID(ctx context.Context, id uuid.UUID) (model.Registration, error) {
	reg, err := scanRegistration(s.sqlDB.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return reg, database.ErrRegistrationNotFound
		}
		return reg, fmt.Errorf("sqlite: failed to scan registration (id=%s): %w", id, err)
	}
	return reg, nil
}

func (s *Store) GetRegistrationByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (model.Registration, error) {
	reg, err := scanRegistration(s.sqlDB.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE event_id = ? AND user_id = ?`,
		eventID.String(), userID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return reg, database.ErrRegistrationNotFound
		}
		return reg, fmt.Errorf("sqlite: failed to scan registration (event_id=%s, user_id=%s): %w", eventID, userID, err)
	}
	return reg, nil
}

func countRegistrations(ctx context.Context, q queryer, params database.CountRegistrationsParams) (int, error) {
	var query strings.Builder
	query.WriteString(`SELECT COUNT(*) FROM registrations WHERE 1=1`)
	var args []any

	if params.EventID.IsSet {
		query.WriteString(" AND event_id = ?")
		args = append(args, params.EventID.Val.String())
	}
	if params.Status.IsSet {
		query.WriteString(" AND status = ?")
		args = append(args, string(params.Status.Val))
	}

	var count int
	if err := q.QueryRowContext(ctx, query.String(), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: failed to count registrations: %w", err)
	}
	return count, nil
}

func (s *Store) CountRegistrations(ctx context.Context, params database.CountRegistrationsParams) (int, error) {
	return countRegistrations(ctx, s.sqlDB, params)
}

func (s *Store) ListRegistrationsWithEvent(ctx context.Context, params database.ListRegistrationsParams) ([]model.RegistrationWithEvent, error) {
	var query strings.Builder
	query.WriteString(`SELECT r.id, r.event_id, r.user_id, r.status, r.attended_at, r.team_name, r.team_members, r.feedback_rating, r.feedback_comment, r.created_at, r.updated_at,
		e.id, e.title, e.description, e.category, e.date, e.venue, e.organizer_id, e.capacity, e.allowed_courses, e.allowed_departments, e.allowed_years, e.status, e.modules, e.details, e.tags, e.poster_url, e.created_at, e.updated_at
		FROM registrations r JOIN events e ON e.id = r.event_id WHERE 1=1`)
	var args []any

	if params.UserID.IsSet {
		query.WriteString(" AND r.user_id = ?")
		args = append(args, params.UserID.Val.String())
	}
	if params.EventID.IsSet {
		query.WriteString(" AND r.event_id = ?")
		args = append(args, params.EventID.Val.String())
	}
	query.WriteString(" ORDER BY r.created_at DESC, r.rowid DESC")

	rows, err := s.sqlDB.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query registrations: %w", err)
	}
	defer rows.Close()

	result := []model.RegistrationWithEvent{}
	for rows.Next() {
		var item model.RegistrationWithEvent
		reg := &item.Registration
		event := &item.Event

		var attendedAt, rating sql.NullInt64
		var members string
		var regCreated, regUpdated int64
		var date, eventCreated, eventUpdated int64
		var courses, departments, years, modules, tags string
		var details sql.NullString

		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &attendedAt, &reg.TeamName, &members,
			&rating, &reg.FeedbackComment, &regCreated, &regUpdated,
			&event.ID, &event.Title, &event.Description, &event.Category, &date, &event.Venue, &event.OrganizerID,
			&event.Capacity, &courses, &departments, &years, &event.Status, &modules, &details, &tags,
			&event.PosterURL, &eventCreated, &eventUpdated); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan registration: %w", err)
		}

		fillRegistration(reg, attendedAt, rating, regCreated, regUpdated)
		if err := decodeList(members, &reg.TeamMembers); err != nil {
			return nil, err
		}
		if len(reg.TeamMembers) == 0 {
			reg.TeamMembers = nil
		}
		if err := decodeEvent(event, courses, departments, years, modules, details, tags); err != nil {
			return nil, err
		}
		event.Date = fromMillis(date)
		event.CreatedAt = fromMillis(eventCreated)
		event.UpdatedAt = fromMillis(eventUpdated)

		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate registrations: %w", err)
	}
	return result, nil
}

func (s *Store) MarkRegistrationAttended(ctx context.Context, id uuid.UUID, at time.Time) (model.Registration, bool, error) {
	result, err := s.sqlDB.ExecContext(ctx, `UPDATE registrations SET status = ?, attended_at = ?, updated_at = ? WHERE id = ? AND status <> ?`,
		string(model.RegistrationStatusAttended), toMillis(at), toMillis(at), id.String(), string(model.RegistrationStatusAttended))
	if err != nil {
		return model.Registration{}, false, fmt.Errorf("sqlite: failed to mark registration attended (id=%s): %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return model.Registration{}, false, fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	}

	reg, err := s.GetRegistrationByID(ctx, id)
	if err != nil {
		return reg, false, err
	}
	return reg, affected > 0, nil
}

const notificationColumns = `id, user_id, title, message, type, related_link, is_read, created_at`

func (s *Store) CreateNotification(ctx context.Context, params database.CreateNotificationParams) (model.Notification, error) {
	notification := model.Notification{
		ID:          uuid.New(),
		UserID:      params.UserID,
		Title:       params.Title,
		Message:     params.Message,
		Type:        params.Type,
		RelatedLink: params.RelatedLink,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}

	if _, err := s.sqlDB.ExecContext(ctx, `INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		notification.ID.String(), notification.UserID.String(), notification.Title, notification.Message,
		string(notification.Type), notification.RelatedLink, notification.IsRead, toMillis(notification.CreatedAt)); err != nil {
		return notification, fmt.Errorf("sqlite: failed to insert notification (user_id=%s): %w", notification.UserID, err)
	}
	return notification, nil
}

func (s *Store) ListNotifications(ctx context.Context, params database.ListNotificationsParams) ([]model.Notification, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`)
	args := []any{params.UserID.String()}

	if params.UnreadOnly {
		query.WriteString(" AND is_read = 0")
	}
	query.WriteString(" ORDER BY is_read ASC, created_at DESC, rowid DESC")
	if params.Limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, params.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		var createdAt int64
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.RelatedLink, &n.IsRead, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan notification: %w", err)
		}
		n.CreatedAt = fromMillis(createdAt)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate notifications: %w", err)
	}
	return notifications, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	result, err := s.sqlDB.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("sqlite: failed to mark notification read (id=%s): %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return database.ErrNotificationNotFound
	}
	return nil
}

func (s *Store) CreateAuditLogEvent(ctx context.Context, params database.CreateAuditLogEventParams) (model.AuditLogEvent, error) {
	event := model.AuditLogEvent{
		ID:        uuid.New(),
		ActorID:   params.ActorID,
		Type:      params.EventType,
		Data:      params.EventData,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	data := string(event.Data)
	if data == "" {
		data = "{}"
	}

	if _, err := s.sqlDB.ExecContext(ctx, `INSERT INTO audit_log_events (id, actor_id, type, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		event.ID.String(), event.ActorID.String(), event.Type, data, toMillis(event.CreatedAt)); err != nil {
		return event, fmt.Errorf("sqlite: failed to insert audit log event (actor_id=%s): %w", event.ActorID, err)
	}
	return event, nil
}

// ListAuditLogEvents returns the audit trail of one actor, newest first.
func (s *Store) ListAuditLogEvents(ctx context.Context, actorID uuid.UUID) ([]model.AuditLogEvent, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, actor_id, type, data, created_at FROM audit_log_events WHERE actor_id = ? ORDER BY created_at DESC, rowid DESC`, actorID.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query audit log events: %w", err)
	}
	defer rows.Close()

	events := []model.AuditLogEvent{}
	for rows.Next() {
		var e model.AuditLogEvent
		var data string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Type, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan audit log event: %w", err)
		}
		e.Data = []byte(data)
		e.CreatedAt = fromMillis(createdAt)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate audit log events: %w", err)
	}
	return events, nil
}
