package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"campusflow/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type Database struct {
	Pool *pgxpool.Pool
}

var _ Store = (*Database)(nil)

func NewDatabase() Database {
	return Database{
		Pool: nil,
	}
}

func (db *Database) Connect(ctx context.Context, connString string, maxConns int32) error {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("unable to parse database configuration: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}

	db.Pool, err = pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("unable to create database pool: %w", err)
	}

	return nil
}

func (db *Database) Close() error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	return nil
}

func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// missingReference maps a foreign key violation on a registration insert to
// the sentinel of the row that does not exist.
// It returns nil for any other error.
func missingReference(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgForeignKeyViolation {
		return nil
	}
	if strings.Contains(pgErr.ConstraintName, "event_id") {
		return ErrEventNotFound
	}
	return ErrUserNotFound
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

const userColumns = `id, name, email, password_hash, role, profile_complete, course, department, year, interests, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.ProfileComplete,
		&user.Course, &user.Department, &user.Year, &user.Interests, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func (db *Database) CreateUser(ctx context.Context, params CreateUserParams) (model.User, error) {
	now := time.Now().UTC()
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
		Interests:       nonNil(params.Interests),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_user (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.ProfileComplete,
		user.Course, user.Department, user.Year, user.Interests, user.CreatedAt, user.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return user, ErrUserExists
		}
		return user, fmt.Errorf("database: failed to insert user (email=%s): %w", user.Email, err)
	}
	return user, nil
}

func (db *Database) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM tbl_user WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrUserNotFound
		}
		return user, fmt.Errorf("database: failed to scan user (id=%s): %w", id, err)
	}
	return user, nil
}

func (db *Database) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM tbl_user WHERE email = $1`, strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrUserNotFound
		}
		return user, fmt.Errorf("database: failed to scan user: %w", err)
	}
	return user, nil
}

// ListUsers lists users newest first.
func (db *Database) ListUsers(ctx context.Context, params ListUsersParams) ([]model.User, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + userColumns + ` FROM tbl_user WHERE 1=1`)
	var args []any
	argNum := 1

	if params.Role.IsSet {
		query.WriteString(fmt.Sprintf(" AND role = $%d", argNum))
		args = append(args, params.Role.Val)
		argNum++
	}
	query.WriteString(" ORDER BY created_at DESC")
	if params.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1))
		args = append(args, params.Limit, params.Offset)
	}

	rows, err := db.Pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate users: %w", err)
	}

	return users, nil
}

func (db *Database) CountUsers(ctx context.Context, params CountUsersParams) (int, error) {
	var query strings.Builder
	query.WriteString(`SELECT COUNT(*) FROM tbl_user WHERE 1=1`)
	var args []any

	if params.Role.IsSet {
		query.WriteString(" AND role = $1")
		args = append(args, params.Role.Val)
	}

	var count int
	if err := db.Pool.QueryRow(ctx, query.String(), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("database: failed to count users: %w", err)
	}
	return count, nil
}

const eventColumns = `id, title, description, category, date, venue, organizer_id, capacity, allowed_courses, allowed_departments, allowed_years, status, modules, details, tags, poster_url, created_at, updated_at`

func scanEvent(row pgx.Row) (model.Event, error) {
	var event model.Event
	var modules, details []byte
	if err := row.Scan(&event.ID, &event.Title, &event.Description, &event.Category, &event.Date, &event.Venue,
		&event.OrganizerID, &event.Capacity, &event.AllowedCourses, &event.AllowedDepartments, &event.AllowedYears,
		&event.Status, &modules, &details, &event.Tags, &event.PosterURL, &event.CreatedAt, &event.UpdatedAt); err != nil {
		return event, err
	}
	if err := decodeEventDocuments(&event, modules, details); err != nil {
		return event, err
	}
	return event, nil
}

func decodeEventDocuments(event *model.Event, modules, details []byte) error {
	if err := json.Unmarshal(modules, &event.Modules); err != nil {
		return fmt.Errorf("database: failed to decode event modules (id=%s): %w", event.ID, err)
	}
	d, err := model.DecodeDetails(event.Category, details)
	if err != nil {
		return fmt.Errorf("database: failed to decode event details (id=%s): %w", event.ID, err)
	}
	event.Details = d
	return nil
}

func (db *Database) CreateEvent(ctx context.Context, params CreateEventParams) (model.Event, error) {
	now := time.Now().UTC()
	event := model.Event{
		ID:                 uuid.New(),
		Title:              params.Title,
		Description:        params.Description,
		Category:           params.Category,
		Date:               params.Date.UTC(),
		Venue:              params.Venue,
		OrganizerID:        params.OrganizerID,
		Capacity:           params.Capacity,
		AllowedCourses:     nonNil(params.AllowedCourses),
		AllowedDepartments: nonNil(params.AllowedDepartments),
		AllowedYears:       nonNil(params.AllowedYears),
		Status:             params.Status,
		Modules:            params.Modules,
		Details:            params.Details,
		Tags:               nonNil(params.Tags),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	modules, err := json.Marshal(event.Modules)
	if err != nil {
		return event, fmt.Errorf("database: failed to encode event modules: %w", err)
	}
	details, err := event.EncodeDetails()
	if err != nil {
		return event, err
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_event (`+eventColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		event.ID, event.Title, event.Description, event.Category, event.Date, event.Venue, event.OrganizerID, event.Capacity,
		event.AllowedCourses, event.AllowedDepartments, event.AllowedYears, event.Status, modules, details, event.Tags,
		event.PosterURL, event.CreatedAt, event.UpdatedAt); err != nil {
		return event, fmt.Errorf("database: failed to insert event (title=%s): %w", event.Title, err)
	}
	return event, nil
}

func (db *Database) GetEventByID(ctx context.Context, id uuid.UUID) (model.Event, error) {
	event, err := scanEvent(db.Pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM tbl_event WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event, ErrEventNotFound
		}
		return event, fmt.Errorf("database: failed to scan event (id=%s): %w", id, err)
	}
	return event, nil
}

func (db *Database) ListEvents(ctx context.Context, params ListEventsParams) ([]model.Event, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + eventColumns + ` FROM tbl_event WHERE 1=1`)
	var args []any
	argNum := 1

	if params.Status.IsSet {
		query.WriteString(fmt.Sprintf(" AND status = $%d", argNum))
		args = append(args, params.Status.Val)
		argNum++
	}
	if params.ExcludeArchived {
		query.WriteString(fmt.Sprintf(" AND status <> $%d", argNum))
		args = append(args, model.EventStatusArchived)
		argNum++
	}
	if params.DateFrom.IsSet {
		query.WriteString(fmt.Sprintf(" AND date >= $%d", argNum))
		args = append(args, params.DateFrom.Val.UTC())
		argNum++
	}
	if params.OrganizerID.IsSet {
		query.WriteString(fmt.Sprintf(" AND organizer_id = $%d", argNum))
		args = append(args, params.OrganizerID.Val)
	}
	query.WriteString(" ORDER BY date ASC, created_at ASC")

	rows, err := db.Pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to query events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate over events: %w", err)
	}

	return events, nil
}

func (db *Database) UpdateEventByID(ctx context.Context, id uuid.UUID, params UpdateEventParams) (model.Event, error) {
	var query strings.Builder
	query.WriteString(`UPDATE tbl_event SET `)
	args := []any{}
	argNum := 1

	if params.Status.IsSet {
		query.WriteString(fmt.Sprintf("status = $%d, ", argNum))
		args = append(args, params.Status.Val)
		argNum++
	}
	if params.PosterURL.IsSet {
		query.WriteString(fmt.Sprintf("poster_url = $%d, ", argNum))
		args = append(args, params.PosterURL.Val)
		argNum++
	}

	query.WriteString(fmt.Sprintf("updated_at = $%d WHERE id = $%d RETURNING %s", argNum, argNum+1, eventColumns))
	args = append(args, time.Now().UTC(), id)

	event, err := scanEvent(db.Pool.QueryRow(ctx, query.String(), args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event, ErrEventNotFound
		}
		return event, fmt.Errorf("database: failed to update event (id=%s): %w", id, err)
	}
	return event, nil
}

// DeleteEventByID removes the event; registrations cascade.
func (db *Database) DeleteEventByID(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_event WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database: failed to delete event (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (db *Database) CountEvents(ctx context.Context, params CountEventsParams) (int, error) {
	query := `SELECT COUNT(*) FROM tbl_event`
	var args []any
	if params.ExcludeArchived {
		query += ` WHERE status <> $1`
		args = append(args, model.EventStatusArchived)
	}

	var count int
	if err := db.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("database: failed to count events: %w", err)
	}
	return count, nil
}

func (db *Database) TopEventsByRegistrations(ctx context.Context, params TopEventsParams) ([]model.EventCount, error) {
	rows, err := db.Pool.Query(ctx, `SELECT e.id, e.title, COUNT(r.id) AS total
		FROM tbl_registration r
		JOIN tbl_event e ON e.id = r.event_id
		WHERE r.status = $1
		GROUP BY e.id, e.title
		ORDER BY total DESC, e.title ASC
		LIMIT $2`, params.Status, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("database: failed to aggregate registrations: %w", err)
	}
	defer rows.Close()

	counts := []model.EventCount{}
	for rows.Next() {
		var c model.EventCount
		if err := rows.Scan(&c.EventID, &c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("database: failed to scan event count: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate event counts: %w", err)
	}
	return counts, nil
}

const registrationColumns = `id, event_id, user_id, status, attended_at, team_name, team_members, feedback_rating, feedback_comment, created_at, updated_at`

func scanRegistration(row pgx.Row) (model.Registration, error) {
	var reg model.Registration
	var members []string
	if err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.AttendedAt, &reg.TeamName, &members,
		&reg.FeedbackRating, &reg.FeedbackComment, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		return reg, err
	}
	ids, err := parseUUIDs(members)
	if err != nil {
		return reg, err
	}
	reg.TeamMembers = ids
	return reg, nil
}

func parseUUIDs(values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("database: invalid team member id %q: %w", v, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func formatUUIDs(ids []uuid.UUID) []string {
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, id.String())
	}
	return values
}

// CreateRegistration inserts a registration. A duplicate (event, user) pair
// yields ErrRegistrationExists; with a capacity limit the event row is locked
// and ErrCapacityReached is returned once the limit is met.
func (db *Database) CreateRegistration(ctx context.Context, params CreateRegistrationParams) (model.Registration, error) {
	now := time.Now().UTC()
	reg := model.Registration{
		ID:        uuid.New(),
		EventID:   params.EventID,
		UserID:    params.UserID,
		Status:    params.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return reg, fmt.Errorf("database: failed to begin registration transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if params.CapacityLimit > 0 {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM tbl_event WHERE id = $1 FOR UPDATE`, params.EventID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return reg, ErrEventNotFound
			}
			return reg, fmt.Errorf("database: failed to lock event (id=%s): %w", params.EventID, err)
		}

		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM tbl_registration WHERE event_id = $1 AND status = $2`,
			params.EventID, model.RegistrationStatusRegistered).Scan(&count); err != nil {
			return reg, fmt.Errorf("database: failed to count registrations (event_id=%s): %w", params.EventID, err)
		}
		if count >= params.CapacityLimit {
			return reg, ErrCapacityReached
		}
	}

	if _, err := tx.Exec(ctx, `INSERT INTO tbl_registration (`+registrationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		reg.ID, reg.EventID, reg.UserID, reg.Status, reg.AttendedAt, reg.TeamName, formatUUIDs(reg.TeamMembers),
		reg.FeedbackRating, reg.FeedbackComment, reg.CreatedAt, reg.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return reg, ErrRegistrationExists
		}
		if missing := missingReference(err); missing != nil {
			return reg, missing
		}
		return reg, fmt.Errorf("database: failed to insert registration (event_id=%s, user_id=%s): %w", reg.EventID, reg.UserID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return reg, ErrRegistrationExists
		}
		return reg, fmt.Errorf("database: failed to commit registration: %w", err)
	}
	return reg, nil
}

func (db *Database) GetRegistrationByID(ctx context.Context, id uuid.UUID) (model.Registration, error) {
	reg, err := scanRegistration(db.Pool.QueryRow(ctx, `SELECT `+registrationColumns+` FROM tbl_registration WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return reg, ErrRegistrationNotFound
		}
		return reg, fmt.Errorf("database: failed to scan registration (id=%s): %w", id, err)
	}
	return reg, nil
}

func (db *Database) GetRegistrationByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (model.Registration, error) {
	reg, err := scanRegistration(db.Pool.QueryRow(ctx, `SELECT `+registrationColumns+` FROM tbl_registration WHERE event_id = $1 AND user_id = $2`, eventID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return reg, ErrRegistrationNotFound
		}
		return reg, fmt.Errorf("database: failed to scan registration (event_id=%s, user_id=%s): %w", eventID, userID, err)
	}
	return reg, nil
}

func (db *Database) CountRegistrations(ctx context.Context, params CountRegistrationsParams) (int, error) {
	var query strings.Builder
	query.WriteString(`SELECT COUNT(*) FROM tbl_registration WHERE 1=1`)
	var args []any
	argNum := 1

	if params.EventID.IsSet {
		query.WriteString(fmt.Sprintf(" AND event_id = $%d", argNum))
		args = append(args, params.EventID.Val)
		argNum++
	}
	if params.Status.IsSet {
		query.WriteString(fmt.Sprintf(" AND status = $%d", argNum))
		args = append(args, params.Status.Val)
	}

	var count int
	if err := db.Pool.QueryRow(ctx, query.String(), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("database: failed to count registrations: %w", err)
	}
	return count, nil
}

func (db *Database) ListRegistrationsWithEvent(ctx context.Context, params ListRegistrationsParams) ([]model.RegistrationWithEvent, error) {
	var query strings.Builder
	query.WriteString(`SELECT r.id, r.event_id, r.user_id, r.status, r.attended_at, r.team_name, r.team_members, r.feedback_rating, r.feedback_comment, r.created_at, r.updated_at,
		e.id, e.title, e.description, e.category, e.date, e.venue, e.organizer_id, e.capacity, e.allowed_courses, e.allowed_departments, e.allowed_years, e.status, e.modules, e.details, e.tags, e.poster_url, e.created_at, e.updated_at
		FROM tbl_registration r JOIN tbl_event e ON e.id = r.event_id WHERE 1=1`)
	var args []any
	argNum := 1

	if params.UserID.IsSet {
		query.WriteString(fmt.Sprintf(" AND r.user_id = $%d", argNum))
		args = append(args, params.UserID.Val)
		argNum++
	}
	if params.EventID.IsSet {
		query.WriteString(fmt.Sprintf(" AND r.event_id = $%d", argNum))
		args = append(args, params.EventID.Val)
	}
	query.WriteString(" ORDER BY r.created_at DESC")

	rows, err := db.Pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to query registrations: %w", err)
	}
	defer rows.Close()

	result := []model.RegistrationWithEvent{}
	for rows.Next() {
		var item model.RegistrationWithEvent
		var members []string
		var modules, details []byte
		reg := &item.Registration
		event := &item.Event
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.AttendedAt, &reg.TeamName, &members,
			&reg.FeedbackRating, &reg.FeedbackComment, &reg.CreatedAt, &reg.UpdatedAt,
			&event.ID, &event.Title, &event.Description, &event.Category, &event.Date, &event.Venue, &event.OrganizerID,
			&event.Capacity, &event.AllowedCourses, &event.AllowedDepartments, &event.AllowedYears, &event.Status,
			&modules, &details, &event.Tags, &event.PosterURL, &event.CreatedAt, &event.UpdatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan registration: %w", err)
		}
		if reg.TeamMembers, err = parseUUIDs(members); err != nil {
			return nil, err
		}
		if err := decodeEventDocuments(event, modules, details); err != nil {
			return nil, err
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate registrations: %w", err)
	}
	return result, nil
}

// MarkRegistrationAttended moves a registration to attended unless it already
// is. The boolean reports whether this call performed the transition.
func (db *Database) MarkRegistrationAttended(ctx context.Context, id uuid.UUID, at time.Time) (model.Registration, bool, error) {
	at = at.UTC()
	reg, err := scanRegistration(db.Pool.QueryRow(ctx, `UPDATE tbl_registration SET status = $2, attended_at = $3, updated_at = $3
		WHERE id = $1 AND status <> $2 RETURNING `+registrationColumns, id, model.RegistrationStatusAttended, at))
	if err == nil {
		return reg, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return reg, false, fmt.Errorf("database: failed to mark registration attended (id=%s): %w", id, err)
	}

	reg, err = db.GetRegistrationByID(ctx, id)
	if err != nil {
		return reg, false, err
	}
	return reg, false, nil
}

const notificationColumns = `id, user_id, title, message, type, related_link, is_read, created_at`

func (db *Database) CreateNotification(ctx context.Context, params CreateNotificationParams) (model.Notification, error) {
	notification := model.Notification{
		ID:          uuid.New(),
		UserID:      params.UserID,
		Title:       params.Title,
		Message:     params.Message,
		Type:        params.Type,
		RelatedLink: params.RelatedLink,
		IsRead:      false,
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_notification (`+notificationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		notification.ID, notification.UserID, notification.Title, notification.Message, notification.Type,
		notification.RelatedLink, notification.IsRead, notification.CreatedAt); err != nil {
		return notification, fmt.Errorf("database: failed to insert notification (user_id=%s): %w", notification.UserID, err)
	}
	return notification, nil
}

// ListNotifications returns unread notifications first, newest first.
func (db *Database) ListNotifications(ctx context.Context, params ListNotificationsParams) ([]model.Notification, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + notificationColumns + ` FROM tbl_notification WHERE user_id = $1`)
	args := []any{params.UserID}

	if params.UnreadOnly {
		query.WriteString(" AND is_read = FALSE")
	}
	query.WriteString(" ORDER BY is_read ASC, created_at DESC")
	if params.Limit > 0 {
		query.WriteString(" LIMIT $2")
		args = append(args, params.Limit)
	}

	rows, err := db.Pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.RelatedLink, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate notifications: %w", err)
	}
	return notifications, nil
}

func (db *Database) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE tbl_notification SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("database: failed to mark notification read (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (db *Database) CreateAuditLogEvent(ctx context.Context, params CreateAuditLogEventParams) (model.AuditLogEvent, error) {
	event := model.AuditLogEvent{
		ID:        uuid.New(),
		ActorID:   params.ActorID,
		Type:      params.EventType,
		Data:      params.EventData,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_audit_log_event (id, actor_id, type, data, created_at) VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.ActorID, event.Type, event.Data, event.CreatedAt); err != nil {
		return event, fmt.Errorf("database: failed to insert audit log event (actor_id=%s): %w", event.ActorID, err)
	}
	return event, nil
}
