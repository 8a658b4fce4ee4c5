package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"campusflow/internal/database"
	"campusflow/internal/model"

	"github.com/google/uuid"
)

type AuditLogEventType string

const (
	AuditLogEventTypeRegistrationCreate AuditLogEventType = "registration.create"
	AuditLogEventTypeAttendanceCheckIn  AuditLogEventType = "attendance.check_in"
	AuditLogEventTypeEventCreate        AuditLogEventType = "event.create"
	AuditLogEventTypeEventDelete        AuditLogEventType = "event.delete"
	AuditLogEventTypeEventStatusChange  AuditLogEventType = "event.status_change"
	AuditLogEventTypeEventPosterUpload  AuditLogEventType = "event.poster_upload"
)

type Store interface {
	CreateAuditLogEvent(ctx context.Context, params database.CreateAuditLogEventParams) (model.AuditLogEvent, error)
}

type Auditor struct {
	logger *slog.Logger
	db     Store
}

func NewAuditor(logger *slog.Logger, db Store) Auditor {
	return Auditor{logger: logger, db: db}
}

type LogEventParam struct {
	ActorID uuid.UUID
	Type    AuditLogEventType
	Data    map[string]any
}

func (a *Auditor) LogEvent(ctx context.Context, params LogEventParam) error {
	data, err := json.Marshal(params.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal audit log event data: %w", err)
	}

	if _, err = a.db.CreateAuditLogEvent(ctx, database.CreateAuditLogEventParams{
		ActorID:   params.ActorID,
		EventType: string(params.Type),
		EventData: data,
	}); err != nil {
		return fmt.Errorf("failed to create audit log event: %w", err)
	}
	return nil
}

// Record logs the event and only reports failures to the logger. The audit
// trail never fails the operation it describes.
func (a *Auditor) Record(ctx context.Context, params LogEventParam) {
	if err := a.LogEvent(ctx, params); err != nil {
		a.logger.ErrorContext(ctx, "audit: failed to record event", "type", params.Type, "error", err)
	}
}
