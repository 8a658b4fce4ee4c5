package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeInfo        NotificationType = "info"
	NotificationTypeSuccess     NotificationType = "success"
	NotificationTypeWarning     NotificationType = "warning"
	NotificationTypeError       NotificationType = "error"
	NotificationTypeEventUpdate NotificationType = "event_update"
)

type Notification struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"userId"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Type        NotificationType `json:"type"`
	RelatedLink string           `json:"relatedLink,omitempty"`
	IsRead      bool             `json:"isRead"`
	CreatedAt   time.Time        `json:"createdAt"`
}

type AuditLogEvent struct {
	ID        uuid.UUID `json:"id"`
	ActorID   uuid.UUID `json:"actorId"`
	Type      string    `json:"type"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
}
