package model

import (
	"time"

	"campusflow/internal/util"

	"github.com/google/uuid"
)

type RegistrationStatus string

const (
	RegistrationStatusRegistered RegistrationStatus = "registered"
	RegistrationStatusWaitlisted RegistrationStatus = "waitlisted"
	RegistrationStatusCancelled  RegistrationStatus = "cancelled"
	RegistrationStatusAttended   RegistrationStatus = "attended"
)

type Registration struct {
	ID              uuid.UUID                `json:"id"`
	EventID         uuid.UUID                `json:"eventId"`
	UserID          uuid.UUID                `json:"userId"`
	Status          RegistrationStatus       `json:"status"`
	AttendedAt      util.Optional[time.Time] `json:"attendedAt"`
	TeamName        string                   `json:"teamName,omitempty"`
	TeamMembers     []uuid.UUID              `json:"teamMembers,omitempty"`
	FeedbackRating  util.Optional[int]       `json:"feedbackRating"`
	FeedbackComment string                   `json:"feedbackComment,omitempty"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

func (r Registration) Attended() bool {
	return r.Status == RegistrationStatusAttended
}

// RegistrationWithEvent is a registration with its event resolved.
type RegistrationWithEvent struct {
	Registration
	Event Event `json:"event"`
}
