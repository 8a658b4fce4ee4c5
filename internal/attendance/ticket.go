package attendance

import (
	"encoding/json"
	"strings"

	"campusflow/internal/apperr"
	"campusflow/internal/model"

	"github.com/google/uuid"
)

// Payload is a scanned ticket as the scanner hands it over. Fields stay raw
// strings so that a missing or malformed id is reported as bad input rather
// than failing at decode time.
type Payload struct {
	RegistrationID string `json:"registrationId"`
	EventID        string `json:"eventId"`
	UserID         string `json:"userId"`
}

// Ticket is the identity triple carried by a registration's QR code. It
// encodes to the same JSON as Payload.
type Ticket struct {
	RegistrationID uuid.UUID `json:"registrationId"`
	EventID        uuid.UUID `json:"eventId"`
	UserID         uuid.UUID `json:"userId"`
}

func TicketFor(reg model.Registration) Ticket {
	return Ticket{RegistrationID: reg.ID, EventID: reg.EventID, UserID: reg.UserID}
}

// Encode renders the string embedded in the QR code.
func (t Ticket) Encode() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseTicket decodes the raw text of a scanned QR code.
func ParseTicket(raw string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &p); err != nil {
		return Payload{}, apperr.BadInput("ticket is not valid JSON")
	}
	return p, nil
}

// Validate checks that every identity field is present and well formed.
func (p Payload) Validate() (Ticket, error) {
	var t Ticket
	fields := []struct {
		name  string
		value string
		dst   *uuid.UUID
	}{
		{"registrationId", p.RegistrationID, &t.RegistrationID},
		{"eventId", p.EventID, &t.EventID},
		{"userId", p.UserID, &t.UserID},
	}

	for _, f := range fields {
		value := strings.TrimSpace(f.value)
		if value == "" {
			return Ticket{}, apperr.BadInput("invalid QR code data: missing " + f.name)
		}
		id, err := uuid.Parse(value)
		if err != nil || id == uuid.Nil {
			return Ticket{}, apperr.BadInput("invalid QR code data: malformed " + f.name)
		}
		*f.dst = id
	}
	return t, nil
}
