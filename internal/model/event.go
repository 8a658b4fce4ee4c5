package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

type EventCategory string

const (
	EventCategoryTechnical EventCategory = "technical"
	EventCategoryCultural  EventCategory = "cultural"
	EventCategorySports    EventCategory = "sports"
	EventCategoryPlacement EventCategory = "placement"
	EventCategoryWorkshop  EventCategory = "workshop"
	EventCategoryOther     EventCategory = "other"
)

var EventCategories = []EventCategory{
	EventCategoryTechnical,
	EventCategoryCultural,
	EventCategorySports,
	EventCategoryPlacement,
	EventCategoryWorkshop,
	EventCategoryOther,
}

func (c EventCategory) Valid() bool {
	return slices.Contains(EventCategories, c)
}

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusOngoing   EventStatus = "ongoing"
	EventStatusCompleted EventStatus = "completed"
	EventStatusArchived  EventStatus = "archived"
)

var EventStatuses = []EventStatus{
	EventStatusDraft,
	EventStatusPublished,
	EventStatusOngoing,
	EventStatusCompleted,
	EventStatusArchived,
}

func (s EventStatus) Valid() bool {
	return slices.Contains(EventStatuses, s)
}

// EventModules switches lifecycle features on or off per event.
type EventModules struct {
	Registration  bool `json:"registration"`
	Ticketing     bool `json:"ticketing"`
	TeamFormation bool `json:"teamFormation"`
	Attendance    bool `json:"attendance"`
	Feedback      bool `json:"feedback"`
}

func DefaultEventModules() EventModules {
	return EventModules{
		Registration: true,
		Attendance:   true,
	}
}

type Event struct {
	ID                 uuid.UUID     `json:"id"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	Category           EventCategory `json:"category"`
	Date               time.Time     `json:"date"`
	Venue              string        `json:"venue"`
	OrganizerID        uuid.UUID     `json:"organizerId"`
	Capacity           int           `json:"capacity"`
	AllowedCourses     []string      `json:"allowedCourses"`
	AllowedDepartments []string      `json:"allowedDepartments"`
	AllowedYears       []int         `json:"allowedYears"`
	Status             EventStatus   `json:"status"`
	Modules            EventModules  `json:"modules"`
	Details            EventDetails  `json:"details"`
	Tags               []string      `json:"tags"`
	PosterURL          string        `json:"posterUrl,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// Unlimited reports whether the event accepts any number of registrations.
func (e Event) Unlimited() bool {
	return e.Capacity <= 0
}

func (e Event) Archived() bool {
	return e.Status == EventStatusArchived
}

// EncodeDetails serialises the details for storage.
func (e Event) EncodeDetails() ([]byte, error) {
	if e.Details == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(e.Details)
	if err != nil {
		return nil, fmt.Errorf("model: failed to encode %s details: %w", e.Category, err)
	}
	return data, nil
}

// EventCount pairs an event with the number of active registrations.
type EventCount struct {
	EventID uuid.UUID `json:"eventId"`
	Name    string    `json:"name"`
	Count   int       `json:"count"`
}
