package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventDetails holds the category specific fields of an event. The concrete
// type always matches the event category; workshop and other events carry no
// details.
type EventDetails interface {
	Category() EventCategory
}

type TechnicalDetails struct {
	GuestSpeaker  string `json:"guestSpeaker,omitempty"`
	Prerequisites string `json:"prerequisites,omitempty"`
}

func (TechnicalDetails) Category() EventCategory { return EventCategoryTechnical }

type CulturalDetails struct {
	Performer string `json:"performer,omitempty"`
	Equipment string `json:"equipment,omitempty"`
}

func (CulturalDetails) Category() EventCategory { return EventCategoryCultural }

type SportsDetails struct {
	TeamSize          int  `json:"teamSize,omitempty"`
	EquipmentProvided bool `json:"equipmentProvided"`
}

func (SportsDetails) Category() EventCategory { return EventCategorySports }

type PlacementDetails struct {
	CompanyName string   `json:"companyName,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Eligibility string   `json:"eligibility,omitempty"`
}

func (PlacementDetails) Category() EventCategory { return EventCategoryPlacement }

// DecodeDetails parses raw JSON into the details variant of category.
func DecodeDetails(category EventCategory, raw []byte) (EventDetails, error) {
	raw = bytes.TrimSpace(raw)
	empty := len(raw) == 0 || bytes.Equal(raw, []byte("null"))

	var details EventDetails
	switch category {
	case EventCategoryTechnical:
		var d TechnicalDetails
		if !empty {
			if err := decodeStrict(raw, &d); err != nil {
				return nil, err
			}
		}
		details = d
	case EventCategoryCultural:
		var d CulturalDetails
		if !empty {
			if err := decodeStrict(raw, &d); err != nil {
				return nil, err
			}
		}
		details = d
	case EventCategorySports:
		var d SportsDetails
		if !empty {
			if err := decodeStrict(raw, &d); err != nil {
				return nil, err
			}
		}
		if d.TeamSize < 0 {
			return nil, fmt.Errorf("model: sports team size must not be negative")
		}
		details = d
	case EventCategoryPlacement:
		var d PlacementDetails
		if !empty {
			if err := decodeStrict(raw, &d); err != nil {
				return nil, err
			}
		}
		details = d
	case EventCategoryWorkshop, EventCategoryOther:
		if !empty && !bytes.Equal(raw, []byte("{}")) {
			return nil, fmt.Errorf("model: %s events do not take details", category)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("model: unknown event category %q", category)
	}
	return details, nil
}

func decodeStrict(raw []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("model: invalid event details: %w", err)
	}
	return nil
}

func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	aux := struct {
		*alias
		Details json.RawMessage `json:"details"`
	}{alias: (*alias)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	details, err := DecodeDetails(e.Category, aux.Details)
	if err != nil {
		return err
	}
	e.Details = details
	return nil
}
