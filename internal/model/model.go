package model

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// DefaultColor is applied to events created without a color.
const DefaultColor = "#4CAF50"

// Event is a single time-blocked booking in one room.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        Date   `json:"date"`
	StartTime   string `json:"startTime,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
	RoomID      int    `json:"roomId"`
}

// MarshalJSON adds the id again as "_id", which browser clients written
// against the Mongo document shape read.
func (e Event) MarshalJSON() ([]byte, error) {
	type event Event
	return json.Marshal(struct {
		event
		LegacyID string `json:"_id,omitempty"`
	}{event(e), e.ID})
}

// EventInput carries the caller-supplied fields of a save. A nil field
// was not supplied: creation applies defaults, updates leave the stored
// value untouched.
type EventInput struct {
	Title       *string `json:"title,omitempty"`
	Date        *Date   `json:"date,omitempty"`
	StartTime   *string `json:"startTime,omitempty"`
	EndTime     *string `json:"endTime,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	RoomID      *int    `json:"roomId,omitempty"`
}

// InputFromEvent returns an input that sets every field of ev.
func InputFromEvent(ev Event) EventInput {
	return EventInput{
		Title:       Ptr(ev.Title),
		Date:        Ptr(ev.Date),
		StartTime:   Ptr(ev.StartTime),
		EndTime:     Ptr(ev.EndTime),
		Description: Ptr(ev.Description),
		Color:       Ptr(ev.Color),
		RoomID:      Ptr(ev.RoomID),
	}
}

// Apply overwrites the fields of ev that are set in in.
func (in EventInput) Apply(ev Event) Event {
	if in.Title != nil {
		ev.Title = *in.Title
	}
	if in.Date != nil {
		ev.Date = *in.Date
	}
	if in.StartTime != nil {
		ev.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		ev.EndTime = *in.EndTime
	}
	if in.Description != nil {
		ev.Description = *in.Description
	}
	if in.Color != nil {
		ev.Color = *in.Color
	}
	if in.RoomID != nil {
		ev.RoomID = *in.RoomID
	}
	return ev
}

// IsEmpty reports whether no field is set.
func (in EventInput) IsEmpty() bool {
	return in == EventInput{}
}

// Validate checks the supplied fields. When creating, title, date and
// roomId are required.
func (in EventInput) Validate(creating bool) error {
	if creating {
		switch {
		case in.Title == nil:
			return Invalid("title", "is required")
		case in.Date == nil:
			return Invalid("date", "is required")
		case in.RoomID == nil:
			return Invalid("roomId", "is required")
		}
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return Invalid("title", "must not be empty")
	}
	if in.Date != nil && in.Date.IsZero() {
		return Invalid("date", "must be a valid date")
	}
	if in.StartTime != nil && *in.StartTime != "" && !ValidClock(*in.StartTime) {
		return Invalid("startTime", "must be HH:MM")
	}
	if in.EndTime != nil && *in.EndTime != "" && !ValidClock(*in.EndTime) {
		return Invalid("endTime", "must be HH:MM")
	}
	if in.Color != nil && *in.Color != "" && !ValidColor(*in.Color) {
		return Invalid("color", "must be a hex color like #4CAF50")
	}
	return nil
}

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func ValidColor(s string) bool {
	return colorPattern.MatchString(s)
}

// ValidClock reports whether s is a 24-hour "HH:MM" time.
func ValidClock(s string) bool {
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(h) != 2 || len(m) != 2 {
		return false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return false
	}
	minute, err := strconv.Atoi(m)
	return err == nil && minute >= 0 && minute <= 59
}

// SaveKind tags a SaveRequest.
type SaveKind int

const (
	SaveCreate SaveKind = iota + 1
	SaveUpdate
)

func (k SaveKind) String() string {
	switch k {
	case SaveCreate:
		return "create"
	case SaveUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// SaveRequest is either Create(input) or Update(id, input). The caller
// decides which; nothing downstream infers it from the payload.
type SaveRequest struct {
	Kind  SaveKind
	ID    string
	Input EventInput
}

func CreateRequest(in EventInput) SaveRequest {
	return SaveRequest{Kind: SaveCreate, Input: in}
}

func UpdateRequest(id string, in EventInput) SaveRequest {
	return SaveRequest{Kind: SaveUpdate, ID: id, Input: in}
}

// Room is one of the fixed calendar partitions.
type Room struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// User is the stored record of someone who signed in with Google.
type User struct {
	ID             string `json:"id"`
	GoogleID       string `json:"googleId"`
	Email          string `json:"email"`
	DisplayName    string `json:"displayName"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// AuthResult is the body of a successful sign-in.
type AuthResult struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

func Ptr[T any](v T) *T {
	return &v
}
