package event

import (
	"time"

	"github.com/khaledm/eventide/internal/event/recur"
)

// EventType controls event visibility
type EventType string

const (
	TypePublic  EventType = "public"
	TypePrivate EventType = "private"
)

// Location is an optional venue for an event
type Location struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// RecurrenceRule describes how an event repeats. Interval is the total
// number of occurrences including the original; EndDate, when present, is
// carried through to calendar export as the repeat bound.
type RecurrenceRule struct {
	Frequency recur.Frequency `json:"frequency"`
	Interval  int             `json:"interval"`
	EndDate   *time.Time      `json:"end_date,omitempty"`
}

// Member is a user reference populated with its display name
type Member struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Event represents a single calendar occurrence with ownership, participants
// and optional recurrence metadata
type Event struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Type          EventType       `json:"type"`
	StartDateTime time.Time       `json:"start_date_time"`
	EndDateTime   time.Time       `json:"end_date_time"`
	OwnerID       int64           `json:"owner_id"`
	Location      *Location       `json:"location,omitempty"`
	Participants  []Member        `json:"participants"`
	Invitations   []Member        `json:"invitations"`
	IsRecurring   bool            `json:"is_recurring"`
	Recurrence    *RecurrenceRule `json:"recurrence_rule,omitempty"`
	SeriesID      *int64          `json:"series_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// HasParticipant reports whether the given user id is in the participant set
func (e *Event) HasParticipant(userID int64) bool {
	for _, m := range e.Participants {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// HasInvitation reports whether the given user id has a pending invitation
func (e *Event) HasInvitation(userID int64) bool {
	for _, m := range e.Invitations {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// VisibleTo reports whether the actor may see this event. Private events are
// visible to the owner and participants only; callers translate a negative
// into NotFound so existence is not leaked.
func (e *Event) VisibleTo(userID int64) bool {
	if e.Type == TypePublic {
		return true
	}
	return e.OwnerID == userID || e.HasParticipant(userID)
}
