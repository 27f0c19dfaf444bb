package event

import "time"

// CreateEventRequest represents the request to create a new event.
// Participants are given as usernames and resolved before anything persists.
type CreateEventRequest struct {
	Title         string          `json:"title" validate:"required,min=1,max=200"`
	Description   string          `json:"description"`
	Type          EventType       `json:"type" validate:"required,oneof=public private"`
	StartDateTime time.Time       `json:"start_date_time" validate:"required"`
	EndDateTime   time.Time       `json:"end_date_time" validate:"required"`
	Location      *Location       `json:"location,omitempty"`
	Participants  []string        `json:"participants,omitempty"`
	IsRecurring   bool            `json:"is_recurring"`
	Recurrence    *RecurrenceRule `json:"recurrence_rule,omitempty"`
}

// UpdateEventRequest is the allow-listed patch for an event. Only the fields
// named here can change; arbitrary request bodies are never merged onto the
// stored document.
type UpdateEventRequest struct {
	Title         *string         `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description   *string         `json:"description,omitempty"`
	Type          *EventType      `json:"type,omitempty" validate:"omitempty,oneof=public private"`
	StartDateTime *time.Time      `json:"start_date_time,omitempty"`
	EndDateTime   *time.Time      `json:"end_date_time,omitempty"`
	Location      *Location       `json:"location,omitempty"`
	IsRecurring   *bool           `json:"is_recurring,omitempty"`
	Recurrence    *RecurrenceRule `json:"recurrence_rule,omitempty"`
}

// InviteRequest represents the request to invite a user by username
type InviteRequest struct {
	Username string `json:"username" validate:"required"`
}

// EventResponse represents the response for a single event
type EventResponse struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Type          EventType       `json:"type"`
	StartDateTime string          `json:"start_date_time"`
	EndDateTime   string          `json:"end_date_time"`
	OwnerID       int64           `json:"owner_id"`
	Location      *Location       `json:"location,omitempty"`
	Participants  []Member        `json:"participants"`
	Invitations   []Member        `json:"invitations,omitempty"`
	IsRecurring   bool            `json:"is_recurring"`
	Recurrence    *RecurrenceRule `json:"recurrence_rule,omitempty"`
	SeriesID      *int64          `json:"series_id,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

// ToResponse converts an Event model to an EventResponse DTO
func (e *Event) ToResponse() *EventResponse {
	return &EventResponse{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		Type:          e.Type,
		StartDateTime: e.StartDateTime.Format(time.RFC3339),
		EndDateTime:   e.EndDateTime.Format(time.RFC3339),
		OwnerID:       e.OwnerID,
		Location:      e.Location,
		Participants:  e.Participants,
		Invitations:   e.Invitations,
		IsRecurring:   e.IsRecurring,
		Recurrence:    e.Recurrence,
		SeriesID:      e.SeriesID,
		CreatedAt:     e.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
