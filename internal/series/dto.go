package series

import "time"

// CreateSeriesRequest represents the request to create a series
type CreateSeriesRequest struct {
	Name          string          `json:"name" validate:"required,min=1,max=200"`
	SeriesType    SeriesType      `json:"series_type" validate:"required,oneof=recurring manual"`
	IsIndefinite  bool            `json:"is_indefinite"`
	StartingEvent Template        `json:"starting_event" validate:"required"`
	EndingEvent   *Template       `json:"ending_event,omitempty"`
	Recurrence    *RecurrenceRule `json:"recurrence_rule,omitempty"`
	EventIDs      []int64         `json:"event_ids,omitempty"`
}

// UpdateSeriesRequest is the allow-listed patch for a series. The raw-merge
// update of arbitrary bodies is deliberately not supported.
type UpdateSeriesRequest struct {
	Name          *string         `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	IsIndefinite  *bool           `json:"is_indefinite,omitempty"`
	StartingEvent *Template       `json:"starting_event,omitempty"`
	EndingEvent   *Template       `json:"ending_event,omitempty"`
	Recurrence    *RecurrenceRule `json:"recurrence_rule,omitempty"`
	EventIDs      []int64         `json:"event_ids,omitempty"`
}

// SeriesResponse represents the response for a single series
type SeriesResponse struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	CreatorID     int64           `json:"creator_id"`
	SeriesType    SeriesType      `json:"series_type"`
	IsIndefinite  bool            `json:"is_indefinite"`
	StartingEvent Template        `json:"starting_event"`
	EndingEvent   *Template       `json:"ending_event,omitempty"`
	Recurrence    *RecurrenceRule `json:"recurrence_rule,omitempty"`
	EventIDs      []int64         `json:"event_ids,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

// ToResponse converts a Series model to a SeriesResponse DTO
func (s *Series) ToResponse() *SeriesResponse {
	return &SeriesResponse{
		ID:            s.ID,
		Name:          s.Name,
		CreatorID:     s.CreatorID,
		SeriesType:    s.SeriesType,
		IsIndefinite:  s.IsIndefinite,
		StartingEvent: s.StartingEvent,
		EndingEvent:   s.EndingEvent,
		Recurrence:    s.Recurrence,
		EventIDs:      s.EventIDs,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
	}
}
