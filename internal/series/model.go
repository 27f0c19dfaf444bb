package series

import (
	"time"

	"github.com/khaledm/eventide/internal/event"
	"github.com/khaledm/eventide/internal/event/recur"
)

// SeriesType distinguishes rule-generated series from hand-picked ones
type SeriesType string

const (
	TypeRecurring SeriesType = "recurring"
	TypeManual    SeriesType = "manual"
)

// TimeOfDay is a wall-clock time within a template's day
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Template is a partial event description used to seed the first or last
// occurrence of a generated series
type Template struct {
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	StartDateTime time.Time       `json:"start_date_time"`
	StartTime     TimeOfDay       `json:"start_time"`
	EndTime       TimeOfDay       `json:"end_time"`
	Location      *event.Location `json:"location,omitempty"`
}

// RecurrenceRule bounds a recurring series. EndDate may be absent for
// indefinite series.
type RecurrenceRule struct {
	Frequency recur.Frequency `json:"frequency"`
	EndDate   *time.Time      `json:"end_date,omitempty"`
}

// Series is a template-based generator description, distinct from a
// materialized Event. Exactly one of IsIndefinite or EndingEvent holds.
type Series struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	CreatorID     int64           `json:"creator_id"`
	SeriesType    SeriesType      `json:"series_type"`
	IsIndefinite  bool            `json:"is_indefinite"`
	StartingEvent Template        `json:"starting_event"`
	EndingEvent   *Template       `json:"ending_event,omitempty"`
	Recurrence    *RecurrenceRule `json:"recurrence_rule,omitempty"`
	EventIDs      []int64         `json:"event_ids,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BaseOccurrence synthesizes the pseudo-event the recurrence expander runs
// on: the template's date with its start/end wall-clock times applied.
func (s *Series) BaseOccurrence() recur.Occurrence {
	t := s.StartingEvent
	if t.StartDateTime.IsZero() {
		return recur.Occurrence{}
	}

	year, month, day := t.StartDateTime.Date()
	loc := t.StartDateTime.Location()
	start := time.Date(year, month, day, t.StartTime.Hour, t.StartTime.Minute, 0, 0, loc)
	end := time.Date(year, month, day, t.EndTime.Hour, t.EndTime.Minute, 0, 0, loc)
	if !end.After(start) {
		// End wall-clock at or before start means the occurrence crosses midnight.
		end = end.AddDate(0, 0, 1)
	}

	return recur.Occurrence{Start: start, End: end}
}
