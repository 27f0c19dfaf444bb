package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/rs/zerolog"
	"github.com/teambition/rrule-go"

	"github.com/khaledm/eventide/internal/event"
	"github.com/khaledm/eventide/internal/event/recur"
	"github.com/khaledm/eventide/pkg/token"
)

// Calendar is the slice of event persistence the exporter needs.
// *event.Repository satisfies it.
type Calendar interface {
	ListByOwner(ctx context.Context, ownerID int64) ([]*event.Event, error)
	ListByParticipant(ctx context.Context, userID int64) ([]*event.Event, error)
}

// Service renders a user's calendar as an iCalendar feed
type Service struct {
	calendar Calendar
	log      zerolog.Logger
}

// NewService creates a new export service
func NewService(calendar Calendar, log zerolog.Logger) *Service {
	return &Service{calendar: calendar, log: log}
}

// Feed serializes the actor's owned and participating events into a single
// VCALENDAR. Each event is one VEVENT; recurring events carry an RRULE so
// consuming clients expand them natively.
func (s *Service) Feed(ctx context.Context, actor *token.Identity) (string, error) {
	owned, err := s.calendar.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return "", err
	}
	participating, err := s.calendar.ListByParticipant(ctx, actor.UserID)
	if err != nil {
		return "", err
	}

	seen := make(map[int64]bool)
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//eventide//calendar//EN")

	count := 0
	for _, e := range append(owned, participating...) {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		s.addEvent(cal, e)
		count++
	}

	s.log.Debug().Int64("user_id", actor.UserID).Int("events", count).Msg("calendar feed rendered")
	return cal.Serialize(), nil
}

func (s *Service) addEvent(cal *ical.Calendar, e *event.Event) {
	ve := cal.AddEvent(fmt.Sprintf("event-%d@eventide", e.ID))
	ve.SetDtStampTime(time.Now().UTC())
	ve.SetCreatedTime(e.CreatedAt)
	ve.SetStartAt(e.StartDateTime)
	ve.SetEndAt(e.EndDateTime)
	ve.SetSummary(e.Title)
	if e.Description != "" {
		ve.SetDescription(e.Description)
	}
	if e.Location != nil {
		ve.SetLocation(formatLocation(e.Location))
	}

	if e.IsRecurring && e.Recurrence != nil {
		if rule, err := buildRRule(e.StartDateTime, e.Recurrence); err == nil {
			ve.AddRrule(rule)
		} else {
			s.log.Warn().Err(err).Int64("event_id", e.ID).Msg("skipping RRULE for event")
		}
	}
}

// buildRRule translates a recurrence rule into an RFC 5545 RRULE value.
// EndDate takes precedence as UNTIL; otherwise the repeat count bounds the
// rule.
func buildRRule(start time.Time, r *event.RecurrenceRule) (string, error) {
	freq, err := mapFrequency(r.Frequency)
	if err != nil {
		return "", err
	}

	opt := rrule.ROption{Freq: freq, Dtstart: start}
	if r.EndDate != nil {
		opt.Until = r.EndDate.UTC()
	} else {
		n := r.Interval
		if n < 1 {
			n = 1
		}
		opt.Count = n
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return "", err
	}
	return rule.String(), nil
}

func mapFrequency(f recur.Frequency) (rrule.Frequency, error) {
	switch f {
	case recur.FrequencyDaily:
		return rrule.DAILY, nil
	case recur.FrequencyWeekly:
		return rrule.WEEKLY, nil
	case recur.FrequencyMonthly:
		return rrule.MONTHLY, nil
	case recur.FrequencyYearly:
		return rrule.YEARLY, nil
	default:
		return 0, fmt.Errorf("unknown frequency %q", f)
	}
}

func formatLocation(l *event.Location) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Address, l.City, l.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
