package series

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/khaledm/eventide/internal/event/recur"
	"github.com/khaledm/eventide/pkg/token"
	"github.com/khaledm/eventide/pkg/validate"
)

// Common errors
var (
	ErrSeriesNotFound = errors.New("series not found")
	ErrNotCreator     = errors.New("only the series creator may perform this action")
	ErrNotRecurring   = errors.New("series has no recurrence rule to materialize")
)

// indefiniteHorizon bounds materialization of series without an end.
const indefiniteHorizon = 365 * 24 * time.Hour

// maxOccurrences caps a single materialization.
const maxOccurrences = 366

// Store is the persistence surface the service needs. *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, s *Series) (*Series, error)
	GetByID(ctx context.Context, id int64) (*Series, error)
	ListByCreator(ctx context.Context, creatorID int64) ([]*Series, error)
	Update(ctx context.Context, id int64, req *UpdateSeriesRequest) (*Series, error)
	Delete(ctx context.Context, id int64) error
}

// Service handles series business logic
type Service struct {
	store Store
	log   zerolog.Logger
}

// NewService creates a new series service
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Create validates the series description and persists it with the actor as
// creator. Exactly one of is_indefinite and ending_event must be given.
func (s *Service) Create(ctx context.Context, actor *token.Identity, req *CreateSeriesRequest) (*Series, error) {
	errs := validate.Errors{}
	errs.Require("name", req.Name)
	if req.SeriesType != TypeRecurring && req.SeriesType != TypeManual {
		errs["series_type"] = "must be recurring or manual"
	}
	if req.StartingEvent.StartDateTime.IsZero() {
		errs["starting_event.start_date_time"] = "is required"
	}
	if req.IsIndefinite == (req.EndingEvent != nil) {
		errs["ending_event"] = "exactly one of is_indefinite and ending_event must be set"
	}
	if req.SeriesType == TypeRecurring {
		if req.Recurrence == nil {
			errs["recurrence_rule"] = "is required for recurring series"
		} else if !validSeriesFrequency(req.Recurrence.Frequency) {
			errs["recurrence_rule.frequency"] = "must be daily, weekly, monthly or yearly"
		}
	}
	if errs.Any() {
		return nil, errs
	}

	created, err := s.store.Create(ctx, &Series{
		Name:          req.Name,
		CreatorID:     actor.UserID,
		SeriesType:    req.SeriesType,
		IsIndefinite:  req.IsIndefinite,
		StartingEvent: req.StartingEvent,
		EndingEvent:   req.EndingEvent,
		Recurrence:    req.Recurrence,
		EventIDs:      req.EventIDs,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("series_id", created.ID).Int64("creator_id", actor.UserID).Msg("series created")
	return created, nil
}

// GetByID returns the series; creator-only visibility
func (s *Service) GetByID(ctx context.Context, actor *token.Identity, id int64) (*Series, error) {
	sr, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Not-found and not-visible are the same answer.
	if sr == nil || (sr.CreatorID != actor.UserID && actor.Role != "admin") {
		return nil, ErrSeriesNotFound
	}
	return sr, nil
}

// ListMine returns series created by the actor
func (s *Service) ListMine(ctx context.Context, actor *token.Identity) ([]*Series, error) {
	return s.store.ListByCreator(ctx, actor.UserID)
}

// Update applies an allow-listed patch; creator only
func (s *Service) Update(ctx context.Context, actor *token.Identity, id int64, req *UpdateSeriesRequest) (*Series, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrSeriesNotFound
	}
	if existing.CreatorID != actor.UserID {
		return nil, ErrNotCreator
	}

	// The exactly-one-of invariant must survive the patch.
	indefinite := existing.IsIndefinite
	if req.IsIndefinite != nil {
		indefinite = *req.IsIndefinite
	}
	hasEnding := existing.EndingEvent != nil
	if req.EndingEvent != nil {
		hasEnding = true
	}
	if req.IsIndefinite != nil && *req.IsIndefinite {
		// Switching to indefinite drops the ending template.
		hasEnding = req.EndingEvent != nil
	}
	if indefinite == hasEnding {
		return nil, validate.Errors{"ending_event": "exactly one of is_indefinite and ending_event must be set"}
	}
	if req.Recurrence != nil && !validSeriesFrequency(req.Recurrence.Frequency) {
		return nil, validate.Errors{"recurrence_rule.frequency": "must be daily, weekly, monthly or yearly"}
	}

	return s.store.Update(ctx, id, req)
}

// Delete removes a series; creator only
func (s *Service) Delete(ctx context.Context, actor *token.Identity, id int64) error {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrSeriesNotFound
	}
	if existing.CreatorID != actor.UserID && actor.Role != "admin" {
		return ErrNotCreator
	}
	return s.store.Delete(ctx, id)
}

// Materialize expands a recurring series into concrete occurrences using the
// same expander that serves plain recurring events. Bounded series expand to
// their end date; indefinite series are cut off at a one-year horizon.
func (s *Service) Materialize(ctx context.Context, actor *token.Identity, id int64) ([]recur.Occurrence, error) {
	sr, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if sr.SeriesType != TypeRecurring || sr.Recurrence == nil {
		return nil, ErrNotRecurring
	}

	base := sr.BaseOccurrence()
	if base.Start.IsZero() {
		s.log.Error().Int64("series_id", sr.ID).Msg("materialization skipped: series template has no usable start date")
		return []recur.Occurrence{}, nil
	}

	until := s.untilFor(sr, base)
	return recur.ExpandUntil(base, sr.Recurrence.Frequency, until, maxOccurrences), nil
}

// untilFor picks the expansion bound: the rule's end date, else the ending
// template's date, else the indefinite horizon.
func (s *Service) untilFor(sr *Series, base recur.Occurrence) time.Time {
	if sr.Recurrence.EndDate != nil {
		return *sr.Recurrence.EndDate
	}
	if sr.EndingEvent != nil && !sr.EndingEvent.StartDateTime.IsZero() {
		// Apply the ending template's wall-clock start to its date so the
		// final occurrence is included in the expansion.
		e := sr.EndingEvent
		year, month, day := e.StartDateTime.Date()
		return time.Date(year, month, day, e.StartTime.Hour, e.StartTime.Minute, 0, 0, e.StartDateTime.Location())
	}
	return base.Start.Add(indefiniteHorizon)
}

func validSeriesFrequency(f recur.Frequency) bool {
	switch f {
	case recur.FrequencyDaily, recur.FrequencyWeekly, recur.FrequencyMonthly, recur.FrequencyYearly:
		return true
	}
	return false
}
