package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/khaledm/eventide/internal/event/recur"
	"github.com/khaledm/eventide/internal/user"
	"github.com/khaledm/eventide/pkg/token"
	"github.com/khaledm/eventide/pkg/validate"
)

// Common errors
var (
	ErrEventNotFound      = errors.New("event not found")
	ErrNotOwner           = errors.New("only the event owner may perform this action")
	ErrOwnerJoin          = errors.New("owner cannot join own event")
	ErrAlreadyParticipant = errors.New("user is already a participant of this event")
	ErrPrivateEvent       = errors.New("cannot join a private event")
	ErrNotParticipant     = errors.New("user is not a participant of this event")
	ErrAlreadyInvited     = errors.New("user is already invited to this event")
	ErrNotInvited         = errors.New("no pending invitation for this event")
	ErrUserNotFound       = errors.New("user not found")
)

// Store is the persistence surface the service needs. *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, e *Event) (*Event, error)
	GetByID(ctx context.Context, id int64) (*Event, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*Event, error)
	ListByParticipant(ctx context.Context, userID int64) ([]*Event, error)
	ListPublic(ctx context.Context) ([]*Event, error)
	ListAll(ctx context.Context) ([]*Event, error)
	Update(ctx context.Context, id int64, req *UpdateEventRequest) (*Event, error)
	Delete(ctx context.Context, id int64) error
	AddParticipant(ctx context.Context, eventID, userID int64) error
	RemoveParticipant(ctx context.Context, eventID, userID int64) error
	AddInvitation(ctx context.Context, eventID, userID int64) error
	RemoveInvitation(ctx context.Context, eventID, userID int64) error
}

// Directory resolves usernames to accounts. *user.Repository satisfies it.
type Directory interface {
	GetByUsername(ctx context.Context, username string) (*user.User, error)
}

// Service handles event business logic
type Service struct {
	store Store
	users Directory
	log   zerolog.Logger
}

// NewService creates a new event service
func NewService(store Store, users Directory, log zerolog.Logger) *Service {
	return &Service{store: store, users: users, log: log}
}

func isAdmin(actor *token.Identity) bool {
	return actor != nil && actor.Role == string(user.RoleAdmin)
}

// Create validates the request, resolves every participant username and
// persists the event with the actor as owner. If any username fails to
// resolve, nothing is persisted.
func (s *Service) Create(ctx context.Context, actor *token.Identity, req *CreateEventRequest) (*Event, error) {
	errs := validate.Errors{}
	errs.Require("title", req.Title)
	if req.Type != TypePublic && req.Type != TypePrivate {
		errs["type"] = "must be public or private"
	}
	if req.StartDateTime.IsZero() {
		errs["start_date_time"] = "is required"
	}
	if req.EndDateTime.IsZero() {
		errs["end_date_time"] = "is required"
	}
	if !req.StartDateTime.IsZero() && !req.EndDateTime.IsZero() && !req.StartDateTime.Before(req.EndDateTime) {
		errs["end_date_time"] = "must be after start_date_time"
	}
	if req.IsRecurring {
		if req.Recurrence == nil {
			errs["recurrence_rule"] = "is required for recurring events"
		} else {
			switch req.Recurrence.Frequency {
			case recur.FrequencyDaily, recur.FrequencyWeekly, recur.FrequencyMonthly:
			default:
				errs["recurrence_rule.frequency"] = "must be daily, weekly or monthly"
			}
			if req.Recurrence.Interval < 1 {
				errs["recurrence_rule.interval"] = "must be at least 1"
			}
		}
	}

	// Resolve participant usernames; a single miss fails the whole create.
	members := []Member{{UserID: actor.UserID, Username: actor.Username}}
	seen := map[int64]bool{actor.UserID: true}
	for _, username := range req.Participants {
		u, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if u == nil {
			errs["participants"] = fmt.Sprintf("user %q not found", username)
			continue
		}
		if !seen[u.ID] {
			members = append(members, Member{UserID: u.ID, Username: u.Username})
			seen[u.ID] = true
		}
	}

	if errs.Any() {
		return nil, errs
	}

	e := &Event{
		Title:         req.Title,
		Description:   req.Description,
		Type:          req.Type,
		StartDateTime: req.StartDateTime,
		EndDateTime:   req.EndDateTime,
		OwnerID:       actor.UserID,
		Location:      req.Location,
		Participants:  members,
		IsRecurring:   req.IsRecurring,
		Recurrence:    req.Recurrence,
	}

	created, err := s.store.Create(ctx, e)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("event_id", created.ID).Int64("owner_id", actor.UserID).Msg("event created")
	return created, nil
}

// ListMine returns events the actor owns
func (s *Service) ListMine(ctx context.Context, actor *token.Identity) ([]*Event, error) {
	return s.store.ListByOwner(ctx, actor.UserID)
}

// ListParticipating returns events the actor has joined or been added to
func (s *Service) ListParticipating(ctx context.Context, actor *token.Identity) ([]*Event, error) {
	return s.store.ListByParticipant(ctx, actor.UserID)
}

// ListPublic returns all public events regardless of actor
func (s *Service) ListPublic(ctx context.Context) ([]*Event, error) {
	return s.store.ListPublic(ctx)
}

// ListAllVisible returns the union of public, owned and participated events,
// deduplicated by id.
func (s *Service) ListAllVisible(ctx context.Context, actor *token.Identity) ([]*Event, error) {
	public, err := s.store.ListPublic(ctx)
	if err != nil {
		return nil, err
	}
	owned, err := s.store.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	participating, err := s.store.ListByParticipant(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*Event)
	order := make([]int64, 0, len(public)+len(owned)+len(participating))
	for _, list := range [][]*Event{public, owned, participating} {
		for _, e := range list {
			if _, ok := byID[e.ID]; !ok {
				order = append(order, e.ID)
			}
			byID[e.ID] = e
		}
	}

	merged := make([]*Event, 0, len(byID))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	return merged, nil
}

// ListAll returns every event (admin)
func (s *Service) ListAll(ctx context.Context) ([]*Event, error) {
	return s.store.ListAll(ctx)
}

// GetByID returns the event if the actor may see it. A private event the
// actor cannot see reports NotFound, never Forbidden, so its existence is
// not revealed.
func (s *Service) GetByID(ctx context.Context, actor *token.Identity, id int64) (*Event, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrEventNotFound
	}
	if !e.VisibleTo(actor.UserID) && !isAdmin(actor) {
		return nil, ErrEventNotFound
	}
	return e, nil
}

// Update applies an allow-listed patch; owner only (admin override)
func (s *Service) Update(ctx context.Context, actor *token.Identity, id int64, req *UpdateEventRequest) (*Event, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrEventNotFound
	}
	if existing.OwnerID != actor.UserID && !isAdmin(actor) {
		return nil, ErrNotOwner
	}

	// Validate the effective time window after the patch.
	start := existing.StartDateTime
	end := existing.EndDateTime
	if req.StartDateTime != nil {
		start = *req.StartDateTime
	}
	if req.EndDateTime != nil {
		end = *req.EndDateTime
	}
	if !start.Before(end) {
		return nil, validate.Errors{"end_date_time": "must be after start_date_time"}
	}

	return s.store.Update(ctx, id, req)
}

// Delete removes an event; owner only (admin override)
func (s *Service) Delete(ctx context.Context, actor *token.Identity, id int64) error {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrEventNotFound
	}
	if existing.OwnerID != actor.UserID && !isAdmin(actor) {
		return ErrNotOwner
	}
	return s.store.Delete(ctx, id)
}

// Join adds the actor to a public event's participants
func (s *Service) Join(ctx context.Context, actor *token.Identity, id int64) (*Event, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrEventNotFound
	}
	if e.OwnerID == actor.UserID {
		return nil, ErrOwnerJoin
	}
	if e.HasParticipant(actor.UserID) {
		return nil, ErrAlreadyParticipant
	}
	if e.Type == TypePrivate {
		return nil, ErrPrivateEvent
	}

	if err := s.store.AddParticipant(ctx, id, actor.UserID); err != nil {
		return nil, err
	}
	// Joining consumes any pending invitation so the two sets stay disjoint.
	if e.HasInvitation(actor.UserID) {
		if err := s.store.RemoveInvitation(ctx, id, actor.UserID); err != nil {
			return nil, err
		}
	}

	return s.store.GetByID(ctx, id)
}

// Leave removes the actor from the participant set. The owner may leave the
// participant list; ownership is unaffected.
func (s *Service) Leave(ctx context.Context, actor *token.Identity, id int64) (*Event, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrEventNotFound
	}
	if !e.HasParticipant(actor.UserID) {
		return nil, ErrNotParticipant
	}

	if err := s.store.RemoveParticipant(ctx, id, actor.UserID); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Invite records a pending invitation for the named user; owner only
func (s *Service) Invite(ctx context.Context, actor *token.Identity, id int64, username string) (*Event, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrEventNotFound
	}
	if e.OwnerID != actor.UserID && !isAdmin(actor) {
		return nil, ErrNotOwner
	}

	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}
	if e.HasParticipant(target.ID) {
		return nil, ErrAlreadyParticipant
	}
	if e.HasInvitation(target.ID) {
		return nil, ErrAlreadyInvited
	}

	if err := s.store.AddInvitation(ctx, id, target.ID); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// AcceptInvitation moves the actor from the invitation set to the
// participant set
func (s *Service) AcceptInvitation(ctx context.Context, actor *token.Identity, id int64) (*Event, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrEventNotFound
	}
	if !e.HasInvitation(actor.UserID) {
		return nil, ErrNotInvited
	}

	if err := s.store.RemoveInvitation(ctx, id, actor.UserID); err != nil {
		return nil, err
	}
	if err := s.store.AddParticipant(ctx, id, actor.UserID); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// DeclineInvitation discards the actor's pending invitation
func (s *Service) DeclineInvitation(ctx context.Context, actor *token.Identity, id int64) error {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		return ErrEventNotFound
	}
	if !e.HasInvitation(actor.UserID) {
		return ErrNotInvited
	}
	return s.store.RemoveInvitation(ctx, id, actor.UserID)
}

// RemoveParticipant drops a participant from the event; owner only
func (s *Service) RemoveParticipant(ctx context.Context, actor *token.Identity, id, participantID int64) (*Event, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrEventNotFound
	}
	if e.OwnerID != actor.UserID && !isAdmin(actor) {
		return nil, ErrNotOwner
	}
	if !e.HasParticipant(participantID) {
		return nil, ErrNotParticipant
	}

	if err := s.store.RemoveParticipant(ctx, id, participantID); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Occurrences materializes the event's occurrence list for calendar display.
// Non-recurring events yield a single occurrence; recurring events expand to
// Interval occurrences via the recurrence expander.
func (s *Service) Occurrences(ctx context.Context, actor *token.Identity, id int64) ([]recur.Occurrence, error) {
	e, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	base := recur.Occurrence{Start: e.StartDateTime, End: e.EndDateTime}
	desc := recur.Descriptor{Count: 1}
	if e.IsRecurring && e.Recurrence != nil {
		desc = recur.Descriptor{Frequency: e.Recurrence.Frequency, Count: e.Recurrence.Interval}
	}

	occurrences := recur.Expand(base, desc)
	if occurrences == nil {
		// Unusable start instant: render nothing rather than failing the page.
		s.log.Error().Int64("event_id", e.ID).Msg("occurrence expansion skipped: event has no usable start time")
		return []recur.Occurrence{}, nil
	}
	return occurrences, nil
}
