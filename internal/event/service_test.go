package event

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/khaledm/eventide/internal/event/recur"
	"github.com/khaledm/eventide/internal/user"
	"github.com/khaledm/eventide/pkg/token"
	"github.com/khaledm/eventide/pkg/validate"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	nextID  int64
	events  map[int64]*Event
	creates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, events: map[int64]*Event{}}
}

func (f *fakeStore) Create(_ context.Context, e *Event) (*Event, error) {
	f.creates++
	cp := *e
	cp.ID = f.nextID
	f.nextID++
	cp.CreatedAt = time.Now()
	f.events[cp.ID] = &cp
	return f.snapshot(cp.ID), nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*Event, error) {
	return f.snapshot(id), nil
}

func (f *fakeStore) ListByOwner(_ context.Context, ownerID int64) ([]*Event, error) {
	var out []*Event
	for id, e := range f.events {
		if e.OwnerID == ownerID {
			out = append(out, f.snapshot(id))
		}
	}
	return out, nil
}

func (f *fakeStore) ListByParticipant(_ context.Context, userID int64) ([]*Event, error) {
	var out []*Event
	for id, e := range f.events {
		if e.HasParticipant(userID) {
			out = append(out, f.snapshot(id))
		}
	}
	return out, nil
}

func (f *fakeStore) ListPublic(_ context.Context) ([]*Event, error) {
	var out []*Event
	for id, e := range f.events {
		if e.Type == TypePublic {
			out = append(out, f.snapshot(id))
		}
	}
	return out, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]*Event, error) {
	var out []*Event
	for id := range f.events {
		out = append(out, f.snapshot(id))
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, id int64, req *UpdateEventRequest) (*Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Type != nil {
		e.Type = *req.Type
	}
	if req.StartDateTime != nil {
		e.StartDateTime = *req.StartDateTime
	}
	if req.EndDateTime != nil {
		e.EndDateTime = *req.EndDateTime
	}
	if req.Location != nil {
		e.Location = req.Location
	}
	if req.IsRecurring != nil {
		e.IsRecurring = *req.IsRecurring
	}
	if req.Recurrence != nil {
		e.Recurrence = req.Recurrence
	}
	return f.snapshot(id), nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	if _, ok := f.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(f.events, id)
	return nil
}

func (f *fakeStore) AddParticipant(_ context.Context, eventID, userID int64) error {
	e := f.events[eventID]
	e.Participants = append(e.Participants, Member{UserID: userID})
	return nil
}

func (f *fakeStore) RemoveParticipant(_ context.Context, eventID, userID int64) error {
	e := f.events[eventID]
	out := e.Participants[:0]
	for _, m := range e.Participants {
		if m.UserID != userID {
			out = append(out, m)
		}
	}
	e.Participants = out
	return nil
}

func (f *fakeStore) AddInvitation(_ context.Context, eventID, userID int64) error {
	e := f.events[eventID]
	e.Invitations = append(e.Invitations, Member{UserID: userID})
	return nil
}

func (f *fakeStore) RemoveInvitation(_ context.Context, eventID, userID int64) error {
	e := f.events[eventID]
	out := e.Invitations[:0]
	for _, m := range e.Invitations {
		if m.UserID != userID {
			out = append(out, m)
		}
	}
	e.Invitations = out
	return nil
}

func (f *fakeStore) snapshot(id int64) *Event {
	e, ok := f.events[id]
	if !ok {
		return nil
	}
	cp := *e
	cp.Participants = append([]Member{}, e.Participants...)
	cp.Invitations = append([]Member{}, e.Invitations...)
	return &cp
}

// fakeDirectory resolves usernames case-insensitively.
type fakeDirectory struct {
	users map[string]*user.User
}

func (f *fakeDirectory) GetByUsername(_ context.Context, username string) (*user.User, error) {
	for name, u := range f.users {
		if strings.EqualFold(name, username) {
			return u, nil
		}
	}
	return nil, nil
}

func newTestService() (*Service, *fakeStore, *fakeDirectory) {
	store := newFakeStore()
	dir := &fakeDirectory{users: map[string]*user.User{
		"alice": {ID: 1, Username: "alice"},
		"bob":   {ID: 2, Username: "bob"},
		"carol": {ID: 3, Username: "carol"},
	}}
	return NewService(store, dir, zerolog.Nop()), store, dir
}

func actor(id int64, username string) *token.Identity {
	return &token.Identity{UserID: id, Username: username, Role: "user"}
}

func createRequest(eventType EventType) *CreateEventRequest {
	return &CreateEventRequest{
		Title:         "standup",
		Type:          eventType,
		StartDateTime: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		EndDateTime:   time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC),
	}
}

func mustCreate(t *testing.T, s *Service, a *token.Identity, req *CreateEventRequest) *Event {
	t.Helper()
	e, err := s.Create(context.Background(), a, req)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	return e
}

func TestCreateIncludesOwnerAsParticipant(t *testing.T) {
	s, _, _ := newTestService()

	e := mustCreate(t, s, actor(1, "alice"), createRequest(TypePublic))
	if !e.HasParticipant(1) {
		t.Error("owner not included in participants")
	}
	if len(e.Participants) != 1 {
		t.Errorf("participants = %d, want 1", len(e.Participants))
	}
	if e.OwnerID != 1 {
		t.Errorf("owner = %d, want 1", e.OwnerID)
	}
}

func TestCreateResolvesParticipantUsernames(t *testing.T) {
	s, _, _ := newTestService()

	req := createRequest(TypePrivate)
	req.Participants = []string{"BOB", "carol"}

	e := mustCreate(t, s, actor(1, "alice"), req)
	if len(e.Participants) != 3 {
		t.Fatalf("participants = %d, want 3 (owner + 2 resolved)", len(e.Participants))
	}
	if !e.HasParticipant(2) || !e.HasParticipant(3) {
		t.Error("resolved participants missing from set")
	}
}

func TestCreateFailsWhenParticipantUnknown(t *testing.T) {
	s, store, _ := newTestService()

	req := createRequest(TypePublic)
	req.Participants = []string{"bob", "nosuchuser"}

	_, err := s.Create(context.Background(), actor(1, "alice"), req)
	var verrs validate.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("Create = %v, want validation error", err)
	}
	if _, ok := verrs["participants"]; !ok {
		t.Errorf("validation errors = %v, want participants entry", verrs)
	}
	if store.creates != 0 {
		t.Error("event was persisted despite unresolvable participant")
	}
}

func TestCreateRejectsInvertedTimeWindow(t *testing.T) {
	s, _, _ := newTestService()

	req := createRequest(TypePublic)
	req.StartDateTime, req.EndDateTime = req.EndDateTime, req.StartDateTime

	_, err := s.Create(context.Background(), actor(1, "alice"), req)
	var verrs validate.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("Create = %v, want validation error", err)
	}
}

func TestJoinPublicEvent(t *testing.T) {
	s, _, _ := newTestService()
	e := mustCreate(t, s, actor(1, "alice"), createRequest(TypePublic))

	joined, err := s.Join(context.Background(), actor(2, "bob"), e.ID)
	if err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if !joined.HasParticipant(2) {
		t.Error("actor missing from participants after join")
	}
	if len(joined.Participants) != 2 {
		t.Errorf("participants = %d, want 2", len(joined.Participants))
	}

	// Second join is a conflict
	if _, err := s.Join(context.Background(), actor(2, "bob"), e.ID); !errors.Is(err, ErrAlreadyParticipant) {
		t.Errorf("second Join = %v, want ErrAlreadyParticipant", err)
	}
}

func TestJoinPrivateEventFails(t *testing.T) {
	s, _, _ := newTestService()
	e := mustCreate(t, s, actor(1, "alice"), createRequest(TypePrivate))

	if _, err := s.Join(context.Background(), actor(2, "bob"), e.ID); !errors.Is(err, ErrPrivateEvent) {
		t.Errorf("Join private = %v, want ErrPrivateEvent", err)
	}
}

func TestJoinOwnEventFails(t *testing.T) {
	s, _, _ := newTestService()
	e := mustCreate(t, s, actor(1, "alice"), createRequest(TypePublic))

	if _, err := s.Join(context.Background(), actor(1, "alice"), e.ID); !errors.Is(err, ErrOwnerJoin) {
		t.Errorf("Join own event = %v, want ErrOwnerJoin", err)
	}
}

func TestLeave(t *testing.T) {
	s, _, _ := newTestService()
	req := createRequest(TypePublic)
	req.Participants = []string{"bob", "carol"}
	e := mustCreate(t, s, actor(1, "alice"), req)

	// Non-participant cannot leave
	if _, err := s.Leave(context.Background(), actor(99, "mallory"), e.ID); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("Leave by non-participant = %v, want ErrNotParticipant", err)
	}

	left, err := s.Leave(context.Background(), actor(2, "bob"), e.ID)
	if err != nil {
		t.Fatalf("Leave returned error: %v", err)
	}
	if left.HasParticipant(2) {
		t.Error("actor still a participant after leave")
	}
	if !left.HasParticipant(1) || !left.HasParticipant(3) {
		t.Error("leave removed other participants")
	}
}

func TestGetByIDVisibility(t *testing.T) {
	s, _, _ := newTestService()
	private := mustCreate(t, s, actor(1, "alice"), createRequest(TypePrivate))
	public := mustCreate(t, s, actor(1, "alice"), createRequest(TypePublic))

	// Stranger cannot see a private event; the error is NotFound, not Forbidden.
	if _, err := s.GetByID(context.Background(), actor(2, "bob"), private.ID); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("GetByID private by stranger = %v, want ErrEventNotFound", err)
	}

	if _, err := s.GetByID(context.Background(), actor(1, "alice"), private.ID); err != nil {
		t.Errorf("GetByID by owner = %v, want nil", err)
	}

	if _, err := s.GetByID(context.Background(), actor(2, "bob"), public.ID); err != nil {
		t.Errorf("GetByID public by stranger = %v, want nil", err)
	}
}

func TestGetByIDVisibleToParticipant(t *testing.T) {
	s, _, _ := newTestService()
	req := createRequest(TypePrivate)
	req.Participants = []string{"bob"}
	e := mustCreate(t, s, actor(1, "alice"), req)

	if _, err := s.GetByID(context.Background(), actor(2, "bob"), e.ID); err != nil {
		t.Errorf("GetByID by participant = %v, want nil", err)
	}
}

func TestUpdateRequiresOwner(t *testing.T) {
	s, store, _ := newTestService()
	e := mustCreate(t, s, actor(1, "alice"), createRequest(TypePublic))

	newTitle := "hijacked"
	_, err := s.Update(context.Background(), actor(2, "bob"), e.ID, &UpdateEventRequest{Title: &newTitle})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("Update by non-owner = %v, want ErrNotOwner", err)
	}
	if store.events[e.ID].Title != "standup" {
		t.Error("event mutated despite forbidden update")
	}

	updated, err := s.Update(context.Background(), actor(1, "alice"), e.ID, &UpdateEventRequest{Title: &newTitle})
	if err != nil {
		t.Fatalf("Update by owner returned error: %v", err)
	}
	if updated.Title != "hijacked" {
		t.Errorf("title = %q, want %q", updated.Title, "hijacked")
	}
}

func TestUpdateRejectsInvertedTimeWindow(t *testing.T) {
	s, _, _ := newTestService()
	e := mustCreate(t, s, actor(1, "alice"), createRequest(TypePublic))

	badEnd := e.StartDateTime.Add(-time.Hour)
	_, err := s.Update(context.Background(), actor(1, "alice"), e.ID, &UpdateEventRequest{EndDateTime: &badEnd})
	var verrs validate.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("Update = %v, want validation error", err)
	}
}

func TestDeleteRequiresOwner(t *testing.T) {
	s, store, _ := newTestService()
	e := mustCreate(t, s, actor(1, "alice"), createRequest(TypePublic))

	if err := s.Delete(context.Background(), actor(2, "bob"), e.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("Delete by non-owner = %v, want ErrNotOwner", err)
	}
	if _, ok := store.events[e.ID]; !ok {
		t.Fatal("event deleted despite forbidden delete")
	}

	if err := s.Delete(context.Background(), actor(1, "alice"), e.ID); err != nil {
		t.Fatalf("Delete by owner returned error: %v", err)
	}
	if _, ok := store.events[e.ID]; ok {
		t.Error("event still present after delete")
	}
}

func TestAdminOverridesOwnerGuard(t *testing.T) {
	s, _, _ := newTestService()
	e := mustCreate(t, s, actor(1, "alice"), createRequest(TypePrivate))

	admin := &token.Identity{UserID: 50, Username: "root", Role: "admin"}
	if _, err := s.GetByID(context.Background(), admin, e.ID); err != nil {
		t.Errorf("GetByID by admin = %v, want nil", err)
	}
	if err := s.Delete(context.Background(), admin, e.ID); err != nil {
		t.Errorf("Delete by admin = %v, want nil", err)
	}
}

func TestInvite(t *testing.T) {
	s, _, _ := newTestService()
	e := mustCreate(t, s, actor(1, "alice"), createRequest(TypePrivate))

	// Only the owner may invite
	if _, err := s.Invite(context.Background(), actor(2, "bob"), e.ID, "carol"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Invite by non-owner = %v, want ErrNotOwner", err)
	}

	invited, err := s.Invite(context.Background(), actor(1, "alice"), e.ID, "Bob")
	if err != nil {
		t.Fatalf("Invite returned error: %v", err)
	}
	if !invited.HasInvitation(2) {
		t.Error("target missing from invitations")
	}

	// Duplicate invitation is a conflict
	if _, err := s.Invite(context.Background(), actor(1, "alice"), e.ID, "bob"); !errors.Is(err, ErrAlreadyInvited) {
		t.Errorf("duplicate Invite = %v, want ErrAlreadyInvited", err)
	}

	// Unknown target
	if _, err := s.Invite(context.Background(), actor(1, "alice"), e.ID, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Invite unknown user = %v, want ErrUserNotFound", err)
	}
}

func TestAcceptInvitationMovesSets(t *testing.T) {
	s, _, _ := newTestService()
	e := mustCreate(t, s, actor(1, "alice"), createRequest(TypePrivate))

	if _, err := s.Invite(context.Background(), actor(1, "alice"), e.ID, "bob"); err != nil {
		t.Fatalf("Invite returned error: %v", err)
	}

	accepted, err := s.AcceptInvitation(context.Background(), actor(2, "bob"), e.ID)
	if err != nil {
		t.Fatalf("AcceptInvitation returned error: %v", err)
	}
	if !accepted.HasParticipant(2) {
		t.Error("accepted invitee not a participant")
	}
	if accepted.HasInvitation(2) {
		t.Error("invitation not consumed on accept")
	}

	// Without a pending invitation the accept fails
	if _, err := s.AcceptInvitation(context.Background(), actor(3, "carol"), e.ID); !errors.Is(err, ErrNotInvited) {
		t.Errorf("AcceptInvitation without invite = %v, want ErrNotInvited", err)
	}
}

func TestRemoveParticipantRequiresOwner(t *testing.T) {
	s, _, _ := newTestService()
	req := createRequest(TypePublic)
	req.Participants = []string{"bob"}
	e := mustCreate(t, s, actor(1, "alice"), req)

	if _, err := s.RemoveParticipant(context.Background(), actor(3, "carol"), e.ID, 2); !errors.Is(err, ErrNotOwner) {
		t.Errorf("RemoveParticipant by non-owner = %v, want ErrNotOwner", err)
	}

	removed, err := s.RemoveParticipant(context.Background(), actor(1, "alice"), e.ID, 2)
	if err != nil {
		t.Fatalf("RemoveParticipant returned error: %v", err)
	}
	if removed.HasParticipant(2) {
		t.Error("participant still present after removal")
	}
}

func TestListAllVisibleDeduplicates(t *testing.T) {
	s, _, _ := newTestService()

	// Public event owned by alice: shows up as public AND owned for her.
	mine := mustCreate(t, s, actor(1, "alice"), createRequest(TypePublic))
	other := mustCreate(t, s, actor(2, "bob"), createRequest(TypePublic))
	hidden := mustCreate(t, s, actor(2, "bob"), createRequest(TypePrivate))

	visible, err := s.ListAllVisible(context.Background(), actor(1, "alice"))
	if err != nil {
		t.Fatalf("ListAllVisible returned error: %v", err)
	}

	seen := map[int64]int{}
	for _, e := range visible {
		seen[e.ID]++
	}
	if seen[mine.ID] != 1 {
		t.Errorf("own public event appeared %d times, want 1", seen[mine.ID])
	}
	if seen[other.ID] != 1 {
		t.Errorf("other public event appeared %d times, want 1", seen[other.ID])
	}
	if seen[hidden.ID] != 0 {
		t.Error("private event of another user leaked into visible list")
	}
}

func TestOccurrencesExpandRecurrence(t *testing.T) {
	s, _, _ := newTestService()

	req := createRequest(TypePublic)
	req.IsRecurring = true
	req.Recurrence = &RecurrenceRule{Frequency: recur.FrequencyWeekly, Interval: 4}
	e := mustCreate(t, s, actor(1, "alice"), req)

	occurrences, err := s.Occurrences(context.Background(), actor(1, "alice"), e.ID)
	if err != nil {
		t.Fatalf("Occurrences returned error: %v", err)
	}
	if len(occurrences) != 4 {
		t.Fatalf("occurrences = %d, want 4", len(occurrences))
	}
	if !occurrences[0].Start.Equal(e.StartDateTime) {
		t.Error("first occurrence is not the original start")
	}
	for i := 1; i < len(occurrences); i++ {
		if !occurrences[i].Generated {
			t.Errorf("occurrence %d not marked generated", i)
		}
	}
}

func TestOccurrencesSingleForNonRecurring(t *testing.T) {
	s, _, _ := newTestService()
	e := mustCreate(t, s, actor(1, "alice"), createRequest(TypePublic))

	occurrences, err := s.Occurrences(context.Background(), actor(1, "alice"), e.ID)
	if err != nil {
		t.Fatalf("Occurrences returned error: %v", err)
	}
	if len(occurrences) != 1 {
		t.Fatalf("occurrences = %d, want 1", len(occurrences))
	}
	if occurrences[0].Generated {
		t.Error("sole occurrence marked generated")
	}
}

func TestRoundTripCreateGet(t *testing.T) {
	s, _, _ := newTestService()

	req := createRequest(TypePrivate)
	req.Description = "retro notes"
	req.Location = &Location{Address: "1 Main St", City: "Lisbon", Country: "PT"}
	created := mustCreate(t, s, actor(1, "alice"), req)

	got, err := s.GetByID(context.Background(), actor(1, "alice"), created.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got.Title != req.Title || got.Description != req.Description || got.Type != req.Type {
		t.Error("fields do not match input")
	}
	if !got.StartDateTime.Equal(req.StartDateTime) || !got.EndDateTime.Equal(req.EndDateTime) {
		t.Error("time window does not match input")
	}
	if got.Location == nil || *got.Location != *req.Location {
		t.Error("location does not match input")
	}
}
