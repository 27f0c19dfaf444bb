package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/khaledm/eventide/pkg/token"
	"github.com/khaledm/eventide/pkg/validate"
)

type fakeStore struct {
	users  map[int64]*User
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*User), nextID: 1}
}

func (f *fakeStore) Create(ctx context.Context, u *User) (*User, error) {
	cp := *u
	cp.ID = f.nextID
	cp.CreatedAt = time.Now()
	f.nextID++
	f.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) List(ctx context.Context, search string, limit, offset int) ([]*User, int, error) {
	var out []*User
	for _, u := range f.users {
		if search == "" || strings.Contains(strings.ToLower(u.Username), strings.ToLower(search)) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) UpdateProfile(ctx context.Context, id int64, email, phone, passwordHash *string) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	if email != nil {
		u.Email = *email
	}
	if phone != nil {
		u.Phone = *phone
	}
	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) SetBlocked(ctx context.Context, id int64, blocked bool) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	u.IsBlocked = blocked
	cp := *u
	return &cp, nil
}

func (f *fakeStore) Delete(ctx context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	tokens := token.NewManager("test-secret", time.Hour)
	return NewService(store, tokens, 4, zerolog.Nop()), store
}

func registerReq(username, email string) *RegisterRequest {
	return &RegisterRequest{
		Username: username,
		Email:    email,
		Phone:    "+100000000",
		Password: "hunter22",
	}
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, registerReq("alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if u.Role != RoleUser {
		t.Errorf("expected user role, got %s", u.Role)
	}
	if u.PasswordHash == "hunter22" {
		t.Error("password stored in plaintext")
	}
	if !CheckPassword(u.PasswordHash, "hunter22") {
		t.Error("stored hash does not verify against the original password")
	}
}

func TestRegisterMissingFields(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(context.Background(), &RegisterRequest{Username: "alice"})
	var errs validate.Errors
	if !errors.As(err, &errs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	for _, field := range []string{"email", "phone", "password"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("expected validation error for %s", field)
		}
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, registerReq("alice", "alice@example.com")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := svc.Register(ctx, registerReq("ALICE", "other@example.com")); err != ErrUsernameTaken {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, registerReq("alice", "alice@example.com")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := svc.Register(ctx, registerReq("bob", "Alice@Example.com")); err != ErrEmailAlreadyInUse {
		t.Errorf("expected ErrEmailAlreadyInUse, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, registerReq("alice", "alice@example.com")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	signed, u, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if signed == "" {
		t.Error("expected a signed token")
	}
	if u.Username != "alice" {
		t.Errorf("expected alice, got %s", u.Username)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, registerReq("alice", "alice@example.com")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, _, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "wrong"}); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newTestService()

	if _, _, err := svc.Login(context.Background(), &LoginRequest{Username: "ghost", Password: "x"}); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginBlockedUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, registerReq("alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := svc.SetBlocked(ctx, u.ID, true); err != nil {
		t.Fatalf("SetBlocked failed: %v", err)
	}

	if _, _, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "hunter22"}); err != ErrUserBlocked {
		t.Errorf("expected ErrUserBlocked, got %v", err)
	}
}

func TestUnblockRestoresLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, registerReq("alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := svc.SetBlocked(ctx, u.ID, true); err != nil {
		t.Fatalf("SetBlocked failed: %v", err)
	}
	if _, err := svc.SetBlocked(ctx, u.ID, false); err != nil {
		t.Fatalf("SetBlocked failed: %v", err)
	}

	if _, _, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "hunter22"}); err != nil {
		t.Errorf("expected login to succeed after unblock, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, registerReq("alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	email := "new@example.com"
	phone := "+200000000"
	updated, err := svc.UpdateProfile(ctx, u.ID, &UpdateProfileRequest{Email: &email, Phone: &phone})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Email != email || updated.Phone != phone {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.Username != "alice" {
		t.Error("username must not change via profile update")
	}
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, registerReq("alice", "alice@example.com")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	bob, err := svc.Register(ctx, registerReq("bob", "bob@example.com"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	email := "alice@example.com"
	if _, err := svc.UpdateProfile(ctx, bob.ID, &UpdateProfileRequest{Email: &email}); err != ErrEmailAlreadyInUse {
		t.Errorf("expected ErrEmailAlreadyInUse, got %v", err)
	}
}

func TestUpdateProfilePasswordRehash(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, registerReq("alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	pw := "newpassword"
	if _, err := svc.UpdateProfile(ctx, u.ID, &UpdateProfileRequest{Password: &pw}); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	stored := store.users[u.ID]
	if !CheckPassword(stored.PasswordHash, pw) {
		t.Error("new password does not verify")
	}
	if CheckPassword(stored.PasswordHash, "hunter22") {
		t.Error("old password still verifies")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.GetByID(context.Background(), 42); err != ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSetBlockedNotFound(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.SetBlocked(context.Background(), 42, true); err != ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
