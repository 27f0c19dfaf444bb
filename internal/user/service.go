package user

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/khaledm/eventide/pkg/token"
	"github.com/khaledm/eventide/pkg/validate"
)

// Common errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already in use")
	ErrEmailAlreadyInUse  = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserBlocked        = errors.New("account is blocked")
)

// Store is the persistence surface the service needs. *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, search string, limit, offset int) ([]*User, int, error)
	UpdateProfile(ctx context.Context, id int64, email, phone, passwordHash *string) (*User, error)
	SetBlocked(ctx context.Context, id int64, blocked bool) (*User, error)
	Delete(ctx context.Context, id int64) error
}

// Service handles account business logic
type Service struct {
	store      Store
	tokens     *token.Manager
	bcryptCost int
	log        zerolog.Logger
}

// NewService creates a new user service
func NewService(store Store, tokens *token.Manager, bcryptCost int, log zerolog.Logger) *Service {
	return &Service{store: store, tokens: tokens, bcryptCost: bcryptCost, log: log}
}

// Register creates a new account with the user role
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	errs := validate.Errors{}
	errs.Require("username", req.Username)
	errs.Require("email", req.Email)
	errs.Require("phone", req.Phone)
	errs.Require("password", req.Password)
	if errs.Any() {
		return nil, errs
	}

	if existing, err := s.store.GetByUsername(ctx, req.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}

	if existing, err := s.store.GetByEmail(ctx, req.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailAlreadyInUse
	}

	hash, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, &User{
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         RoleUser,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return created, nil
}

// Login verifies credentials and issues a bearer token
func (s *Service) Login(ctx context.Context, req *LoginRequest) (string, *User, error) {
	u, err := s.store.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return "", nil, err
	}
	if u == nil || !CheckPassword(u.PasswordHash, req.Password) {
		// Same error for unknown user and bad password
		return "", nil, ErrInvalidCredentials
	}
	if u.IsBlocked {
		return "", nil, ErrUserBlocked
	}

	signed, err := s.tokens.Sign(token.Identity{
		UserID:   u.ID,
		Username: u.Username,
		Role:     string(u.Role),
	})
	if err != nil {
		return "", nil, err
	}

	return signed, u, nil
}

// GetByID retrieves a user by their ID
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// UpdateProfile applies an allow-listed patch to the actor's own profile
func (s *Service) UpdateProfile(ctx context.Context, actorID int64, req *UpdateProfileRequest) (*User, error) {
	existing, err := s.store.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrUserNotFound
	}

	if req.Email != nil && !strings.EqualFold(*req.Email, existing.Email) {
		inUse, err := s.store.GetByEmail(ctx, *req.Email)
		if err != nil {
			return nil, err
		}
		if inUse != nil {
			return nil, ErrEmailAlreadyInUse
		}
	}

	var passwordHash *string
	if req.Password != nil {
		hash, err := HashPassword(*req.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		passwordHash = &hash
	}

	return s.store.UpdateProfile(ctx, actorID, req.Email, req.Phone, passwordHash)
}

// List retrieves users with pagination and optional username search (admin)
func (s *Service) List(ctx context.Context, search string, page, perPage int) ([]*User, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.store.List(ctx, search, perPage, offset)
}

// SetBlocked blocks or unblocks an account (admin)
func (s *Service) SetBlocked(ctx context.Context, id int64, blocked bool) (*User, error) {
	u, err := s.store.SetBlocked(ctx, id, blocked)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	s.log.Info().Int64("user_id", id).Bool("blocked", blocked).Msg("user block state changed")
	return u, nil
}

// Delete removes an account (admin or delete-request processing)
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}
