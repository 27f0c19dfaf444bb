package deleterequest

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/khaledm/eventide/internal/user"
	"github.com/khaledm/eventide/pkg/token"
)

// Common errors
var (
	ErrRequestNotFound = errors.New("delete request not found")
	ErrRequestExists   = errors.New("a pending delete request already exists for this user")
	ErrNotPending      = errors.New("delete request has already been reviewed")
)

// purgeAge is how long reviewed requests are kept before the nightly purge
// removes them.
const purgeAge = 30 * 24 * time.Hour

// Store is the persistence surface the service needs. *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, d *DeleteRequest) (*DeleteRequest, error)
	GetByID(ctx context.Context, id int64) (*DeleteRequest, error)
	GetPendingByUser(ctx context.Context, userID int64) (*DeleteRequest, error)
	List(ctx context.Context, status Status, limit, offset int) ([]*DeleteRequest, int, error)
	SetStatus(ctx context.Context, id int64, status Status) (*DeleteRequest, error)
	PurgeReviewedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Accounts is the slice of the user feature this service needs to execute a
// processed request. *user.Repository satisfies it.
type Accounts interface {
	Delete(ctx context.Context, id int64) error
}

// Service handles the delete-request review workflow
type Service struct {
	store    Store
	accounts Accounts
	log      zerolog.Logger
}

// NewService creates a new delete-request service
func NewService(store Store, accounts Accounts, log zerolog.Logger) *Service {
	return &Service{store: store, accounts: accounts, log: log}
}

// Create files a pending request for the actor. At most one pending request
// per user may exist.
func (s *Service) Create(ctx context.Context, actor *token.Identity, reason string) (*DeleteRequest, error) {
	existing, err := s.store.GetPendingByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRequestExists
	}

	return s.store.Create(ctx, &DeleteRequest{
		UserID:   actor.UserID,
		Username: actor.Username,
		Status:   StatusPending,
		Reason:   reason,
	})
}

// List returns requests with pagination, optionally filtered by status (admin)
func (s *Service) List(ctx context.Context, status Status, page, perPage int) ([]*DeleteRequest, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.store.List(ctx, status, perPage, offset)
}

// Process executes a pending request: the account is deleted and the request
// marked processed (admin)
func (s *Service) Process(ctx context.Context, id int64) (*DeleteRequest, error) {
	d, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrRequestNotFound
	}
	if d.Status != StatusPending {
		return nil, ErrNotPending
	}

	if err := s.accounts.Delete(ctx, d.UserID); err != nil && !errors.Is(err, user.ErrUserNotFound) {
		// An already-deleted account still counts as processed.
		return nil, err
	}

	processed, err := s.store.SetStatus(ctx, id, StatusProcessed)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("request_id", id).Int64("user_id", d.UserID).Msg("delete request processed")
	return processed, nil
}

// Reject declines a pending request without touching the account (admin)
func (s *Service) Reject(ctx context.Context, id int64) (*DeleteRequest, error) {
	d, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrRequestNotFound
	}
	if d.Status != StatusPending {
		return nil, ErrNotPending
	}

	return s.store.SetStatus(ctx, id, StatusRejected)
}

// PurgeOld removes reviewed requests older than the retention window. Wired
// to the nightly cron schedule.
func (s *Service) PurgeOld(ctx context.Context) {
	cutoff := time.Now().Add(-purgeAge)
	n, err := s.store.PurgeReviewedBefore(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("delete request purge failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("purged", n).Msg("purged reviewed delete requests")
	}
}
