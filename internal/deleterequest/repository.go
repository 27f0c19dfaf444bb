package deleterequest

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository handles delete-request persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new delete-request repository with database dependency injected
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new pending request. A partial unique index on
// (user_id) WHERE status = 'pending' backs the one-pending-per-user rule.
func (r *Repository) Create(ctx context.Context, d *DeleteRequest) (*DeleteRequest, error) {
	query := `
		INSERT INTO delete_requests (user_id, username, status, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, username, requested_at, status, reason
	`

	created := &DeleteRequest{}
	err := r.db.QueryRowContext(ctx, query, d.UserID, d.Username, d.Status, d.Reason).Scan(
		&created.ID,
		&created.UserID,
		&created.Username,
		&created.RequestedAt,
		&created.Status,
		&created.Reason,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create delete request: %w", err)
	}

	return created, nil
}

// GetByID retrieves a request by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*DeleteRequest, error) {
	query := `
		SELECT id, user_id, username, requested_at, status, reason
		FROM delete_requests
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "get delete request")
}

// GetPendingByUser retrieves the user's pending request, if any
func (r *Repository) GetPendingByUser(ctx context.Context, userID int64) (*DeleteRequest, error) {
	query := `
		SELECT id, user_id, username, requested_at, status, reason
		FROM delete_requests
		WHERE user_id = $1 AND status = 'pending'
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID), "get pending delete request")
}

// List retrieves requests with pagination; an empty status means all
func (r *Repository) List(ctx context.Context, status Status, limit, offset int) ([]*DeleteRequest, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM delete_requests WHERE ($1 = '' OR status = $1)`
	if err := r.db.QueryRowContext(ctx, countQuery, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count delete requests: %w", err)
	}

	query := `
		SELECT id, user_id, username, requested_at, status, reason
		FROM delete_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY requested_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list delete requests: %w", err)
	}
	defer rows.Close()

	var out []*DeleteRequest
	for rows.Next() {
		d := &DeleteRequest{}
		if err := rows.Scan(&d.ID, &d.UserID, &d.Username, &d.RequestedAt, &d.Status, &d.Reason); err != nil {
			return nil, 0, fmt.Errorf("failed to scan delete request: %w", err)
		}
		out = append(out, d)
	}

	return out, total, nil
}

// SetStatus transitions a request to the given status
func (r *Repository) SetStatus(ctx context.Context, id int64, status Status) (*DeleteRequest, error) {
	query := `
		UPDATE delete_requests
		SET status = $2
		WHERE id = $1
		RETURNING id, user_id, username, requested_at, status, reason
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, status), "set delete request status")
}

// PurgeReviewedBefore removes processed/rejected requests older than cutoff
func (r *Repository) PurgeReviewedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM delete_requests WHERE status <> 'pending' AND requested_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge delete requests: %w", err)
	}
	return result.RowsAffected()
}

func (r *Repository) scanOne(row *sql.Row, op string) (*DeleteRequest, error) {
	d := &DeleteRequest{}
	err := row.Scan(&d.ID, &d.UserID, &d.Username, &d.RequestedAt, &d.Status, &d.Reason)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return d, nil
}
