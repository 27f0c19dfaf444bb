package user

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository handles user data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new user repository with database dependency injected
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user into the database
func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	query := `
		INSERT INTO users (username, email, phone, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, username, email, phone, password_hash, role, is_blocked, created_at
	`

	created := &User{}
	err := r.db.QueryRowContext(ctx, query, u.Username, u.Email, u.Phone, u.PasswordHash, u.Role).Scan(
		&created.ID,
		&created.Username,
		&created.Email,
		&created.Phone,
		&created.PasswordHash,
		&created.Role,
		&created.IsBlocked,
		&created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}

// GetByID retrieves a user by their ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, username, email, phone, password_hash, role, is_blocked, created_at
		FROM users
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "get user")
}

// GetByUsername retrieves a user by username, case-insensitively
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, email, phone, password_hash, role, is_blocked, created_at
		FROM users
		WHERE LOWER(username) = LOWER($1)
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, username), "get user by username")
}

// GetByEmail retrieves a user by their email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, username, email, phone, password_hash, role, is_blocked, created_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email), "get user by email")
}

// List retrieves users with pagination and an optional username substring filter
func (r *Repository) List(ctx context.Context, search string, limit, offset int) ([]*User, int, error) {
	pattern := "%" + search + "%"

	var total int
	countQuery := `SELECT COUNT(*) FROM users WHERE username ILIKE $1`
	if err := r.db.QueryRowContext(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `
		SELECT id, username, email, phone, password_hash, role, is_blocked, created_at
		FROM users
		WHERE username ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(
			&u.ID,
			&u.Username,
			&u.Email,
			&u.Phone,
			&u.PasswordHash,
			&u.Role,
			&u.IsBlocked,
			&u.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	return users, total, nil
}

// UpdateProfile updates the allow-listed profile fields
func (r *Repository) UpdateProfile(ctx context.Context, id int64, email, phone, passwordHash *string) (*User, error) {
	query := `
		UPDATE users
		SET email = COALESCE($2, email),
		    phone = COALESCE($3, phone),
		    password_hash = COALESCE($4, password_hash)
		WHERE id = $1
		RETURNING id, username, email, phone, password_hash, role, is_blocked, created_at
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, email, phone, passwordHash), "update user")
}

// SetBlocked flips the blocked flag on an account
func (r *Repository) SetBlocked(ctx context.Context, id int64, blocked bool) (*User, error) {
	query := `
		UPDATE users
		SET is_blocked = $2
		WHERE id = $1
		RETURNING id, username, email, phone, password_hash, role, is_blocked, created_at
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, blocked), "set blocked")
}

// Delete removes a user from the database; owned events cascade via FK
func (r *Repository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *Repository) scanOne(row *sql.Row, op string) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Phone,
		&u.PasswordHash,
		&u.Role,
		&u.IsBlocked,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return u, nil
}
