package event

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/khaledm/eventide/internal/event/recur"
)

// Repository handles event data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new event repository with database dependency injected
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const eventColumns = `
	id, title, description, type, start_date_time, end_date_time, owner_id,
	location_address, location_city, location_country,
	is_recurring, recur_frequency, recur_interval, recur_end_date,
	series_id, created_at
`

// Create inserts an event and its initial participant set in one transaction
func (r *Repository) Create(ctx context.Context, e *Event) (*Event, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO events (
			title, description, type, start_date_time, end_date_time, owner_id,
			location_address, location_city, location_country,
			is_recurring, recur_frequency, recur_interval, recur_end_date, series_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	var locAddress, locCity, locCountry *string
	if e.Location != nil {
		locAddress, locCity, locCountry = &e.Location.Address, &e.Location.City, &e.Location.Country
	}

	var recurFrequency *string
	var recurInterval *int
	var recurEndDate interface{}
	if e.Recurrence != nil {
		f := string(e.Recurrence.Frequency)
		recurFrequency = &f
		recurInterval = &e.Recurrence.Interval
		if e.Recurrence.EndDate != nil {
			recurEndDate = *e.Recurrence.EndDate
		}
	}

	var id int64
	err = tx.QueryRowContext(ctx, query,
		e.Title, e.Description, e.Type, e.StartDateTime, e.EndDateTime, e.OwnerID,
		locAddress, locCity, locCountry,
		e.IsRecurring, recurFrequency, recurInterval, recurEndDate, e.SeriesID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	for _, m := range e.Participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_participants (event_id, user_id) VALUES ($1, $2)`,
			id, m.UserID,
		); err != nil {
			return nil, fmt.Errorf("failed to add participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit event: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID retrieves an event with its participants and invitations
func (r *Repository) GetByID(ctx context.Context, id int64) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	e, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if err := r.loadMembers(ctx, []*Event{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// ListByOwner retrieves events owned by the given user
func (r *Repository) ListByOwner(ctx context.Context, ownerID int64) ([]*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE owner_id = $1 ORDER BY start_date_time`
	return r.list(ctx, query, ownerID)
}

// ListByParticipant retrieves events where the user is in the participant set
func (r *Repository) ListByParticipant(ctx context.Context, userID int64) ([]*Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id IN (SELECT event_id FROM event_participants WHERE user_id = $1)
		ORDER BY start_date_time
	`
	return r.list(ctx, query, userID)
}

// ListPublic retrieves all public events
func (r *Repository) ListPublic(ctx context.Context) ([]*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE type = 'public' ORDER BY start_date_time`
	return r.list(ctx, query)
}

// ListAll retrieves every event
func (r *Repository) ListAll(ctx context.Context) ([]*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY start_date_time`
	return r.list(ctx, query)
}

// Update applies the allow-listed patch fields
func (r *Repository) Update(ctx context.Context, id int64, req *UpdateEventRequest) (*Event, error) {
	var locAddress, locCity, locCountry *string
	if req.Location != nil {
		locAddress, locCity, locCountry = &req.Location.Address, &req.Location.City, &req.Location.Country
	}

	var recurFrequency *string
	var recurInterval *int
	var recurEndDate interface{}
	if req.Recurrence != nil {
		f := string(req.Recurrence.Frequency)
		recurFrequency = &f
		recurInterval = &req.Recurrence.Interval
		if req.Recurrence.EndDate != nil {
			recurEndDate = *req.Recurrence.EndDate
		}
	}

	query := `
		UPDATE events
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    type = COALESCE($4, type),
		    start_date_time = COALESCE($5, start_date_time),
		    end_date_time = COALESCE($6, end_date_time),
		    location_address = COALESCE($7, location_address),
		    location_city = COALESCE($8, location_city),
		    location_country = COALESCE($9, location_country),
		    is_recurring = COALESCE($10, is_recurring),
		    recur_frequency = COALESCE($11, recur_frequency),
		    recur_interval = COALESCE($12, recur_interval),
		    recur_end_date = COALESCE($13, recur_end_date)
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id,
		req.Title, req.Description, req.Type, req.StartDateTime, req.EndDateTime,
		locAddress, locCity, locCountry,
		req.IsRecurring, recurFrequency, recurInterval, recurEndDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// Delete removes an event; membership rows cascade via FK
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// AddParticipant appends a user id to the participant set
func (r *Repository) AddParticipant(ctx context.Context, eventID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_participants (event_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// RemoveParticipant removes a user id from the participant set
func (r *Repository) RemoveParticipant(ctx context.Context, eventID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM event_participants WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return nil
}

// AddInvitation records a pending invitation
func (r *Repository) AddInvitation(ctx context.Context, eventID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_invitations (event_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to add invitation: %w", err)
	}
	return nil
}

// RemoveInvitation discards a pending invitation
func (r *Repository) RemoveInvitation(ctx context.Context, eventID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM event_invitations WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove invitation: %w", err)
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	if err := r.loadMembers(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// loadMembers populates participants and invitations for a batch of events
// with one query per membership table.
func (r *Repository) loadMembers(ctx context.Context, events []*Event) error {
	if len(events) == 0 {
		return nil
	}

	byID := make(map[int64]*Event, len(events))
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		e.Participants = []Member{}
		e.Invitations = []Member{}
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}

	load := func(table string, assign func(e *Event, m Member)) error {
		query := fmt.Sprintf(`
			SELECT m.event_id, m.user_id, u.username
			FROM %s m
			JOIN users u ON u.id = m.user_id
			WHERE m.event_id = ANY($1)
			ORDER BY m.event_id, m.user_id
		`, table)

		rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", table, err)
		}
		defer rows.Close()

		for rows.Next() {
			var eventID int64
			var m Member
			if err := rows.Scan(&eventID, &m.UserID, &m.Username); err != nil {
				return fmt.Errorf("failed to scan %s: %w", table, err)
			}
			if e, ok := byID[eventID]; ok {
				assign(e, m)
			}
		}
		return rows.Err()
	}

	if err := load("event_participants", func(e *Event, m Member) {
		e.Participants = append(e.Participants, m)
	}); err != nil {
		return err
	}
	return load("event_invitations", func(e *Event, m Member) {
		e.Invitations = append(e.Invitations, m)
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*Event, error) {
	e := &Event{}
	var locAddress, locCity, locCountry sql.NullString
	var recurFrequency sql.NullString
	var recurInterval sql.NullInt64
	var recurEndDate sql.NullTime

	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Type, &e.StartDateTime, &e.EndDateTime, &e.OwnerID,
		&locAddress, &locCity, &locCountry,
		&e.IsRecurring, &recurFrequency, &recurInterval, &recurEndDate,
		&e.SeriesID, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if locAddress.Valid || locCity.Valid || locCountry.Valid {
		e.Location = &Location{
			Address: locAddress.String,
			City:    locCity.String,
			Country: locCountry.String,
		}
	}
	if recurFrequency.Valid {
		rule := &RecurrenceRule{
			Frequency: recur.Frequency(recurFrequency.String),
			Interval:  int(recurInterval.Int64),
		}
		if recurEndDate.Valid {
			t := recurEndDate.Time
			rule.EndDate = &t
		}
		e.Recurrence = rule
	}

	return e, nil
}
