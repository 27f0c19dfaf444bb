package series

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/khaledm/eventide/internal/event/recur"
)

// Repository handles series data persistence. The starting/ending templates
// are stored as JSONB documents; everything else is flat columns.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new series repository with database dependency injected
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const seriesColumns = `
	id, name, creator_id, series_type, is_indefinite,
	starting_event, ending_event, recur_frequency, recur_end_date,
	event_ids, created_at
`

// Create inserts a new series
func (r *Repository) Create(ctx context.Context, s *Series) (*Series, error) {
	starting, err := json.Marshal(s.StartingEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to encode starting template: %w", err)
	}

	var ending []byte
	if s.EndingEvent != nil {
		if ending, err = json.Marshal(s.EndingEvent); err != nil {
			return nil, fmt.Errorf("failed to encode ending template: %w", err)
		}
	}

	var recurFrequency *string
	var recurEndDate interface{}
	if s.Recurrence != nil {
		f := string(s.Recurrence.Frequency)
		recurFrequency = &f
		if s.Recurrence.EndDate != nil {
			recurEndDate = *s.Recurrence.EndDate
		}
	}

	query := `
		INSERT INTO event_series (
			name, creator_id, series_type, is_indefinite,
			starting_event, ending_event, recur_frequency, recur_end_date, event_ids
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + seriesColumns

	return scanSeries(r.db.QueryRowContext(ctx, query,
		s.Name, s.CreatorID, s.SeriesType, s.IsIndefinite,
		starting, ending, recurFrequency, recurEndDate, pq.Array(s.EventIDs),
	))
}

// GetByID retrieves a series by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM event_series WHERE id = $1`

	s, err := scanSeries(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get series: %w", err)
	}
	return s, nil
}

// ListByCreator retrieves all series created by the given user
func (r *Repository) ListByCreator(ctx context.Context, creatorID int64) ([]*Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM event_series WHERE creator_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	defer rows.Close()

	var out []*Series
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update applies the allow-listed patch fields
func (r *Repository) Update(ctx context.Context, id int64, req *UpdateSeriesRequest) (*Series, error) {
	var starting, ending []byte
	var err error
	if req.StartingEvent != nil {
		if starting, err = json.Marshal(req.StartingEvent); err != nil {
			return nil, fmt.Errorf("failed to encode starting template: %w", err)
		}
	}
	if req.EndingEvent != nil {
		if ending, err = json.Marshal(req.EndingEvent); err != nil {
			return nil, fmt.Errorf("failed to encode ending template: %w", err)
		}
	}

	var recurFrequency *string
	var recurEndDate interface{}
	if req.Recurrence != nil {
		f := string(req.Recurrence.Frequency)
		recurFrequency = &f
		if req.Recurrence.EndDate != nil {
			recurEndDate = *req.Recurrence.EndDate
		}
	}

	var eventIDs interface{}
	if req.EventIDs != nil {
		eventIDs = pq.Array(req.EventIDs)
	}

	query := `
		UPDATE event_series
		SET name = COALESCE($2, name),
		    is_indefinite = COALESCE($3, is_indefinite),
		    starting_event = COALESCE($4, starting_event),
		    ending_event = CASE WHEN $8::boolean IS TRUE THEN NULL ELSE COALESCE($5, ending_event) END,
		    recur_frequency = COALESCE($6, recur_frequency),
		    recur_end_date = COALESCE($7, recur_end_date),
		    event_ids = COALESCE($9, event_ids)
		WHERE id = $1
		RETURNING ` + seriesColumns

	s, err := scanSeries(r.db.QueryRowContext(ctx, query,
		id, req.Name, req.IsIndefinite, starting, ending,
		recurFrequency, recurEndDate, req.IsIndefinite != nil && *req.IsIndefinite, eventIDs,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update series: %w", err)
	}
	return s, nil
}

// Delete removes a series
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM event_series WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete series: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSeriesNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSeries(row rowScanner) (*Series, error) {
	s := &Series{}
	var starting []byte
	var ending []byte
	var recurFrequency sql.NullString
	var recurEndDate sql.NullTime

	err := row.Scan(
		&s.ID, &s.Name, &s.CreatorID, &s.SeriesType, &s.IsIndefinite,
		&starting, &ending, &recurFrequency, &recurEndDate,
		pq.Array(&s.EventIDs), &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(starting, &s.StartingEvent); err != nil {
		return nil, fmt.Errorf("failed to decode starting template: %w", err)
	}
	if len(ending) > 0 {
		s.EndingEvent = &Template{}
		if err := json.Unmarshal(ending, s.EndingEvent); err != nil {
			return nil, fmt.Errorf("failed to decode ending template: %w", err)
		}
	}
	if recurFrequency.Valid {
		rule := &RecurrenceRule{Frequency: recur.Frequency(recurFrequency.String)}
		if recurEndDate.Valid {
			t := recurEndDate.Time
			rule.EndDate = &t
		}
		s.Recurrence = rule
	}

	return s, nil
}
