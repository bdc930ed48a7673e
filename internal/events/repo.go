package events

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Event is an agenda entry. TeamID is an optional grouping.
type Event struct {
	ID       string    `json:"id"`
	TeamID   *string   `json:"teamId"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
}

// Repository persists events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns events ordered by start time, optionally filtered by team.
func (r *Repository) List(ctx context.Context, teamID string) ([]Event, error) {
	query := `SELECT id, team_id, title, starts_at, ends_at FROM events`
	args := []any{}
	if teamID != "" {
		query += ` WHERE team_id = $1`
		args = append(args, teamID)
	}
	query += ` ORDER BY starts_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Upcoming returns the next events starting at or after now.
func (r *Repository) Upcoming(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, team_id, title, starts_at, ends_at
		FROM events
		WHERE starts_at >= NOW()
		ORDER BY starts_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Insert writes a new event and returns the stored row.
func (r *Repository) Insert(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO events (id, team_id, title, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, team_id, title, starts_at, ends_at
	`, evt.ID, evt.TeamID, evt.Title, evt.StartsAt, evt.EndsAt)
	var out Event
	if err := row.Scan(&out.ID, &out.TeamID, &out.Title, &out.StartsAt, &out.EndsAt); err != nil {
		return Event{}, err
	}
	return out, nil
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var res []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.TeamID, &evt.Title, &evt.StartsAt, &evt.EndsAt); err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}
