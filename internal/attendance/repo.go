package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Attendance is one record per (user, event) pair.
type Attendance struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// WeekTotals is the raw weekly aggregate before percent derivation.
type WeekTotals struct {
	Presents int
	Total    int
}

// RankTotals is one cohort row of the weekly aggregate.
type RankTotals struct {
	UserID   string
	Presents int
	Total    int
}

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Upsert records a status for (user, event). The unique constraint makes a
// second submission update the existing row instead of duplicating it, so
// concurrent submissions cannot race an existence check.
func (r *Repository) Upsert(ctx context.Context, userID, eventID, status string) (Attendance, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendances (id, event_id, user_id, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, event_id) DO UPDATE SET status = EXCLUDED.status
		RETURNING id, event_id, user_id, status, created_at
	`, uuid.NewString(), eventID, userID, status)
	var att Attendance
	if err := row.Scan(&att.ID, &att.EventID, &att.UserID, &att.Status, &att.CreatedAt); err != nil {
		return Attendance{}, err
	}
	return att, nil
}

// List returns the user's records newest first, optionally for one event.
func (r *Repository) List(ctx context.Context, userID, eventID string) ([]Attendance, error) {
	query := `
		SELECT id, event_id, user_id, status, created_at
		FROM attendances
		WHERE user_id = $1`
	args := []any{userID}
	if eventID != "" {
		query += ` AND event_id = $2`
		args = append(args, eventID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Attendance
	for rows.Next() {
		var att Attendance
		if err := rows.Scan(&att.ID, &att.EventID, &att.UserID, &att.Status, &att.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, att)
	}
	return res, rows.Err()
}

// WeekTotals aggregates the user's records within the current week.
func (r *Repository) WeekTotals(ctx context.Context, userID string) (WeekTotals, error) {
	var t WeekTotals
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'present'), COUNT(*)
		FROM attendances
		WHERE user_id = $1 AND created_at >= date_trunc('week', NOW())
	`, userID).Scan(&t.Presents, &t.Total)
	return t, err
}

// CohortWeekTotals aggregates the current week per user across the cohort.
func (r *Repository) CohortWeekTotals(ctx context.Context) ([]RankTotals, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, COUNT(*) FILTER (WHERE status = 'present'), COUNT(*)
		FROM attendances
		WHERE created_at >= date_trunc('week', NOW())
		GROUP BY user_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []RankTotals
	for rows.Next() {
		var t RankTotals
		if err := rows.Scan(&t.UserID, &t.Presents, &t.Total); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
