package badges

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Badge is a catalog entry joined with the target user's award timestamp.
// AwardedAt is nil while the badge is unearned.
type Badge struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Rule      *string    `json:"rule"`
	IconURL   *string    `json:"iconUrl"`
	AwardedAt *time.Time `json:"awardedAt"`
}

// Assignment records a badge granted to a user.
type Assignment struct {
	UserID    string    `json:"userId"`
	BadgeID   string    `json:"badgeId"`
	AwardedAt time.Time `json:"awardedAt"`
}

// ErrBadgeNotFound is returned when the catalog has no such badge.
var ErrBadgeNotFound = errors.New("badge not found")

// Repository persists the badge catalog and awards in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListForUser returns the full catalog ordered by name, joined with the
// target user's award timestamps.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]Badge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.name, b.rule, b.icon_url, ub.awarded_at
		FROM badges b
		LEFT JOIN user_badges ub ON ub.badge_id = b.id AND ub.user_id = $1
		ORDER BY b.name ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Badge
	for rows.Next() {
		var b Badge
		if err := rows.Scan(&b.ID, &b.Name, &b.Rule, &b.IconURL, &b.AwardedAt); err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

// Grant assigns a badge to a user. Re-granting is a no-op: the first
// awarded_at wins and the existing row is returned.
func (r *Repository) Grant(ctx context.Context, userID, badgeID string) (Assignment, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_badges (user_id, badge_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`, userID, badgeID)
	if err != nil {
		return Assignment{}, err
	}
	var a Assignment
	err = r.db.QueryRowContext(ctx, `
		SELECT user_id, badge_id, awarded_at
		FROM user_badges
		WHERE user_id = $1 AND badge_id = $2
	`, userID, badgeID).Scan(&a.UserID, &a.BadgeID, &a.AwardedAt)
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// CountAwarded returns how many badges a user has earned.
func (r *Repository) CountAwarded(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_badges WHERE user_id = $1
	`, userID).Scan(&n)
	return n, err
}

// BadgeIDByName resolves a catalog entry by its unique name.
func (r *Repository) BadgeIDByName(ctx context.Context, name string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM badges WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrBadgeNotFound
	}
	return id, err
}

// SetIcon stores the uploaded icon URL for a badge.
func (r *Repository) SetIcon(ctx context.Context, badgeID, iconURL string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE badges SET icon_url = $2 WHERE id = $1`, badgeID, iconURL)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrBadgeNotFound
	}
	return nil
}
