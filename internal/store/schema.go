package store

import "context"

// schema is applied at startup; every statement is idempotent so repeated
// boots against the same database are safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('student', 'teacher')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGSERIAL PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		token TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS teams (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		team_id UUID,
		title TEXT NOT NULL,
		starts_at TIMESTAMPTZ NOT NULL,
		ends_at TIMESTAMPTZ NOT NULL,
		CHECK (starts_at <= ends_at)
	)`,
	`CREATE TABLE IF NOT EXISTS attendances (
		id UUID PRIMARY KEY,
		event_id UUID NOT NULL REFERENCES events(id),
		user_id UUID NOT NULL REFERENCES users(id),
		status TEXT NOT NULL CHECK (status IN ('present', 'absent', 'late')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, event_id)
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		content TEXT NOT NULL CHECK (char_length(content) BETWEEN 1 AND 500),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS badges (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		rule TEXT,
		icon_url TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS user_badges (
		user_id UUID NOT NULL REFERENCES users(id),
		badge_id UUID NOT NULL REFERENCES badges(id),
		awarded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, badge_id)
	)`,
	// Catalog entries the worker's automatic rules refer to by name.
	`INSERT INTO badges (id, name, rule) VALUES
		(gen_random_uuid(), 'First Check-in', 'Recorded at least one attendance this week'),
		(gen_random_uuid(), 'Perfect Week', 'Full presence across three or more events this week')
	ON CONFLICT (name) DO NOTHING`,
	`CREATE INDEX IF NOT EXISTS idx_attendances_week ON attendances (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_events_starts ON events (starts_at)`,
}

// Migrate applies the schema to the connected database.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
