package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEmptyTitle rejects blank event titles.
	ErrEmptyTitle = errors.New("title must not be empty")
	// ErrInvalidTimeRange rejects events that end before they start.
	ErrInvalidTimeRange = errors.New("startsAt must not be after endsAt")
	// ErrInvalidTeamID rejects malformed team ids.
	ErrInvalidTeamID = errors.New("teamId must be a valid UUID")
)

// EventStore is the persistence surface the service needs.
type EventStore interface {
	List(ctx context.Context, teamID string) ([]Event, error)
	Upcoming(ctx context.Context, limit int) ([]Event, error)
	Insert(ctx context.Context, evt Event) (Event, error)
}

// Service validates and records agenda events.
type Service struct {
	repo EventStore
}

// NewService creates a service backed by a repository.
func NewService(repo EventStore) *Service {
	return &Service{repo: repo}
}

// List returns the agenda, optionally scoped to one team.
func (s *Service) List(ctx context.Context, teamID string) ([]Event, error) {
	if teamID != "" {
		if _, err := uuid.Parse(teamID); err != nil {
			return nil, ErrInvalidTeamID
		}
	}
	return s.repo.List(ctx, teamID)
}

// Upcoming returns the next events for the profile dashboard.
func (s *Service) Upcoming(ctx context.Context, limit int) ([]Event, error) {
	return s.repo.Upcoming(ctx, limit)
}

// Create validates and inserts a teacher-authored event.
func (s *Service) Create(ctx context.Context, teamID, title string, startsAt, endsAt time.Time) (Event, error) {
	if strings.TrimSpace(title) == "" {
		return Event{}, ErrEmptyTitle
	}
	if startsAt.After(endsAt) {
		return Event{}, ErrInvalidTimeRange
	}
	evt := Event{Title: title, StartsAt: startsAt, EndsAt: endsAt}
	if teamID != "" {
		if _, err := uuid.Parse(teamID); err != nil {
			return Event{}, ErrInvalidTeamID
		}
		evt.TeamID = &teamID
	}
	return s.repo.Insert(ctx, evt)
}
