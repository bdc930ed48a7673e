package badges

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"edclub/internal/attendance"
)

// Catalog names the worker grants automatically. Seeded with the catalog;
// missing entries are skipped.
const (
	BadgeFirstCheckin = "First Check-in"
	BadgePerfectWeek  = "Perfect Week"
)

var (
	// ErrInvalidUserID rejects malformed user ids.
	ErrInvalidUserID = errors.New("userId must be a valid UUID")
	// ErrInvalidBadgeID rejects malformed badge ids.
	ErrInvalidBadgeID = errors.New("badgeId must be a valid UUID")
)

// BadgeStore is the persistence surface the service needs.
type BadgeStore interface {
	ListForUser(ctx context.Context, userID string) ([]Badge, error)
	Grant(ctx context.Context, userID, badgeID string) (Assignment, error)
	CountAwarded(ctx context.Context, userID string) (int, error)
	BadgeIDByName(ctx context.Context, name string) (string, error)
	SetIcon(ctx context.Context, badgeID, iconURL string) error
}

// Service owns badge reads, teacher grants and automatic awards.
type Service struct {
	repo BadgeStore
}

// NewService creates a service backed by a repository.
func NewService(repo BadgeStore) *Service {
	return &Service{repo: repo}
}

// ListForUser returns the catalog with the target user's award state.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Badge, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrInvalidUserID
	}
	return s.repo.ListForUser(ctx, userID)
}

// Grant validates ids and upserts the assignment. Idempotent.
func (s *Service) Grant(ctx context.Context, userID, badgeID string) (Assignment, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return Assignment{}, ErrInvalidUserID
	}
	if _, err := uuid.Parse(badgeID); err != nil {
		return Assignment{}, ErrInvalidBadgeID
	}
	return s.repo.Grant(ctx, userID, badgeID)
}

// CountAwarded returns the user's earned-badge count for the profile view.
func (s *Service) CountAwarded(ctx context.Context, userID string) (int, error) {
	return s.repo.CountAwarded(ctx, userID)
}

// SetIcon stores an uploaded icon URL on a catalog entry.
func (s *Service) SetIcon(ctx context.Context, badgeID, iconURL string) error {
	if _, err := uuid.Parse(badgeID); err != nil {
		return ErrInvalidBadgeID
	}
	return s.repo.SetIcon(ctx, badgeID, iconURL)
}

// AutoAward grants rule-driven badges from the user's weekly progress and
// returns the names granted. Grants reuse the idempotent upsert, so
// re-processing the same user is harmless.
func (s *Service) AutoAward(ctx context.Context, userID string, progress attendance.Progress) ([]string, error) {
	var granted []string
	for _, name := range EligibleBadges(progress) {
		badgeID, err := s.repo.BadgeIDByName(ctx, name)
		if err != nil {
			if errors.Is(err, ErrBadgeNotFound) {
				log.Printf("auto award: badge %q not seeded, skipping", name)
				continue
			}
			return granted, err
		}
		if _, err := s.repo.Grant(ctx, userID, badgeID); err != nil {
			return granted, err
		}
		granted = append(granted, name)
	}
	return granted, nil
}

// EligibleBadges maps weekly progress to the automatic badge names it earns.
func EligibleBadges(progress attendance.Progress) []string {
	var names []string
	if progress.Total >= 1 {
		names = append(names, BadgeFirstCheckin)
	}
	if progress.Total >= 3 && progress.Percent >= 100 {
		names = append(names, BadgePerfectWeek)
	}
	return names
}
