package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Progress is the derived weekly aggregate for one user.
type Progress struct {
	Presents int     `json:"presents"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
}

// RankRow is one cohort entry of the weekly ranking.
type RankRow struct {
	UserID   string  `json:"userId"`
	Presents int     `json:"presents"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
}

var (
	// ErrInvalidEventID rejects malformed event ids.
	ErrInvalidEventID = errors.New("eventId must be a valid UUID")
	// ErrInvalidStatus rejects statuses outside the enum.
	ErrInvalidStatus = errors.New("status must be present, absent or late")
)

const rankCacheKey = "edclub:weekly_rank"

// Store is the persistence surface the service needs.
type Store interface {
	Upsert(ctx context.Context, userID, eventID, status string) (Attendance, error)
	List(ctx context.Context, userID, eventID string) ([]Attendance, error)
	WeekTotals(ctx context.Context, userID string) (WeekTotals, error)
	CohortWeekTotals(ctx context.Context) ([]RankTotals, error)
}

// Service coordinates attendance submissions and the weekly aggregates.
// The ranking is cached in Redis for a short TTL since it is the hottest
// read and recomputes over the whole cohort.
type Service struct {
	repo     Store
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewService creates a service. cache may be nil; ranking then always
// recomputes from Postgres.
func NewService(repo Store, cache *redis.Client, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &Service{repo: repo, cache: cache, cacheTTL: cacheTTL}
}

// Submit validates and records a status for (caller, event).
func (s *Service) Submit(ctx context.Context, userID, eventID, status string) (Attendance, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return Attendance{}, ErrInvalidEventID
	}
	if !ValidStatus(status) {
		return Attendance{}, ErrInvalidStatus
	}
	att, err := s.repo.Upsert(ctx, userID, eventID, status)
	if err != nil {
		return Attendance{}, err
	}
	s.invalidateRank(ctx)
	return att, nil
}

// List returns the caller's records, optionally filtered by event.
func (s *Service) List(ctx context.Context, userID, eventID string) ([]Attendance, error) {
	if eventID != "" {
		if _, err := uuid.Parse(eventID); err != nil {
			return nil, ErrInvalidEventID
		}
	}
	return s.repo.List(ctx, userID, eventID)
}

// Progress returns the caller's weekly aggregate, zeroed when no rows exist.
func (s *Service) Progress(ctx context.Context, userID string) (Progress, error) {
	totals, err := s.repo.WeekTotals(ctx, userID)
	if err != nil {
		return Progress{}, err
	}
	return Progress{
		Presents: totals.Presents,
		Total:    totals.Total,
		Percent:  percent(totals.Presents, totals.Total),
	}, nil
}

// Rank returns the cohort ranking ordered by percent desc, presents desc,
// then user id asc.
func (s *Service) Rank(ctx context.Context) ([]RankRow, error) {
	if cached, ok := s.cachedRank(ctx); ok {
		return cached, nil
	}
	totals, err := s.repo.CohortWeekTotals(ctx)
	if err != nil {
		return nil, err
	}
	rank := BuildRank(totals)
	s.storeRank(ctx, rank)
	return rank, nil
}

// BuildRank derives display rows from raw cohort totals and applies the
// ordering rule.
func BuildRank(totals []RankTotals) []RankRow {
	rank := make([]RankRow, 0, len(totals))
	for _, t := range totals {
		rank = append(rank, RankRow{
			UserID:   t.UserID,
			Presents: t.Presents,
			Total:    t.Total,
			Percent:  percent(t.Presents, t.Total),
		})
	}
	sort.Slice(rank, func(i, j int) bool {
		if rank[i].Percent != rank[j].Percent {
			return rank[i].Percent > rank[j].Percent
		}
		if rank[i].Presents != rank[j].Presents {
			return rank[i].Presents > rank[j].Presents
		}
		return rank[i].UserID < rank[j].UserID
	})
	return rank
}

// ValidStatus reports whether status is inside the enum.
func ValidStatus(status string) bool {
	switch status {
	case "present", "absent", "late":
		return true
	}
	return false
}

// percent derives a display percentage clamped to [0, 100].
func percent(presents, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := math.Round(100 * float64(presents) / float64(total))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func (s *Service) cachedRank(ctx context.Context) ([]RankRow, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, rankCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var rank []RankRow
	if err := json.Unmarshal(raw, &rank); err != nil {
		return nil, false
	}
	return rank, true
}

func (s *Service) storeRank(ctx context.Context, rank []RankRow) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(rank)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, rankCacheKey, raw, s.cacheTTL).Err(); err != nil {
		log.Printf("rank cache store failed: %v", err)
	}
}

func (s *Service) invalidateRank(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, rankCacheKey).Err(); err != nil {
		log.Printf("rank cache invalidate failed: %v", err)
	}
}
