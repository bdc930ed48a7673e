package events

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockEventStore struct {
	events []Event
}

func (m *mockEventStore) List(_ context.Context, teamID string) ([]Event, error) {
	var res []Event
	for _, e := range m.events {
		if teamID == "" || (e.TeamID != nil && *e.TeamID == teamID) {
			res = append(res, e)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].StartsAt.Before(res[j].StartsAt) })
	return res, nil
}

func (m *mockEventStore) Upcoming(_ context.Context, limit int) ([]Event, error) {
	all, _ := m.List(nil, "")
	var res []Event
	for _, e := range all {
		if !e.StartsAt.Before(time.Now()) {
			res = append(res, e)
		}
		if len(res) == limit {
			break
		}
	}
	return res, nil
}

func (m *mockEventStore) Insert(_ context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	m.events = append(m.events, evt)
	return evt, nil
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	svc := NewService(&mockEventStore{})
	now := time.Now()
	if _, err := svc.Create(context.Background(), "", "   ", now, now.Add(time.Hour)); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("err = %v, want ErrEmptyTitle", err)
	}
}

func TestCreateRejectsInvertedTimeRange(t *testing.T) {
	svc := NewService(&mockEventStore{})
	now := time.Now()
	if _, err := svc.Create(context.Background(), "", "Training", now.Add(time.Hour), now); !errors.Is(err, ErrInvalidTimeRange) {
		t.Errorf("err = %v, want ErrInvalidTimeRange", err)
	}
}

func TestCreateRejectsMalformedTeamID(t *testing.T) {
	svc := NewService(&mockEventStore{})
	now := time.Now()
	if _, err := svc.Create(context.Background(), "T1", "Training", now, now.Add(time.Hour)); !errors.Is(err, ErrInvalidTeamID) {
		t.Errorf("err = %v, want ErrInvalidTeamID", err)
	}
}

func TestCreateStoresTeam(t *testing.T) {
	store := &mockEventStore{}
	svc := NewService(store)
	now := time.Now()
	teamID := uuid.NewString()

	evt, err := svc.Create(context.Background(), teamID, "Training", now, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if evt.TeamID == nil || *evt.TeamID != teamID {
		t.Errorf("teamId = %v, want %q", evt.TeamID, teamID)
	}
	if evt.ID == "" {
		t.Error("expected generated id")
	}
}

func TestListFiltersByTeam(t *testing.T) {
	store := &mockEventStore{}
	svc := NewService(store)
	ctx := context.Background()
	now := time.Now()

	teamA, teamB := uuid.NewString(), uuid.NewString()
	if _, err := svc.Create(ctx, teamA, "A second", now.Add(2*time.Hour), now.Add(3*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, teamA, "A first", now, now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, teamB, "B only", now, now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	got, err := svc.List(ctx, teamA)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Ordered by start time ascending.
	if got[0].Title != "A first" || got[1].Title != "A second" {
		t.Errorf("order = %q, %q", got[0].Title, got[1].Title)
	}
}

func TestListRejectsMalformedTeamFilter(t *testing.T) {
	svc := NewService(&mockEventStore{})
	if _, err := svc.List(context.Background(), "nope"); !errors.Is(err, ErrInvalidTeamID) {
		t.Errorf("err = %v, want ErrInvalidTeamID", err)
	}
}
