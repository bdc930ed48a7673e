package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"edclub/internal/attendance"
	"edclub/internal/auth"
	"edclub/internal/badges"
	"edclub/internal/config"
	"edclub/internal/events"
	"edclub/internal/posts"
	"edclub/internal/queue"
)

const (
	testSigningKey = "router-test-key"
	testIssuer     = "edclub"
)

type mockAuthService struct {
	user    auth.User
	session auth.Session
	err     error
}

func (m *mockAuthService) Register(context.Context, string, string, string) (auth.User, *auth.Session, error) {
	if m.err != nil {
		return auth.User{}, nil, m.err
	}
	return m.user, &m.session, nil
}

func (m *mockAuthService) Login(context.Context, string, string) (auth.User, auth.Session, error) {
	if m.err != nil {
		return auth.User{}, auth.Session{}, m.err
	}
	return m.user, m.session, nil
}

func (m *mockAuthService) Refresh(context.Context, string) (auth.Session, error) {
	if m.err != nil {
		return auth.Session{}, m.err
	}
	return m.session, nil
}

func (m *mockAuthService) UserByID(context.Context, string) (auth.User, error) {
	return m.user, m.err
}

type mockEventService struct {
	list    []events.Event
	created []events.Event
	err     error
}

func (m *mockEventService) List(context.Context, string) ([]events.Event, error) {
	return m.list, m.err
}

func (m *mockEventService) Upcoming(context.Context, int) ([]events.Event, error) {
	return m.list, m.err
}

func (m *mockEventService) Create(_ context.Context, teamID, title string, startsAt, endsAt time.Time) (events.Event, error) {
	if m.err != nil {
		return events.Event{}, m.err
	}
	evt := events.Event{ID: uuid.NewString(), TeamID: &teamID, Title: title, StartsAt: startsAt, EndsAt: endsAt}
	m.created = append(m.created, evt)
	return evt, nil
}

type mockAttendanceService struct {
	submitted []attendance.Attendance
	progress  attendance.Progress
	rank      []attendance.RankRow
	err       error
}

func (m *mockAttendanceService) Submit(_ context.Context, userID, eventID, status string) (attendance.Attendance, error) {
	if m.err != nil {
		return attendance.Attendance{}, m.err
	}
	att := attendance.Attendance{ID: uuid.NewString(), EventID: eventID, UserID: userID, Status: status, CreatedAt: time.Now()}
	m.submitted = append(m.submitted, att)
	return att, nil
}

func (m *mockAttendanceService) List(context.Context, string, string) ([]attendance.Attendance, error) {
	return m.submitted, m.err
}

func (m *mockAttendanceService) Progress(context.Context, string) (attendance.Progress, error) {
	return m.progress, m.err
}

func (m *mockAttendanceService) Rank(context.Context) ([]attendance.RankRow, error) {
	return m.rank, m.err
}

type mockBadgeService struct {
	listed  []string
	granted []badges.Assignment
	err     error
}

func (m *mockBadgeService) ListForUser(_ context.Context, userID string) ([]badges.Badge, error) {
	m.listed = append(m.listed, userID)
	return nil, m.err
}

func (m *mockBadgeService) Grant(_ context.Context, userID, badgeID string) (badges.Assignment, error) {
	if m.err != nil {
		return badges.Assignment{}, m.err
	}
	a := badges.Assignment{UserID: userID, BadgeID: badgeID, AwardedAt: time.Now()}
	m.granted = append(m.granted, a)
	return a, nil
}

func (m *mockBadgeService) CountAwarded(context.Context, string) (int, error) {
	return len(m.granted), m.err
}

func (m *mockBadgeService) SetIcon(context.Context, string, string) error {
	return m.err
}

type mockPostService struct {
	feed []posts.Post
	err  error
}

func (m *mockPostService) Feed(context.Context) ([]posts.Post, error) {
	return m.feed, m.err
}

func (m *mockPostService) Create(_ context.Context, userID, content string) (posts.Post, error) {
	if m.err != nil {
		return posts.Post{}, m.err
	}
	p := posts.Post{ID: uuid.NewString(), UserID: userID, Content: content, CreatedAt: time.Now()}
	m.feed = append([]posts.Post{p}, m.feed...)
	return p, nil
}

type testEnv struct {
	router *gin.Engine
	h      *Handlers
	queue  *queue.InMemory
}

func newTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)
	q := queue.NewInMemory(8)
	h := &Handlers{
		Auth:       &mockAuthService{},
		Events:     &mockEventService{},
		Attendance: &mockAttendanceService{},
		Badges:     &mockBadgeService{},
		Posts:      &mockPostService{},
		Queue:      q,
	}
	cfg := config.App{
		JWTIssuer:       testIssuer,
		JWTSigningKey:   testSigningKey,
		RateLimitPerMin: 1000,
	}
	return &testEnv{router: Setup(cfg, h, nil), h: h, queue: q}
}

func issueToken(t *testing.T, userID, role string) string {
	t.Helper()
	pair, err := auth.Issue(userID, role, testIssuer, testSigningKey, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return pair.AccessToken
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return body
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	env := newTestEnv()

	w := doJSON(t, env.router, http.MethodPost, "/api/attendance", "", gin.H{
		"eventId": uuid.NewString(),
		"status":  "present",
	})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "Missing Authorization header" {
		t.Errorf("error = %v", body["error"])
	}
	if len(env.h.Attendance.(*mockAttendanceService).submitted) != 0 {
		t.Error("unauthenticated request reached the service")
	}
}

func TestStudentCannotCreateEvent(t *testing.T) {
	env := newTestEnv()
	token := issueToken(t, uuid.NewString(), "student")

	w := doJSON(t, env.router, http.MethodPost, "/api/events", token, gin.H{
		"teamId":   uuid.NewString(),
		"title":    "Training",
		"startsAt": time.Now().Format(time.RFC3339),
		"endsAt":   time.Now().Add(time.Hour).Format(time.RFC3339),
	})

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "Only teachers can perform this action" {
		t.Errorf("error = %v", body["error"])
	}
	if len(env.h.Events.(*mockEventService).created) != 0 {
		t.Error("forbidden request created an event")
	}
}

func TestTeacherCreatesEvent(t *testing.T) {
	env := newTestEnv()
	token := issueToken(t, uuid.NewString(), "teacher")

	w := doJSON(t, env.router, http.MethodPost, "/api/events", token, gin.H{
		"teamId":   uuid.NewString(),
		"title":    "Training",
		"startsAt": time.Now().Format(time.RFC3339),
		"endsAt":   time.Now().Add(time.Hour).Format(time.RFC3339),
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(env.h.Events.(*mockEventService).created) != 1 {
		t.Error("event not created")
	}
}

func TestCreateEventRejectsBadTimestamp(t *testing.T) {
	env := newTestEnv()
	token := issueToken(t, uuid.NewString(), "teacher")

	w := doJSON(t, env.router, http.MethodPost, "/api/events", token, gin.H{
		"teamId":   uuid.NewString(),
		"title":    "Training",
		"startsAt": "yesterday",
		"endsAt":   time.Now().Format(time.RFC3339),
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "startsAt") {
		t.Errorf("expected startsAt field error, got %s", w.Body.String())
	}
}

func TestLoginReturnsUserAndSession(t *testing.T) {
	env := newTestEnv()
	mock := env.h.Auth.(*mockAuthService)
	mock.user = auth.User{ID: uuid.NewString(), Email: "a@x.com", Role: "student"}
	mock.session = auth.Session{AccessToken: "acc", RefreshToken: "ref", ExpiresAt: time.Now().Add(time.Hour).Unix()}

	w := doJSON(t, env.router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "a@x.com",
		"password": "secret1",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["user"] == nil || body["session"] == nil {
		t.Errorf("body = %v, want user and session", body)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv()
	env.h.Auth.(*mockAuthService).err = auth.ErrInvalidCredentials

	w := doJSON(t, env.router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "a@x.com",
		"password": "secret1",
	})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRegisterValidationErrors(t *testing.T) {
	env := newTestEnv()

	w := doJSON(t, env.router, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "not-an-email",
		"password": "123",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	got := w.Body.String()
	if !strings.Contains(got, "fieldErrors") || !strings.Contains(got, "email") || !strings.Contains(got, "password") {
		t.Errorf("body = %s, want field errors for email and password", got)
	}
}

func TestCreatePostRejectsOversizedContent(t *testing.T) {
	env := newTestEnv()
	token := issueToken(t, uuid.NewString(), "student")

	w := doJSON(t, env.router, http.MethodPost, "/api/posts", token, gin.H{
		"content": strings.Repeat("a", 501),
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "content") {
		t.Errorf("body = %s, want content field error", w.Body.String())
	}
}

func TestSubmitAttendancePublishesBadgeWork(t *testing.T) {
	env := newTestEnv()
	userID := uuid.NewString()
	token := issueToken(t, userID, "student")

	w := doJSON(t, env.router, http.MethodPost, "/api/attendance", token, gin.H{
		"eventId": uuid.NewString(),
		"status":  "present",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out, err := env.queue.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case msg := <-out:
		if msg.Type != queue.TypeAttendance {
			t.Errorf("type = %q", msg.Type)
		}
		if string(msg.Body) != userID {
			t.Errorf("body = %q, want caller id", msg.Body)
		}
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}
}

func TestListBadgesCrossUserRequiresTeacher(t *testing.T) {
	env := newTestEnv()
	token := issueToken(t, uuid.NewString(), "student")

	w := doJSON(t, env.router, http.MethodGet, "/api/badges?userId="+uuid.NewString(), token, nil)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if len(env.h.Badges.(*mockBadgeService).listed) != 0 {
		t.Error("forbidden lookup reached the service")
	}
}

func TestListBadgesDefaultsToCaller(t *testing.T) {
	env := newTestEnv()
	userID := uuid.NewString()
	token := issueToken(t, userID, "student")

	w := doJSON(t, env.router, http.MethodGet, "/api/badges", token, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	listed := env.h.Badges.(*mockBadgeService).listed
	if len(listed) != 1 || listed[0] != userID {
		t.Errorf("listed = %v, want caller id", listed)
	}
	body := decodeBody(t, w)
	if _, ok := body["badges"].([]any); !ok {
		t.Errorf("badges = %v, want an array even when empty", body["badges"])
	}
}

func TestRankIsArrayWhenEmpty(t *testing.T) {
	env := newTestEnv()
	token := issueToken(t, uuid.NewString(), "student")

	w := doJSON(t, env.router, http.MethodGet, "/api/engagement/rank", token, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if _, ok := body["rank"].([]any); !ok {
		t.Errorf("rank = %v, want an array even when empty", body["rank"])
	}
}

func TestBadgeIconUploadWithoutStorage(t *testing.T) {
	env := newTestEnv()
	token := issueToken(t, uuid.NewString(), "teacher")

	w := doJSON(t, env.router, http.MethodPost, "/api/badges/"+uuid.NewString()+"/icon", token, gin.H{
		"data": "data:image/png;base64,aGVsbG8=",
	})

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when image storage is not configured", w.Code)
	}
}
