// Package client is the typed data-access module for the edclub API: it
// builds requests, injects the bearer token from a persisted session, maps
// wire rows into DTOs and surfaces server errors directly. A 401 response
// proactively clears the stored session so callers fall back to login.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client talks to one edclub API server. Safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	sessions SessionStore
}

// New creates a client. A nil store defaults to in-memory sessions.
func New(baseURL string, sessions SessionStore) *Client {
	if sessions == nil {
		sessions = NewMemoryStore()
	}
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 15 * time.Second},
		sessions: sessions,
	}
}

// APIError carries the server's error envelope.
type APIError struct {
	Status      int
	Message     string
	FieldErrors map[string][]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// DTOs mirror the camel-case wire shapes of the API.

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type Event struct {
	ID       string    `json:"id"`
	TeamID   *string   `json:"teamId"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
}

type Attendance struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type Progress struct {
	Presents int     `json:"presents"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
}

type RankRow struct {
	UserID   string  `json:"userId"`
	Presents int     `json:"presents"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
}

type Badge struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Rule      *string    `json:"rule"`
	IconURL   *string    `json:"iconUrl"`
	AwardedAt *time.Time `json:"awardedAt"`
}

type Assignment struct {
	UserID    string    `json:"userId"`
	BadgeID   string    `json:"badgeId"`
	AwardedAt time.Time `json:"awardedAt"`
}

type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type ProfileStats struct {
	WeeklyProgress Progress `json:"weeklyProgress"`
	BadgesEarned   int      `json:"badgesEarned"`
	UpcomingEvents []Event  `json:"upcomingEvents"`
}

type Profile struct {
	User  User         `json:"user"`
	Stats ProfileStats `json:"stats"`
}

// Register creates an account. A nil session means the server requires
// email confirmation before sign-in.
func (c *Client) Register(ctx context.Context, email, password string) (User, *Session, error) {
	var out struct {
		User    User     `json:"user"`
		Session *Session `json:"session"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &out); err != nil {
		return User{}, nil, err
	}
	if out.Session != nil {
		if err := c.sessions.Save(out.Session); err != nil {
			return User{}, nil, err
		}
	}
	return out.User, out.Session, nil
}

// Login authenticates and persists the returned session.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var out struct {
		User    User     `json:"user"`
		Session *Session `json:"session"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return User{}, err
	}
	if err := c.sessions.Save(out.Session); err != nil {
		return User{}, err
	}
	return out.User, nil
}

// Refresh rotates the stored refresh token into a new session.
func (c *Client) Refresh(ctx context.Context) error {
	session, err := c.sessions.Load()
	if err != nil {
		return err
	}
	if session == nil {
		return &APIError{Status: http.StatusUnauthorized, Message: "not signed in"}
	}
	var out struct {
		Session *Session `json:"session"`
	}
	body := map[string]string{"refreshToken": session.RefreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", body, &out); err != nil {
		return err
	}
	return c.sessions.Save(out.Session)
}

// Logout clears the persisted session.
func (c *Client) Logout() error {
	return c.sessions.Clear()
}

// Profile returns the dashboard aggregate for the signed-in user.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	var out Profile
	err := c.do(ctx, http.MethodGet, "/api/auth/profile", nil, &out)
	return out, err
}

// Events lists the agenda, optionally scoped to one team.
func (c *Client) Events(ctx context.Context, teamID string) ([]Event, error) {
	path := "/api/events"
	if teamID != "" {
		path += "?teamId=" + url.QueryEscape(teamID)
	}
	var out struct {
		Events []Event `json:"events"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Events, err
}

// CreateEvent records a teacher-authored agenda entry.
func (c *Client) CreateEvent(ctx context.Context, teamID, title string, startsAt, endsAt time.Time) (Event, error) {
	body := map[string]string{
		"teamId":   teamID,
		"title":    title,
		"startsAt": startsAt.Format(time.RFC3339),
		"endsAt":   endsAt.Format(time.RFC3339),
	}
	var out struct {
		Event Event `json:"event"`
	}
	err := c.do(ctx, http.MethodPost, "/api/events", body, &out)
	return out.Event, err
}

// Attendance returns the caller's records plus their weekly progress.
func (c *Client) Attendance(ctx context.Context, eventID string) ([]Attendance, Progress, error) {
	path := "/api/attendance"
	if eventID != "" {
		path += "?eventId=" + url.QueryEscape(eventID)
	}
	var out struct {
		Attendances    []Attendance `json:"attendances"`
		WeeklyProgress Progress     `json:"weeklyProgress"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Attendances, out.WeeklyProgress, err
}

// SubmitAttendance marks the caller's status for an event. Submitting twice
// updates the existing record.
func (c *Client) SubmitAttendance(ctx context.Context, eventID, status string) (Attendance, error) {
	body := map[string]string{"eventId": eventID, "status": status}
	var out struct {
		Attendance Attendance `json:"attendance"`
	}
	err := c.do(ctx, http.MethodPost, "/api/attendance", body, &out)
	return out.Attendance, err
}

// Badges returns the catalog with award state; userID empty means the caller.
func (c *Client) Badges(ctx context.Context, userID string) ([]Badge, error) {
	path := "/api/badges"
	if userID != "" {
		path += "?userId=" + url.QueryEscape(userID)
	}
	var out struct {
		Badges []Badge `json:"badges"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Badges, err
}

// GrantBadge assigns a badge to a user (teacher only, idempotent).
func (c *Client) GrantBadge(ctx context.Context, userID, badgeID string) (Assignment, error) {
	body := map[string]string{"userId": userID, "badgeId": badgeID}
	var out struct {
		Assignment Assignment `json:"assignment"`
	}
	err := c.do(ctx, http.MethodPost, "/api/badges", body, &out)
	return out.Assignment, err
}

// Posts returns the public feed, newest first.
func (c *Client) Posts(ctx context.Context) ([]Post, error) {
	var out struct {
		Posts []Post `json:"posts"`
	}
	err := c.do(ctx, http.MethodGet, "/api/posts", nil, &out)
	return out.Posts, err
}

// CreatePost publishes a feed entry attributed to the caller.
func (c *Client) CreatePost(ctx context.Context, content string) (Post, error) {
	body := map[string]string{"content": content}
	var out struct {
		Post Post `json:"post"`
	}
	err := c.do(ctx, http.MethodPost, "/api/posts", body, &out)
	return out.Post, err
}

// Progress returns the caller's weekly aggregate.
func (c *Client) Progress(ctx context.Context) (Progress, error) {
	var out struct {
		Progress Progress `json:"progress"`
	}
	err := c.do(ctx, http.MethodGet, "/api/engagement/progress", nil, &out)
	return out.Progress, err
}

// Rank returns the cohort weekly ranking.
func (c *Client) Rank(ctx context.Context) ([]RankRow, error) {
	var out struct {
		Rank []RankRow `json:"rank"`
	}
	err := c.do(ctx, http.MethodGet, "/api/engagement/rank", nil, &out)
	return out.Rank, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if session, err := c.sessions.Load(); err == nil && session != nil && session.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Stored credentials are no good; fall back to the login view.
		_ = c.sessions.Clear()
	}

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError maps the server's error envelope — `{"error": string}` or
// `{"error": {"fieldErrors": ...}}` — into an APIError.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: "Request failed."}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error == nil {
		return apiErr
	}

	var message string
	if json.Unmarshal(envelope.Error, &message) == nil {
		apiErr.Message = message
		return apiErr
	}

	var structured struct {
		FieldErrors map[string][]string `json:"fieldErrors"`
	}
	if json.Unmarshal(envelope.Error, &structured) == nil && structured.FieldErrors != nil {
		apiErr.Message = "Validation failed."
		apiErr.FieldErrors = structured.FieldErrors
	}
	return apiErr
}
