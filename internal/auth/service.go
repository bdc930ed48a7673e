package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Session is the normalized token shape handed to clients.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

var (
	// ErrInvalidCredentials is surfaced verbatim on login failure.
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	// ErrInvalidRefresh rejects unknown, revoked or expired refresh tokens.
	ErrInvalidRefresh = errors.New("Invalid or expired refresh token")
	// ErrInvalidRole rejects registration with a role outside the enum.
	ErrInvalidRole = errors.New("role must be student or teacher")
)

// UserStore is the persistence surface the service needs.
type UserStore interface {
	InsertUser(ctx context.Context, email, passwordHash, role string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	RefreshTokenValid(ctx context.Context, token string) (bool, error)
	RevokeRefreshToken(ctx context.Context, token string) error
}

// Service owns account registration and session issuance.
type Service struct {
	repo                UserStore
	issuer              string
	signingKey          string
	accessTTL           time.Duration
	refreshTTL          time.Duration
	requireEmailConfirm bool
}

// NewService creates an auth service.
func NewService(repo UserStore, issuer, signingKey string, accessTTL, refreshTTL time.Duration, requireEmailConfirm bool) *Service {
	return &Service{
		repo:                repo,
		issuer:              issuer,
		signingKey:          signingKey,
		accessTTL:           accessTTL,
		refreshTTL:          refreshTTL,
		requireEmailConfirm: requireEmailConfirm,
	}
}

// Register creates an account and, unless email confirmation is required,
// a first session. A nil session signals the client to show its
// "check your email" state.
func (s *Service) Register(ctx context.Context, email, password, role string) (User, *Session, error) {
	if role == "" {
		role = "student"
	}
	if role != "student" && role != RoleTeacher {
		return User{}, nil, ErrInvalidRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, nil, err
	}
	user, err := s.repo.InsertUser(ctx, email, string(hash), role)
	if err != nil {
		return User{}, nil, err
	}
	if s.requireEmailConfirm {
		return user, nil, nil
	}
	session, err := s.issueSession(ctx, user)
	if err != nil {
		return User{}, nil, err
	}
	return user, &session, nil
}

// Login verifies credentials and issues a session.
func (s *Service) Login(ctx context.Context, email, password string) (User, Session, error) {
	user, err := s.repo.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, Session{}, ErrInvalidCredentials
		}
		return User{}, Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, Session{}, ErrInvalidCredentials
	}
	session, err := s.issueSession(ctx, user)
	if err != nil {
		return User{}, Session{}, err
	}
	return user, session, nil
}

// Refresh rotates a refresh token into a fresh session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := Parse(refreshToken, s.signingKey, s.issuer)
	if err != nil {
		return Session{}, ErrInvalidRefresh
	}
	ok, err := s.repo.RefreshTokenValid(ctx, refreshToken)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrInvalidRefresh
	}
	user, err := s.repo.UserByID(ctx, claims.Subject)
	if err != nil {
		return Session{}, ErrInvalidRefresh
	}
	if err := s.repo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// UserByID exposes account lookup for the profile endpoint.
func (s *Service) UserByID(ctx context.Context, id string) (User, error) {
	return s.repo.UserByID(ctx, id)
}

func (s *Service) issueSession(ctx context.Context, user User) (Session, error) {
	tokens, err := Issue(user.ID, user.Role, s.issuer, s.signingKey, s.accessTTL, s.refreshTTL)
	if err != nil {
		return Session{}, err
	}
	if err := s.repo.SaveRefreshToken(ctx, user.ID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		return Session{}, err
	}
	return Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.AccessExp.Unix(),
	}, nil
}
