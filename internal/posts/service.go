package posts

import (
	"context"
	"errors"
	"unicode/utf8"
)

// FeedLimit caps the public feed read.
const FeedLimit = 50

// MaxContentLen bounds post content in characters, not bytes.
const MaxContentLen = 500

// ErrInvalidContent rejects empty or oversized posts before storage.
var ErrInvalidContent = errors.New("content must be between 1 and 500 characters")

// PostStore is the persistence surface the service needs.
type PostStore interface {
	ListRecent(ctx context.Context, limit int) ([]Post, error)
	Insert(ctx context.Context, userID, content string) (Post, error)
}

// Service validates and records feed posts.
type Service struct {
	repo PostStore
}

// NewService creates a service backed by a repository.
func NewService(repo PostStore) *Service {
	return &Service{repo: repo}
}

// Feed returns the most recent posts, newest first.
func (s *Service) Feed(ctx context.Context) ([]Post, error) {
	return s.repo.ListRecent(ctx, FeedLimit)
}

// Create validates length bounds and inserts the post.
func (s *Service) Create(ctx context.Context, userID, content string) (Post, error) {
	n := utf8.RuneCountInString(content)
	if n < 1 || n > MaxContentLen {
		return Post{}, ErrInvalidContent
	}
	return s.repo.Insert(ctx, userID, content)
}
