package posts

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/escuela/alumnos/internal/platform/httpx"
	"github.com/escuela/alumnos/internal/rbac"
)

// RepositoryPort defines data access methods for posts.
type RepositoryPort interface {
	Create(ctx context.Context, p Post) (Post, error)
	ListByYear(ctx context.Context, yearID uuid.UUID) ([]Post, error)
}

// Service handles post business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New(), now: time.Now}
}

// Create publishes a post authored by the caller into req.YearID. The target
// year is taken from the request, not from the author's own year.
func (s *Service) Create(ctx context.Context, author rbac.Principal, req CreatePostRequest) (Post, error) {
	if err := s.validate.Struct(req); err != nil {
		return Post{}, httpx.Validation(err.Error())
	}
	yearID, err := uuid.Parse(req.YearID)
	if err != nil {
		return Post{}, httpx.Validation(err.Error())
	}
	return s.repo.Create(ctx, Post{
		ID:       uuid.New(),
		AuthorID: author.ID,
		YearID:   yearID,
		Content:  req.Content,
		Date:     s.now().UTC(),
	})
}

// ListForYear returns the posts visible to a caller in yearID. A caller with
// no year sees nothing.
func (s *Service) ListForYear(ctx context.Context, yearID *uuid.UUID) ([]Post, error) {
	if yearID == nil {
		return []Post{}, nil
	}
	posts, err := s.repo.ListByYear(ctx, *yearID)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []Post{}
	}
	return posts, nil
}
