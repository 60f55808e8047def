package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/escuela/alumnos/internal/platform/httpx"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Create(ctx context.Context, u User) (User, error)
	Get(ctx context.Context, id uuid.UUID) (User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New(), now: time.Now}
}

// CreateUser stores a new user.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (User, error) {
	if err := s.check(req); err != nil {
		return User{}, err
	}
	now := s.now()
	u := User{
		ID:        uuid.New(),
		Name:      req.Name,
		Email:     req.Email,
		Age:       req.Age,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if id := optionalID(req.Role); id != nil {
		u.Role = &RoleRef{ID: *id}
	}
	u.YearID = optionalID(req.Year)
	return s.repo.Create(ctx, u)
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.Get(ctx, id)
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// UpdateUser applies the fields present in req.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (User, error) {
	if err := s.check(req); err != nil {
		return User{}, err
	}
	p := Patch{Name: req.Name, Email: req.Email, Age: req.Age}
	if req.Role != nil {
		p.SetRole, p.RoleID = true, optionalID(req.Role)
	}
	if req.Year != nil {
		p.SetYear, p.YearID = true, optionalID(req.Year)
	}
	return s.repo.Update(ctx, id, p)
}

// DeleteUser removes a user.
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return httpx.Validation(strings.Join(msgs, "; "))
}

// optionalID parses an already validated reference. Empty means none.
func optionalID(raw *string) *uuid.UUID {
	if raw == nil || *raw == "" {
		return nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil
	}
	return &id
}
