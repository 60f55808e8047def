package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Repository is the read side the evaluator needs. It replaces store-level
// population with two explicit reads: the user, then its role's capabilities.
type Repository interface {
	FindPrincipal(ctx context.Context, id uuid.UUID) (Principal, error)
	RoleCapabilities(ctx context.Context, roleID uuid.UUID) ([]string, error)
	ListCapabilities(ctx context.Context) ([]Capability, error)
}

// Service resolves claimed identities and evaluates access checks.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a Service. cache and logger may be nil.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// ParseUserID parses a claimed identifier. An empty claim is valid and
// resolves to no user.
func ParseUserID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("rbac: invalid user id %q: %w", raw, err)
	}
	return id, nil
}

// Resolve builds the AuthContext for a claimed user id. A user that does not
// exist yields an AuthContext without principal, not an error.
func (s *Service) Resolve(ctx context.Context, claimedUserID string) (AuthContext, error) {
	id, err := ParseUserID(claimedUserID)
	if err != nil {
		return AuthContext{}, err
	}
	if id == uuid.Nil {
		return AuthContext{}, nil
	}
	principal, err := s.repo.FindPrincipal(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthContext{}, nil
		}
		return AuthContext{}, fmt.Errorf("rbac: find user: %w", err)
	}
	authz := AuthContext{Principal: &principal}
	if principal.RoleID == nil {
		return authz, nil
	}
	names, err := s.roleCapabilities(ctx, *principal.RoleID)
	if err != nil {
		return AuthContext{}, err
	}
	authz.Capabilities = names
	return authz, nil
}

// Check resolves claimedUserID and evaluates required against it. The
// principal is returned when the claimed user exists.
func (s *Service) Check(ctx context.Context, required, claimedUserID string) (Decision, *Principal) {
	authz, err := s.Resolve(ctx, claimedUserID)
	if err != nil {
		return failure(err), nil
	}
	return CheckPermission(authz, required), authz.Principal
}

// ListCapabilities returns the capability catalog ordered by name.
func (s *Service) ListCapabilities(ctx context.Context) ([]Capability, error) {
	return s.repo.ListCapabilities(ctx)
}

func (s *Service) roleCapabilities(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	if names, ok, err := s.cache.RoleCapabilities(ctx, roleID); err != nil {
		s.warn("capability cache read", err)
	} else if ok {
		return names, nil
	}
	// The shared lookup outlives any single caller; each caller still stops
	// waiting when its own context ends.
	shared := context.WithoutCancel(ctx)
	resultCh := s.group.DoChan(roleID.String(), func() (interface{}, error) {
		names, err := s.repo.RoleCapabilities(shared, roleID)
		if err != nil {
			return nil, fmt.Errorf("rbac: role capabilities: %w", err)
		}
		if err := s.cache.StoreRoleCapabilities(shared, roleID, names); err != nil {
			s.warn("capability cache write", err)
		}
		return names, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("rbac: role capabilities: %w", ctx.Err())
	case res := <-resultCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]string), nil
	}
}

func (s *Service) warn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.Any("error", err))
	}
}
