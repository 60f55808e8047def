package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DirectoryStore runs catalog writes inside a single transaction.
type DirectoryStore interface {
	WithDirectoryTx(ctx context.Context, fn func(ctx context.Context, tx DirectoryTx) error) error
}

// DirectoryTx is the set of writes the seeder performs.
type DirectoryTx interface {
	// LockDirectory serializes seeders until the transaction ends.
	LockDirectory(ctx context.Context) error
	MarkerApplied(ctx context.Context, version int) (bool, error)
	UpsertCapability(ctx context.Context, spec CapabilitySpec) (Capability, error)
	UpsertRole(ctx context.Context, name string) (Role, error)
	ReplaceRoleCapabilities(ctx context.Context, roleID uuid.UUID, capabilityIDs []uuid.UUID) error
	UpsertYear(ctx context.Context, name string) (uuid.UUID, error)
	RecordMarker(ctx context.Context, version int) error
}

// SeedStatus reports how far the seeder got.
type SeedStatus string

const (
	SeedPending SeedStatus = "pending"
	SeedReady   SeedStatus = "ready"
	SeedFailed  SeedStatus = "failed"
)

// SeedObserver counts seeding attempts by result: skipped, seeded or failed.
type SeedObserver interface {
	ObserveSeed(result string)
}

// SeedResult summarises one EnsureSeeded call.
type SeedResult struct {
	Skipped      bool
	Capabilities int
	Roles        int
	Years        int
}

// Seeder writes the capability/role/year catalog exactly once per
// CatalogVersion.
type Seeder struct {
	store    DirectoryStore
	cache    *Cache
	logger   *slog.Logger
	observer SeedObserver

	retryMin time.Duration
	retryMax time.Duration

	mu      sync.RWMutex
	status  SeedStatus
	lastErr error
}

// NewSeeder constructs a Seeder. cache and logger may be nil.
func NewSeeder(store DirectoryStore, cache *Cache, logger *slog.Logger) *Seeder {
	return &Seeder{
		store:    store,
		cache:    cache,
		logger:   logger,
		status:   SeedPending,
		retryMin: time.Second,
		retryMax: time.Minute,
	}
}

// WithBackoff sets the delay bounds Run uses between failed attempts.
func (s *Seeder) WithBackoff(initial, limit time.Duration) *Seeder {
	s.retryMin, s.retryMax = initial, limit
	return s
}

// WithObserver attaches o to the seeder and returns it.
func (s *Seeder) WithObserver(o SeedObserver) *Seeder {
	s.observer = o
	return s
}

// EnsureSeeded writes the catalog unless the marker for CatalogVersion is
// already present. Everything happens in one transaction, so a failure leaves
// no partial catalog behind and the next call starts over.
func (s *Seeder) EnsureSeeded(ctx context.Context) (SeedResult, error) {
	var result SeedResult
	err := s.store.WithDirectoryTx(ctx, func(ctx context.Context, tx DirectoryTx) error {
		if err := tx.LockDirectory(ctx); err != nil {
			return fmt.Errorf("rbac: lock directory: %w", err)
		}
		applied, err := tx.MarkerApplied(ctx, CatalogVersion)
		if err != nil {
			return fmt.Errorf("rbac: read marker: %w", err)
		}
		if applied {
			result.Skipped = true
			return nil
		}

		byName := make(map[string]uuid.UUID, len(Capabilities()))
		for _, spec := range Capabilities() {
			capability, err := tx.UpsertCapability(ctx, spec)
			if err != nil {
				return fmt.Errorf("rbac: upsert capability %s: %w", spec.Name, err)
			}
			byName[capability.Name] = capability.ID
			result.Capabilities++
		}

		for _, spec := range Roles() {
			role, err := tx.UpsertRole(ctx, spec.Name)
			if err != nil {
				return fmt.Errorf("rbac: upsert role %s: %w", spec.Name, err)
			}
			ids := make([]uuid.UUID, 0, len(spec.Grants))
			for _, grant := range spec.Grants {
				id, ok := byName[grant]
				if !ok {
					return fmt.Errorf("rbac: role %s grants unknown capability %s", spec.Name, grant)
				}
				ids = append(ids, id)
			}
			if err := tx.ReplaceRoleCapabilities(ctx, role.ID, ids); err != nil {
				return fmt.Errorf("rbac: grant role %s: %w", spec.Name, err)
			}
			result.Roles++
		}

		for _, name := range Years() {
			if _, err := tx.UpsertYear(ctx, name); err != nil {
				return fmt.Errorf("rbac: upsert year %s: %w", name, err)
			}
			result.Years++
		}

		if err := tx.RecordMarker(ctx, CatalogVersion); err != nil {
			return fmt.Errorf("rbac: record marker: %w", err)
		}
		return nil
	})
	if err != nil {
		s.setStatus(SeedFailed, err)
		s.observe("failed")
		return SeedResult{}, err
	}
	if result.Skipped {
		s.observe("skipped")
	} else {
		s.observe("seeded")
		if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
			s.logger.Warn("capability cache bump", slog.Any("error", err))
		}
	}
	s.setStatus(SeedReady, nil)
	return result, nil
}

// Run calls EnsureSeeded until it succeeds or ctx ends, doubling the delay
// between failed attempts up to the configured maximum. It is meant to be
// started in its own goroutine at process startup.
func (s *Seeder) Run(ctx context.Context) {
	delay := s.retryMin
	for {
		result, err := s.EnsureSeeded(ctx)
		if err == nil {
			s.logResult(result)
			return
		}
		if ctx.Err() != nil {
			return
		}
		if s.logger != nil {
			s.logger.Error("seed directory", slog.Any("error", err), slog.Duration("retry_in", delay))
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay *= 2
		if delay > s.retryMax {
			delay = s.retryMax
		}
	}
}

func (s *Seeder) logResult(result SeedResult) {
	if s.logger == nil {
		return
	}
	if result.Skipped {
		s.logger.Info("directory already seeded", slog.Int("version", CatalogVersion))
		return
	}
	s.logger.Info("directory seeded",
		slog.Int("version", CatalogVersion),
		slog.Int("capabilities", result.Capabilities),
		slog.Int("roles", result.Roles),
		slog.Int("years", result.Years),
	)
}

// Status returns the state of the last seeding attempt.
func (s *Seeder) Status() (SeedStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.lastErr
}

func (s *Seeder) observe(result string) {
	if s.observer != nil {
		s.observer.ObserveSeed(result)
	}
}

func (s *Seeder) setStatus(status SeedStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.lastErr = err
}
