package rbac_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escuela/alumnos/internal/rbac"
	"github.com/escuela/alumnos/internal/rbac/rbactest"
)

func TestEnsureSeededIsIdempotent(t *testing.T) {
	store := rbactest.New()
	seeder := rbac.NewSeeder(store, nil, nil)
	ctx := context.Background()

	status, _ := seeder.Status()
	assert.Equal(t, rbac.SeedPending, status)

	first, err := seeder.EnsureSeeded(ctx)
	require.NoError(t, err)
	assert.False(t, first.Skipped)
	assert.Equal(t, 6, first.Capabilities)
	assert.Equal(t, 2, first.Roles)
	caps, roles, years, markers := store.Counts()
	assert.Equal(t, 6, caps)
	assert.Equal(t, 2, roles)
	assert.Equal(t, len(rbac.Years()), years)
	assert.Equal(t, 1, markers)

	second, err := seeder.EnsureSeeded(ctx)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Zero(t, second.Capabilities)
	assert.Zero(t, second.Roles)
	caps, roles, _, _ = store.Counts()
	assert.Equal(t, 6, caps)
	assert.Equal(t, 2, roles)

	status, lastErr := seeder.Status()
	assert.Equal(t, rbac.SeedReady, status)
	assert.NoError(t, lastErr)
}

func TestEnsureSeededGrants(t *testing.T) {
	store, err := rbactest.Seeded()
	require.NoError(t, err)
	ctx := context.Background()

	admin, err := store.RoleCapabilities(ctx, store.RoleID(rbac.RoleAdministrator))
	require.NoError(t, err)
	assert.ElementsMatch(t, allCapabilityNames(), admin)

	user, err := store.RoleCapabilities(ctx, store.RoleID(rbac.RoleUser))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{rbac.PermViewUsers, rbac.PermViewPost, rbac.PermCreatePost}, user)
}

func TestEnsureSeededFailureLeavesNoPartialCatalog(t *testing.T) {
	store := rbactest.New()
	store.FailOnRole = rbac.RoleUser
	seeder := rbac.NewSeeder(store, nil, nil)

	_, err := seeder.EnsureSeeded(context.Background())
	require.ErrorIs(t, err, rbactest.ErrInjected)
	caps, roles, years, markers := store.Counts()
	assert.Zero(t, caps+roles+years+markers)

	status, lastErr := seeder.Status()
	assert.Equal(t, rbac.SeedFailed, status)
	assert.ErrorIs(t, lastErr, rbactest.ErrInjected)

	store.FailOnRole = ""
	result, err := seeder.EnsureSeeded(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	_, roles, _, _ = store.Counts()
	assert.Equal(t, 2, roles)
}

func TestEnsureSeededHealsRolesWithoutMarker(t *testing.T) {
	store := rbactest.New()
	// A role left behind by an older bootstrap must not stop seeding.
	require.NoError(t, store.WithDirectoryTx(context.Background(), func(ctx context.Context, tx rbac.DirectoryTx) error {
		_, err := tx.UpsertRole(ctx, rbac.RoleAdministrator)
		return err
	}))
	adminID := store.RoleID(rbac.RoleAdministrator)

	result, err := rbac.NewSeeder(store, nil, nil).EnsureSeeded(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, adminID, store.RoleID(rbac.RoleAdministrator))
	assert.Len(t, store.Grants(adminID), len(rbac.Capabilities()))
}

func TestEnsureSeededConcurrentCallsDoNotDuplicate(t *testing.T) {
	store := rbactest.New()
	seeder := rbac.NewSeeder(store, nil, nil)

	var wg sync.WaitGroup
	skipped := make(chan bool, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := seeder.EnsureSeeded(context.Background())
			assert.NoError(t, err)
			skipped <- res.Skipped
		}()
	}
	wg.Wait()
	close(skipped)

	writers := 0
	for s := range skipped {
		if !s {
			writers++
		}
	}
	assert.Equal(t, 1, writers)
	caps, roles, _, _ := store.Counts()
	assert.Equal(t, 2, roles)
	assert.Equal(t, 6, caps)
}

type seedCounts map[string]int

func (c seedCounts) ObserveSeed(result string) { c[result]++ }

func TestEnsureSeededReportsToObserver(t *testing.T) {
	store := rbactest.New()
	counts := seedCounts{}
	seeder := rbac.NewSeeder(store, nil, nil).WithObserver(counts)

	_, err := seeder.EnsureSeeded(context.Background())
	require.NoError(t, err)
	_, err = seeder.EnsureSeeded(context.Background())
	require.NoError(t, err)
	store.FailOnRole = rbac.RoleUser
	// The marker is already present, so a broken role write is never reached.
	_, err = seeder.EnsureSeeded(context.Background())
	require.NoError(t, err)

	assert.Equal(t, seedCounts{"seeded": 1, "skipped": 2}, counts)
}

// flakyStore fails the first failures transactions, then delegates.
type flakyStore struct {
	*rbactest.Directory
	failures int32
	attempts atomic.Int32
}

func (f *flakyStore) WithDirectoryTx(ctx context.Context, fn func(context.Context, rbac.DirectoryTx) error) error {
	if f.attempts.Add(1) <= f.failures {
		return rbactest.ErrInjected
	}
	return f.Directory.WithDirectoryTx(ctx, fn)
}

func TestRunRetriesUntilSeeded(t *testing.T) {
	store := &flakyStore{Directory: rbactest.New(), failures: 3}
	counts := &syncSeedCounts{}
	seeder := rbac.NewSeeder(store, nil, nil).
		WithObserver(counts).
		WithBackoff(time.Millisecond, 4*time.Millisecond)

	done := make(chan struct{})
	go func() {
		seeder.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("seeder did not recover")
	}
	status, lastErr := seeder.Status()
	assert.Equal(t, rbac.SeedReady, status)
	assert.NoError(t, lastErr)
	assert.Equal(t, int32(4), store.attempts.Load())
	assert.Equal(t, map[string]int{"failed": 3, "seeded": 1}, counts.snapshot())
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	store := &flakyStore{Directory: rbactest.New(), failures: 1 << 20}
	seeder := rbac.NewSeeder(store, nil, nil).WithBackoff(time.Millisecond, time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		seeder.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run ignored cancellation")
	}
	status, _ := seeder.Status()
	assert.Equal(t, rbac.SeedFailed, status)
}

type syncSeedCounts struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *syncSeedCounts) ObserveSeed(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[result]++
}

func (c *syncSeedCounts) snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
