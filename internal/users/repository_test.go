package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escuela/alumnos/internal/rbac"
	"github.com/escuela/alumnos/internal/rbac/rbactest"
)

func seededPostgres(t *testing.T) (*pgxpool.Pool, uuid.UUID, uuid.UUID) {
	t.Helper()
	pool := rbactest.Postgres(t)
	ctx := context.Background()
	_, err := rbac.NewSeeder(rbac.NewRepository(pool), nil, nil).EnsureSeeded(ctx)
	require.NoError(t, err)

	var roleID, yearID uuid.UUID
	require.NoError(t, pool.QueryRow(ctx, `SELECT id FROM roles WHERE nombre = $1`, rbac.RoleUser).Scan(&roleID))
	require.NoError(t, pool.QueryRow(ctx, `SELECT id FROM years WHERE nombre = $1`, rbac.Years()[0]).Scan(&yearID))
	return pool, roleID, yearID
}

func TestPGRepositoryPartialUpdate(t *testing.T) {
	pool, roleID, yearID := seededPostgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	now := time.Now()

	created, err := repo.Create(ctx, User{
		ID: uuid.New(), Name: "Ana", Email: "a@x.com", Age: 20,
		Role: &RoleRef{ID: roleID}, YearID: &yearID,
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NotNil(t, created.Role)
	assert.Equal(t, rbac.RoleUser, created.Role.Name)
	assert.Len(t, created.Role.Capabilities, 3)

	name := "Ana María"
	updated, err := repo.Update(ctx, created.ID, Patch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, "a@x.com", updated.Email)
	assert.Equal(t, 20, updated.Age)
	require.NotNil(t, updated.Role)
	assert.Equal(t, roleID, updated.Role.ID)
	require.NotNil(t, updated.YearID)
	assert.Equal(t, yearID, *updated.YearID)

	age := 21
	updated, err = repo.Update(ctx, created.ID, Patch{Age: &age, SetRole: true})
	require.NoError(t, err)
	assert.Equal(t, 21, updated.Age)
	assert.Nil(t, updated.Role)
	require.NotNil(t, updated.YearID)

	updated, err = repo.Update(ctx, created.ID, Patch{SetYear: true})
	require.NoError(t, err)
	assert.Nil(t, updated.YearID)
	assert.Equal(t, name, updated.Name)
}

func TestPGRepositoryErrors(t *testing.T) {
	pool, _, _ := seededPostgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	unknown := uuid.New()
	_, err := repo.Create(ctx, User{ID: uuid.New(), YearID: &unknown})
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = repo.Update(ctx, uuid.New(), Patch{})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), ErrNotFound)
}

func TestPGDeleteRemovesAuthoredPosts(t *testing.T) {
	pool, roleID, yearID := seededPostgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	u, err := repo.Create(ctx, User{ID: uuid.New(), Name: "Ana", Role: &RoleRef{ID: roleID}, YearID: &yearID})
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO posts (id, autor_id, year_id, contenido) VALUES ($1, $2, $3, 'hola')`,
		uuid.New(), u.ID, yearID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, u.ID))
	var posts int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE autor_id = $1`, u.ID).Scan(&posts))
	assert.Zero(t, posts)
}
