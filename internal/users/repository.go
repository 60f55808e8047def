package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/escuela/alumnos/internal/platform/db"
)

const selectUser = `
	SELECT u.id, u.nombre, u.email, u.edad, u.year_id, u.created_at, u.updated_at,
	       r.id, r.nombre,
	       ARRAY(SELECT rp.permiso_id FROM role_permisos rp WHERE rp.role_id = r.id ORDER BY rp.permiso_id)
	FROM usuarios u
	LEFT JOIN roles r ON r.id = u.role_id`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts u and returns it as stored, role populated.
func (r *Repository) Create(ctx context.Context, u User) (User, error) {
	var roleID *uuid.UUID
	if u.Role != nil {
		roleID = &u.Role.ID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO usuarios (id, nombre, email, edad, role_id, year_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, u.Email, u.Age, roleID, u.YearID)
	if err != nil {
		return User{}, mapWriteError(err)
	}
	return r.Get(ctx, u.ID)
}

// Get returns one user.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE u.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// List returns every user ordered by creation time.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, selectUser+` ORDER BY u.created_at, u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// Update applies p to the user and returns the result.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, p Patch) (User, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE usuarios SET
			nombre     = COALESCE($2::text, nombre),
			email      = COALESCE($3::text, email),
			edad       = COALESCE($4::integer, edad),
			role_id    = CASE WHEN $5::boolean THEN $6::uuid ELSE role_id END,
			year_id    = CASE WHEN $7::boolean THEN $8::uuid ELSE year_id END,
			updated_at = NOW()
		WHERE id = $1`,
		id, p.Name, p.Email, p.Age, p.SetRole, p.RoleID, p.SetYear, p.YearID)
	if err != nil {
		return User{}, mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return User{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes a user.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u        User
		roleID   *uuid.UUID
		roleName *string
		caps     []uuid.UUID
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Age, &u.YearID, &u.CreatedAt, &u.UpdatedAt, &roleID, &roleName, &caps); err != nil {
		return User{}, err
	}
	if roleID != nil {
		u.Role = &RoleRef{ID: *roleID, Capabilities: caps}
		if roleName != nil {
			u.Role.Name = *roleName
		}
		if u.Role.Capabilities == nil {
			u.Role.Capabilities = []uuid.UUID{}
		}
	}
	return u, nil
}

func mapWriteError(err error) error {
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return err
}
