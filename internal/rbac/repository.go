package rbac

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/escuela/alumnos/internal/platform/db"
)

// directoryLockKey is the advisory lock id taken by concurrent seeders.
const directoryLockKey int64 = 0x616c756d6e6f73

// PGRepository provides PostgreSQL backed persistence for the directory.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindPrincipal loads the role and year references of a user.
func (r *PGRepository) FindPrincipal(ctx context.Context, id uuid.UUID) (Principal, error) {
	p := Principal{ID: id}
	err := r.pool.QueryRow(ctx, `SELECT role_id, year_id FROM usuarios WHERE id = $1`, id).Scan(&p.RoleID, &p.YearID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, ErrNotFound
		}
		return Principal{}, err
	}
	return p, nil
}

// RoleCapabilities returns the capability names granted to a role.
func (r *PGRepository) RoleCapabilities(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.nombre
		FROM role_permisos rp
		JOIN permisos p ON p.id = rp.permiso_id
		WHERE rp.role_id = $1
		ORDER BY p.nombre`, roleID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ListCapabilities returns all capabilities ordered by name.
func (r *PGRepository) ListCapabilities(ctx context.Context) ([]Capability, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, nombre, descripcion FROM permisos ORDER BY nombre`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	caps := []Capability{}
	for rows.Next() {
		var c Capability
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}
	return caps, rows.Err()
}

// WithDirectoryTx runs fn inside a transaction.
func (r *PGRepository) WithDirectoryTx(ctx context.Context, fn func(context.Context, DirectoryTx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, directoryTx{q: tx})
	})
}

type directoryTx struct {
	q db.DBTX
}

func (t directoryTx) LockDirectory(ctx context.Context) error {
	_, err := t.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, directoryLockKey)
	return err
}

func (t directoryTx) MarkerApplied(ctx context.Context, version int) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM directory_migrations WHERE version = $1)`, version).Scan(&exists)
	return exists, err
}

func (t directoryTx) UpsertCapability(ctx context.Context, spec CapabilitySpec) (Capability, error) {
	var c Capability
	err := t.q.QueryRow(ctx, `
		INSERT INTO permisos (id, nombre, descripcion)
		VALUES ($1, $2, $3)
		ON CONFLICT (nombre) DO UPDATE SET descripcion = EXCLUDED.descripcion
		RETURNING id, nombre, descripcion`, uuid.New(), spec.Name, spec.Description).
		Scan(&c.ID, &c.Name, &c.Description)
	return c, err
}

func (t directoryTx) UpsertRole(ctx context.Context, name string) (Role, error) {
	var role Role
	err := t.q.QueryRow(ctx, `
		INSERT INTO roles (id, nombre)
		VALUES ($1, $2)
		ON CONFLICT (nombre) DO UPDATE SET nombre = EXCLUDED.nombre
		RETURNING id, nombre`, uuid.New(), name).
		Scan(&role.ID, &role.Name)
	return role, err
}

func (t directoryTx) ReplaceRoleCapabilities(ctx context.Context, roleID uuid.UUID, capabilityIDs []uuid.UUID) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM role_permisos WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	for _, id := range capabilityIDs {
		if _, err := t.q.Exec(ctx, `
			INSERT INTO role_permisos (role_id, permiso_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, roleID, id); err != nil {
			return err
		}
	}
	return nil
}

func (t directoryTx) UpsertYear(ctx context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := t.q.QueryRow(ctx, `
		INSERT INTO years (id, nombre)
		VALUES ($1, $2)
		ON CONFLICT (nombre) DO UPDATE SET nombre = EXCLUDED.nombre
		RETURNING id`, uuid.New(), name).Scan(&id)
	return id, err
}

func (t directoryTx) RecordMarker(ctx context.Context, version int) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO directory_migrations (version, applied_at)
		VALUES ($1, NOW())
		ON CONFLICT (version) DO NOTHING`, version)
	return err
}
