package roles

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/escuela/alumnos/internal/rbac"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles with their capabilities, ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.nombre, p.id, p.nombre, p.descripcion
		FROM roles r
		LEFT JOIN role_permisos rp ON rp.role_id = r.id
		LEFT JOIN permisos p ON p.id = rp.permiso_id
		ORDER BY r.nombre, p.nombre`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles := []Role{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			roleID   uuid.UUID
			roleName string
			capID    *uuid.UUID
			capName  *string
			capDesc  *string
		)
		if err := rows.Scan(&roleID, &roleName, &capID, &capName, &capDesc); err != nil {
			return nil, err
		}
		i, ok := index[roleID]
		if !ok {
			i = len(roles)
			index[roleID] = i
			roles = append(roles, Role{ID: roleID, Name: roleName, Capabilities: []rbac.Capability{}})
		}
		if capID != nil {
			c := rbac.Capability{ID: *capID}
			if capName != nil {
				c.Name = *capName
			}
			if capDesc != nil {
				c.Description = *capDesc
			}
			roles[i].Capabilities = append(roles[i].Capabilities, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}
