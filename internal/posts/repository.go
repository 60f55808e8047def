package posts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/escuela/alumnos/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts p. The stored fecha is returned in the result.
func (r *Repository) Create(ctx context.Context, p Post) (Post, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO posts (id, autor_id, year_id, contenido, fecha)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING fecha`,
		p.ID, p.AuthorID, p.YearID, p.Content, p.Date).Scan(&p.Date)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Post{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
		return Post{}, err
	}
	return p, nil
}

// ListByYear returns the posts of one year, oldest first.
func (r *Repository) ListByYear(ctx context.Context, yearID uuid.UUID) ([]Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, autor_id, year_id, contenido, fecha
		FROM posts
		WHERE year_id = $1
		ORDER BY fecha, id`, yearID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Post, error) {
		var p Post
		err := row.Scan(&p.ID, &p.AuthorID, &p.YearID, &p.Content, &p.Date)
		return p, err
	})
}
