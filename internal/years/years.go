// Package years lists the academic year groups posts are published to.
package years

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/escuela/alumnos/internal/platform/httpx"
)

// Year is a year group seeded with the directory catalog.
type Year struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"nombre"`
}

// Lister reads the year catalog.
type Lister interface {
	ListYears(ctx context.Context) ([]Year, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListYears returns every year ordered by name.
func (r *Repository) ListYears(ctx context.Context) ([]Year, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, nombre FROM years ORDER BY nombre`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Year])
}

// Handler serves GET /years. It is not gated: the labels are not sensitive
// and clients need the ids to publish posts.
type Handler struct {
	logger *slog.Logger
	years  Lister
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, years Lister) *Handler {
	return &Handler{logger: logger, years: years}
}

// MountRoutes registers year routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listYears)
}

func (h *Handler) listYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.years.ListYears(r.Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Error("list years failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	if years == nil {
		years = []Year{}
	}
	httpx.JSON(w, http.StatusOK, years)
}
