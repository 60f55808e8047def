package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/escuela/alumnos/internal/observability"
	"github.com/escuela/alumnos/internal/platform/httpx"
	"github.com/escuela/alumnos/internal/posts"
	"github.com/escuela/alumnos/internal/rbac"
	"github.com/escuela/alumnos/internal/roles"
	"github.com/escuela/alumnos/internal/users"
	"github.com/escuela/alumnos/internal/years"
	"github.com/escuela/alumnos/jobs"
)

// Readiness reports whether the directory catalog has been seeded.
type Readiness interface {
	Status() (rbac.SeedStatus, error)
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Readiness          Readiness
	UsersHandler       *users.Handler
	PostsHandler       *posts.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *rbac.PermissionsHandler
	YearsHandler       *years.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

type readyBody struct {
	Status string `json:"status"`
	Seed   string `json:"seed"`
	Error  string `json:"error,omitempty"`
}

// NewRouter constructs the chi.Router with the service routes.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.Readiness == nil {
			httpx.JSON(w, http.StatusOK, readyBody{Status: "ok", Seed: string(rbac.SeedReady)})
			return
		}
		status, err := params.Readiness.Status()
		body := readyBody{Status: "ok", Seed: string(status)}
		if err != nil {
			body.Error = err.Error()
		}
		if status != rbac.SeedReady {
			body.Status = "unavailable"
			httpx.JSON(w, http.StatusServiceUnavailable, body)
			return
		}
		httpx.JSON(w, http.StatusOK, body)
	})

	if params.UsersHandler != nil {
		r.Route("/usuarios", params.UsersHandler.MountRoutes)
	}
	if params.PostsHandler != nil {
		r.Route("/posts", params.PostsHandler.MountRoutes)
	}
	if params.RolesHandler != nil {
		r.Route("/roles", params.RolesHandler.MountRoutes)
	}
	if params.PermissionsHandler != nil {
		r.Route("/permisos", params.PermissionsHandler.MountRoutes)
	}
	if params.YearsHandler != nil {
		r.Route("/years", params.YearsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Message(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	return r
}
