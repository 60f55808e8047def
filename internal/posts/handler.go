package posts

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/escuela/alumnos/internal/platform/httpx"
	"github.com/escuela/alumnos/internal/rbac"
)

var errNoPrincipal = errors.New("posts: request reached handler without a resolved caller")

// Handler manages post endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers post routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(rbac.PermCreatePost)).Post("/", h.createPost)
	r.With(h.rbac.Require(rbac.PermViewPost)).Get("/", h.listPosts)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	caller, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, errNoPrincipal)
		return
	}
	var req CreatePostRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	post, err := h.service.Create(r.Context(), caller, req)
	if err != nil {
		h.fail(w, "create post failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, post)
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	caller, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, errNoPrincipal)
		return
	}
	posts, err := h.service.ListForYear(r.Context(), caller.YearID)
	if err != nil {
		h.fail(w, "list posts failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, posts)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
