package posts

import (
	"time"

	"github.com/google/uuid"

	"github.com/escuela/alumnos/internal/platform/httpx"
)

// ErrInvalidReference is returned when yearId names no year.
var ErrInvalidReference = httpx.Validation("year inexistente")

// Post is a message published to one year group.
type Post struct {
	ID       uuid.UUID `json:"id"`
	AuthorID uuid.UUID `json:"autor"`
	YearID   uuid.UUID `json:"year"`
	Content  string    `json:"contenido"`
	Date     time.Time `json:"fecha"`
}

// CreatePostRequest is the POST /posts payload.
type CreatePostRequest struct {
	Content string `json:"contenido"`
	YearID  string `json:"yearId" validate:"required,uuid"`
}
