package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/escuela/alumnos/internal/platform/httpx"
)

// Messages returned by the user endpoints.
const (
	MsgNotFound = "Usuario no encontrado."
	MsgDeleted  = "Usuario eliminado correctamente."
)

var (
	// ErrNotFound is returned when no user has the requested id.
	ErrNotFound = httpx.NotFound(MsgNotFound)
	// ErrInvalidReference is returned when role or year point at nothing.
	ErrInvalidReference = httpx.Validation("role o year inexistente")
)

// User is a student record.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"nombre"`
	Email     string     `json:"email"`
	Age       int        `json:"edad"`
	Role      *RoleRef   `json:"role"`
	YearID    *uuid.UUID `json:"year"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// RoleRef is the role embedded in a user: its name and granted capability ids.
type RoleRef struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"nombre"`
	Capabilities []uuid.UUID `json:"permisos"`
}

// CreateUserRequest is the POST /usuarios payload.
type CreateUserRequest struct {
	Name  string  `json:"nombre"`
	Email string  `json:"email"`
	Age   int     `json:"edad"`
	Role  *string `json:"role,omitempty" validate:"omitempty,uuid"`
	Year  *string `json:"year,omitempty" validate:"omitempty,uuid"`
}

// UpdateUserRequest is the PUT /usuarios/{id} payload. Absent fields are left
// unchanged; an empty role or year clears the reference.
type UpdateUserRequest struct {
	Name  *string `json:"nombre,omitempty"`
	Email *string `json:"email,omitempty"`
	Age   *int    `json:"edad,omitempty"`
	Role  *string `json:"role,omitempty" validate:"omitempty,uuid"`
	Year  *string `json:"year,omitempty" validate:"omitempty,uuid"`
}

// Patch is a partial update as understood by the repository.
type Patch struct {
	Name    *string
	Email   *string
	Age     *int
	SetRole bool
	RoleID  *uuid.UUID
	SetYear bool
	YearID  *uuid.UUID
}
