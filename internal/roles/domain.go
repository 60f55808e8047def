package roles

import (
	"github.com/escuela/alumnos/internal/rbac"
)

// Role is the listing view of a role: its name and the capabilities it grants.
type Role = rbac.Role
