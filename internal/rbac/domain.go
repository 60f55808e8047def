package rbac

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// Capability is an atomic named permission. Name is the identity used for
// authorization; ID only links rows together.
type Capability struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"nombre"`
	Description string    `json:"descripcion"`
}

// Role is a named bundle of capabilities.
type Role struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"nombre"`
	Capabilities []Capability `json:"permisos"`
}

// Principal is the caller a request claims to be, as found in storage.
type Principal struct {
	ID     uuid.UUID
	RoleID *uuid.UUID
	YearID *uuid.UUID
}

// AuthContext is everything CheckPermission needs: the resolved principal
// (nil when the claimed user does not exist) and the capability names granted
// through its role.
type AuthContext struct {
	Principal    *Principal
	Capabilities []string
}

// Outcome tags a Decision.
type Outcome int

const (
	OutcomeAllow Outcome = iota
	OutcomeDeny
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeDeny:
		return "deny"
	default:
		return "failure"
	}
}

// DenyReason explains an OutcomeDeny decision.
type DenyReason int

const (
	DenyNone DenyReason = iota
	DenyUserNotFound
	DenyInsufficientPermission
)

func (r DenyReason) String() string {
	switch r {
	case DenyUserNotFound:
		return "user not found"
	case DenyInsufficientPermission:
		return "insufficient permission"
	default:
		return ""
	}
}

// Decision is the result of an access check.
type Decision struct {
	Outcome Outcome
	Reason  DenyReason
	Err     error
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllow }

func allow() Decision { return Decision{Outcome: OutcomeAllow} }

func deny(reason DenyReason) Decision { return Decision{Outcome: OutcomeDeny, Reason: reason} }

func failure(err error) Decision { return Decision{Outcome: OutcomeFailure, Err: err} }
