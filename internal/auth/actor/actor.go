// Package actor defines the acting-user identity passed into domain services.
// Role checks live inside the services themselves (single source of truth for
// permission rules); the HTTP layer only extracts who is calling.
package actor

import "github.com/google/uuid"

// Role is the staff role enum.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleReceptionist Role = "receptionist"
	RoleTechnician   Role = "technician"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleReceptionist, RoleTechnician:
		return true
	}
	return false
}

// Actor is the authenticated user on whose behalf a service operation runs.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Is reports whether the actor holds any of the given roles.
func (a Actor) Is(roles ...Role) bool {
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}

// IsStaff reports whether the actor can manage front-desk operations
// (intake, delivery, outsourcing).
func (a Actor) IsStaff() bool {
	return a.Is(RoleAdmin, RoleReceptionist)
}
