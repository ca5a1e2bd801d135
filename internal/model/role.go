package model

import "fmt"

// Role is the coarse-grained permission label gating visibility of
// registry entries and admin screens.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Roles lists every valid role in ascending privilege order.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleSuperadmin}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// ParseRole converts a server-provided role string into a Role.
// Unknown values are rejected rather than passed through.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
