package model

// User is the authenticated account as reported by the backend.
type User struct {
	// ID is the server-assigned identifier.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Email is the account email address.
	Email string `json:"email"`

	// Roles holds every role the account carries.
	Roles []Role `json:"roles"`
}

// PrimaryRole returns the most privileged valid role the user holds,
// falling back to RoleUser when none is recognized.
func (u User) PrimaryRole() Role {
	best := RoleUser
	for _, r := range u.Roles {
		switch r {
		case RoleSuperadmin:
			return RoleSuperadmin
		case RoleAdmin:
			best = RoleAdmin
		}
	}
	return best
}

// HasRole reports whether the user carries the given role.
func (u User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
