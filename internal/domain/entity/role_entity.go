package entity

// Role is the flat authorization role carried by a user and embedded in access tokens.
type Role string

const (
	RoleVolunteer Role = "volunteer"
	RoleOrganizer Role = "organizer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleVolunteer || r == RoleOrganizer
}

// ParseRole returns the role for s, defaulting to volunteer when s is empty.
func ParseRole(s string) (Role, bool) {
	if s == "" {
		return RoleVolunteer, true
	}
	r := Role(s)
	return r, r.Valid()
}

// AuthProvider records how a user first authenticated.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)
