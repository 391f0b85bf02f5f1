package model

// Role is the authorization level of a credential.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// ParseRole converts s to a Role. ok is false for unknown values.
func ParseRole(s string) (role Role, ok bool) {
	role = Role(s)
	return role, role.Valid()
}
