package model

// Session is the identity established by a successful login.
type Session struct {
	Username string
	Role     Role
	MemberID string
}

// IsAdmin reports whether the session carries the admin role.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
