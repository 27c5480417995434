package model

// AuthContext holds authenticated request context.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	UserID     int64
	UTORid     string
	Role       Role
	Verified   bool
	Suspicious bool
}

// HasClearance checks if the caller holds at least the given role.
func (a *AuthContext) HasClearance(min Role) bool {
	return a.Role.AtLeast(min)
}

// IsStaff returns true for cashiers and above.
func (a *AuthContext) IsStaff() bool {
	return a.Role.AtLeast(RoleCashier)
}

// IsManager returns true for managers and superusers.
func (a *AuthContext) IsManager() bool {
	return a.Role.AtLeast(RoleManager)
}

// AuthContextFromUser builds an AuthContext from a stored user.
func AuthContextFromUser(u *User) *AuthContext {
	return &AuthContext{
		UserID:     u.ID,
		UTORid:     u.UTORid,
		Role:       u.Role,
		Verified:   u.Verified,
		Suspicious: u.Suspicious,
	}
}

// AssignableRoles lists the roles a caller may grant to other users.
func AssignableRoles(caller Role) []Role {
	switch caller {
	case RoleSuperuser:
		return []Role{RoleRegular, RoleCashier, RoleManager, RoleSuperuser}
	case RoleManager:
		return []Role{RoleRegular, RoleCashier}
	default:
		return nil
	}
}
