package auth

import "strings"

// Role is the account's portal role
type Role string

const (
	RolePatient   Role = "patient"
	RoleDoctor    Role = "doctor"
	RoleParamedic Role = "paramedic"
	RoleAdmin     Role = "admin"
)

// ParseRole normalizes a raw role string
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RolePatient:
		return RolePatient, true
	case RoleDoctor:
		return RoleDoctor, true
	case RoleParamedic:
		return RoleParamedic, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// IsValid reports whether the role is one we store
func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleParamedic, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// DashboardPath returns the post login redirect for the role. Admin accounts
// exist in the store but have no portal dashboard, so they report false here
// and the password flow rejects them.
func (r Role) DashboardPath() (string, bool) {
	switch r {
	case RolePatient:
		return "/puser/dashboard", true
	case RoleDoctor:
		return "/duser/dashboard", true
	case RoleParamedic:
		return "/parauser/dashboard", true
	}
	return "", false
}

// ProfileRoles are the roles that carry a companion profile row
func ProfileRoles() []Role {
	return []Role{RolePatient, RoleDoctor, RoleParamedic}
}
