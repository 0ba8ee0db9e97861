package auth

import "strings"

// Role is the dashboard a user belongs to. It is fixed at registration.
type Role string

const (
	RolePatient     Role = "patient"
	RoleDoctor      Role = "doctor"
	RoleInstitution Role = "institution"
	RoleInsurance   Role = "insurance"
)

// Roles lists every role in display order.
func Roles() []Role {
	return []Role{RolePatient, RoleDoctor, RoleInstitution, RoleInsurance}
}

// ParseRole converts s to a Role, reporting whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RolePatient, RoleDoctor, RoleInstitution, RoleInsurance:
		return r, true
	}
	return "", false
}

// DefaultPath is the landing page of the role's dashboard. Unknown roles
// land on the patient dashboard.
func (r Role) DefaultPath() string {
	switch r {
	case RoleDoctor:
		return "/doctor"
	case RoleInstitution:
		return "/institution"
	case RoleInsurance:
		return "/insurance"
	case RolePatient:
		return "/patient"
	default:
		return "/patient"
	}
}

func (r Role) String() string { return string(r) }
