package institution

import (
	"strings"

	"github.com/medipay/medipay/internal/platform/auth"
)

// Access is what a viewer may do on an institution dashboard.
type Access struct {
	InstitutionID       string    `json:"institution_id"`
	Role                StaffRole `json:"role,omitempty"`
	IsAdmin             bool      `json:"is_admin"`
	IsManager           bool      `json:"is_manager"`
	CanViewTransactions bool      `json:"can_view_transactions"`
	CanViewProducts     bool      `json:"can_view_products"`
	CanViewReports      bool      `json:"can_view_reports"`
	CanManageStaff      bool      `json:"can_manage_staff"`
}

// ResolveAccess derives the viewer's permissions on institutionID. The
// institution's own account is its administrator. Other viewers are matched
// against active staff by email. Admins count as managers; managers and
// holders of the explicit permission may view transactions, products and
// reports; only admins manage staff.
func ResolveAccess(viewer auth.Principal, institutionID string, staff []*InstitutionUser) Access {
	a := Access{InstitutionID: institutionID}
	var member *InstitutionUser
	if viewer.Role == auth.RoleInstitution && viewer.UserID == institutionID {
		member = &InstitutionUser{Role: StaffAdmin, Permissions: []string{PermAll}}
	} else {
		for _, u := range staff {
			if u.InstitutionID == institutionID && u.Status == StatusActive && strings.EqualFold(u.Email, viewer.Email) {
				member = u
				break
			}
		}
	}
	if member == nil {
		return a
	}

	a.Role = member.Role
	a.IsAdmin = member.Role == StaffAdmin
	a.IsManager = member.Role == StaffManager || a.IsAdmin
	a.CanViewTransactions = a.IsManager || member.HasPermission(PermViewTransactions)
	a.CanViewProducts = a.IsManager || member.HasPermission(PermViewProducts)
	a.CanViewReports = a.IsManager || member.HasPermission(PermViewReports)
	a.CanManageStaff = a.IsAdmin
	return a
}
