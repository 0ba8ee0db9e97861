package institution

import "time"

// StaffRole is a member's role inside an institution.
type StaffRole string

const (
	StaffAdmin   StaffRole = "admin"
	StaffManager StaffRole = "manager"
	StaffStaff   StaffRole = "staff"
)

var validStaffRoles = map[StaffRole]bool{
	StaffAdmin: true, StaffManager: true, StaffStaff: true,
}

type StaffStatus string

const (
	StatusActive   StaffStatus = "active"
	StatusPending  StaffStatus = "pending"
	StatusInactive StaffStatus = "inactive"
)

// Permission strings granted to staff members.
const (
	PermAll              = "all"
	PermViewTransactions = "view_transactions"
	PermViewProducts     = "view_products"
	PermViewReports      = "view_reports"
)

// defaultPermissions are granted to new invitees by role.
var defaultPermissions = map[StaffRole][]string{
	StaffAdmin:   {PermAll},
	StaffManager: {PermViewTransactions, PermViewProducts, PermViewReports},
	StaffStaff:   {PermViewTransactions, PermViewProducts},
}

// InstitutionUser is a staff member of an institution.
type InstitutionUser struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	Name          string      `json:"name"`
	Role          StaffRole   `json:"role"`
	InstitutionID string      `json:"institution_id"`
	Status        StaffStatus `json:"status"`
	InvitedBy     string      `json:"invited_by"`
	InvitedAt     time.Time   `json:"invited_at"`
	LastLogin     *time.Time  `json:"last_login,omitempty"`
	Permissions   []string    `json:"permissions"`
}

func (u *InstitutionUser) HasPermission(p string) bool {
	for _, have := range u.Permissions {
		if have == p || have == PermAll {
			return true
		}
	}
	return false
}

// Product is a billable service or good offered by an institution.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	UnitPrice     float64   `json:"unit_price"`
	Unit          string    `json:"unit"`
	InstitutionID string    `json:"institution_id"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description,omitempty" validate:"max=500"`
	Category    string  `json:"category" validate:"required"`
	UnitPrice   float64 `json:"unit_price" validate:"gt=0"`
	Unit        string  `json:"unit,omitempty"`
}

type InviteRequest struct {
	Email string    `json:"email" validate:"required,email"`
	Name  string    `json:"name" validate:"required"`
	Role  StaffRole `json:"role,omitempty" validate:"omitempty,oneof=admin manager staff"`
}

// ProductFilter narrows a product list. Category "" or "all" matches every
// category.
type ProductFilter struct {
	Search   string
	Category string
}
