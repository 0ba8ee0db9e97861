// Package dashboard assembles the role dashboards: navigation, the page
// route surface and the view model of each page.
package dashboard

import "github.com/medipay/medipay/internal/platform/auth"

// NavItem is one entry of a dashboard sidebar.
type NavItem struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Icon  string `json:"icon"`
}

// NavFor returns the sidebar of role's dashboard, or nil for an unknown role.
func NavFor(role auth.Role) []NavItem {
	switch role {
	case auth.RolePatient:
		return []NavItem{
			{"Dashboard", "/patient", "activity"},
			{"Invoices", "/patient/invoices", "file-text"},
			{"Transactions", "/patient/transactions", "credit-card"},
			{"Profile", "/patient/profile", "user"},
			{"Settings", "/patient/settings", "settings"},
		}
	case auth.RoleDoctor:
		return []NavItem{
			{"Dashboard", "/doctor", "activity"},
			{"Create Invoice", "/doctor/create", "plus-circle"},
			{"Invoices", "/doctor/invoices", "file-text"},
			{"Reports", "/doctor/reports", "bar-chart-3"},
			{"Profile", "/doctor/profile", "user"},
			{"Settings", "/doctor/settings", "settings"},
		}
	case auth.RoleInstitution:
		return []NavItem{
			{"Dashboard", "/institution", "activity"},
			{"Products", "/institution/products", "package"},
			{"Users", "/institution/users", "users"},
			{"Transactions", "/institution/transactions", "credit-card"},
			{"Reports", "/institution/reports", "bar-chart-3"},
			{"Settings", "/institution/settings", "settings"},
		}
	case auth.RoleInsurance:
		return []NavItem{
			{"Dashboard", "/insurance", "activity"},
			{"Claims", "/insurance/claims", "file-text"},
			{"Payments", "/insurance/payments", "dollar-sign"},
			{"Reports", "/insurance/reports", "bar-chart-3"},
			{"Settings", "/insurance/settings", "settings"},
		}
	default:
		return nil
	}
}
