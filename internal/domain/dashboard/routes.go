package dashboard

import (
	"strings"

	"github.com/medipay/medipay/internal/platform/auth"
)

// Page is a sub-page of a role dashboard. The index page has an empty slug.
type Page struct {
	Role  auth.Role `json:"role"`
	Slug  string    `json:"slug"`
	Title string    `json:"title"`
	Path  string    `json:"path"`
}

// PublicRoute is a page reachable without a session.
type PublicRoute struct {
	Path  string `json:"path"`
	Title string `json:"title"`
}

// PublicRoutes are served to anyone.
var PublicRoutes = []PublicRoute{
	{"/", "MediPay"},
	{"/login", "Login"},
	{"/register", "Register"},
	{"/transactions", "Transaction Explorer"},
}

// PagesFor lists the dashboard pages of role in navigation order. The page
// set is exactly the role's navigation.
func PagesFor(role auth.Role) []Page {
	nav := NavFor(role)
	pages := make([]Page, 0, len(nav))
	base := role.DefaultPath()
	for _, item := range nav {
		pages = append(pages, Page{
			Role:  role,
			Slug:  strings.TrimPrefix(strings.TrimPrefix(item.Href, base), "/"),
			Title: item.Title,
			Path:  item.Href,
		})
	}
	return pages
}

// Lookup finds the page of role with the given slug.
func Lookup(role auth.Role, slug string) (Page, bool) {
	for _, p := range PagesFor(role) {
		if p.Slug == slug {
			return p, true
		}
	}
	return Page{}, false
}

// Surface is the full page route surface: public routes, then every role's
// pages in role order.
func Surface() ([]PublicRoute, map[auth.Role][]Page) {
	byRole := make(map[auth.Role][]Page, len(auth.Roles()))
	for _, r := range auth.Roles() {
		byRole[r] = PagesFor(r)
	}
	return PublicRoutes, byRole
}
