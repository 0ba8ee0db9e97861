package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const LoginPath = "/login"

// Decision is the outcome of the route guard: either render the page or
// redirect elsewhere.
type Decision struct {
	Render   bool   `json:"render"`
	Redirect string `json:"redirect,omitempty"`
}

// Decide applies the route guard. Unauthenticated visitors go to the login
// page; an authenticated user whose role is not in allowed goes to their own
// dashboard. An empty allowed list admits any authenticated user.
func Decide(isAuthenticated bool, role Role, allowed []Role) Decision {
	if !isAuthenticated {
		return Decision{Redirect: LoginPath}
	}
	if len(allowed) > 0 && !containsRole(allowed, role) {
		return Decision{Redirect: role.DefaultPath()}
	}
	return Decision{Render: true}
}

// DecideContext runs Decide against the principal attached to c.
func DecideContext(c echo.Context, allowed []Role) Decision {
	p, ok := PrincipalFromContext(c.Request().Context())
	return Decide(ok, p.Role, allowed)
}

// PageGuard protects page routes, answering 303 See Other when the guard
// decides to redirect.
func PageGuard(allowed ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := DecideContext(c, allowed)
			if !d.Render {
				return c.Redirect(http.StatusSeeOther, d.Redirect)
			}
			return next(c)
		}
	}
}

func containsRole(roles []Role, r Role) bool {
	for _, allowed := range roles {
		if allowed == r {
			return true
		}
	}
	return false
}
