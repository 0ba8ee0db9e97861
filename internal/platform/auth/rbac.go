package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// GuardError is the JSON body of a guard rejection on API routes. Redirect
// tells the client where the page guard would have sent it.
type GuardError struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// RequireAuth rejects requests without an authenticated session.
func RequireAuth() echo.MiddlewareFunc {
	return RequireRole()
}

// RequireRole returns middleware that checks the session role against roles.
// With no roles it only requires authentication.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c.Request().Context())
			d := Decide(ok, p.Role, roles)
			if d.Render {
				return next(c)
			}
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized,
					GuardError{Message: "authentication required", Redirect: d.Redirect})
			}
			return echo.NewHTTPError(http.StatusForbidden,
				GuardError{Message: fmt.Sprintf("required role: %s", joinRoles(roles)), Redirect: d.Redirect})
		}
	}
}

func joinRoles(roles []Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " or ")
}
