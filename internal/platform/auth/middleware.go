package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type contextKey string

var errInvalidAuthFormat = errors.New("invalid authorization format")

const (
	PrincipalKey contextKey = "principal"
	ClaimsKey    contextKey = "session_claims"
)

// Principal is the authenticated user behind a request. InstitutionID is set
// for institution staff acting on behalf of their institution.
type Principal struct {
	SessionID     string `json:"session_id"`
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          Role   `json:"role"`
	InstitutionID string `json:"institution_id,omitempty"`
}

// OwnerID is the id the principal's dashboard rows belong to: the
// institution for institution staff, the user otherwise.
func (p Principal) OwnerID() string {
	if p.InstitutionID != "" {
		return p.InstitutionID
	}
	return p.UserID
}

// SessionResolver looks up the live state of a session. A session that was
// logged out or never adopted resolves to false.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (Principal, bool)
}

type SessionConfig struct {
	Issuer      *TokenIssuer
	Revocations RevocationStore
	Resolver    SessionResolver
	Skipper     middleware.Skipper
}

// SessionMiddleware attaches the principal of a valid session to the request
// context. Requests without a token continue unauthenticated so the guards
// can decide; an invalid bearer token is rejected outright, while a stale
// cookie is ignored.
func SessionMiddleware(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr, fromHeader, err := extractToken(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			if tokenStr == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			principal, claims, ok := authenticate(ctx, cfg, tokenStr)
			if !ok {
				if fromHeader {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
				return next(c)
			}

			ctx = context.WithValue(ctx, PrincipalKey, principal)
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("user_id", principal.UserID)

			return next(c)
		}
	}
}

func authenticate(ctx context.Context, cfg SessionConfig, tokenStr string) (Principal, *Claims, bool) {
	claims, err := cfg.Issuer.Parse(tokenStr)
	if err != nil {
		return Principal{}, nil, false
	}
	if cfg.Revocations != nil {
		revoked, err := cfg.Revocations.IsRevoked(ctx, claims.ID)
		if err != nil || revoked {
			return Principal{}, nil, false
		}
	}
	principal, ok := cfg.Resolver.Resolve(ctx, claims.ID)
	if !ok {
		return Principal{}, nil, false
	}
	return principal, claims, true
}

// extractToken reads a bearer token from the Authorization header, falling
// back to the session cookie.
func extractToken(c echo.Context) (token string, fromHeader bool, err error) {
	if authHeader := c.Request().Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", true, errInvalidAuthFormat
		}
		return parts[1], true, nil
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, false, nil
	}
	if q := c.QueryParam("token"); q != "" && strings.HasPrefix(c.Path(), "/ws/") {
		return q, false, nil
	}
	return "", false, nil
}

// WithPrincipal returns a copy of ctx carrying p. Used by tests and by code
// that authenticates outside the HTTP middleware chain.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(Principal)
	return p, ok
}

func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsKey).(*Claims)
	return claims
}

func UserIDFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.UserID
}

func RoleFromContext(ctx context.Context) Role {
	p, _ := PrincipalFromContext(ctx)
	return p.Role
}
