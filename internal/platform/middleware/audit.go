package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medipay/medipay/internal/platform/auth"
)

// AuditEntry records one state-changing API call.
type AuditEntry struct {
	RequestID  string
	UserID     string
	Role       auth.Role
	Action     string
	Resource   string
	ResourceID string
	Method     string
	Path       string
	IPAddress  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every mutating /api/v1 call (invoice, record, prescription,
// staff, product and wallet changes) with the acting principal, and hands it
// to the optional recorders.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/v1/") || !isMutation(req.Method) {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			entry := AuditEntry{
				Method:     req.Method,
				Path:       req.URL.Path,
				Action:     methodToAction(req.Method),
				IPAddress:  c.RealIP(),
				StatusCode: status,
				Timestamp:  time.Now().UTC(),
			}
			entry.Resource, entry.ResourceID = resourceOf(req.URL.Path)
			entry.RequestID, _ = c.Get("request_id").(string)
			if p, ok := auth.PrincipalFromContext(req.Context()); ok {
				entry.UserID = p.UserID
				entry.Role = p.Role
			}

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("role", string(entry.Role)).
				Str("action", entry.Action).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("api_mutation")

			return err
		}
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func methodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceOf splits /api/v1/<resource>/<id>/... into resource and id. The
// auth, wallet and institution groups nest one level deeper.
func resourceOf(path string) (resource, id string) {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1/"), "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "unknown", ""
	}
	switch segments[0] {
	case "auth", "wallet", "institution":
		if len(segments) > 1 {
			resource = segments[0] + "." + segments[1]
			if len(segments) > 2 {
				id = segments[2]
			}
			return resource, id
		}
	}
	resource = segments[0]
	if len(segments) > 1 {
		id = segments[1]
	}
	return resource, id
}
