package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const maxHeaderValueSize = 8192

var scriptPattern = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)

// Sanitize rejects requests with path traversal, null bytes, header
// injection or script payloads in the query string. Search boxes feed the
// query string, so rejected queries are logged with the offending key.
func Sanitize(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			rawPath := req.URL.RawPath
			if rawPath == "" {
				rawPath = path
			}

			if containsPathTraversal(path) || containsPathTraversal(rawPath) {
				return message(c, http.StatusBadRequest, "path traversal detected")
			}
			if containsNullByte(path) || containsNullByte(rawPath) {
				return message(c, http.StatusBadRequest, "null byte in path")
			}

			for name, values := range req.Header {
				for _, v := range values {
					if len(v) > maxHeaderValueSize {
						return message(c, http.StatusBadRequest, "header value too large: "+name)
					}
					if strings.ContainsAny(v, "\r\n") {
						return message(c, http.StatusBadRequest, "header injection detected: "+name)
					}
				}
			}

			for key, values := range req.URL.Query() {
				for _, v := range values {
					if containsNullByte(key) || containsNullByte(v) {
						return message(c, http.StatusBadRequest, "null byte in query parameter")
					}
					if scriptPattern.MatchString(key) || scriptPattern.MatchString(v) {
						logger.Warn().
							Str("param", key).
							Str("path", path).
							Str("remote_ip", c.RealIP()).
							Msg("script payload rejected")
						return message(c, http.StatusBadRequest, "script payload in query parameter")
					}
				}
			}
			return next(c)
		}
	}
}

func containsPathTraversal(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(s, "..") || strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e")
}

func containsNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00') || strings.Contains(strings.ToLower(s), "%00")
}
