package middleware

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CacheConfig configures ETag.
type CacheConfig struct {
	MaxAge      int
	Private     bool
	VaryHeaders []string
}

// DefaultCacheConfig suits the public explorer and the route table: short
// lived, shared, varying on the session cookie.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxAge:      30,
		VaryHeaders: []string{"Accept", "Cookie"},
	}
}

// bufferedResponseWriter holds the body until the ETag is known.
type bufferedResponseWriter struct {
	writer     http.ResponseWriter
	buf        bytes.Buffer
	statusCode int
}

func newBufferedResponseWriter(w http.ResponseWriter) *bufferedResponseWriter {
	return &bufferedResponseWriter{writer: w, statusCode: http.StatusOK}
}

func (w *bufferedResponseWriter) Header() http.Header { return w.writer.Header() }

func (w *bufferedResponseWriter) Write(b []byte) (int, error) { return w.buf.Write(b) }

func (w *bufferedResponseWriter) WriteHeader(code int) { w.statusCode = code }

func (w *bufferedResponseWriter) flushTo() error {
	w.writer.WriteHeader(w.statusCode)
	if w.buf.Len() == 0 {
		return nil
	}
	_, err := w.writer.Write(w.buf.Bytes())
	return err
}

// ETag tags successful GET and HEAD responses with a weak ETag over the body
// and answers 304 when If-None-Match already holds it.
func ETag(config CacheConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}

			res := c.Response()
			orig := res.Writer
			buf := newBufferedResponseWriter(orig)
			res.Writer = buf
			err := next(c)
			res.Writer = orig
			if err != nil {
				return err
			}
			if buf.statusCode >= 300 {
				return buf.flushTo()
			}

			h := res.Header()
			h.Set("Cache-Control", cacheControl(config))
			if len(config.VaryHeaders) > 0 {
				h.Set("Vary", strings.Join(config.VaryHeaders, ", "))
			}
			etag := computeETag(buf.buf.Bytes())
			h.Set("ETag", etag)

			if inm := req.Header.Get("If-None-Match"); inm != "" && etagMatch(inm, etag) {
				h.Del(echo.HeaderContentLength)
				orig.WriteHeader(http.StatusNotModified)
				return nil
			}
			return buf.flushTo()
		}
	}
}

func computeETag(body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf(`W/"%x"`, sum[:16])
}

func cacheControl(config CacheConfig) string {
	scope := "public"
	if config.Private {
		scope = "private"
	}
	return fmt.Sprintf("%s, max-age=%d", scope, config.MaxAge)
}

// etagMatch compares weakly against a comma-separated If-None-Match list.
func etagMatch(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}
