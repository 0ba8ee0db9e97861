package middleware

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medipay/medipay/internal/platform/auth"
)

func TestRateLimit_BlocksAfterBurst(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})(ok)

	for i := 0; i < 2; i++ {
		c, rec := newContext(http.MethodGet, "/api/v1/invoices")
		if err := mw(c); err != nil || rec.Code != http.StatusOK {
			t.Fatalf("request %d: %v (%d)", i, err, rec.Code)
		}
	}
	c, rec := newContext(http.MethodGet, "/api/v1/invoices")
	err := mw(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") != "1" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("headers = %v", rec.Header())
	}
}

func TestRateLimit_KeysByUser(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})(ok)

	for _, id := range []string{"1", "4"} {
		c, _ := newContext(http.MethodGet, "/")
		withPrincipal(c, auth.Principal{UserID: id, Role: auth.RolePatient})
		if err := mw(c); err != nil {
			t.Errorf("user %s: unexpected error %v", id, err)
		}
	}
	c, _ := newContext(http.MethodGet, "/")
	withPrincipal(c, auth.Principal{UserID: "1", Role: auth.RolePatient})
	if err := mw(c); err == nil {
		t.Error("second request of user 1 should be limited")
	}
}

func TestRateLimit_Skipper(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}
	cfg.Skipper = func(c echo.Context) bool { return c.Request().URL.Path == "/health" }
	mw := RateLimit(cfg)(ok)
	for i := 0; i < 3; i++ {
		c, _ := newContext(http.MethodGet, "/health")
		if err := mw(c); err != nil {
			t.Fatalf("skipped path limited: %v", err)
		}
	}
}

func TestLimiterStore_EvictsIdle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newLimiterStore(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute})
	s.now = func() time.Time { return now }

	s.get("a")
	s.get("b")
	now = now.Add(2 * time.Minute)
	s.get("c")
	if got := s.len(); got != 1 {
		t.Errorf("len = %d, want 1", got)
	}
}
