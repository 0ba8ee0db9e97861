package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 1 << 20},
		{"512", 512},
		{"4K", 4 << 10},
		{"2M", 2 << 20},
		{"2MB", 2 << 20},
		{"1g", 1 << 30},
		{"lots", 1 << 20},
		{"-5", 1 << 20},
	}
	for _, tt := range tests {
		if got := parseLimit(tt.in); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBodyLimit_ContentLength(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", strings.NewReader(strings.Repeat("a", 20)))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := BodyLimit("10")(ok)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestBodyLimit_StreamedBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", strings.NewReader(strings.Repeat("a", 20)))
	req.ContentLength = -1
	c := e.NewContext(req, httptest.NewRecorder())

	err := BodyLimit("10")(func(c echo.Context) error {
		_, err := io.ReadAll(c.Request().Body)
		return err
	})(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small"))
	req.ContentLength = -1
	c = e.NewContext(req, httptest.NewRecorder())
	err = BodyLimit("10")(func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		if string(b) != "small" {
			t.Errorf("body = %q", b)
		}
		return err
	})(c)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
