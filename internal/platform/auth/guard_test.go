package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		authed   bool
		role     Role
		allowed  []Role
		render   bool
		redirect string
	}{
		{"anonymous", false, "", nil, false, "/login"},
		{"anonymous with roles", false, "", []Role{RolePatient}, false, "/login"},
		{"any authenticated", true, RoleDoctor, nil, true, ""},
		{"allowed role", true, RolePatient, []Role{RolePatient}, true, ""},
		{"one of several", true, RoleInsurance, []Role{RoleInstitution, RoleInsurance}, true, ""},
		{"doctor on patient page", true, RoleDoctor, []Role{RolePatient}, false, "/doctor"},
		{"institution on doctor page", true, RoleInstitution, []Role{RoleDoctor}, false, "/institution"},
		{"insurance on patient page", true, RoleInsurance, []Role{RolePatient}, false, "/insurance"},
		{"patient on insurance page", true, RolePatient, []Role{RoleInsurance}, false, "/patient"},
		{"unknown role falls back", true, Role("auditor"), []Role{RoleDoctor}, false, "/patient"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.authed, tt.role, tt.allowed)
			if d.Render != tt.render {
				t.Errorf("expected render=%v, got %v", tt.render, d.Render)
			}
			if d.Redirect != tt.redirect {
				t.Errorf("expected redirect %q, got %q", tt.redirect, d.Redirect)
			}
		})
	}
}

func TestPageGuard_RedirectsAnonymous(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patient", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := PageGuard(RolePatient)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("expected handler not to run")
	}
	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("expected redirect to /login, got %q", loc)
	}
}

func TestPageGuard_RedirectsWrongRole(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patient/invoices", nil)
	req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: "4", Role: RoleDoctor}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := PageGuard(RolePatient)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc := rec.Header().Get("Location"); loc != "/doctor" {
		t.Errorf("expected redirect to /doctor, got %q", loc)
	}
}

func TestPageGuard_Renders(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patient", nil)
	req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: "1", Role: RolePatient}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := PageGuard(RolePatient)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRole_ParseAndDefaultPath(t *testing.T) {
	for _, r := range Roles() {
		parsed, ok := ParseRole(" " + string(r) + " ")
		if !ok || parsed != r {
			t.Errorf("ParseRole(%q) = %q, %v", r, parsed, ok)
		}
		if r.DefaultPath() != "/"+string(r) {
			t.Errorf("expected default path /%s, got %s", r, r.DefaultPath())
		}
	}
	if _, ok := ParseRole("admin"); ok {
		t.Error("expected admin to be rejected")
	}
}
