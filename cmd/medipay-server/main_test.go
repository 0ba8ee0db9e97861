package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medipay/medipay/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:           "0",
		Env:            "test",
		Store:          config.StoreMemory,
		SessionTTL:     time.Hour,
		DemoPassword:   "demo123",
		CORSOrigins:    []string{"http://localhost:3000"},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		RequestTimeout: 5 * time.Second,
		SuiNetwork:     "testnet",
		SuiPackageID:   "0x0",
		WalletTimeout:  time.Second,
		LedgerPath:     t.TempDir(),
	}
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	a, err := newApp(context.Background(), testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func serve(a *app, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, a *app, email string) string {
	t.Helper()
	rec := serve(a, http.MethodPost, "/api/v1/auth/login", `{"email":"`+email+`","password":"demo123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", email, rec.Code, rec.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Token == "" {
		t.Fatalf("login %s: no token in %s", email, rec.Body.String())
	}
	return body.Token
}

func TestApp_Health(t *testing.T) {
	a := newTestApp(t)
	rec := serve(a, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("health: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestApp_RoleGuard(t *testing.T) {
	a := newTestApp(t)

	rec := serve(a, http.MethodGet, "/doctor", "", "")
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/login" {
		t.Errorf("anonymous: %d -> %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}

	token := login(t, a, "patient@demo.com")
	rec = serve(a, http.MethodGet, "/doctor", "", token)
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/patient" {
		t.Errorf("patient on doctor page: %d -> %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	rec = serve(a, http.MethodGet, "/patient", "", token)
	if rec.Code != http.StatusOK {
		t.Errorf("patient home: %d", rec.Code)
	}
}

func TestApp_ScopedAPI(t *testing.T) {
	a := newTestApp(t)

	if rec := serve(a, http.MethodGet, "/api/v1/invoices", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous invoices: expected 401, got %d", rec.Code)
	}

	token := login(t, a, "doctor@demo.com")
	rec := serve(a, http.MethodGet, "/api/v1/invoices", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("doctor invoices: %d %s", rec.Code, rec.Body.String())
	}
	if rec = serve(a, http.MethodGet, "/api/v1/payments", "", token); rec.Code != http.StatusForbidden {
		t.Errorf("doctor payments: expected 403, got %d", rec.Code)
	}
}

func TestApp_LogoutRevokesToken(t *testing.T) {
	a := newTestApp(t)
	token := login(t, a, "insurance@demo.com")

	if rec := serve(a, http.MethodPost, "/api/v1/auth/logout", "", token); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body.String())
	}
	if rec := serve(a, http.MethodGet, "/api/v1/auth/me", "", token); rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: expected 401, got %d", rec.Code)
	}
}

func TestApp_ExplorerETag(t *testing.T) {
	a := newTestApp(t)

	rec := serve(a, http.MethodGet, "/api/v1/explorer", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("explorer: %d", rec.Code)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag on explorer")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/explorer", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("expected 304, got %d", rec.Code)
	}

	token := login(t, a, "patient@demo.com")
	if rec := serve(a, http.MethodGet, "/api/v1/invoices", "", token); rec.Header().Get("ETag") != "" {
		t.Error("private listings must not carry an ETag")
	}
}

func TestApp_WalletWithoutBridge(t *testing.T) {
	a := newTestApp(t)
	token := login(t, a, "patient@demo.com")

	rec := serve(a, http.MethodPost, "/api/v1/wallet/connect", "", token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("connect: expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "wallet") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestApp_PaymentAuthorization(t *testing.T) {
	a := newTestApp(t)
	insurer := login(t, a, "insurance@demo.com")
	patient := login(t, a, "patient@demo.com")

	tests := []struct {
		name  string
		token string
		body  string
		want  int
	}{
		{"insurer pays a paid invoice", insurer, `{"invoice_id":"INV-002","amount":0.001}`, http.StatusForbidden},
		{"insurer pays a pending invoice", insurer, `{"invoice_id":"INV-003","amount":250}`, http.StatusForbidden},
		{"patient pays a paid invoice", patient, `{"invoice_id":"INV-002","amount":85}`, http.StatusConflict},
		{"patient pays a confirmed invoice", patient, `{"invoice_id":"INV-001","amount":150}`, http.StatusConflict},
		{"patient pays part of an invoice", patient, `{"invoice_id":"INV-003","amount":0.001}`, http.StatusBadRequest},
		{"unknown invoice", patient, `{"invoice_id":"INV-404","amount":1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(a, http.MethodPost, "/api/v1/wallet/transactions/pay", tt.body, tt.token)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}

	rec := serve(a, http.MethodGet, "/api/v1/transactions?limit=100", "", patient)
	var list struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || list.Total != 3 {
		t.Errorf("refused payments must not be recorded: total %d (%s)", list.Total, rec.Body.String())
	}
	rec = serve(a, http.MethodGet, "/api/v1/wallet/receipts", "", insurer)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("refused payments must not be journaled: %s", rec.Body.String())
	}
}

func TestApp_InstitutionStaffTiers(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		email   string
		role    string
		reports bool
		staff   int
	}{
		{"institution@demo.com", "admin", true, http.StatusOK},
		{"admin@citygeneral.com", "admin", true, http.StatusOK},
		{"manager@citygeneral.com", "manager", true, http.StatusOK},
		{"staff@citygeneral.com", "staff", false, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			token := login(t, a, tt.email)

			rec := serve(a, http.MethodGet, "/api/v1/institution/access", "", token)
			if rec.Code != http.StatusOK {
				t.Fatalf("access: %d %s", rec.Code, rec.Body.String())
			}
			var access struct {
				InstitutionID  string `json:"institution_id"`
				Role           string `json:"role"`
				CanViewReports bool   `json:"can_view_reports"`
			}
			json.Unmarshal(rec.Body.Bytes(), &access)
			if access.InstitutionID != "2" || access.Role != tt.role || access.CanViewReports != tt.reports {
				t.Errorf("access = %+v", access)
			}

			if rec := serve(a, http.MethodGet, "/api/v1/institution/staff", "", token); rec.Code != tt.staff {
				t.Errorf("staff list: expected %d, got %d", tt.staff, rec.Code)
			}

			rec = serve(a, http.MethodGet, "/api/v1/invoices", "", token)
			var list struct {
				Total int `json:"total"`
			}
			json.Unmarshal(rec.Body.Bytes(), &list)
			if list.Total != 2 {
				t.Errorf("institution invoices: expected 2, got %d", list.Total)
			}
		})
	}
}

func TestApp_Metrics(t *testing.T) {
	a := newTestApp(t)
	serve(a, http.MethodGet, "/health", "", "")

	rec := serve(a, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "medipay_http_requests_total") {
		t.Errorf("metrics: %d", rec.Code)
	}
}

func TestOnlyRoutes(t *testing.T) {
	e := echo.New()
	var applied []string
	mw := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			applied = append(applied, c.Path())
			return next(c)
		}
	}
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	g := e.Group("/api", onlyRoutes(mw, "/api/a"))
	g.GET("/a", ok)
	g.GET("/b", ok)

	for _, path := range []string{"/api/a", "/api/b"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	if len(applied) != 1 || applied[0] != "/api/a" {
		t.Errorf("applied = %v", applied)
	}
}

func TestResolveSessionKey(t *testing.T) {
	key, generated, err := resolveSessionKey("a-configured-signing-key")
	if err != nil || generated || string(key) != "a-configured-signing-key" {
		t.Errorf("configured: %q %v %v", key, generated, err)
	}

	a, generated, err := resolveSessionKey("")
	if err != nil || !generated || len(a) != 32 {
		t.Fatalf("generated: %d %v %v", len(a), generated, err)
	}
	b, _, _ := resolveSessionKey("")
	if bytes.Equal(a, b) {
		t.Error("generated keys should differ")
	}
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name string
		cmd  func() *bytes.Buffer
		want []string
	}{
		{"routes", func() *bytes.Buffer {
			var out bytes.Buffer
			c := routesCmd()
			c.SetOut(&out)
			c.SetArgs([]string{})
			_ = c.Execute()
			return &out
		}, []string{"PUBLIC", "/transactions", "DOCTOR", "/doctor/create"}},
		{"users", func() *bytes.Buffer {
			var out bytes.Buffer
			c := usersCmd()
			c.SetOut(&out)
			c.SetArgs([]string{})
			_ = c.Execute()
			return &out
		}, []string{"patient@demo.com", "institution@demo.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.cmd().String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}
