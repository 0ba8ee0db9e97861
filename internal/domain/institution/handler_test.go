package institution

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medipay/medipay/internal/platform/auth"
	"github.com/medipay/medipay/internal/platform/validation"
)

func newTestHandler() (*Handler, *echo.Echo) {
	e := echo.New()
	e.Validator = validation.New()
	svc, _ := newTestService()
	return NewHandler(svc), e
}

func newContext(e *echo.Echo, method, target, body string, p auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func TestHandler_ListProducts(t *testing.T) {
	h, e := newTestHandler()
	c, rec := newContext(e, http.MethodGet, "/institution/products?category=Laboratory", "", hospital)

	if err := h.ListProducts(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body ProductList
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Products) != 1 || body.Products[0].ID != "PROD-002" || len(body.Categories) != 5 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHandler_CreateProduct(t *testing.T) {
	h, e := newTestHandler()

	c, rec := newContext(e, http.MethodPost, "/", `{"name":"MRI Scan","category":"Imaging","unit_price":900}`, hospital)
	if err := h.CreateProduct(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	c, _ = newContext(e, http.MethodPost, "/", `{"name":"MRI Scan","category":"Imaging","unit_price":0}`, hospital)
	err := h.CreateProduct(c)
	if httpCode(err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_ToggleAndDelete(t *testing.T) {
	h, e := newTestHandler()

	c, rec := newContext(e, http.MethodPost, "/", "", hospital)
	c.SetParamNames("id")
	c.SetParamValues("PROD-001")
	if err := h.ToggleProduct(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var p Product
	_ = json.Unmarshal(rec.Body.Bytes(), &p)
	if p.IsActive {
		t.Error("product should be inactive after toggle")
	}

	c, rec = newContext(e, http.MethodDelete, "/", "", hospital)
	c.SetParamNames("id")
	c.SetParamValues("PROD-001")
	if err := h.DeleteProduct(c); err != nil || rec.Code != http.StatusNoContent {
		t.Errorf("delete: code %d, err %v", rec.Code, err)
	}

	c, _ = newContext(e, http.MethodDelete, "/", "", hospital)
	c.SetParamNames("id")
	c.SetParamValues("PROD-404")
	if code := httpCode(h.DeleteProduct(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_Invite(t *testing.T) {
	h, e := newTestHandler()

	c, rec := newContext(e, http.MethodPost, "/", `{"email":"lab@citygeneral.com","name":"Lab Tech","role":"manager"}`, hospital)
	if err := h.Invite(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var u InstitutionUser
	_ = json.Unmarshal(rec.Body.Bytes(), &u)
	if u.Role != StaffManager || u.Status != StatusPending {
		t.Errorf("unexpected invitee: %+v", u)
	}

	c, _ = newContext(e, http.MethodPost, "/", `{"email":"not-an-email","name":"X"}`, hospital)
	err := h.Invite(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if msg, _ := he.Message.(string); !strings.Contains(msg, "email must be a valid email") {
		t.Errorf("message = %v", he.Message)
	}
}

func TestHandler_ListStaff(t *testing.T) {
	h, e := newTestHandler()
	c, rec := newContext(e, http.MethodGet, "/institution/staff?limit=2", "", hospital)

	if err := h.ListStaff(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data    []InstitutionUser `json:"data"`
		Total   int               `json:"total"`
		HasMore bool              `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 4 || len(body.Data) != 2 || !body.HasMore || body.Data[0].ID != "IU-001" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHandler_StaffActions(t *testing.T) {
	h, e := newTestHandler()
	actions := []struct {
		name   string
		fn     echo.HandlerFunc
		id     string
		status StaffStatus
	}{
		{"resend", h.ResendInvitation, "IU-004", StatusPending},
		{"activate", h.Activate, "IU-004", StatusActive},
		{"deactivate", h.Deactivate, "IU-002", StatusInactive},
	}
	for _, a := range actions {
		t.Run(a.name, func(t *testing.T) {
			c, rec := newContext(e, http.MethodPost, "/", "", hospital)
			c.SetParamNames("id")
			c.SetParamValues(a.id)
			if err := a.fn(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var u InstitutionUser
			_ = json.Unmarshal(rec.Body.Bytes(), &u)
			if u.Status != a.status {
				t.Errorf("status = %s, want %s", u.Status, a.status)
			}
		})
	}
}

func TestHandler_GetAccess_Forbidden(t *testing.T) {
	h, e := newTestHandler()
	c, _ := newContext(e, http.MethodGet, "/", "", doctor)
	if code := httpCode(h.GetAccess(c)); code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", code)
	}
}

// brokenProducts fails every read like an unreachable database.
type brokenProducts struct {
	ProductRepository
}

func (brokenProducts) ListByInstitution(context.Context, string) ([]*Product, error) {
	return nil, errors.New("connection refused")
}

func TestHandler_ErrorStatus(t *testing.T) {
	e := echo.New()
	e.Validator = validation.New()
	broken := NewHandler(NewService(NewStaffRepoMemory(SeedStaff()), brokenProducts{NewProductRepoMemory(nil)}, nil, zerolog.Nop()))
	h, _ := newTestHandler()

	tests := []struct {
		name string
		call func() error
		want int
	}{
		{"storage failure", func() error {
			c, _ := newContext(e, http.MethodGet, "/institution/products", "", hospital)
			return broken.ListProducts(c)
		}, http.StatusInternalServerError},
		{"duplicate invitation", func() error {
			c, _ := newContext(e, http.MethodPost, "/institution/staff", `{"email":"staff@citygeneral.com","name":"Jane"}`, hospital)
			return h.Invite(c)
		}, http.StatusConflict},
		{"staff member manages staff", func() error {
			c, _ := newContext(e, http.MethodGet, "/institution/staff", "", clerk)
			return h.ListStaff(c)
		}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := httpCode(tt.call()); code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, code)
			}
		})
	}
}
