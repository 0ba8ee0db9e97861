package clinical

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
	return NewHandler(newTestService()), e
}

func newContext(e *echo.Echo, method, body string, p auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_ListRecords(t *testing.T) {
	h, e := newTestHandler()
	c, rec := newContext(e, http.MethodGet, "", doctor)

	if err := h.ListRecords(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data  []MedicalRecord `json:"data"`
		Total int             `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 1 || body.Data[0].Diagnosis != "Hypertension" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHandler_GetRecord_Forbidden(t *testing.T) {
	h, e := newTestHandler()
	c, _ := newContext(e, http.MethodGet, "", otherDoctor)
	c.SetParamNames("id")
	c.SetParamValues("MR-001")

	err := h.GetRecord(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}

func TestHandler_CreateRecord(t *testing.T) {
	h, e := newTestHandler()
	c, rec := newContext(e, http.MethodPost, `{"patient_id":"6","diagnosis":"Sprain","treatment":"Ice","total_cost":40}`, doctor)

	if err := h.CreateRecord(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var m MedicalRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.PatientName != "Bob Wilson" || !strings.HasPrefix(m.ID, "MR-") {
		t.Errorf("unexpected record: %+v", m)
	}
}

func TestHandler_CreateRecord_Invalid(t *testing.T) {
	h, e := newTestHandler()
	c, _ := newContext(e, http.MethodPost, `{"patient_id":"6","treatment":"Ice"}`, doctor)

	err := h.CreateRecord(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if msg, _ := he.Message.(string); !strings.Contains(msg, "diagnosis is required") {
		t.Errorf("message = %v", he.Message)
	}
}

func TestHandler_AddPrescription(t *testing.T) {
	h, e := newTestHandler()
	c, rec := newContext(e, http.MethodPost, `{"medication_name":"Metformin","dosage":"500mg","frequency":"Twice daily","quantity":60,"unit_price":0.2}`, doctor)
	c.SetParamNames("id")
	c.SetParamValues("MR-001")

	if err := h.AddPrescription(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var rx Prescription
	if err := json.Unmarshal(rec.Body.Bytes(), &rx); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rx.TotalPrice != 12 {
		t.Errorf("total price = %v, want 12", rx.TotalPrice)
	}
}

func TestHandler_ListPatients(t *testing.T) {
	h, e := newTestHandler()
	c, rec := newContext(e, http.MethodGet, "", doctor)

	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 patients, got %d", len(got))
	}
}

// brokenRecords fails every write and listing like an unreachable database.
type brokenRecords struct {
	RecordRepository
}

func (brokenRecords) Create(context.Context, *MedicalRecord) error {
	return errors.New("connection refused")
}

func (brokenRecords) ListByDoctor(context.Context, string) ([]*MedicalRecord, error) {
	return nil, errors.New("connection refused")
}

func TestHandler_StorageFailure(t *testing.T) {
	svc := NewService(brokenRecords{NewRecordRepoMemory(SeedRecords())}, SeedPatients(), SeedInstitutions(), zerolog.Nop())
	h := NewHandler(svc)
	e := echo.New()
	e.Validator = validation.New()

	tests := []struct {
		name string
		call func() error
		want int
	}{
		{"create", func() error {
			c, _ := newContext(e, http.MethodPost, `{"patient_id":"6","diagnosis":"Sprain","treatment":"Ice"}`, doctor)
			return h.CreateRecord(c)
		}, http.StatusInternalServerError},
		{"list", func() error {
			c, _ := newContext(e, http.MethodGet, "", doctor)
			return h.ListRecords(c)
		}, http.StatusInternalServerError},
		{"unknown patient", func() error {
			c, _ := newContext(e, http.MethodPost, `{"patient_id":"42","diagnosis":"Sprain","treatment":"Ice"}`, doctor)
			return h.CreateRecord(c)
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var he *echo.HTTPError
			if err := tt.call(); !errors.As(err, &he) || he.Code != tt.want {
				t.Errorf("expected %d, got %v", tt.want, err)
			}
		})
	}
}
