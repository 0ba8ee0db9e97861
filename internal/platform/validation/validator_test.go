package validation

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type productForm struct {
	Name      string  `json:"name" validate:"required"`
	Email     string  `json:"contact_email,omitempty" validate:"omitempty,email"`
	UnitPrice float64 `json:"unit_price" validate:"gt=0"`
	Role      string  `json:"role,omitempty" validate:"omitempty,oneof=admin manager staff"`
}

func TestValidator_Validate(t *testing.T) {
	v := New()
	tests := []struct {
		name    string
		in      productForm
		wantErr []string
	}{
		{"valid", productForm{Name: "Paracetamol", UnitPrice: 2.5}, nil},
		{"missing name", productForm{UnitPrice: 1}, []string{"name is required"}},
		{"bad price and email", productForm{Name: "x", Email: "nope"}, []string{"contact_email must be a valid email", "unit_price must be gt 0"}},
		{"bad role", productForm{Name: "x", UnitPrice: 1, Role: "owner"}, []string{"role must be one of: admin manager staff"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.in)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var he *echo.HTTPError
			if !errors.As(err, &he) {
				t.Fatalf("expected *echo.HTTPError, got %T", err)
			}
			if he.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", he.Code)
			}
			msg, _ := he.Message.(string)
			for _, want := range tt.wantErr {
				if !strings.Contains(msg, want) {
					t.Errorf("message %q does not contain %q", msg, want)
				}
			}
		})
	}
}
