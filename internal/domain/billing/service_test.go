package billing

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medipay/medipay/internal/platform/auth"
	"github.com/medipay/medipay/internal/platform/websocket"
)

var (
	patient     = auth.Principal{UserID: "1", Name: "John Smith", Role: auth.RolePatient}
	doctor      = auth.Principal{UserID: "4", Name: "Dr. Sarah Johnson", Role: auth.RoleDoctor}
	institution = auth.Principal{UserID: "2", Name: "City General Hospital", Role: auth.RoleInstitution}
	insurer     = auth.Principal{UserID: "3", Name: "HealthCare Plus Insurance", Role: auth.RoleInsurance}
	stranger    = auth.Principal{UserID: "99", Name: "Someone Else", Role: auth.RolePatient}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev websocket.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Topic)
	}
	sort.Strings(out)
	return out
}

func newTestService(now time.Time) (*Service, *recordingPublisher) {
	pub := &recordingPublisher{}
	svc := NewService(
		NewInvoiceRepoMemory(SeedInvoices()),
		NewTransactionRepoMemory(SeedTransactions()),
		NewPaymentRepoMemory(SeedPayments()),
		pub,
		zerolog.Nop(),
	)
	svc.SetClock(func() time.Time { return now })
	return svc, pub
}

func txIDs(items []*Transaction) []string {
	out := make([]string, 0, len(items))
	for _, tx := range items {
		out = append(out, tx.ID)
	}
	return out
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestService_ListInvoices_ScopedByRole(t *testing.T) {
	svc, _ := newTestService(time.Now())
	tests := []struct {
		name   string
		viewer auth.Principal
		filter InvoiceFilter
		want   []string
	}{
		{"patient sees own", patient, InvoiceFilter{}, []string{"INV-001", "INV-002", "INV-003"}},
		{"patient cannot widen scope", patient, InvoiceFilter{PatientID: "other"}, []string{"INV-001", "INV-002", "INV-003"}},
		{"doctor sees own", doctor, InvoiceFilter{}, []string{"INV-001", "INV-002"}},
		{"institution sees own", institution, InvoiceFilter{}, []string{"INV-001", "INV-002"}},
		{"institution staff see the institution's", auth.Principal{UserID: "IU-003", Role: auth.RoleInstitution, InstitutionID: "2"}, InvoiceFilter{}, []string{"INV-001", "INV-002"}},
		{"insurer sees claims", insurer, InvoiceFilter{}, []string{"INV-001", "INV-002", "INV-003"}},
		{"stranger sees nothing", stranger, InvoiceFilter{}, []string{}},
		{"search by service", patient, InvoiceFilter{Search: "blood"}, []string{"INV-002"}},
		{"search by doctor", patient, InvoiceFilter{Search: "chen"}, []string{"INV-003"}},
		{"search by id", patient, InvoiceFilter{Search: "inv-001"}, []string{"INV-001"}},
		{"status filter", patient, InvoiceFilter{Status: StatusPending}, []string{"INV-003"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListInvoices(context.Background(), tt.viewer, tt.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !equalIDs(InvoiceIDs(got), tt.want) {
				t.Errorf("got %v, want %v", InvoiceIDs(got), tt.want)
			}
		})
	}
}

func TestService_ListInvoices_OnlyPatientRows(t *testing.T) {
	seed := append(SeedInvoices(), &Invoice{ID: "INV-900", PatientID: "7", DoctorID: "4", Service: "X-Ray", Amount: 40, Status: StatusPending})
	svc := NewService(NewInvoiceRepoMemory(seed), NewTransactionRepoMemory(nil), NewPaymentRepoMemory(nil), nil, zerolog.Nop())

	got, err := svc.ListInvoices(context.Background(), patient, InvoiceFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, inv := range got {
		if inv.PatientID != patient.UserID {
			t.Errorf("invoice %s belongs to patient %s", inv.ID, inv.PatientID)
		}
	}
	if len(got) != 3 {
		t.Errorf("expected 3 invoices, got %d", len(got))
	}
}

func TestService_Invoices_Summary(t *testing.T) {
	svc, _ := newTestService(time.Now())
	list, err := svc.Invoices(context.Background(), patient, InvoiceFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := InvoiceSummary{Count: 3, Total: 485, Paid: 235, Pending: 250, UniquePatients: 1}
	if list.Summary != want {
		t.Errorf("got %+v, want %+v", list.Summary, want)
	}
}

func TestService_Overview(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ov, err := svc.Overview(context.Background(), patient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(InvoiceIDs(ov.Recent), []string{"INV-003", "INV-002", "INV-001"}) {
		t.Errorf("recent = %v", InvoiceIDs(ov.Recent))
	}
	if ov.Summary.Count != 3 {
		t.Errorf("expected count 3, got %d", ov.Summary.Count)
	}
}

func TestService_GetInvoice(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()

	if _, err := svc.GetInvoice(ctx, patient, "INV-001"); err != nil {
		t.Errorf("owner: unexpected error: %v", err)
	}
	if _, err := svc.GetInvoice(ctx, stranger, "INV-001"); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.GetInvoice(ctx, doctor, "INV-003"); !errors.Is(err, ErrForbidden) {
		t.Errorf("other doctor: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.GetInvoice(ctx, patient, "INV-404"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: expected ErrNotFound, got %v", err)
	}
}

func TestService_CreateInvoice(t *testing.T) {
	now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	svc, pub := newTestService(now)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, doctor, CreateInvoiceRequest{
		PatientID: "1", PatientName: "John Smith",
		InstitutionID: "2", InstitutionName: "City General Hospital",
		Service: "Follow-up", Amount: 60, InsuranceClaimID: "CLM-010",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Status != StatusPending {
		t.Errorf("expected pending, got %s", inv.Status)
	}
	if inv.DoctorID != "4" || inv.DoctorName != "Dr. Sarah Johnson" {
		t.Errorf("doctor not taken from the session: %+v", inv)
	}
	if !inv.CreatedAt.Equal(now) {
		t.Errorf("expected created_at %v, got %v", now, inv.CreatedAt)
	}

	got, err := svc.GetInvoice(ctx, patient, inv.ID)
	if err != nil || got.Service != "Follow-up" {
		t.Fatalf("created invoice not visible to patient: %v", err)
	}

	want := []string{"doctor/4", "institution/2", "insurance", "patient/1"}
	if !equalIDs(pub.topics(), want) {
		t.Errorf("topics = %v, want %v", pub.topics(), want)
	}
}

func TestService_CreateInvoice_Rejects(t *testing.T) {
	svc, pub := newTestService(time.Now())
	ctx := context.Background()
	valid := CreateInvoiceRequest{PatientID: "1", PatientName: "John Smith", Service: "Consult", Amount: 10}

	if _, err := svc.CreateInvoice(ctx, patient, valid); !errors.Is(err, ErrForbidden) {
		t.Errorf("patient: expected ErrForbidden, got %v", err)
	}
	zero := valid
	zero.Amount = 0
	if _, err := svc.CreateInvoice(ctx, doctor, zero); !errors.Is(err, ErrInvalid) {
		t.Errorf("zero amount: expected ErrInvalid, got %v", err)
	}
	noService := valid
	noService.Service = ""
	if _, err := svc.CreateInvoice(ctx, doctor, noService); !errors.Is(err, ErrInvalid) {
		t.Errorf("missing service: expected ErrInvalid, got %v", err)
	}
	if len(pub.topics()) != 0 {
		t.Errorf("rejected invoices must not publish, got %v", pub.topics())
	}
}

func TestService_Transactions(t *testing.T) {
	now := time.Date(2024, 1, 25, 18, 0, 0, 0, time.UTC)
	svc, _ := newTestService(now)
	tests := []struct {
		name   string
		viewer auth.Principal
		filter TransactionFilter
		want   []string
	}{
		{"patient all", patient, TransactionFilter{}, []string{"TXN-001", "TXN-002", "TXN-003"}},
		{"doctor own invoices", doctor, TransactionFilter{}, []string{"TXN-001", "TXN-002"}},
		{"stranger", stranger, TransactionFilter{}, []string{}},
		{"status", patient, TransactionFilter{Status: StatusConfirmed}, []string{"TXN-001"}},
		{"today", patient, TransactionFilter{Window: WindowToday}, []string{"TXN-003"}},
		{"week", patient, TransactionFilter{Window: WindowWeek}, []string{"TXN-002", "TXN-003"}},
		{"search", patient, TransactionFilter{Search: "cardio"}, []string{"TXN-003"}},
		{"injected ids ignored", stranger, TransactionFilter{InvoiceIDs: []string{"INV-001"}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListTransactions(context.Background(), tt.viewer, tt.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !equalIDs(txIDs(got), tt.want) {
				t.Errorf("got %v, want %v", txIDs(got), tt.want)
			}
		})
	}
}

func TestService_Transactions_Summary(t *testing.T) {
	svc, _ := newTestService(time.Now())
	list, err := svc.Transactions(context.Background(), patient, TransactionFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := TransactionSummary{Count: 3, Spent: 235, Pending: 250, Successful: 2, SuccessRate: 67}
	if list.Summary != want || list.Filtered != want {
		t.Errorf("got %+v / %+v, want %+v", list.Summary, list.Filtered, want)
	}

	list, err = svc.Transactions(context.Background(), patient, TransactionFilter{Status: StatusPending})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.Summary != want {
		t.Errorf("stat cards must ignore the filter: got %+v", list.Summary)
	}
	filtered := TransactionSummary{Count: 1, Pending: 250}
	if len(list.Transactions) != 1 || list.Filtered != filtered {
		t.Errorf("filtered: got %d rows, %+v, want %+v", len(list.Transactions), list.Filtered, filtered)
	}
}

func TestService_RecordPayment(t *testing.T) {
	svc, pub := newTestService(time.Date(2024, 1, 26, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	tx, err := svc.RecordPayment(ctx, patient, "INV-003", "0xabc", 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Status != StatusPending || tx.BlockchainHash != "0xabc" || tx.Amount != 250 {
		t.Errorf("unexpected transaction: %+v", tx)
	}
	list, _ := svc.ListTransactions(ctx, patient, TransactionFilter{})
	if len(list) != 4 {
		t.Errorf("expected 4 transactions after payment, got %d", len(list))
	}
	want := []string{"doctor/5", "explorer", "institution/6", "insurance", "patient/1"}
	if !equalIDs(pub.topics(), want) {
		t.Errorf("topics = %v, want %v", pub.topics(), want)
	}

	if _, err := svc.RecordPayment(ctx, patient, "INV-003", "0xdup", 250); !errors.Is(err, ErrPaymentPending) {
		t.Errorf("second payment: expected ErrPaymentPending, got %v", err)
	}
	if _, err := svc.RecordPayment(ctx, patient, "INV-404", "0xdef", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_AuthorizePayment(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()

	tests := []struct {
		name    string
		payer   auth.Principal
		invoice string
		amount  float64
		wantErr error
	}{
		{"own pending invoice", patient, "INV-003", 250, nil},
		{"insurer pays settled invoice", insurer, "INV-002", 0.001, ErrForbidden},
		{"insurer pays pending invoice", insurer, "INV-003", 250, ErrForbidden},
		{"doctor of the invoice", doctor, "INV-001", 150, ErrForbidden},
		{"stranger", stranger, "INV-003", 250, ErrForbidden},
		{"paid invoice", patient, "INV-002", 85, ErrSettled},
		{"confirmed invoice", patient, "INV-001", 150, ErrSettled},
		{"partial amount", patient, "INV-003", 0.001, ErrAmountMismatch},
		{"unknown invoice", patient, "INV-404", 1, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AuthorizePayment(ctx, tt.payer, tt.invoice, tt.amount)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	list, _ := svc.ListTransactions(ctx, patient, TransactionFilter{})
	if len(list) != 3 {
		t.Errorf("authorization must not record anything, got %d transactions", len(list))
	}
}

func TestService_Payments(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()

	list, err := svc.Payments(ctx, institution)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Payments) != 1 || list.Summary.Paid != 200 {
		t.Errorf("institution payments: %+v", list.Summary)
	}

	list, err = svc.Payments(ctx, insurer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.Summary.SuccessRate != 100 || list.Summary.UniqueInstitutions != 1 {
		t.Errorf("insurer payments: %+v", list.Summary)
	}

	if _, err := svc.Payments(ctx, patient); !errors.Is(err, ErrForbidden) {
		t.Errorf("patient: expected ErrForbidden, got %v", err)
	}
}

func TestService_Explorer(t *testing.T) {
	svc, _ := newTestService(time.Now())
	view, err := svc.Explorer(context.Background(), "blood")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(txIDs(view.Transactions), []string{"TXN-002"}) {
		t.Errorf("matches = %v", txIDs(view.Transactions))
	}
	want := ExplorerSummary{Total: 3, Confirmed: 1, Pending: 1, Volume: 485}
	if view.Summary != want {
		t.Errorf("got %+v, want %+v", view.Summary, want)
	}
}
