package billing

import (
	"testing"
	"time"
)

func TestParseDateWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    DateWindow
		wantErr bool
	}{
		{"", WindowAll, false},
		{"all", WindowAll, false},
		{" Week ", WindowWeek, false},
		{"month", WindowMonth, false},
		{"decade", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDateWindow(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDateWindow(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseDateWindow(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDateWindow_Contains(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		window DateWindow
		at     time.Time
		want   bool
	}{
		{"all keeps ancient", WindowAll, now.AddDate(-10, 0, 0), true},
		{"today same day early", WindowToday, time.Date(2024, 3, 10, 0, 5, 0, 0, time.UTC), true},
		{"today yesterday late", WindowToday, time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC), false},
		{"week inside", WindowWeek, now.Add(-6 * 24 * time.Hour), true},
		{"week outside", WindowWeek, now.Add(-8 * 24 * time.Hour), false},
		{"month boundary", WindowMonth, now.Add(-30 * 24 * time.Hour), true},
		{"month outside", WindowMonth, now.Add(-31 * 24 * time.Hour), false},
		{"year inside", WindowYear, now.Add(-364 * 24 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.window.Contains(tt.at, now); got != tt.want {
				t.Errorf("Contains = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStatusFilter(t *testing.T) {
	for _, in := range []string{"", "all", "ALL"} {
		if st, err := ParseStatusFilter(in); err != nil || st != "" {
			t.Errorf("ParseStatusFilter(%q) = %q, %v", in, st, err)
		}
	}
	if st, err := ParseStatusFilter("Paid"); err != nil || st != StatusPaid {
		t.Errorf("ParseStatusFilter(Paid) = %q, %v", st, err)
	}
	if _, err := ParseStatusFilter("refunded"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestMatches(t *testing.T) {
	if !Matches("", "anything") {
		t.Error("empty term should match")
	}
	if !Matches("SARAH", "Blood Test", "Dr. Sarah Johnson") {
		t.Error("expected case-insensitive match on second field")
	}
	if Matches("xray", "Blood Test", "Dr. Sarah Johnson") {
		t.Error("unexpected match")
	}
}

func TestFilterInvoices_ByPatient(t *testing.T) {
	items := append(SeedInvoices(), &Invoice{ID: "INV-777", PatientID: "8", Status: StatusPaid})
	got := FilterInvoices(items, InvoiceFilter{PatientID: "8"})
	if len(got) != 1 || got[0].ID != "INV-777" {
		t.Errorf("got %v", InvoiceIDs(got))
	}
	if len(FilterInvoices(items, InvoiceFilter{PatientID: "nobody"})) != 0 {
		t.Error("expected no invoices for unknown patient")
	}
}

func TestFilterInvoices_WithClaim(t *testing.T) {
	items := append(SeedInvoices(), &Invoice{ID: "INV-778", PatientID: "1"})
	got := FilterInvoices(items, InvoiceFilter{WithClaim: true})
	if len(got) != 3 {
		t.Errorf("expected 3 invoices with a claim, got %v", InvoiceIDs(got))
	}
}

func TestFilterTransactions_InvoiceIDs(t *testing.T) {
	items := SeedTransactions()
	if got := FilterTransactions(items, TransactionFilter{}); len(got) != 3 {
		t.Errorf("nil ids should keep all, got %d", len(got))
	}
	if got := FilterTransactions(items, TransactionFilter{InvoiceIDs: []string{}}); len(got) != 0 {
		t.Errorf("empty ids should keep none, got %d", len(got))
	}
	got := FilterTransactions(items, TransactionFilter{InvoiceIDs: []string{"INV-002"}})
	if len(got) != 1 || got[0].ID != "TXN-002" {
		t.Errorf("got %v", txIDs(got))
	}
}

func TestMostRecent(t *testing.T) {
	items := SeedInvoices()
	got := MostRecent(items, 2)
	if !equalIDs(InvoiceIDs(got), []string{"INV-003", "INV-002"}) {
		t.Errorf("got %v", InvoiceIDs(got))
	}
	if items[0].ID != "INV-001" {
		t.Error("MostRecent must not reorder its input")
	}
	if len(MostRecent(nil, 3)) != 0 {
		t.Error("expected empty result for empty input")
	}
}

func TestShortHash(t *testing.T) {
	tests := map[string]string{
		"":                                   "N/A",
		"0xabc":                              "0xabc",
		"0x1a2b3c4d5e6f7890abcdef1234567890": "0x1a2b...567890",
	}
	for in, want := range tests {
		if got := ShortHash(in); got != want {
			t.Errorf("ShortHash(%q) = %q, want %q", in, got, want)
		}
	}
}
