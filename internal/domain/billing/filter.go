package billing

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateWindow restricts records to a period ending now.
type DateWindow string

const (
	WindowAll   DateWindow = "all"
	WindowToday DateWindow = "today"
	WindowWeek  DateWindow = "week"
	WindowMonth DateWindow = "month"
	WindowYear  DateWindow = "year"
)

var windowSpans = map[DateWindow]time.Duration{
	WindowWeek:  7 * 24 * time.Hour,
	WindowMonth: 30 * 24 * time.Hour,
	WindowYear:  365 * 24 * time.Hour,
}

func ParseDateWindow(s string) (DateWindow, error) {
	w := DateWindow(strings.ToLower(strings.TrimSpace(s)))
	switch w {
	case "":
		return WindowAll, nil
	case WindowAll, WindowToday, WindowWeek, WindowMonth, WindowYear:
		return w, nil
	}
	return "", fmt.Errorf("invalid date window: %s", s)
}

// Contains reports whether t falls inside the window as seen at now. Today
// means the same calendar day in now's location.
func (w DateWindow) Contains(t, now time.Time) bool {
	switch w {
	case WindowToday:
		t = t.In(now.Location())
		ty, tm, td := t.Date()
		ny, nm, nd := now.Date()
		return ty == ny && tm == nm && td == nd
	case WindowWeek, WindowMonth, WindowYear:
		return !t.Before(now.Add(-windowSpans[w]))
	default:
		return true
	}
}

// ParseStatusFilter accepts "all", an empty string or one of the statuses.
// The empty result matches every status.
func ParseStatusFilter(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st == "" || st == "all" {
		return "", nil
	}
	if !validStatuses[st] {
		return "", fmt.Errorf("invalid status: %s", s)
	}
	return st, nil
}

// Matches is a case-insensitive substring test of term against any field.
// An empty term matches everything.
func Matches(term string, fields ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// InvoiceFilter narrows a list of invoices. Zero values match everything.
type InvoiceFilter struct {
	PatientID     string
	DoctorID      string
	InstitutionID string
	WithClaim     bool
	Search        string
	Status        Status
}

func FilterInvoices(items []*Invoice, f InvoiceFilter) []*Invoice {
	out := make([]*Invoice, 0, len(items))
	for _, inv := range items {
		if f.PatientID != "" && inv.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != "" && inv.DoctorID != f.DoctorID {
			continue
		}
		if f.InstitutionID != "" && inv.InstitutionID != f.InstitutionID {
			continue
		}
		if f.WithClaim && inv.InsuranceClaimID == "" {
			continue
		}
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		if !Matches(f.Search, inv.Service, inv.DoctorName, inv.PatientName, inv.ID) {
			continue
		}
		out = append(out, inv)
	}
	return out
}

// TransactionFilter narrows a list of transactions. InvoiceIDs, when non-nil,
// keeps only transactions of those invoices.
type TransactionFilter struct {
	InvoiceIDs []string
	Search     string
	Status     Status
	Window     DateWindow
	Now        time.Time
}

func FilterTransactions(items []*Transaction, f TransactionFilter) []*Transaction {
	var ids map[string]bool
	if f.InvoiceIDs != nil {
		ids = make(map[string]bool, len(f.InvoiceIDs))
		for _, id := range f.InvoiceIDs {
			ids[id] = true
		}
	}
	out := make([]*Transaction, 0, len(items))
	for _, tx := range items {
		if ids != nil && !ids[tx.InvoiceID] {
			continue
		}
		if f.Status != "" && tx.Status != f.Status {
			continue
		}
		if f.Window != "" && !f.Window.Contains(tx.Timestamp, f.Now) {
			continue
		}
		if !Matches(f.Search, tx.Service, tx.DoctorName, tx.PatientName, tx.ID) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// InvoiceIDs returns the ids of items in order. The result is never nil.
func InvoiceIDs(items []*Invoice) []string {
	ids := make([]string, 0, len(items))
	for _, inv := range items {
		ids = append(ids, inv.ID)
	}
	return ids
}

// MostRecent returns up to n invoices, newest first.
func MostRecent(items []*Invoice, n int) []*Invoice {
	sorted := make([]*Invoice, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// ShortHash abbreviates a chain hash as 0x1a2b...567890 for listings.
func ShortHash(hash string) string {
	if hash == "" {
		return "N/A"
	}
	if len(hash) <= 12 {
		return hash
	}
	return hash[:6] + "..." + hash[len(hash)-6:]
}
