package billing

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// =========== Invoice Repository ===========

type invoiceRepoMemory struct {
	mu    sync.RWMutex
	items []*Invoice
	byID  map[string]*Invoice
}

// NewInvoiceRepoMemory returns an in-memory repository holding seed.
func NewInvoiceRepoMemory(seed []*Invoice) InvoiceRepository {
	r := &invoiceRepoMemory{byID: make(map[string]*Invoice)}
	for _, inv := range seed {
		cp := *inv
		r.items = append(r.items, &cp)
		r.byID[cp.ID] = &cp
	}
	sort.SliceStable(r.items, func(i, j int) bool { return r.items[i].CreatedAt.Before(r.items[j].CreatedAt) })
	return r
}

func (r *invoiceRepoMemory) Create(_ context.Context, inv *Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[inv.ID]; exists {
		return fmt.Errorf("invoice %s already exists", inv.ID)
	}
	cp := *inv
	r.items = append(r.items, &cp)
	r.byID[cp.ID] = &cp
	return nil
}

func (r *invoiceRepoMemory) GetByID(_ context.Context, id string) (*Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *invoiceRepoMemory) List(_ context.Context) ([]*Invoice, error) {
	return r.filter(func(*Invoice) bool { return true }), nil
}

func (r *invoiceRepoMemory) ListByPatient(_ context.Context, patientID string) ([]*Invoice, error) {
	return r.filter(func(inv *Invoice) bool { return inv.PatientID == patientID }), nil
}

func (r *invoiceRepoMemory) ListByDoctor(_ context.Context, doctorID string) ([]*Invoice, error) {
	return r.filter(func(inv *Invoice) bool { return inv.DoctorID == doctorID }), nil
}

func (r *invoiceRepoMemory) ListByInstitution(_ context.Context, institutionID string) ([]*Invoice, error) {
	return r.filter(func(inv *Invoice) bool { return inv.InstitutionID == institutionID }), nil
}

func (r *invoiceRepoMemory) filter(keep func(*Invoice) bool) []*Invoice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Invoice, 0, len(r.items))
	for _, inv := range r.items {
		if keep(inv) {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out
}

// =========== Transaction Repository ===========

type transactionRepoMemory struct {
	mu    sync.RWMutex
	items []*Transaction
	byID  map[string]*Transaction
}

func NewTransactionRepoMemory(seed []*Transaction) TransactionRepository {
	r := &transactionRepoMemory{byID: make(map[string]*Transaction)}
	for _, tx := range seed {
		cp := *tx
		r.items = append(r.items, &cp)
		r.byID[cp.ID] = &cp
	}
	sort.SliceStable(r.items, func(i, j int) bool { return r.items[i].Timestamp.Before(r.items[j].Timestamp) })
	return r
}

func (r *transactionRepoMemory) Create(_ context.Context, tx *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[tx.ID]; exists {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	cp := *tx
	r.items = append(r.items, &cp)
	r.byID[cp.ID] = &cp
	return nil
}

func (r *transactionRepoMemory) GetByID(_ context.Context, id string) (*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (r *transactionRepoMemory) List(_ context.Context) ([]*Transaction, error) {
	return r.filter(func(*Transaction) bool { return true }), nil
}

func (r *transactionRepoMemory) ListByInvoices(_ context.Context, invoiceIDs []string) ([]*Transaction, error) {
	ids := make(map[string]bool, len(invoiceIDs))
	for _, id := range invoiceIDs {
		ids[id] = true
	}
	return r.filter(func(tx *Transaction) bool { return ids[tx.InvoiceID] }), nil
}

func (r *transactionRepoMemory) filter(keep func(*Transaction) bool) []*Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Transaction, 0, len(r.items))
	for _, tx := range r.items {
		if keep(tx) {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out
}

// =========== Payment Repository ===========

type paymentRepoMemory struct {
	mu    sync.RWMutex
	items []*InsurancePayment
}

func NewPaymentRepoMemory(seed []*InsurancePayment) PaymentRepository {
	r := &paymentRepoMemory{}
	for _, p := range seed {
		cp := *p
		r.items = append(r.items, &cp)
	}
	return r
}

func (r *paymentRepoMemory) List(_ context.Context) ([]*InsurancePayment, error) {
	return r.filter(func(*InsurancePayment) bool { return true }), nil
}

func (r *paymentRepoMemory) ListByInstitution(_ context.Context, institutionID string) ([]*InsurancePayment, error) {
	return r.filter(func(p *InsurancePayment) bool { return p.InstitutionID == institutionID }), nil
}

func (r *paymentRepoMemory) filter(keep func(*InsurancePayment) bool) []*InsurancePayment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*InsurancePayment, 0, len(r.items))
	for _, p := range r.items {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}
