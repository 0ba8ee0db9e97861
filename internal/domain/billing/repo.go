package billing

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// InvoiceRepository returns invoices in creation order.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id string) (*Invoice, error)
	List(ctx context.Context) ([]*Invoice, error)
	ListByPatient(ctx context.Context, patientID string) ([]*Invoice, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]*Invoice, error)
	ListByInstitution(ctx context.Context, institutionID string) ([]*Invoice, error)
}

// TransactionRepository returns transactions in timestamp order.
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id string) (*Transaction, error)
	List(ctx context.Context) ([]*Transaction, error)
	ListByInvoices(ctx context.Context, invoiceIDs []string) ([]*Transaction, error)
}

type PaymentRepository interface {
	List(ctx context.Context) ([]*InsurancePayment, error)
	ListByInstitution(ctx context.Context, institutionID string) ([]*InsurancePayment, error)
}
