package billing

import (
	"time"
)

// Status is the payment state shared by invoices, transactions and insurance
// payments. No transitions are enforced between the states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusConfirmed Status = "confirmed"
)

var validStatuses = map[Status]bool{
	StatusPending: true, StatusPaid: true, StatusConfirmed: true,
}

// Settled reports whether money has moved: paid or confirmed.
func (s Status) Settled() bool {
	return s == StatusPaid || s == StatusConfirmed
}

// Invoice is a bill for a service rendered by a doctor to a patient.
// InsuranceCoverage and PatientResponsibility are informational and need
// not add up to Amount.
type Invoice struct {
	ID                    string     `json:"id"`
	PatientID             string     `json:"patient_id"`
	PatientName           string     `json:"patient_name"`
	DoctorID              string     `json:"doctor_id"`
	DoctorName            string     `json:"doctor_name"`
	InstitutionID         string     `json:"institution_id,omitempty"`
	InstitutionName       string     `json:"institution_name,omitempty"`
	Service               string     `json:"service"`
	Amount                float64    `json:"amount"`
	Status                Status     `json:"status"`
	CreatedAt             time.Time  `json:"created_at"`
	PaidAt                *time.Time `json:"paid_at,omitempty"`
	Description           string     `json:"description,omitempty"`
	InsuranceClaimID      string     `json:"insurance_claim_id,omitempty"`
	InsuranceCoverage     *float64   `json:"insurance_coverage,omitempty"`
	PatientResponsibility *float64   `json:"patient_responsibility,omitempty"`
}

// Transaction is the on-chain record of an invoice payment.
type Transaction struct {
	ID             string    `json:"id"`
	InvoiceID      string    `json:"invoice_id"`
	PatientName    string    `json:"patient_name"`
	DoctorName     string    `json:"doctor_name"`
	Service        string    `json:"service"`
	Amount         float64   `json:"amount"`
	Status         Status    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	BlockchainHash string    `json:"blockchain_hash,omitempty"`
	ProofOfStake   string    `json:"proof_of_stake,omitempty"`
}

// InsurancePayment is an insurer's settlement of a claim to an institution.
type InsurancePayment struct {
	ID              string     `json:"id"`
	ClaimID         string     `json:"claim_id"`
	PatientID       string     `json:"patient_id"`
	PatientName     string     `json:"patient_name"`
	InstitutionID   string     `json:"institution_id"`
	InstitutionName string     `json:"institution_name"`
	Service         string     `json:"service"`
	Amount          float64    `json:"amount"`
	Status          Status     `json:"status"`
	ProcessedDate   time.Time  `json:"processed_date"`
	PaymentDate     *time.Time `json:"payment_date,omitempty"`
	Description     string     `json:"description,omitempty"`
}

// CreateInvoiceRequest is the doctor's "create invoice" form.
type CreateInvoiceRequest struct {
	PatientID             string   `json:"patient_id" validate:"required"`
	PatientName           string   `json:"patient_name" validate:"required"`
	InstitutionID         string   `json:"institution_id,omitempty"`
	InstitutionName       string   `json:"institution_name,omitempty"`
	Service               string   `json:"service" validate:"required"`
	Amount                float64  `json:"amount" validate:"gt=0"`
	Description           string   `json:"description,omitempty" validate:"max=500"`
	InsuranceClaimID      string   `json:"insurance_claim_id,omitempty"`
	InsuranceCoverage     *float64 `json:"insurance_coverage,omitempty" validate:"omitempty,gte=0"`
	PatientResponsibility *float64 `json:"patient_responsibility,omitempty" validate:"omitempty,gte=0"`
}
