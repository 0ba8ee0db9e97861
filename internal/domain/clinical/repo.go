package clinical

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// RecordRepository returns records newest visit first.
type RecordRepository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	GetByID(ctx context.Context, id string) (*MedicalRecord, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]*MedicalRecord, error)
	ListByPatient(ctx context.Context, patientID string) ([]*MedicalRecord, error)
	AddPrescription(ctx context.Context, recordID string, p *Prescription) error
}
