package clinical

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medipay/medipay/internal/platform/auth"
)

var (
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid request")
)

const recentRecords = 3

type Service struct {
	records      RecordRepository
	patients     map[string]Patient
	institutions map[string]Institution
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(records RecordRepository, patients []Patient, institutions []Institution, logger zerolog.Logger) *Service {
	s := &Service{
		records:      records,
		patients:     make(map[string]Patient, len(patients)),
		institutions: make(map[string]Institution, len(institutions)),
		logger:       logger.With().Str("component", "clinical").Logger(),
		now:          time.Now,
	}
	for _, p := range patients {
		s.patients[p.ID] = p
	}
	for _, i := range institutions {
		s.institutions[i.ID] = i
	}
	return s
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Patients lists the patients a doctor can write records for, by id.
func (s *Service) Patients() []Patient {
	out := make([]Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Service) Institutions() []Institution {
	out := make([]Institution, 0, len(s.institutions))
	for _, i := range s.institutions {
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Service) ListRecords(ctx context.Context, viewer auth.Principal) ([]*MedicalRecord, error) {
	switch viewer.Role {
	case auth.RoleDoctor:
		return s.records.ListByDoctor(ctx, viewer.UserID)
	case auth.RolePatient:
		return s.records.ListByPatient(ctx, viewer.UserID)
	default:
		return nil, ErrForbidden
	}
}

func (s *Service) GetRecord(ctx context.Context, viewer auth.Principal, id string) (*MedicalRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !(viewer.Role == auth.RoleDoctor && rec.DoctorID == viewer.UserID) &&
		!(viewer.Role == auth.RolePatient && rec.PatientID == viewer.UserID) {
		return nil, ErrForbidden
	}
	return rec, nil
}

// DoctorOverview is the clinical part of the doctor's home page.
type DoctorOverview struct {
	Stats  DoctorStats      `json:"stats"`
	Recent []*MedicalRecord `json:"recent"`
}

func (s *Service) Overview(ctx context.Context, doctorID string) (*DoctorOverview, error) {
	records, err := s.records.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	recent := records
	if len(recent) > recentRecords {
		recent = recent[:recentRecords]
	}
	return &DoctorOverview{Stats: ComputeDoctorStats(records), Recent: recent}, nil
}

func (s *Service) CreateRecord(ctx context.Context, doctor auth.Principal, req CreateRecordRequest) (*MedicalRecord, error) {
	if doctor.Role != auth.RoleDoctor {
		return nil, ErrForbidden
	}
	if req.PatientID == "" || req.Diagnosis == "" || req.Treatment == "" {
		return nil, fmt.Errorf("%w: patient_id, diagnosis and treatment are required", ErrInvalid)
	}
	patient, ok := s.patients[req.PatientID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown patient %s", ErrInvalid, req.PatientID)
	}
	now := s.now().UTC()
	rec := &MedicalRecord{
		ID:                    "MR-" + strings.ToUpper(uuid.NewString()[:8]),
		PatientID:             patient.ID,
		PatientName:           patient.Name,
		DoctorID:              doctor.UserID,
		DoctorName:            doctor.Name,
		VisitDate:             now.Truncate(24 * time.Hour),
		Diagnosis:             req.Diagnosis,
		Treatment:             req.Treatment,
		Notes:                 req.Notes,
		Prescriptions:         []*Prescription{},
		TotalCost:             req.TotalCost,
		InsuranceCoverage:     req.InsuranceCoverage,
		PatientResponsibility: req.PatientResponsibility,
		CreatedAt:             now,
	}
	if req.VisitDate != nil {
		rec.VisitDate = req.VisitDate.UTC()
	}
	if inst, ok := s.institutions[req.InstitutionID]; ok {
		rec.InstitutionID = inst.ID
		rec.InstitutionName = inst.Name
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	s.logger.Info().Str("record_id", rec.ID).Str("doctor_id", rec.DoctorID).Msg("medical record created")
	return rec, nil
}

// AddPrescription attaches a prescription to one of the doctor's records.
// TotalPrice is quantity times unit price, rounded to cents.
func (s *Service) AddPrescription(ctx context.Context, doctor auth.Principal, recordID string, req CreatePrescriptionRequest) (*Prescription, error) {
	rec, err := s.GetRecord(ctx, doctor, recordID)
	if err != nil {
		return nil, err
	}
	if doctor.Role != auth.RoleDoctor {
		return nil, ErrForbidden
	}
	if req.MedicationName == "" || req.Dosage == "" || req.Frequency == "" {
		return nil, fmt.Errorf("%w: medication_name, dosage and frequency are required", ErrInvalid)
	}
	rx := &Prescription{
		ID:             "RX-" + strings.ToUpper(uuid.NewString()[:8]),
		MedicationName: req.MedicationName,
		Dosage:         req.Dosage,
		Frequency:      req.Frequency,
		Duration:       req.Duration,
		Quantity:       req.Quantity,
		UnitPrice:      req.UnitPrice,
		TotalPrice:     math.Round(float64(req.Quantity)*req.UnitPrice*100) / 100,
		Instructions:   req.Instructions,
	}
	if err := s.records.AddPrescription(ctx, rec.ID, rx); err != nil {
		return nil, fmt.Errorf("add prescription: %w", err)
	}
	return rx, nil
}
