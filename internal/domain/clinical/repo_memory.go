package clinical

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type recordRepoMemory struct {
	mu    sync.RWMutex
	items map[string]*MedicalRecord
}

// NewRecordRepoMemory returns an in-memory repository holding seed.
func NewRecordRepoMemory(seed []*MedicalRecord) RecordRepository {
	r := &recordRepoMemory{items: make(map[string]*MedicalRecord)}
	for _, rec := range seed {
		r.items[rec.ID] = clone(rec)
	}
	return r
}

func clone(rec *MedicalRecord) *MedicalRecord {
	cp := *rec
	cp.Prescriptions = make([]*Prescription, 0, len(rec.Prescriptions))
	for _, p := range rec.Prescriptions {
		pc := *p
		cp.Prescriptions = append(cp.Prescriptions, &pc)
	}
	return &cp
}

func (r *recordRepoMemory) Create(_ context.Context, rec *MedicalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[rec.ID]; exists {
		return fmt.Errorf("medical record %s already exists", rec.ID)
	}
	r.items[rec.ID] = clone(rec)
	return nil
}

func (r *recordRepoMemory) GetByID(_ context.Context, id string) (*MedicalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(rec), nil
}

func (r *recordRepoMemory) ListByDoctor(_ context.Context, doctorID string) ([]*MedicalRecord, error) {
	return r.filter(func(rec *MedicalRecord) bool { return rec.DoctorID == doctorID }), nil
}

func (r *recordRepoMemory) ListByPatient(_ context.Context, patientID string) ([]*MedicalRecord, error) {
	return r.filter(func(rec *MedicalRecord) bool { return rec.PatientID == patientID }), nil
}

func (r *recordRepoMemory) AddPrescription(_ context.Context, recordID string, p *Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.items[recordID]
	if !ok {
		return ErrNotFound
	}
	cp := *p
	rec.Prescriptions = append(rec.Prescriptions, &cp)
	return nil
}

func (r *recordRepoMemory) filter(keep func(*MedicalRecord) bool) []*MedicalRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*MedicalRecord, 0)
	for _, rec := range r.items {
		if keep(rec) {
			out = append(out, clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VisitDate.Equal(out[j].VisitDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].VisitDate.After(out[j].VisitDate)
	})
	return out
}
