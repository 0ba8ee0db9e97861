package clinical

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medipay/medipay/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository { return &recordRepoPG{pool: pool} }

func (r *recordRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const recCols = `id, patient_id, patient_name, doctor_id, doctor_name,
	institution_id, institution_name, visit_date, diagnosis, treatment, notes,
	total_cost, insurance_coverage, patient_responsibility, created_at`

const rxCols = `id, medication_name, dosage, frequency, duration, quantity,
	unit_price, total_price, instructions`

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var m MedicalRecord
	err := row.Scan(&m.ID, &m.PatientID, &m.PatientName, &m.DoctorID, &m.DoctorName,
		&m.InstitutionID, &m.InstitutionName, &m.VisitDate, &m.Diagnosis, &m.Treatment, &m.Notes,
		&m.TotalCost, &m.InsuranceCoverage, &m.PatientResponsibility, &m.CreatedAt)
	m.Prescriptions = []*Prescription{}
	return &m, err
}

// Create inserts the record and its prescriptions in one transaction.
func (r *recordRepoPG) Create(ctx context.Context, m *MedicalRecord) error {
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO medical_records (`+recCols+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			m.ID, m.PatientID, m.PatientName, m.DoctorID, m.DoctorName,
			m.InstitutionID, m.InstitutionName, m.VisitDate, m.Diagnosis, m.Treatment, m.Notes,
			m.TotalCost, m.InsuranceCoverage, m.PatientResponsibility, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert medical record: %w", err)
		}
		for _, p := range m.Prescriptions {
			if err := r.AddPrescription(ctx, m.ID, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *recordRepoPG) GetByID(ctx context.Context, id string) (*MedicalRecord, error) {
	m, err := scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recCols+` FROM medical_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadPrescriptions(ctx, []*MedicalRecord{m}); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *recordRepoPG) ListByDoctor(ctx context.Context, doctorID string) ([]*MedicalRecord, error) {
	return r.query(ctx, `SELECT `+recCols+` FROM medical_records WHERE doctor_id = $1 ORDER BY visit_date DESC, id DESC`, doctorID)
}

func (r *recordRepoPG) ListByPatient(ctx context.Context, patientID string) ([]*MedicalRecord, error) {
	return r.query(ctx, `SELECT `+recCols+` FROM medical_records WHERE patient_id = $1 ORDER BY visit_date DESC, id DESC`, patientID)
}

func (r *recordRepoPG) AddPrescription(ctx context.Context, recordID string, p *Prescription) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescriptions (record_id, `+rxCols+`)
		SELECT $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
		WHERE EXISTS (SELECT 1 FROM medical_records WHERE id = $1)`,
		recordID, p.ID, p.MedicationName, p.Dosage, p.Frequency, p.Duration, p.Quantity,
		p.UnitPrice, p.TotalPrice, p.Instructions)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *recordRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*MedicalRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	items := make([]*MedicalRecord, 0)
	for rows.Next() {
		m, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		items = append(items, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadPrescriptions(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *recordRepoPG) loadPrescriptions(ctx context.Context, records []*MedicalRecord) error {
	if len(records) == 0 {
		return nil
	}
	byID := make(map[string]*MedicalRecord, len(records))
	ids := make([]string, 0, len(records))
	for _, m := range records {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT record_id, `+rxCols+` FROM prescriptions WHERE record_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var recordID string
		var p Prescription
		if err := rows.Scan(&recordID, &p.ID, &p.MedicationName, &p.Dosage, &p.Frequency, &p.Duration, &p.Quantity,
			&p.UnitPrice, &p.TotalPrice, &p.Instructions); err != nil {
			return err
		}
		if m, ok := byID[recordID]; ok {
			m.Prescriptions = append(m.Prescriptions, &p)
		}
	}
	return rows.Err()
}
