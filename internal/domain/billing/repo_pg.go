package billing

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

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// =========== Invoice Repository ===========

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository { return &invoiceRepoPG{pool: pool} }

func (r *invoiceRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const invCols = `id, patient_id, patient_name, doctor_id, doctor_name,
	institution_id, institution_name, service, amount, status,
	created_at, paid_at, description, insurance_claim_id,
	insurance_coverage, patient_responsibility`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.PatientID, &inv.PatientName, &inv.DoctorID, &inv.DoctorName,
		&inv.InstitutionID, &inv.InstitutionName, &inv.Service, &inv.Amount, &inv.Status,
		&inv.CreatedAt, &inv.PaidAt, &inv.Description, &inv.InsuranceClaimID,
		&inv.InsuranceCoverage, &inv.PatientResponsibility)
	return &inv, err
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoices (`+invCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		inv.ID, inv.PatientID, inv.PatientName, inv.DoctorID, inv.DoctorName,
		inv.InstitutionID, inv.InstitutionName, inv.Service, inv.Amount, inv.Status,
		inv.CreatedAt, inv.PaidAt, inv.Description, inv.InsuranceClaimID,
		inv.InsuranceCoverage, inv.PatientResponsibility)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id string) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx, `SELECT `+invCols+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return inv, nil
}

func (r *invoiceRepoPG) List(ctx context.Context) ([]*Invoice, error) {
	return r.query(ctx, `SELECT `+invCols+` FROM invoices ORDER BY created_at`)
}

func (r *invoiceRepoPG) ListByPatient(ctx context.Context, patientID string) ([]*Invoice, error) {
	return r.query(ctx, `SELECT `+invCols+` FROM invoices WHERE patient_id = $1 ORDER BY created_at`, patientID)
}

func (r *invoiceRepoPG) ListByDoctor(ctx context.Context, doctorID string) ([]*Invoice, error) {
	return r.query(ctx, `SELECT `+invCols+` FROM invoices WHERE doctor_id = $1 ORDER BY created_at`, doctorID)
}

func (r *invoiceRepoPG) ListByInstitution(ctx context.Context, institutionID string) ([]*Invoice, error) {
	return r.query(ctx, `SELECT `+invCols+` FROM invoices WHERE institution_id = $1 ORDER BY created_at`, institutionID)
}

func (r *invoiceRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Invoice, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, inv)
	}
	return items, rows.Err()
}

// =========== Transaction Repository ===========

type transactionRepoPG struct{ pool *pgxpool.Pool }

func NewTransactionRepoPG(pool *pgxpool.Pool) TransactionRepository {
	return &transactionRepoPG{pool: pool}
}

func (r *transactionRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const txCols = `id, invoice_id, patient_name, doctor_name, service, amount, status,
	timestamp, blockchain_hash, proof_of_stake`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var tx Transaction
	err := row.Scan(&tx.ID, &tx.InvoiceID, &tx.PatientName, &tx.DoctorName, &tx.Service, &tx.Amount, &tx.Status,
		&tx.Timestamp, &tx.BlockchainHash, &tx.ProofOfStake)
	return &tx, err
}

func (r *transactionRepoPG) Create(ctx context.Context, tx *Transaction) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO transactions (`+txCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		tx.ID, tx.InvoiceID, tx.PatientName, tx.DoctorName, tx.Service, tx.Amount, tx.Status,
		tx.Timestamp, tx.BlockchainHash, tx.ProofOfStake)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *transactionRepoPG) GetByID(ctx context.Context, id string) (*Transaction, error) {
	tx, err := scanTransaction(r.conn(ctx).QueryRow(ctx, `SELECT `+txCols+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return tx, nil
}

func (r *transactionRepoPG) List(ctx context.Context) ([]*Transaction, error) {
	return r.query(ctx, `SELECT `+txCols+` FROM transactions ORDER BY timestamp`)
}

func (r *transactionRepoPG) ListByInvoices(ctx context.Context, invoiceIDs []string) ([]*Transaction, error) {
	if len(invoiceIDs) == 0 {
		return []*Transaction{}, nil
	}
	return r.query(ctx, `SELECT `+txCols+` FROM transactions WHERE invoice_id = ANY($1) ORDER BY timestamp`, invoiceIDs)
}

func (r *transactionRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Transaction, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, tx)
	}
	return items, rows.Err()
}

// =========== Payment Repository ===========

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const payCols = `id, claim_id, patient_id, patient_name, institution_id, institution_name,
	service, amount, status, processed_date, payment_date, description`

func (r *paymentRepoPG) List(ctx context.Context) ([]*InsurancePayment, error) {
	return r.query(ctx, `SELECT `+payCols+` FROM insurance_payments ORDER BY processed_date`)
}

func (r *paymentRepoPG) ListByInstitution(ctx context.Context, institutionID string) ([]*InsurancePayment, error) {
	return r.query(ctx, `SELECT `+payCols+` FROM insurance_payments WHERE institution_id = $1 ORDER BY processed_date`, institutionID)
}

func (r *paymentRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*InsurancePayment, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*InsurancePayment, 0)
	for rows.Next() {
		var p InsurancePayment
		if err := rows.Scan(&p.ID, &p.ClaimID, &p.PatientID, &p.PatientName, &p.InstitutionID, &p.InstitutionName,
			&p.Service, &p.Amount, &p.Status, &p.ProcessedDate, &p.PaymentDate, &p.Description); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}
