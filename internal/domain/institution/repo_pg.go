package institution

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

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Staff Repository ===========

type staffRepoPG struct{ pool *pgxpool.Pool }

func NewStaffRepoPG(pool *pgxpool.Pool) StaffRepository { return &staffRepoPG{pool: pool} }

func (r *staffRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const staffCols = `id, email, name, role, institution_id, status, invited_by,
	invited_at, last_login, permissions`

func scanStaff(row pgx.Row) (*InstitutionUser, error) {
	var u InstitutionUser
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.InstitutionID, &u.Status, &u.InvitedBy,
		&u.InvitedAt, &u.LastLogin, &u.Permissions)
	return &u, err
}

func (r *staffRepoPG) Create(ctx context.Context, u *InstitutionUser) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO institution_users (`+staffCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		u.ID, u.Email, u.Name, u.Role, u.InstitutionID, u.Status, u.InvitedBy,
		u.InvitedAt, u.LastLogin, u.Permissions)
	if err != nil {
		return fmt.Errorf("insert institution user: %w", err)
	}
	return nil
}

func (r *staffRepoPG) GetByID(ctx context.Context, id string) (*InstitutionUser, error) {
	u, err := scanStaff(r.conn(ctx).QueryRow(ctx, `SELECT `+staffCols+` FROM institution_users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *staffRepoPG) Update(ctx context.Context, u *InstitutionUser) error {
	return affected(r.conn(ctx).Exec(ctx, `
		UPDATE institution_users SET email=$2, name=$3, role=$4, status=$5,
			invited_at=$6, last_login=$7, permissions=$8
		WHERE id = $1`,
		u.ID, u.Email, u.Name, u.Role, u.Status, u.InvitedAt, u.LastLogin, u.Permissions))
}

func (r *staffRepoPG) ListByInstitution(ctx context.Context, institutionID string) ([]*InstitutionUser, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+staffCols+` FROM institution_users
		WHERE institution_id = $1 ORDER BY invited_at`, institutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*InstitutionUser, 0)
	for rows.Next() {
		u, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

// =========== Product Repository ===========

type productRepoPG struct{ pool *pgxpool.Pool }

func NewProductRepoPG(pool *pgxpool.Pool) ProductRepository { return &productRepoPG{pool: pool} }

func (r *productRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const productCols = `id, name, description, category, unit_price, unit,
	institution_id, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.UnitPrice, &p.Unit,
		&p.InstitutionID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *productRepoPG) Create(ctx context.Context, p *Product) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO products (`+productCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.Name, p.Description, p.Category, p.UnitPrice, p.Unit,
		p.InstitutionID, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *productRepoPG) GetByID(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(r.conn(ctx).QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *productRepoPG) Update(ctx context.Context, p *Product) error {
	return affected(r.conn(ctx).Exec(ctx, `
		UPDATE products SET name=$2, description=$3, category=$4, unit_price=$5,
			unit=$6, is_active=$7, updated_at=$8
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Category, p.UnitPrice, p.Unit, p.IsActive, p.UpdatedAt))
}

func (r *productRepoPG) Delete(ctx context.Context, id string) error {
	return affected(r.conn(ctx).Exec(ctx, `DELETE FROM products WHERE id = $1`, id))
}

func (r *productRepoPG) ListByInstitution(ctx context.Context, institutionID string) ([]*Product, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+productCols+` FROM products
		WHERE institution_id = $1 ORDER BY id`, institutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
