package institution

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

type StaffRepository interface {
	Create(ctx context.Context, u *InstitutionUser) error
	GetByID(ctx context.Context, id string) (*InstitutionUser, error)
	Update(ctx context.Context, u *InstitutionUser) error
	ListByInstitution(ctx context.Context, institutionID string) ([]*InstitutionUser, error)
}

type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	ListByInstitution(ctx context.Context, institutionID string) ([]*Product, error)
}
