package identity

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user not found")

// Directory holds the accounts that can log in with a password.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	List(ctx context.Context) ([]User, error)
}
