package identity

import (
	"context"
	"sort"
	"sync"

	"github.com/medipay/medipay/internal/platform/auth"
)

// DemoUsers are the accounts seeded into the demo directory. Their ids line
// up with the owner ids used by the billing and clinical fixtures. The
// citygeneral.com accounts are the active staff of institution 2.
func DemoUsers() []User {
	return []User{
		{ID: "1", Email: "patient@demo.com", Name: "John Smith", Role: auth.RolePatient},
		{ID: "4", Email: "doctor@demo.com", Name: "Dr. Sarah Johnson", Role: auth.RoleDoctor},
		{ID: "2", Email: "institution@demo.com", Name: "City General Hospital", Role: auth.RoleInstitution},
		{ID: "3", Email: "insurance@demo.com", Name: "HealthCare Plus Insurance", Role: auth.RoleInsurance},
		{ID: "IU-001", Email: "admin@citygeneral.com", Name: "Dr. Sarah Johnson", Role: auth.RoleInstitution, InstitutionID: "2"},
		{ID: "IU-002", Email: "manager@citygeneral.com", Name: "John Manager", Role: auth.RoleInstitution, InstitutionID: "2"},
		{ID: "IU-003", Email: "staff@citygeneral.com", Name: "Jane Staff", Role: auth.RoleInstitution, InstitutionID: "2"},
	}
}

// MemoryDirectory is an in-memory Directory keyed by email.
type MemoryDirectory struct {
	mu      sync.RWMutex
	byEmail map[string]*Credential
}

// NewDemoDirectory seeds a directory with DemoUsers, all sharing password.
func NewDemoDirectory(password string, cost int) (*MemoryDirectory, error) {
	hash, err := HashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	d := &MemoryDirectory{byEmail: make(map[string]*Credential)}
	for _, u := range DemoUsers() {
		d.byEmail[u.Email] = &Credential{User: u, PasswordHash: hash}
	}
	return d, nil
}

func (d *MemoryDirectory) FindByEmail(_ context.Context, email string) (*Credential, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	cred, ok := d.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cred
	return &cp, nil
}

func (d *MemoryDirectory) List(_ context.Context) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := make([]User, 0, len(d.byEmail))
	for _, cred := range d.byEmail {
		users = append(users, cred.User)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
