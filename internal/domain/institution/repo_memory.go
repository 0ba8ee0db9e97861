package institution

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// =========== Staff Repository ===========

type staffRepoMemory struct {
	mu    sync.RWMutex
	items map[string]*InstitutionUser
}

// NewStaffRepoMemory returns an in-memory repository holding seed.
func NewStaffRepoMemory(seed []*InstitutionUser) StaffRepository {
	r := &staffRepoMemory{items: make(map[string]*InstitutionUser)}
	for _, u := range seed {
		r.items[u.ID] = cloneUser(u)
	}
	return r
}

func cloneUser(u *InstitutionUser) *InstitutionUser {
	cp := *u
	cp.Permissions = append([]string(nil), u.Permissions...)
	return &cp
}

func (r *staffRepoMemory) Create(_ context.Context, u *InstitutionUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[u.ID]; exists {
		return fmt.Errorf("institution user %s already exists", u.ID)
	}
	r.items[u.ID] = cloneUser(u)
	return nil
}

func (r *staffRepoMemory) GetByID(_ context.Context, id string) (*InstitutionUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *staffRepoMemory) Update(_ context.Context, u *InstitutionUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[u.ID]; !ok {
		return ErrNotFound
	}
	r.items[u.ID] = cloneUser(u)
	return nil
}

func (r *staffRepoMemory) ListByInstitution(_ context.Context, institutionID string) ([]*InstitutionUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*InstitutionUser, 0)
	for _, u := range r.items {
		if u.InstitutionID == institutionID {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvitedAt.Before(out[j].InvitedAt) })
	return out, nil
}

// =========== Product Repository ===========

type productRepoMemory struct {
	mu    sync.RWMutex
	items map[string]*Product
}

func NewProductRepoMemory(seed []*Product) ProductRepository {
	r := &productRepoMemory{items: make(map[string]*Product)}
	for _, p := range seed {
		cp := *p
		r.items[p.ID] = &cp
	}
	return r
}

func (r *productRepoMemory) Create(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[p.ID]; exists {
		return fmt.Errorf("product %s already exists", p.ID)
	}
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *productRepoMemory) GetByID(_ context.Context, id string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *productRepoMemory) Update(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *productRepoMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *productRepoMemory) ListByInstitution(_ context.Context, institutionID string) ([]*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Product, 0)
	for _, p := range r.items {
		if p.InstitutionID == institutionID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
