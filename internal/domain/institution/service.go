package institution

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medipay/medipay/internal/domain/billing"
	"github.com/medipay/medipay/internal/platform/auth"
	"github.com/medipay/medipay/internal/platform/mail"
)

var (
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid request")
	ErrConflict  = errors.New("conflict")
)

// Service manages the staff and product catalogue of institutions. The
// institution a viewer acts on is their own account, or the institution they
// are staff of.
type Service struct {
	staff    StaffRepository
	products ProductRepository
	mailer   mail.Mailer
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(staff StaffRepository, products ProductRepository, mailer mail.Mailer, logger zerolog.Logger) *Service {
	return &Service{
		staff:    staff,
		products: products,
		mailer:   mailer,
		logger:   logger.With().Str("component", "institution").Logger(),
		now:      time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Access resolves the viewer's permissions on their institution.
func (s *Service) Access(ctx context.Context, viewer auth.Principal) (Access, error) {
	if viewer.Role != auth.RoleInstitution {
		return Access{}, ErrForbidden
	}
	institutionID := viewer.OwnerID()
	staff, err := s.staff.ListByInstitution(ctx, institutionID)
	if err != nil {
		return Access{}, fmt.Errorf("list staff: %w", err)
	}
	return ResolveAccess(viewer, institutionID, staff), nil
}

func (s *Service) require(ctx context.Context, viewer auth.Principal, allowed func(Access) bool) (Access, error) {
	a, err := s.Access(ctx, viewer)
	if err != nil {
		return a, err
	}
	if !allowed(a) {
		return a, ErrForbidden
	}
	return a, nil
}

// =========== Products ===========

// FilterProducts applies a case-insensitive search over name and description
// and an exact category match.
func FilterProducts(items []*Product, f ProductFilter) []*Product {
	out := make([]*Product, 0, len(items))
	for _, p := range items {
		if f.Category != "" && f.Category != "all" && p.Category != f.Category {
			continue
		}
		if !billing.Matches(f.Search, p.Name, p.Description) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Categories returns the distinct product categories, sorted.
func Categories(items []*Product) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, p := range items {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out
}

// ProductList is the products page: the filtered rows and the categories
// available for filtering.
type ProductList struct {
	Products   []*Product `json:"products"`
	Categories []string   `json:"categories"`
}

func (s *Service) ListProducts(ctx context.Context, viewer auth.Principal, f ProductFilter) (*ProductList, error) {
	a, err := s.require(ctx, viewer, func(a Access) bool { return a.CanViewProducts })
	if err != nil {
		return nil, err
	}
	all, err := s.products.ListByInstitution(ctx, a.InstitutionID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &ProductList{Products: FilterProducts(all, f), Categories: Categories(all)}, nil
}

func (s *Service) CreateProduct(ctx context.Context, viewer auth.Principal, req CreateProductRequest) (*Product, error) {
	a, err := s.require(ctx, viewer, func(a Access) bool { return a.IsManager })
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Category) == "" {
		return nil, fmt.Errorf("%w: name and category are required", ErrInvalid)
	}
	if req.UnitPrice <= 0 {
		return nil, fmt.Errorf("%w: unit_price must be greater than zero", ErrInvalid)
	}
	now := s.now().UTC()
	p := &Product{
		ID:            "PROD-" + strings.ToUpper(uuid.NewString()[:8]),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Category:      strings.TrimSpace(req.Category),
		UnitPrice:     req.UnitPrice,
		Unit:          req.Unit,
		InstitutionID: a.InstitutionID,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.Unit == "" {
		p.Unit = "service"
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.Info().Str("product_id", p.ID).Str("institution_id", p.InstitutionID).Msg("product created")
	return p, nil
}

func (s *Service) ownProduct(ctx context.Context, viewer auth.Principal, id string) (*Product, error) {
	a, err := s.require(ctx, viewer, func(a Access) bool { return a.IsManager })
	if err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.InstitutionID != a.InstitutionID {
		return nil, ErrNotFound
	}
	return p, nil
}

// ToggleProduct flips a product between active and inactive.
func (s *Service) ToggleProduct(ctx context.Context, viewer auth.Principal, id string) (*Product, error) {
	p, err := s.ownProduct(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	p.IsActive = !p.IsActive
	p.UpdatedAt = s.now().UTC()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, viewer auth.Principal, id string) error {
	if _, err := s.ownProduct(ctx, viewer, id); err != nil {
		return err
	}
	return s.products.Delete(ctx, id)
}

// =========== Staff ===========

func (s *Service) ListStaff(ctx context.Context, viewer auth.Principal) ([]*InstitutionUser, error) {
	a, err := s.require(ctx, viewer, func(a Access) bool { return a.IsManager })
	if err != nil {
		return nil, err
	}
	return s.staff.ListByInstitution(ctx, a.InstitutionID)
}

// Invite adds a pending staff member and mails them an invitation. A failed
// mail does not undo the invitation; it can be resent.
func (s *Service) Invite(ctx context.Context, viewer auth.Principal, req InviteRequest) (*InstitutionUser, error) {
	a, err := s.require(ctx, viewer, func(a Access) bool { return a.CanManageStaff })
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: email and name are required", ErrInvalid)
	}
	role := req.Role
	if role == "" {
		role = StaffStaff
	}
	if !validStaffRoles[role] {
		return nil, fmt.Errorf("%w: unknown role %s", ErrInvalid, role)
	}
	existing, err := s.staff.ListByInstitution(ctx, a.InstitutionID)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	for _, u := range existing {
		if strings.EqualFold(u.Email, email) {
			return nil, fmt.Errorf("%w: %s is already a member", ErrConflict, email)
		}
	}

	u := &InstitutionUser{
		ID:            "IU-" + strings.ToUpper(uuid.NewString()[:8]),
		Email:         email,
		Name:          strings.TrimSpace(req.Name),
		Role:          role,
		InstitutionID: a.InstitutionID,
		Status:        StatusPending,
		InvitedBy:     viewer.UserID,
		InvitedAt:     s.now().UTC(),
		Permissions:   append([]string(nil), defaultPermissions[role]...),
	}
	if err := s.staff.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create staff member: %w", err)
	}
	s.logger.Info().Str("staff_id", u.ID).Str("institution_id", u.InstitutionID).Str("role", string(u.Role)).Msg("staff member invited")
	s.sendInvitation(ctx, viewer, u)
	return u, nil
}

func (s *Service) sendInvitation(ctx context.Context, viewer auth.Principal, u *InstitutionUser) {
	if s.mailer == nil {
		return
	}
	from := viewer.Name
	if from == "" {
		from = "your institution"
	}
	msg := mail.Message{
		To:      u.Email,
		Subject: "You have been invited to MediPay",
		Body: fmt.Sprintf("Hello %s,\n\n%s has invited you to join MediPay as %s.\nSign in at /login to accept the invitation.\n",
			u.Name, from, u.Role),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error().Err(err).Str("staff_id", u.ID).Msg("failed to send invitation")
	}
}

func (s *Service) ownMember(ctx context.Context, viewer auth.Principal, id string) (*InstitutionUser, error) {
	a, err := s.require(ctx, viewer, func(a Access) bool { return a.CanManageStaff })
	if err != nil {
		return nil, err
	}
	u, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.InstitutionID != a.InstitutionID {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *Service) setStatus(ctx context.Context, viewer auth.Principal, id string, status StaffStatus) (*InstitutionUser, error) {
	u, err := s.ownMember(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	u.Status = status
	if err := s.staff.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update staff member: %w", err)
	}
	s.logger.Info().Str("staff_id", u.ID).Str("status", string(status)).Msg("staff status changed")
	return u, nil
}

func (s *Service) Activate(ctx context.Context, viewer auth.Principal, id string) (*InstitutionUser, error) {
	return s.setStatus(ctx, viewer, id, StatusActive)
}

func (s *Service) Deactivate(ctx context.Context, viewer auth.Principal, id string) (*InstitutionUser, error) {
	return s.setStatus(ctx, viewer, id, StatusInactive)
}

// ResendInvitation re-mails a pending invitation and restamps it.
func (s *Service) ResendInvitation(ctx context.Context, viewer auth.Principal, id string) (*InstitutionUser, error) {
	u, err := s.ownMember(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if u.Status != StatusPending {
		return nil, fmt.Errorf("%w: invitation for %s is not pending", ErrConflict, u.Email)
	}
	u.InvitedAt = s.now().UTC()
	if err := s.staff.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update staff member: %w", err)
	}
	s.sendInvitation(ctx, viewer, u)
	return u, nil
}

// Members returns the staff and products of an institution for dashboard
// aggregation.
func (s *Service) Members(ctx context.Context, institutionID string) ([]*InstitutionUser, []*Product, error) {
	staff, err := s.staff.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, nil, fmt.Errorf("list staff: %w", err)
	}
	products, err := s.products.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, nil, fmt.Errorf("list products: %w", err)
	}
	return staff, products, nil
}
