package dashboard

import (
	"context"
	"fmt"

	"github.com/medipay/medipay/internal/domain/billing"
	"github.com/medipay/medipay/internal/domain/clinical"
	"github.com/medipay/medipay/internal/domain/institution"
	"github.com/medipay/medipay/internal/platform/auth"
)

// Query carries the list controls of a page: search term, status and date
// window, already validated.
type Query struct {
	Search string
	Status billing.Status
	Window billing.DateWindow
}

// Placeholder is the content of a page that has no view yet.
type Placeholder struct {
	Placeholder bool   `json:"placeholder"`
	Message     string `json:"message"`
}

type PatientHome struct {
	Invoices *billing.InvoiceOverview `json:"invoices"`
}

type DoctorHome struct {
	Invoices *billing.InvoiceOverview `json:"invoices"`
	Clinical *clinical.DoctorOverview `json:"clinical"`
}

// CreateInvoiceForm lists the choices of the doctor's invoice form.
type CreateInvoiceForm struct {
	Patients     []clinical.Patient     `json:"patients"`
	Institutions []clinical.Institution `json:"institutions"`
}

type DoctorReports struct {
	Invoices billing.InvoiceSummary `json:"invoices"`
	Clinical clinical.DoctorStats   `json:"clinical"`
}

type InstitutionHome struct {
	Access       institution.Access             `json:"access"`
	Stats        institution.Stats              `json:"stats"`
	Invoices     []*billing.Invoice             `json:"invoices"`
	Payments     []*billing.InsurancePayment    `json:"payments"`
	Transactions []*billing.Transaction         `json:"transactions"`
	Staff        []*institution.InstitutionUser `json:"staff"`
	Products     []*institution.Product         `json:"products"`
}

type InsuranceHome struct {
	Payments     *billing.PaymentList     `json:"payments"`
	Claims       *billing.InvoiceList     `json:"claims"`
	Transactions *billing.TransactionList `json:"transactions"`
}

type InsuranceReports struct {
	Payments billing.PaymentSummary     `json:"payments"`
	Claims   billing.InvoiceSummary     `json:"claims"`
	Settled  billing.TransactionSummary `json:"settled"`
}

// Views composes page content from the domain services.
type Views struct {
	billing     *billing.Service
	clinical    *clinical.Service
	institution *institution.Service
}

func NewViews(b *billing.Service, c *clinical.Service, i *institution.Service) *Views {
	return &Views{billing: b, clinical: c, institution: i}
}

// Content returns the view model of page as seen by viewer.
func (v *Views) Content(ctx context.Context, viewer auth.Principal, page Page, q Query) (interface{}, error) {
	switch page.Role {
	case auth.RolePatient:
		return v.patient(ctx, viewer, page.Slug, q)
	case auth.RoleDoctor:
		return v.doctor(ctx, viewer, page.Slug, q)
	case auth.RoleInstitution:
		return v.institutionPage(ctx, viewer, page.Slug, q)
	case auth.RoleInsurance:
		return v.insurance(ctx, viewer, page.Slug, q)
	default:
		return nil, fmt.Errorf("unknown role: %s", page.Role)
	}
}

func placeholder(title string) Placeholder {
	return Placeholder{Placeholder: true, Message: title + " is coming soon"}
}

func (q Query) invoices() billing.InvoiceFilter {
	return billing.InvoiceFilter{Search: q.Search, Status: q.Status}
}

func (q Query) transactions() billing.TransactionFilter {
	return billing.TransactionFilter{Search: q.Search, Status: q.Status, Window: q.Window}
}

func (v *Views) patient(ctx context.Context, viewer auth.Principal, slug string, q Query) (interface{}, error) {
	switch slug {
	case "":
		ov, err := v.billing.Overview(ctx, viewer)
		if err != nil {
			return nil, err
		}
		return PatientHome{Invoices: ov}, nil
	case "invoices":
		return v.billing.Invoices(ctx, viewer, billing.InvoiceFilter{Search: q.Search})
	case "transactions":
		return v.billing.Transactions(ctx, viewer, q.transactions())
	case "profile":
		return viewer, nil
	default:
		return placeholder("Patient " + slug), nil
	}
}

func (v *Views) doctor(ctx context.Context, viewer auth.Principal, slug string, q Query) (interface{}, error) {
	switch slug {
	case "":
		inv, err := v.billing.Overview(ctx, viewer)
		if err != nil {
			return nil, err
		}
		cl, err := v.clinical.Overview(ctx, viewer.UserID)
		if err != nil {
			return nil, err
		}
		return DoctorHome{Invoices: inv, Clinical: cl}, nil
	case "create":
		return CreateInvoiceForm{Patients: v.clinical.Patients(), Institutions: v.clinical.Institutions()}, nil
	case "invoices":
		return v.billing.Invoices(ctx, viewer, q.invoices())
	case "reports":
		inv, err := v.billing.Invoices(ctx, viewer, billing.InvoiceFilter{})
		if err != nil {
			return nil, err
		}
		cl, err := v.clinical.Overview(ctx, viewer.UserID)
		if err != nil {
			return nil, err
		}
		return DoctorReports{Invoices: inv.Summary, Clinical: cl.Stats}, nil
	case "profile":
		return viewer, nil
	default:
		return placeholder("Doctor " + slug), nil
	}
}

func (v *Views) institutionPage(ctx context.Context, viewer auth.Principal, slug string, q Query) (interface{}, error) {
	switch slug {
	case "":
		return v.institutionHome(ctx, viewer)
	case "products":
		return v.institution.ListProducts(ctx, viewer, institution.ProductFilter{Search: q.Search})
	case "users":
		return v.institution.ListStaff(ctx, viewer)
	case "transactions":
		return v.billing.Transactions(ctx, viewer, q.transactions())
	case "reports":
		home, err := v.institutionHome(ctx, viewer)
		if err != nil {
			return nil, err
		}
		if !home.Access.CanViewReports {
			return nil, institution.ErrForbidden
		}
		return home.Stats, nil
	default:
		return placeholder("Institution " + slug), nil
	}
}

func (v *Views) institutionHome(ctx context.Context, viewer auth.Principal) (*InstitutionHome, error) {
	access, err := v.institution.Access(ctx, viewer)
	if err != nil {
		return nil, err
	}
	invoices, err := v.billing.ListInvoices(ctx, viewer, billing.InvoiceFilter{})
	if err != nil {
		return nil, err
	}
	payments, err := v.billing.Payments(ctx, viewer)
	if err != nil {
		return nil, err
	}
	txs, err := v.billing.ListTransactions(ctx, viewer, billing.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	staff, products, err := v.institution.Members(ctx, access.InstitutionID)
	if err != nil {
		return nil, err
	}
	return &InstitutionHome{
		Access:       access,
		Stats:        institution.ComputeStats(invoices, payments.Payments, staff, products),
		Invoices:     invoices,
		Payments:     payments.Payments,
		Transactions: txs,
		Staff:        staff,
		Products:     products,
	}, nil
}

func (v *Views) insurance(ctx context.Context, viewer auth.Principal, slug string, q Query) (interface{}, error) {
	switch slug {
	case "":
		payments, err := v.billing.Payments(ctx, viewer)
		if err != nil {
			return nil, err
		}
		claims, err := v.billing.Invoices(ctx, viewer, billing.InvoiceFilter{})
		if err != nil {
			return nil, err
		}
		txs, err := v.billing.Transactions(ctx, viewer, billing.TransactionFilter{})
		if err != nil {
			return nil, err
		}
		return InsuranceHome{Payments: payments, Claims: claims, Transactions: txs}, nil
	case "claims":
		return v.billing.Invoices(ctx, viewer, q.invoices())
	case "payments":
		return v.billing.Payments(ctx, viewer)
	case "reports":
		payments, err := v.billing.Payments(ctx, viewer)
		if err != nil {
			return nil, err
		}
		claims, err := v.billing.Invoices(ctx, viewer, billing.InvoiceFilter{})
		if err != nil {
			return nil, err
		}
		txs, err := v.billing.Transactions(ctx, viewer, billing.TransactionFilter{})
		if err != nil {
			return nil, err
		}
		return InsuranceReports{Payments: payments.Summary, Claims: claims.Summary, Settled: txs.Summary}, nil
	default:
		return placeholder("Insurance " + slug), nil
	}
}
