package institution

import "github.com/medipay/medipay/internal/domain/billing"

// Stats is the header of the institution dashboard.
type Stats struct {
	Revenue           float64 `json:"revenue"`
	InsuranceReceived float64 `json:"insurance_received"`
	PendingRevenue    float64 `json:"pending_revenue"`
	UniquePatients    int     `json:"unique_patients"`
	ActiveUsers       int     `json:"active_users"`
	ActiveProducts    int     `json:"active_products"`
	SuccessRate       int     `json:"success_rate"`
}

// ComputeStats aggregates an institution's invoices, received insurance
// payments, staff and products. Revenue counts paid and confirmed invoices;
// the success rate is the settled share of invoices.
func ComputeStats(invoices []*billing.Invoice, payments []*billing.InsurancePayment, staff []*InstitutionUser, products []*Product) Stats {
	inv := billing.SummarizeInvoices(invoices)
	pay := billing.SummarizePayments(payments)
	s := Stats{
		Revenue:           inv.Paid,
		InsuranceReceived: pay.Paid,
		PendingRevenue:    inv.Pending,
		UniquePatients:    inv.UniquePatients,
	}
	settled := 0
	for _, i := range invoices {
		if i.Status.Settled() {
			settled++
		}
	}
	s.SuccessRate = billing.SuccessRate(settled, len(invoices))
	for _, u := range staff {
		if u.Status == StatusActive {
			s.ActiveUsers++
		}
	}
	for _, p := range products {
		if p.IsActive {
			s.ActiveProducts++
		}
	}
	return s
}
