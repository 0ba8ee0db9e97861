package billing

import "math"

// SuccessRate is successful/total as a rounded percentage, 0 when total is 0.
func SuccessRate(successful, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(successful) / float64(total) * 100))
}

type InvoiceSummary struct {
	Count          int     `json:"count"`
	Total          float64 `json:"total"`
	Paid           float64 `json:"paid"`
	Pending        float64 `json:"pending"`
	UniquePatients int     `json:"unique_patients"`
}

func SummarizeInvoices(items []*Invoice) InvoiceSummary {
	s := InvoiceSummary{Count: len(items)}
	patients := make(map[string]struct{})
	for _, inv := range items {
		s.Total += inv.Amount
		switch {
		case inv.Status.Settled():
			s.Paid += inv.Amount
		case inv.Status == StatusPending:
			s.Pending += inv.Amount
		}
		patients[inv.PatientID] = struct{}{}
	}
	s.UniquePatients = len(patients)
	return s
}

type TransactionSummary struct {
	Count       int     `json:"count"`
	Spent       float64 `json:"spent"`
	Pending     float64 `json:"pending"`
	Successful  int     `json:"successful"`
	SuccessRate int     `json:"success_rate"`
}

func SummarizeTransactions(items []*Transaction) TransactionSummary {
	s := TransactionSummary{Count: len(items)}
	for _, tx := range items {
		switch {
		case tx.Status.Settled():
			s.Spent += tx.Amount
			s.Successful++
		case tx.Status == StatusPending:
			s.Pending += tx.Amount
		}
	}
	s.SuccessRate = SuccessRate(s.Successful, s.Count)
	return s
}

// PaymentSummary aggregates insurance payments. Only the paid status counts
// as settled here.
type PaymentSummary struct {
	Count              int     `json:"count"`
	Paid               float64 `json:"paid"`
	Pending            float64 `json:"pending"`
	UniquePatients     int     `json:"unique_patients"`
	UniqueInstitutions int     `json:"unique_institutions"`
	SuccessRate        int     `json:"success_rate"`
}

func SummarizePayments(items []*InsurancePayment) PaymentSummary {
	s := PaymentSummary{Count: len(items)}
	patients := make(map[string]struct{})
	institutions := make(map[string]struct{})
	paid := 0
	for _, p := range items {
		switch p.Status {
		case StatusPaid:
			s.Paid += p.Amount
			paid++
		case StatusPending:
			s.Pending += p.Amount
		}
		patients[p.PatientID] = struct{}{}
		institutions[p.InstitutionID] = struct{}{}
	}
	s.UniquePatients = len(patients)
	s.UniqueInstitutions = len(institutions)
	s.SuccessRate = SuccessRate(paid, s.Count)
	return s
}

// ExplorerSummary is the header of the public transaction explorer.
type ExplorerSummary struct {
	Total     int     `json:"total"`
	Confirmed int     `json:"confirmed"`
	Pending   int     `json:"pending"`
	Volume    float64 `json:"volume"`
}

func SummarizeExplorer(items []*Transaction) ExplorerSummary {
	s := ExplorerSummary{Total: len(items)}
	for _, tx := range items {
		switch tx.Status {
		case StatusConfirmed:
			s.Confirmed++
		case StatusPending:
			s.Pending++
		}
		s.Volume += tx.Amount
	}
	return s
}
