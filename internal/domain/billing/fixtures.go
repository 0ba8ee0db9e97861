package billing

import "time"

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func tsPtr(s string) *time.Time {
	t := ts(s)
	return &t
}

func f64(v float64) *float64 { return &v }

// SeedInvoices returns the demo invoices. Patient 1 is billed by doctor 4 at
// institution 2 and by doctor 5 at institution 6.
func SeedInvoices() []*Invoice {
	return []*Invoice{
		{
			ID: "INV-001", PatientID: "1", PatientName: "John Smith",
			DoctorID: "4", DoctorName: "Dr. Sarah Johnson",
			InstitutionID: "2", InstitutionName: "City General Hospital",
			Service: "General Consultation", Amount: 150, Status: StatusConfirmed,
			CreatedAt: ts("2024-01-15T10:00:00Z"), PaidAt: tsPtr("2024-01-15T14:30:00Z"),
			Description:      "Annual health checkup and consultation",
			InsuranceClaimID: "CLM-001", InsuranceCoverage: f64(120), PatientResponsibility: f64(30),
		},
		{
			ID: "INV-002", PatientID: "1", PatientName: "John Smith",
			DoctorID: "4", DoctorName: "Dr. Sarah Johnson",
			InstitutionID: "2", InstitutionName: "City General Hospital",
			Service: "Blood Test Analysis", Amount: 85, Status: StatusPaid,
			CreatedAt: ts("2024-01-20T09:15:00Z"), PaidAt: tsPtr("2024-01-20T16:45:00Z"),
			Description:      "Comprehensive blood panel and lipid profile",
			InsuranceClaimID: "CLM-002", InsuranceCoverage: f64(68), PatientResponsibility: f64(17),
		},
		{
			ID: "INV-003", PatientID: "1", PatientName: "John Smith",
			DoctorID: "5", DoctorName: "Dr. Michael Chen",
			InstitutionID: "6", InstitutionName: "Metro Medical Center",
			Service: "Cardiology Consultation", Amount: 250, Status: StatusPending,
			CreatedAt:        ts("2024-01-25T14:00:00Z"),
			Description:      "Heart health assessment and ECG",
			InsuranceClaimID: "CLM-003", InsuranceCoverage: f64(200), PatientResponsibility: f64(50),
		},
	}
}

func SeedTransactions() []*Transaction {
	return []*Transaction{
		{
			ID: "TXN-001", InvoiceID: "INV-001", PatientName: "John Smith", DoctorName: "Dr. Sarah Johnson",
			Service: "General Consultation", Amount: 150, Status: StatusConfirmed,
			Timestamp:      ts("2024-01-15T14:30:00Z"),
			BlockchainHash: "0x1a2b3c4d5e6f7890abcdef1234567890", ProofOfStake: "PoS-Verified-001",
		},
		{
			ID: "TXN-002", InvoiceID: "INV-002", PatientName: "John Smith", DoctorName: "Dr. Sarah Johnson",
			Service: "Blood Test Analysis", Amount: 85, Status: StatusPaid,
			Timestamp:      ts("2024-01-20T16:45:00Z"),
			BlockchainHash: "0x9876543210fedcba0987654321fedcba", ProofOfStake: "PoS-Verified-002",
		},
		{
			ID: "TXN-003", InvoiceID: "INV-003", PatientName: "John Smith", DoctorName: "Dr. Michael Chen",
			Service: "Cardiology Consultation", Amount: 250, Status: StatusPending,
			Timestamp: ts("2024-01-25T14:00:00Z"),
		},
	}
}

func SeedPayments() []*InsurancePayment {
	return []*InsurancePayment{
		{
			ID: "IP-001", ClaimID: "CLM-001", PatientID: "1", PatientName: "John Smith",
			InstitutionID: "2", InstitutionName: "City General Hospital",
			Service: "General Consultation", Amount: 200, Status: StatusPaid,
			ProcessedDate: ts("2024-01-16T09:00:00Z"), PaymentDate: tsPtr("2024-01-16T14:30:00Z"),
			Description: "Insurance payment for consultation services",
		},
	}
}
