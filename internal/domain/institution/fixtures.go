package institution

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

// SeedStaff returns the demo staff of City General Hospital (institution 2).
func SeedStaff() []*InstitutionUser {
	return []*InstitutionUser{
		{
			ID: "IU-001", Email: "admin@citygeneral.com", Name: "Dr. Sarah Johnson",
			Role: StaffAdmin, InstitutionID: "2", Status: StatusActive,
			InvitedBy: "system", InvitedAt: ts("2024-01-01T00:00:00Z"), LastLogin: tsPtr("2024-01-25T10:30:00Z"),
			Permissions: []string{PermAll},
		},
		{
			ID: "IU-002", Email: "manager@citygeneral.com", Name: "John Manager",
			Role: StaffManager, InstitutionID: "2", Status: StatusActive,
			InvitedBy: "IU-001", InvitedAt: ts("2024-01-05T09:00:00Z"), LastLogin: tsPtr("2024-01-24T14:20:00Z"),
			Permissions: []string{PermViewTransactions, PermViewProducts, PermViewReports},
		},
		{
			ID: "IU-003", Email: "staff@citygeneral.com", Name: "Jane Staff",
			Role: StaffStaff, InstitutionID: "2", Status: StatusActive,
			InvitedBy: "IU-001", InvitedAt: ts("2024-01-10T11:00:00Z"), LastLogin: tsPtr("2024-01-23T16:45:00Z"),
			Permissions: []string{PermViewTransactions, PermViewProducts},
		},
		{
			ID: "IU-004", Email: "pending@citygeneral.com", Name: "Pending User",
			Role: StaffManager, InstitutionID: "2", Status: StatusPending,
			InvitedBy: "IU-001", InvitedAt: ts("2024-01-20T15:00:00Z"),
			Permissions: []string{PermViewTransactions, PermViewProducts, PermViewReports},
		},
	}
}

func SeedProducts() []*Product {
	created := ts("2024-01-01T00:00:00Z")
	return []*Product{
		{
			ID: "PROD-001", Name: "General Consultation",
			Description: "Standard medical consultation with a healthcare provider",
			Category:    "Consultation", UnitPrice: 150, Unit: "per visit",
			InstitutionID: "2", IsActive: true, CreatedAt: created, UpdatedAt: created,
		},
		{
			ID: "PROD-002", Name: "Blood Test Panel",
			Description: "Comprehensive blood work including CBC, lipid profile, and metabolic panel",
			Category:    "Laboratory", UnitPrice: 85, Unit: "per test",
			InstitutionID: "2", IsActive: true, CreatedAt: created, UpdatedAt: created,
		},
		{
			ID: "PROD-003", Name: "X-Ray Imaging",
			Description: "Standard X-ray imaging for diagnostic purposes",
			Category:    "Imaging", UnitPrice: 120, Unit: "per image",
			InstitutionID: "2", IsActive: true, CreatedAt: created, UpdatedAt: created,
		},
		{
			ID: "PROD-004", Name: "Emergency Room Visit",
			Description: "Emergency department consultation and treatment",
			Category:    "Emergency", UnitPrice: 500, Unit: "per visit",
			InstitutionID: "2", IsActive: true, CreatedAt: created, UpdatedAt: created,
		},
		{
			ID: "PROD-005", Name: "Physical Therapy Session",
			Description: "One-on-one physical therapy session",
			Category:    "Therapy", UnitPrice: 100, Unit: "per session",
			InstitutionID: "2", IsActive: false, CreatedAt: created, UpdatedAt: ts("2024-01-15T00:00:00Z"),
		},
	}
}
