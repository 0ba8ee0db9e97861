package clinical

import "time"

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func SeedRecords() []*MedicalRecord {
	return []*MedicalRecord{
		{
			ID: "MR-001", PatientID: "1", PatientName: "John Smith",
			DoctorID: "4", DoctorName: "Dr. Sarah Johnson",
			InstitutionID: "2", InstitutionName: "City General Hospital",
			VisitDate: ts("2024-01-15T10:00:00Z"),
			Diagnosis: "Hypertension",
			Treatment: "Blood pressure monitoring and lifestyle counseling",
			Notes:     "Patient presents with elevated blood pressure. Recommended dietary changes and regular exercise. Follow-up in 3 months.",
			Prescriptions: []*Prescription{
				{
					ID: "RX-001", MedicationName: "Lisinopril", Dosage: "10mg",
					Frequency: "Once daily", Duration: "30 days", Quantity: 30,
					UnitPrice: 2.50, TotalPrice: 75.00, Instructions: "Take with food in the morning",
				},
			},
			TotalCost: 250, InsuranceCoverage: 200, PatientResponsibility: 50,
			CreatedAt: ts("2024-01-15T10:00:00Z"),
		},
	}
}

func SeedPatients() []Patient {
	return []Patient{
		{ID: "1", Name: "John Smith", Email: "john@example.com"},
		{ID: "5", Name: "Alice Cooper", Email: "alice@example.com"},
		{ID: "6", Name: "Bob Wilson", Email: "bob@example.com"},
	}
}

func SeedInstitutions() []Institution {
	return []Institution{
		{ID: "2", Name: "City General Hospital", Type: "Hospital"},
		{ID: "6", Name: "Metro Medical Center", Type: "Clinic"},
	}
}
