package clinical

import "time"

// MedicalRecord is a visit note written by a doctor.
type MedicalRecord struct {
	ID                    string          `json:"id"`
	PatientID             string          `json:"patient_id"`
	PatientName           string          `json:"patient_name"`
	DoctorID              string          `json:"doctor_id"`
	DoctorName            string          `json:"doctor_name"`
	InstitutionID         string          `json:"institution_id,omitempty"`
	InstitutionName       string          `json:"institution_name,omitempty"`
	VisitDate             time.Time       `json:"visit_date"`
	Diagnosis             string          `json:"diagnosis"`
	Treatment             string          `json:"treatment"`
	Notes                 string          `json:"notes"`
	Prescriptions         []*Prescription `json:"prescriptions"`
	TotalCost             float64         `json:"total_cost"`
	InsuranceCoverage     float64         `json:"insurance_coverage"`
	PatientResponsibility float64         `json:"patient_responsibility"`
	CreatedAt             time.Time       `json:"created_at"`
}

type Prescription struct {
	ID             string  `json:"id"`
	MedicationName string  `json:"medication_name"`
	Dosage         string  `json:"dosage"`
	Frequency      string  `json:"frequency"`
	Duration       string  `json:"duration"`
	Quantity       int     `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	TotalPrice     float64 `json:"total_price"`
	Instructions   string  `json:"instructions"`
}

// Patient is an entry of the doctor's patient picker.
type Patient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Institution struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateRecordRequest is the "new medical note" form. VisitDate defaults to
// today.
type CreateRecordRequest struct {
	PatientID             string     `json:"patient_id" validate:"required"`
	InstitutionID         string     `json:"institution_id,omitempty"`
	VisitDate             *time.Time `json:"visit_date,omitempty"`
	Diagnosis             string     `json:"diagnosis" validate:"required"`
	Treatment             string     `json:"treatment" validate:"required"`
	Notes                 string     `json:"notes,omitempty"`
	TotalCost             float64    `json:"total_cost" validate:"gte=0"`
	InsuranceCoverage     float64    `json:"insurance_coverage" validate:"gte=0"`
	PatientResponsibility float64    `json:"patient_responsibility" validate:"gte=0"`
}

type CreatePrescriptionRequest struct {
	MedicationName string  `json:"medication_name" validate:"required"`
	Dosage         string  `json:"dosage" validate:"required"`
	Frequency      string  `json:"frequency" validate:"required"`
	Duration       string  `json:"duration,omitempty"`
	Quantity       int     `json:"quantity" validate:"gte=0"`
	UnitPrice      float64 `json:"unit_price" validate:"gte=0"`
	Instructions   string  `json:"instructions,omitempty"`
}
