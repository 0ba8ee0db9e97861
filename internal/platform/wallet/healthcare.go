package wallet

// HealthcareModule is the Move module holding the healthcare entry points.
const HealthcareModule = "healthcare"

// Entry functions of the healthcare module.
const (
	FnCreateInvoice       = "create_invoice"
	FnPayInvoice          = "pay_invoice"
	FnCreateMedicalRecord = "create_medical_record"
	FnCreatePrescription  = "create_prescription"
)

type CreateInvoiceParams struct {
	PatientID     string  `json:"patient_id" validate:"required"`
	DoctorID      string  `json:"doctor_id" validate:"required"`
	InstitutionID string  `json:"institution_id"`
	Service       string  `json:"service" validate:"required"`
	Amount        float64 `json:"amount" validate:"gt=0"`
	Description   string  `json:"description,omitempty"`
}

type PayInvoiceParams struct {
	InvoiceID string  `json:"invoice_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"gt=0"`
}

type CreateMedicalRecordParams struct {
	PatientID     string `json:"patient_id" validate:"required"`
	DoctorID      string `json:"doctor_id" validate:"required"`
	InstitutionID string `json:"institution_id"`
	Diagnosis     string `json:"diagnosis" validate:"required"`
	Treatment     string `json:"treatment" validate:"required"`
	Notes         string `json:"notes"`
	VisitDate     string `json:"visit_date" validate:"required"`
}

type CreatePrescriptionParams struct {
	PatientID      string `json:"patient_id" validate:"required"`
	DoctorID       string `json:"doctor_id" validate:"required"`
	MedicationName string `json:"medication_name" validate:"required"`
	Dosage         string `json:"dosage" validate:"required"`
	Frequency      string `json:"frequency" validate:"required"`
	Duration       string `json:"duration"`
	Quantity       uint64 `json:"quantity"`
	Instructions   string `json:"instructions"`
}

// HealthcareTransaction builds transaction blocks against the healthcare
// package deployed at packageID. Amounts are given in SUI and sent in MIST.
type HealthcareTransaction struct {
	packageID string
	txb       *TransactionBlock
}

func NewHealthcareTransaction(packageID string) *HealthcareTransaction {
	return &HealthcareTransaction{packageID: packageID, txb: NewTransactionBlock()}
}

// Target is the fully qualified move-call target of fn.
func (h *HealthcareTransaction) Target(fn string) string {
	return h.packageID + "::" + HealthcareModule + "::" + fn
}

func (h *HealthcareTransaction) CreateInvoice(p CreateInvoiceParams) *HealthcareTransaction {
	h.txb.MoveCall(h.Target(FnCreateInvoice),
		PureString(p.PatientID),
		PureString(p.DoctorID),
		PureString(p.InstitutionID),
		PureString(p.Service),
		PureU64(SuiToMist(p.Amount)),
		PureString(p.Description),
	)
	return h
}

// PayInvoice splits the payment off the gas coin and hands it to
// pay_invoice.
func (h *HealthcareTransaction) PayInvoice(p PayInvoiceParams) *HealthcareTransaction {
	coin := h.txb.SplitCoins(Gas(), PureU64(SuiToMist(p.Amount)))
	h.txb.MoveCall(h.Target(FnPayInvoice), PureString(p.InvoiceID), coin)
	return h
}

func (h *HealthcareTransaction) CreateMedicalRecord(p CreateMedicalRecordParams) *HealthcareTransaction {
	h.txb.MoveCall(h.Target(FnCreateMedicalRecord),
		PureString(p.PatientID),
		PureString(p.DoctorID),
		PureString(p.InstitutionID),
		PureString(p.Diagnosis),
		PureString(p.Treatment),
		PureString(p.Notes),
		PureString(p.VisitDate),
	)
	return h
}

func (h *HealthcareTransaction) CreatePrescription(p CreatePrescriptionParams) *HealthcareTransaction {
	h.txb.MoveCall(h.Target(FnCreatePrescription),
		PureString(p.PatientID),
		PureString(p.DoctorID),
		PureString(p.MedicationName),
		PureString(p.Dosage),
		PureString(p.Frequency),
		PureString(p.Duration),
		PureU64(p.Quantity),
		PureString(p.Instructions),
	)
	return h
}

func (h *HealthcareTransaction) SetGasBudget(budget uint64) *HealthcareTransaction {
	h.txb.SetGasBudget(budget)
	return h
}

func (h *HealthcareTransaction) TransactionBlock() *TransactionBlock {
	return h.txb
}
