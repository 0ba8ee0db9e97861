package billing

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

const pdfDateLayout = "Jan 2, 2006 15:04 MST"

// RenderInvoicePDF writes a one-page A4 invoice to w.
func RenderInvoicePDF(w io.Writer, inv *Invoice) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(37, 99, 235)
	pdf.CellFormat(0, 10, "MediPay", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, "Healthcare billing on Sui", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Invoice "+inv.ID, "1", 1, "C", false, 0, "")

	addDetail(pdf, "Patient", inv.PatientName)
	addDetail(pdf, "Doctor", inv.DoctorName)
	if inv.InstitutionName != "" {
		addDetail(pdf, "Institution", inv.InstitutionName)
	}
	addDetail(pdf, "Service", inv.Service)
	if inv.Description != "" {
		addDetail(pdf, "Description", inv.Description)
	}
	addDetail(pdf, "Issued", inv.CreatedAt.Format(pdfDateLayout))
	addDetail(pdf, "Status", string(inv.Status))
	if inv.PaidAt != nil {
		addDetail(pdf, "Paid", inv.PaidAt.Format(pdfDateLayout))
	}

	if inv.InsuranceClaimID != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 10, "Insurance", "1", 1, "C", false, 0, "")
		addDetail(pdf, "Claim", inv.InsuranceClaimID)
		if inv.InsuranceCoverage != nil {
			addDetail(pdf, "Coverage", money(*inv.InsuranceCoverage))
		}
		if inv.PatientResponsibility != nil {
			addDetail(pdf, "Patient share", money(*inv.PatientResponsibility))
		}
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 13)
	pdf.SetTextColor(22, 163, 74)
	pdf.CellFormat(0, 10, "Total: "+money(inv.Amount), "", 1, "R", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "", 9)
	pdf.SetY(pdf.GetY() + 12)
	pdf.CellFormat(0, 10, "This is a computer generated invoice", "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render invoice %s: %w", inv.ID, err)
	}
	return nil
}

func addDetail(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(45, 10, label, "1", 0, "", false, 0, "")
	pdf.CellFormat(0, 10, value, "1", 1, "", false, 0, "")
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
