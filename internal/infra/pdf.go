package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"rentalhub/internal/model"

	"github.com/go-pdf/fpdf"
)

// InvoiceDocument carries what goes on a printed invoice. Reservation may be
// nil when it was deleted after the invoice was issued.
type InvoiceDocument struct {
	Issuer      string
	Invoice     *model.Invoice
	Reservation *model.Reservation
}

// GenerateInvoicePDF renders an A4 invoice to path, creating the parent
// directory if needed.
func GenerateInvoicePDF(doc InvoiceDocument, path string) error {
	inv := doc.Invoice
	if inv == nil {
		return fmt.Errorf("pdf: nil invoice")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("pdf: create storage dir: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// Header
	title := "Receipt"
	if inv.IsCompanyInvoice {
		title = "VAT Invoice"
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, tr(doc.Issuer), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentW, 6, fmt.Sprintf("%s %s", title, inv.Number), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 9)
	half := contentW / 2
	pdf.CellFormat(half, 5, "Issue date: "+inv.IssueDate.Format("2006-01-02"), "", 0, "L", false, 0, "")
	pdf.CellFormat(half, 5, "Due date: "+inv.DueDate.Format("2006-01-02"), "", 1, "R", false, 0, "")
	pdf.CellFormat(contentW, 5, "Status: "+inv.Status, "", 1, "L", false, 0, "")
	pdf.Ln(3)

	// Bill to
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, "Bill to", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if inv.Client != nil {
		pdf.CellFormat(contentW, 5, tr(inv.Client.FullName()), "", 1, "L", false, 0, "")
		if inv.Client.Address != nil {
			pdf.CellFormat(contentW, 5, tr(*inv.Client.Address), "", 1, "L", false, 0, "")
		}
	}
	if inv.IsCompanyInvoice {
		if inv.CompanyName != nil {
			pdf.CellFormat(contentW, 5, tr(*inv.CompanyName), "", 1, "L", false, 0, "")
		}
		if inv.TaxID != nil {
			pdf.CellFormat(contentW, 5, "Tax ID: "+*inv.TaxID, "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	// Lines
	col1 := contentW * 0.60
	col2 := contentW * 0.15
	col3 := contentW * 0.25
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "Attraction", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 6, "Daily price", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	if r := doc.Reservation; r != nil {
		pdf.CellFormat(contentW, 5, fmt.Sprintf("Reservation %s, %s to %s",
			r.Code, r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02")), "", 1, "L", false, 0, "")
		for _, it := range r.Items {
			name, price := "", "-"
			if it.Attraction != nil {
				name = it.Attraction.Name
				price = it.Attraction.DailyPrice.StringFixed(2)
			}
			pdf.CellFormat(col1, 5, tr(name), "", 0, "L", false, 0, "")
			pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", it.Quantity), "", 0, "C", false, 0, "")
			pdf.CellFormat(col3, 5, price, "", 1, "R", false, 0, "")
		}
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(col1+col2, 7, "TOTAL", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 7, inv.Amount.StringFixed(2), "", 1, "R", false, 0, "")

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("pdf: write %s: %w", path, err)
	}
	return nil
}
