package invoice

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"invoice-console/internal/domain"
)

const dateLayout = "02 Jan 2006"

// Document is everything printed on an invoice.
type Document struct {
	Invoice domain.Invoice
	Client  *domain.Client
	Company *domain.Company
}

// WritePDF renders doc as an A4 PDF. Line totals and the grand total are
// recomputed from amounts and quantities.
func WritePDF(w io.Writer, doc Document) error {
	items := FromLineItems(doc.Invoice.Items)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+doc.Invoice.InvoiceNumber, true)
	pdf.AddPage()

	if c := doc.Company; c != nil {
		pdf.SetFont("Arial", "B", 16)
		pdf.Cell(0, 8, c.CompanyName)
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 10)
		for _, line := range []string{
			c.Address,
			"Email: " + c.CompanyEmail,
			"Contact No: " + c.CompanyContactNo,
			"GST No: " + c.GSTNumber,
		} {
			pdf.Cell(0, 5, line)
			pdf.Ln(5)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Invoice "+doc.Invoice.InvoiceNumber)
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 5, "Invoice Date: "+formatDate(doc.Invoice.InvoiceDate))
	pdf.Ln(5)
	pdf.Cell(0, 5, "Due Date: "+formatDate(doc.Invoice.InvoiceDueDate))
	pdf.Ln(8)

	if c := doc.Client; c != nil {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 6, "Bill To")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		for _, line := range []string{c.Name, c.CompanyName, c.CompanyAddress, c.Email, "GST No: " + c.GSTNumber} {
			pdf.Cell(0, 5, line)
			pdf.Ln(5)
		}
		pdf.Ln(4)
	}

	widths := []float64{90, 30, 30, 40}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 240)
	for i, h := range []string{"Item", "Amount", "Quantity", "Total"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, it := range items {
		pdf.CellFormat(widths[0], 6, it.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, money(it.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, strconv.FormatFloat(it.Quantity, 'f', -1, 64), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, money(it.Total), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 8, "Total Amount", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 8, money(items.Total()), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render invoice pdf: %w", err)
	}
	return nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}
