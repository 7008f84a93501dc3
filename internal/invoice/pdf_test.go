package invoice

import (
	"bytes"
	"testing"
	"time"

	"invoice-console/internal/domain"
)

func TestWritePDF(t *testing.T) {
	doc := Document{
		Invoice: domain.Invoice{
			InvoiceNumber: "INV-42",
			InvoiceDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			Items: []domain.LineItem{
				{Name: "Widget", Amount: 10, Quantity: 2},
				{Name: "Bolt", Amount: 0.5, Quantity: 10},
			},
		},
		Client:  &domain.Client{Name: "Buyer", CompanyName: "Buyer Ltd"},
		Company: &domain.Company{CompanyName: "Seller", GSTNumber: "G-1"},
	}

	var buf bytes.Buffer
	if err := WritePDF(&buf, doc); err != nil {
		t.Fatalf("WritePDF() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Errorf("output does not start with a PDF header: %q", buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestWritePDF_WithoutParties(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, Document{Invoice: domain.Invoice{InvoiceNumber: "1"}}); err != nil {
		t.Fatalf("WritePDF() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Error("empty output")
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := money(12.5); got != "12.50" {
		t.Errorf("money(12.5) = %q", got)
	}
	if got := formatDate(time.Time{}); got != "-" {
		t.Errorf("formatDate(zero) = %q", got)
	}
	if got := formatDate(time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)); got != "03 Feb 2024" {
		t.Errorf("formatDate() = %q", got)
	}
}
