package invoice

import (
	"encoding/json"
	"testing"
	"time"

	"invoice-console/internal/domain"
	"invoice-console/internal/validation"
)

func validDraft() Draft {
	issued := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	due := issued.AddDate(0, 0, 30)
	return Draft{
		InvoiceNumber:  "INV-001",
		InvoiceDate:    &issued,
		InvoiceDueDate: &due,
		ClientID:       "c1",
		Items:          Items{{Name: "Widget", Amount: 10, Quantity: 2, Total: 20}},
	}
}

func TestDraft_ValidatePasses(t *testing.T) {
	if err := validDraft().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestDraft_ValidateEmptyItems(t *testing.T) {
	d := validDraft()
	d.Items = Items{}

	fe, ok := validation.As(d.Validate())
	if !ok {
		t.Fatal("Validate() with no items should fail")
	}
	if fe["items"] == "" {
		t.Errorf("missing list-level error, got %v", fe)
	}
}

func TestDraft_ValidateFieldErrors(t *testing.T) {
	d := NewDraft()

	fe, ok := validation.As(d.Validate())
	if !ok {
		t.Fatal("empty draft should fail validation")
	}
	want := map[string]string{
		"invoiceNumber":     "Invoice Number is required",
		"invoiceDate":       "Invoice Date is required",
		"invoiceDueDate":    "Invoice Due Date is required",
		"clientId":          "Client is required",
		"items[0].name":     "Item Name is required",
		"items[0].amount":   "Amount must be at least 1",
		"items[0].quantity": "Quantity must be at least 1",
	}
	for field, msg := range want {
		if fe[field] != msg {
			t.Errorf("fe[%q] = %q, want %q", field, fe[field], msg)
		}
	}
}

func TestDraft_PayloadRecomputesTotals(t *testing.T) {
	d := validDraft()
	d.Items[0].Total = 999

	inv, err := d.Payload()
	if err != nil {
		t.Fatalf("Payload() error = %v", err)
	}
	if inv.Items[0].Total != 20 {
		t.Errorf("payload total = %v, want 20", inv.Items[0].Total)
	}
	if inv.InvoiceNumber != "INV-001" || inv.ClientID != "c1" {
		t.Errorf("payload = %+v", inv)
	}
}

func TestDraft_PayloadRejectsInvalid(t *testing.T) {
	d := validDraft()
	d.Items = nil
	if _, err := d.Payload(); err == nil {
		t.Fatal("Payload() accepted an empty item list")
	}
}

func TestDraftFromInvoice(t *testing.T) {
	issued := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	inv := domain.Invoice{
		ID:            "9",
		InvoiceNumber: "INV-9",
		InvoiceDate:   issued,
		ClientID:      "c2",
		Items:         []domain.LineItem{{Name: "Bolt", Amount: 3, Quantity: 3}},
	}

	d := DraftFromInvoice(inv)
	if d.InvoiceDate == nil || !d.InvoiceDate.Equal(issued) {
		t.Errorf("InvoiceDate = %v", d.InvoiceDate)
	}
	if d.InvoiceDueDate != nil {
		t.Errorf("zero due date should load as nil, got %v", d.InvoiceDueDate)
	}
	if d.Items[0].Total != 9 || d.Total() != 9 {
		t.Errorf("items = %+v, total %v", d.Items, d.Total())
	}

	empty := DraftFromInvoice(domain.Invoice{})
	if len(empty.Items) != 1 {
		t.Errorf("invoice without items should load one blank item, got %d", len(empty.Items))
	}
}

func TestDraft_DecodeKeepsOrderAndTotals(t *testing.T) {
	body := `{"invoiceNumber":"1","clientId":"c","invoiceDate":"2024-03-01T00:00:00Z","invoiceDueDate":"2024-03-31T00:00:00Z",
		"items":[{"name":"b","amount":1,"quantity":1},{"name":"a","amount":2,"quantity":2}]}`
	var d Draft
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		t.Fatal(err)
	}
	inv, err := d.Payload()
	if err != nil {
		t.Fatal(err)
	}
	if inv.Items[0].Name != "b" || inv.Items[1].Name != "a" {
		t.Errorf("order changed: %+v", inv.Items)
	}
	if d.Total() != 5 {
		t.Errorf("Total() after decode = %v, want 5", d.Total())
	}
}
