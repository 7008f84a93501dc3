package invoice

import (
	"fmt"
	"strings"
	"time"

	"invoice-console/internal/domain"
	"invoice-console/internal/validation"
)

// Draft is the invoice form: invoice-level fields plus the line items.
type Draft struct {
	InvoiceNumber  string     `json:"invoiceNumber" validate:"required" label:"Invoice Number"`
	InvoiceDate    *time.Time `json:"invoiceDate" validate:"required" label:"Invoice Date"`
	InvoiceDueDate *time.Time `json:"invoiceDueDate" validate:"required" label:"Invoice Due Date"`
	ClientID       string     `json:"clientId" validate:"required" label:"Client"`
	Items          Items      `json:"items"`
}

// NewDraft returns an empty form with the single initial line item.
func NewDraft() Draft {
	return Draft{Items: New()}
}

// DraftFromInvoice loads a stored invoice into the form.
func DraftFromInvoice(inv domain.Invoice) Draft {
	d := Draft{
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.ClientID,
		Items:         FromLineItems(inv.Items),
	}
	if !inv.InvoiceDate.IsZero() {
		v := inv.InvoiceDate
		d.InvoiceDate = &v
	}
	if !inv.InvoiceDueDate.IsZero() {
		v := inv.InvoiceDueDate
		d.InvoiceDueDate = &v
	}
	return d
}

// Total is the aggregate of the draft's line items.
func (d Draft) Total() float64 {
	return d.Items.Total()
}

// Validate reports every field error at once. An empty item list is a
// list-level error under the "items" key.
func (d Draft) Validate() error {
	errs := validation.Errors{}
	if err := validation.Struct(d); err != nil {
		fe, ok := validation.As(err)
		if !ok {
			return err
		}
		for k, v := range fe {
			errs.Add(k, v)
		}
	}

	if len(d.Items) == 0 {
		errs.Add("items", "At least one line item is required")
	}
	for i, it := range d.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(it.Name) == "" {
			errs.Add(prefix+".name", "Item Name is required")
		}
		if it.Amount < 1 {
			errs.Add(prefix+".amount", "Amount must be at least 1")
		}
		if it.Quantity < 1 {
			errs.Add(prefix+".quantity", "Quantity must be at least 1")
		}
	}
	return errs.Err()
}

// Payload validates the draft and builds the submission body. Totals are
// recomputed so the payload is consistent even if the draft was decoded
// from an untrusted source.
func (d Draft) Payload() (domain.Invoice, error) {
	if err := d.Validate(); err != nil {
		return domain.Invoice{}, err
	}
	items := FromLineItems(d.Items)
	return domain.Invoice{
		InvoiceNumber:  strings.TrimSpace(d.InvoiceNumber),
		InvoiceDate:    *d.InvoiceDate,
		InvoiceDueDate: *d.InvoiceDueDate,
		ClientID:       d.ClientID,
		Items:          []domain.LineItem(items),
	}, nil
}
