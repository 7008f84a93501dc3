package domain

import "time"

// LineItem is one invoice row. Total is derived from Amount and Quantity.
type LineItem struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Quantity float64 `json:"quantity"`
	Total    float64 `json:"total"`
}

// Invoice is an invoice as stored by the backend.
type Invoice struct {
	ID             string     `json:"id,omitempty"`
	InvoiceNumber  string     `json:"invoiceNumber"`
	InvoiceDate    time.Time  `json:"invoiceDate"`
	InvoiceDueDate time.Time  `json:"invoiceDueDate"`
	ClientID       string     `json:"clientId"`
	Items          []LineItem `json:"items"`
}
