package service

import (
	"context"
	"fmt"
	"net/http"

	"invoice-console/internal/api"
	"invoice-console/internal/domain"
	"invoice-console/internal/invoice"
)

// InvoiceService manages invoices on the backend. Drafts are validated
// before submission; an invalid draft never reaches the network.
type InvoiceService interface {
	List(ctx context.Context) ([]domain.Invoice, error)
	Get(ctx context.Context, id string) (*domain.Invoice, error)
	Create(ctx context.Context, draft invoice.Draft) error
	Update(ctx context.Context, id string, draft invoice.Draft) error
	Delete(ctx context.Context, id string) error
}

type invoiceService struct {
	api api.Requester
}

func NewInvoiceService(requester api.Requester) InvoiceService {
	return &invoiceService{api: requester}
}

func (s *invoiceService) List(ctx context.Context) ([]domain.Invoice, error) {
	raw, err := s.api.Request(ctx, http.MethodGet, "/user-invoices", nil)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	var invoices []domain.Invoice
	if err := api.Decode(raw, &invoices); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

func (s *invoiceService) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	path, err := idPath("/invoice/", id)
	if err != nil {
		return nil, err
	}
	raw, err := s.api.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}
	var inv domain.Invoice
	if err := api.Decode(raw, &inv); err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}
	return &inv, nil
}

func (s *invoiceService) Create(ctx context.Context, draft invoice.Draft) error {
	payload, err := draft.Payload()
	if err != nil {
		return err
	}
	if _, err := s.api.Request(ctx, http.MethodPost, "/add-invoice", payload); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

func (s *invoiceService) Update(ctx context.Context, id string, draft invoice.Draft) error {
	path, err := idPath("/update-invoice/", id)
	if err != nil {
		return err
	}
	payload, err := draft.Payload()
	if err != nil {
		return err
	}
	payload.ID = id
	if _, err := s.api.Request(ctx, http.MethodPut, path, payload); err != nil {
		return fmt.Errorf("update invoice %s: %w", id, err)
	}
	return nil
}

func (s *invoiceService) Delete(ctx context.Context, id string) error {
	path, err := idPath("/delete-invoice/", id)
	if err != nil {
		return err
	}
	if _, err := s.api.Request(ctx, http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("delete invoice %s: %w", id, err)
	}
	return nil
}
