package service

import (
	"context"
	"fmt"
	"net/http"

	"invoice-console/internal/api"
	"invoice-console/internal/domain"
	"invoice-console/internal/validation"
)

// CompanyService reads and registers the actor's company profile.
type CompanyService interface {
	// Get returns nil without error when the backend has no profile.
	Get(ctx context.Context) (*domain.Company, error)
	Register(ctx context.Context, company domain.Company) error
}

type companyService struct {
	api api.Requester
}

func NewCompanyService(requester api.Requester) CompanyService {
	return &companyService{api: requester}
}

func (s *companyService) Get(ctx context.Context) (*domain.Company, error) {
	raw, err := s.api.Request(ctx, http.MethodGet, "/company", nil)
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	if api.IsEmpty(raw) {
		return nil, nil
	}
	var company domain.Company
	if err := api.Decode(raw, &company); err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	if company.IsZero() {
		return nil, nil
	}
	return &company, nil
}

func (s *companyService) Register(ctx context.Context, company domain.Company) error {
	if err := validation.Struct(company); err != nil {
		return err
	}
	if _, err := s.api.Request(ctx, http.MethodPost, "/register-company", company); err != nil {
		return fmt.Errorf("register company: %w", err)
	}
	return nil
}
