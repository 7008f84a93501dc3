package service

import (
	"context"
	"fmt"
	"net/http"

	"invoice-console/internal/api"
	"invoice-console/internal/domain"
	"invoice-console/internal/validation"
)

// ClientService manages the signed-in company's clients on the backend.
type ClientService interface {
	List(ctx context.Context) ([]domain.Client, error)
	Get(ctx context.Context, id string) (*domain.Client, error)
	Create(ctx context.Context, client domain.Client) error
	Update(ctx context.Context, id string, client domain.Client) error
	Delete(ctx context.Context, id string) error
}

type clientService struct {
	api api.Requester
}

func NewClientService(requester api.Requester) ClientService {
	return &clientService{api: requester}
}

func (s *clientService) List(ctx context.Context) ([]domain.Client, error) {
	raw, err := s.api.Request(ctx, http.MethodGet, "/clients", nil)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	var clients []domain.Client
	if err := api.Decode(raw, &clients); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

func (s *clientService) Get(ctx context.Context, id string) (*domain.Client, error) {
	path, err := idPath("/client/", id)
	if err != nil {
		return nil, err
	}
	raw, err := s.api.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("get client %s: %w", id, err)
	}
	var client domain.Client
	if err := api.Decode(raw, &client); err != nil {
		return nil, fmt.Errorf("get client %s: %w", id, err)
	}
	return &client, nil
}

func (s *clientService) Create(ctx context.Context, client domain.Client) error {
	client.ID = ""
	if err := validation.Struct(client); err != nil {
		return err
	}
	if _, err := s.api.Request(ctx, http.MethodPost, "/add-client", client); err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func (s *clientService) Update(ctx context.Context, id string, client domain.Client) error {
	path, err := idPath("/update-client/", id)
	if err != nil {
		return err
	}
	if err := validation.Struct(client); err != nil {
		return err
	}
	if _, err := s.api.Request(ctx, http.MethodPut, path, client); err != nil {
		return fmt.Errorf("update client %s: %w", id, err)
	}
	return nil
}

func (s *clientService) Delete(ctx context.Context, id string) error {
	path, err := idPath("/delete-client/", id)
	if err != nil {
		return err
	}
	if _, err := s.api.Request(ctx, http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("delete client %s: %w", id, err)
	}
	return nil
}
