package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"invoice-console/internal/api"
	"invoice-console/internal/domain"
	"invoice-console/internal/repository"
	"invoice-console/internal/validation"
)

// ErrMissingToken indicates the backend accepted a login but sent no token.
var ErrMissingToken = errors.New("login response carried no token")

// AuthService signs the actor in and out. It is the only writer of the
// token store besides the session guard's expiry purge.
type AuthService interface {
	Login(ctx context.Context, input domain.LoginInput) error
	Register(ctx context.Context, input domain.RegistrationInput) error
	Logout(ctx context.Context) error
}

type authService struct {
	api    api.Requester
	tokens repository.TokenStore
}

func NewAuthService(requester api.Requester, tokens repository.TokenStore) AuthService {
	return &authService{api: requester, tokens: tokens}
}

func (s *authService) Login(ctx context.Context, input domain.LoginInput) error {
	input.Email = strings.TrimSpace(input.Email)
	if err := validation.Struct(input); err != nil {
		return err
	}

	raw, err := s.api.PublicRequest(ctx, http.MethodPost, "/login", input)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	var result domain.LoginResult
	if err := api.Decode(raw, &result); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if strings.TrimSpace(result.Token) == "" {
		return ErrMissingToken
	}

	if err := s.tokens.Set(ctx, result.Token); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

func (s *authService) Register(ctx context.Context, input domain.RegistrationInput) error {
	input.Email = strings.TrimSpace(input.Email)
	if err := validation.Struct(input); err != nil {
		return err
	}
	if _, err := s.api.PublicRequest(ctx, http.MethodPost, "/register", input); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

func (s *authService) Logout(ctx context.Context) error {
	if err := s.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
