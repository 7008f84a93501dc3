package memory

import (
	"context"
	"sync"

	"invoice-console/internal/repository"
)

// TokenRepository keeps the credential in process memory.
type TokenRepository struct {
	mu    sync.RWMutex
	token string
	ok    bool
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{}
}

func (r *TokenRepository) Get(ctx context.Context) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.token, r.ok, nil
}

func (r *TokenRepository) Set(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = token
	r.ok = true
	return nil
}

func (r *TokenRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = ""
	r.ok = false
	return nil
}

var _ repository.TokenStore = (*TokenRepository)(nil)
