package repository

import "context"

// TokenKey is the single storage key under which the credential lives.
const TokenKey = "token"

// TokenStore persists the session credential. It performs no validation.
type TokenStore interface {
	// Get returns the credential and whether one is stored.
	Get(ctx context.Context) (string, bool, error)
	// Set stores the credential, overwriting any prior value.
	Set(ctx context.Context, token string) error
	// Clear removes the credential. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
