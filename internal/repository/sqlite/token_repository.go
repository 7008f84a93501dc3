package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"invoice-console/internal/repository"
)

const createKeyValueTable = `
CREATE TABLE IF NOT EXISTS client_storage (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// TokenRepository stores the credential in a sqlite key/value table so it
// survives console restarts and is shared by every console process using
// the same database file.
type TokenRepository struct {
	db  *sql.DB
	key string
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db, key: repository.TokenKey}
}

func (r *TokenRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createKeyValueTable); err != nil {
		return fmt.Errorf("create client_storage table: %w", err)
	}
	return nil
}

func (r *TokenRepository) Get(ctx context.Context) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `
SELECT value
FROM client_storage
WHERE key = ?`,
		r.key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read token: %w", err)
	}
	return value, true, nil
}

func (r *TokenRepository) Set(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO client_storage (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		r.key,
		token,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (r *TokenRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM client_storage WHERE key = ?`, r.key); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

var _ repository.TokenStore = (*TokenRepository)(nil)
