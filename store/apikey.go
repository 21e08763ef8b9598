package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ApiKeyRepo is the typed repository for the api_keys table.
type ApiKeyRepo struct {
	db *sqlx.DB
}

// Create inserts a new API key record. The plaintext key is never
// persisted; callers hash it before calling this.
func (r *ApiKeyRepo) Create(ctx context.Context, k *ApiKey) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO api_keys (key_id, user_id, salted_hash, created, expires)
		VALUES (:key_id, :user_id, :salted_hash, :created, :expires)`, k)
	if err != nil {
		return fmt.Errorf("store: create api key: %w", classify(err))
	}
	return nil
}

// ListByUser returns a user's API key metadata (never the hash or
// plaintext).
func (r *ApiKeyRepo) ListByUser(ctx context.Context, userID string) ([]*ApiKey, error) {
	var out []*ApiKey
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM api_keys WHERE user_id = $1 ORDER BY created DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list api keys: %w", classify(err))
	}
	return out, nil
}

// GetByHash looks up the key matching saltedHash, used during bearer-token
// verification.
func (r *ApiKeyRepo) GetByHash(ctx context.Context, saltedHash string) (*ApiKey, error) {
	var k ApiKey
	err := r.db.GetContext(ctx, &k, `SELECT * FROM api_keys WHERE salted_hash = $1`, saltedHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get api key: %w", classify(err))
	}
	return &k, nil
}

// Revoke deletes a key by ID, scoped to its owning user.
func (r *ApiKeyRepo) Revoke(ctx context.Context, userID, keyID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM api_keys WHERE key_id = $1 AND user_id = $2`, keyID, userID)
	if err != nil {
		return fmt.Errorf("store: revoke api key: %w", classify(err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
