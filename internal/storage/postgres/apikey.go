package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-pricing/internal/domain/auth"
)

const (
	getAPIKeyByHashSQL = `SELECT id, key_hash, name, scopes
		FROM api_keys WHERE key_hash = $1 AND active = TRUE`

	createAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key_hash) DO NOTHING`
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository provides API key lookups backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash. It returns
// auth.ErrUnauthorized when no active key matches.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKey, error) {
	var key auth.APIKey
	err := r.pool.QueryRow(ctx, getAPIKeyByHashSQL, hash).Scan(
		&key.ID, &key.KeyHash, &key.Name, &key.Scopes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUnauthorized
		}
		return nil, errors.Wrap(err, "find api key by hash")
	}
	return &key, nil
}

// Create stores a key. Inserting an already known hash is a no-op.
func (r *APIKeyRepository) Create(ctx context.Context, key *auth.APIKey) error {
	if _, err := r.pool.Exec(ctx, createAPIKeySQL, key.ID, key.KeyHash, key.Name, key.Scopes); err != nil {
		return errors.Wrapf(err, "create api key %q", key.Name)
	}
	return nil
}
