package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned when an API key is missing, unknown or lacks
// the required scope.
var ErrUnauthorized = errors.New("unauthorized")

// Scopes granted to API keys.
const (
	ScopeCatalogWrite = "catalog:write"
	ScopeOrdersWrite  = "orders:write"
)

// APIKey holds the identity and permissions of a stored API key.
type APIKey struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Allows reports whether the key grants scope.
func (k *APIKey) Allows(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// Repository provides lookup of active API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
}

// HashKey returns the hex HMAC-SHA256 of key under pepper, the form stored in
// the api_keys table.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
