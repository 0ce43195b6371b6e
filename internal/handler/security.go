package handler

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-pricing/internal/domain/auth"
)

// APIKeyHeader is the request header carrying the raw API key.
const APIKeyHeader = "api_key"

// SecurityHandler authenticates API requests via HMAC-SHA256 hashed API keys.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Authenticate resolves a raw API key. The stored hash is compared in
// constant time against the computed one.
func (s *SecurityHandler) Authenticate(ctx context.Context, raw string) (*auth.APIKey, error) {
	if raw == "" {
		return nil, auth.ErrUnauthorized
	}

	hexHash := auth.HashKey(s.pepper, raw)
	key, err := s.apikeys.FindByHash(ctx, hexHash)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			return nil, auth.ErrUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}

	computed, _ := hex.DecodeString(hexHash)
	stored, err := hex.DecodeString(key.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(computed, stored) != 1 {
		return nil, auth.ErrUnauthorized
	}
	return key, nil
}

// Require wraps next so that it only runs for requests whose API key grants
// scope. The key name is attached to the request logger.
func (s *SecurityHandler) Require(scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := s.Authenticate(r.Context(), r.Header.Get(APIKeyHeader))
		if err != nil {
			fail(w, r, err)
			return
		}
		if !key.Allows(scope) {
			writeError(w, http.StatusForbidden, "api key lacks scope "+scope)
			return
		}

		ctx := zctx.With(r.Context(), zap.String("api_key", key.Name))
		next(w, r.WithContext(ctx))
	}
}
