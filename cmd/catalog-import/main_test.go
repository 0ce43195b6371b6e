package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/kart-pricing/internal/catalog"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

type mockStore struct {
	mu    sync.Mutex
	saved []product.Product
	err   error
}

func (s *mockStore) Upsert(_ context.Context, p product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, p)
	return nil
}

func (s *mockStore) GetByIDs(context.Context, []string) ([]product.Product, error) {
	return nil, nil
}

func writeGzip(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "feed.ndjson.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestImportFeeds(t *testing.T) {
	path := writeGzip(t, `{"name":"Widget","price":"100.00"}`+"\n"+`{"name":"Gadget","price":"5"}`+"\n")

	t.Run("success", func(t *testing.T) {
		store := &mockStore{}
		stats, err := importFeeds(context.Background(), zap.NewNop(), store, []string{path}, 100)
		require.NoError(t, err)
		assert.Equal(t, catalog.Stats{Imported: 2}, stats)
		assert.Len(t, store.saved, 2)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &mockStore{err: errors.New("connection refused")}
		_, err := importFeeds(context.Background(), zap.NewNop(), store, []string{path}, 100)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "import feeds")
	})
}
