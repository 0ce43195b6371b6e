// Package catalog bulk-loads products from gzip-compressed NDJSON feeds.
package catalog

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-pricing/internal/domain/product"
	"github.com/xenking/kart-pricing/internal/wire"
)

const (
	maxLineBytes  = 1 << 20
	progressEvery = 10_000
)

// productNamespace derives stable product ids from normalized names, so
// re-importing a feed updates the products it created before.
var productNamespace = uuid.MustParse("6f1c2b9e-4d0a-4f57-9a1e-3c7d8b2e5a10")

// Store persists imported products.
type Store interface {
	Upsert(ctx context.Context, p product.Product) error
	GetByIDs(ctx context.Context, ids []string) ([]product.Product, error)
}

// Stats counts the outcome of every non-blank feed record.
type Stats struct {
	Imported   int64
	Duplicates int64
	Invalid    int64
}

// Options configures an Importer.
type Options struct {
	// ExpectedProducts sizes the duplicate filter.
	ExpectedProducts uint
	// FalsePositiveRate of the duplicate filter. Filter hits are confirmed
	// against the store by product id. A false hit on a product stored by
	// an earlier run counts it as a duplicate and leaves it unchanged.
	FalsePositiveRate float64
	// Now stamps created_at of new products.
	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.ExpectedProducts == 0 {
		o.ExpectedProducts = 1_000_000
	}
	if o.FalsePositiveRate <= 0 || o.FalsePositiveRate >= 1 {
		o.FalsePositiveRate = 0.001
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Importer validates feed records with the API rules and stores each product
// name once across all feeds of a run.
type Importer struct {
	store Store
	lg    *zap.Logger
	now   func() time.Time
	names *nameSet

	imported   atomic.Int64
	duplicates atomic.Int64
	invalid    atomic.Int64
}

// NewImporter creates an Importer writing to store.
func NewImporter(store Store, lg *zap.Logger, opts Options) *Importer {
	opts.setDefaults()
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Importer{
		store: store,
		lg:    lg,
		now:   opts.Now,
		names: newNameSet(opts.ExpectedProducts, opts.FalsePositiveRate),
	}
}

// Stats returns the counters accumulated so far.
func (im *Importer) Stats() Stats {
	return Stats{
		Imported:   im.imported.Load(),
		Duplicates: im.duplicates.Load(),
		Invalid:    im.invalid.Load(),
	}
}

// ImportFiles loads every gzip feed concurrently, one goroutine per file.
// Invalid records are counted and skipped; store and read failures abort the
// run.
func (im *Importer) ImportFiles(ctx context.Context, paths []string) (Stats, error) {
	g, ctx := errgroup.WithContext(ctx)
	for _, path := range paths {
		g.Go(func() error {
			return im.importFile(ctx, path)
		})
	}
	if err := g.Wait(); err != nil {
		return im.Stats(), err
	}
	return im.Stats(), nil
}

func (im *Importer) importFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	return im.Import(ctx, filepath.Base(path), gz)
}

// Import loads one uncompressed NDJSON feed read from r. Source names the
// feed in logs.
func (im *Importer) Import(ctx context.Context, source string, r io.Reader) error {
	lg := im.lg.With(zap.String("source", source))

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var line, records int
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++

		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		records++
		if err := im.record(ctx, lg, line, raw); err != nil {
			return errors.Wrapf(err, "%s:%d", source, line)
		}
		if records%progressEvery == 0 {
			lg.Info("Import progress", zap.Int("records", records))
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", source)
	}

	lg.Info("Feed imported", zap.Int("records", records))
	return nil
}

// record handles one feed line. Only store failures are returned.
func (im *Importer) record(ctx context.Context, lg *zap.Logger, line int, raw []byte) error {
	in, err := wire.DecodeProductInput(jx.DecodeBytes(raw))
	if err != nil {
		im.invalid.Add(1)
		lg.Warn("Skipping malformed record", zap.Int("line", line), zap.Error(err))
		return nil
	}

	key := normalizeName(in.Name)
	id := uuid.NewSHA1(productNamespace, []byte(key)).String()
	p, err := in.Build(id, im.now().UTC())
	if err != nil {
		im.invalid.Add(1)
		lg.Warn("Skipping invalid product", zap.Int("line", line), zap.Error(err))
		return nil
	}

	dup, err := im.seen(ctx, key, id)
	if err != nil {
		return err
	}
	if dup {
		im.duplicates.Add(1)
		lg.Debug("Skipping duplicate product", zap.Int("line", line), zap.String("name", in.Name))
		return nil
	}
	defer im.names.release(key)

	if err := im.store.Upsert(ctx, p); err != nil {
		return errors.Wrap(err, "store product")
	}
	im.imported.Add(1)
	return nil
}

// seen reports whether the product named key was already imported in this
// run. Otherwise key stays claimed until the caller releases it.
func (im *Importer) seen(ctx context.Context, key, id string) (bool, error) {
	claimed, hit := im.names.claim(key)
	if !claimed {
		return true, nil
	}
	if !hit {
		return false, nil
	}

	found, err := im.store.GetByIDs(ctx, []string{id})
	if err != nil {
		im.names.release(key)
		return false, errors.Wrap(err, "look up product")
	}
	if len(found) > 0 {
		im.names.release(key)
		return true, nil
	}
	return false, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// nameSet tracks product names with a bloom filter, so memory stays fixed
// however large the feeds are. Names being stored right now are kept in
// pending until released.
type nameSet struct {
	mu      sync.Mutex
	filter  *bloom.BloomFilter
	pending map[string]struct{}
}

func newNameSet(n uint, fpr float64) *nameSet {
	return &nameSet{
		filter:  bloom.NewWithEstimates(n, fpr),
		pending: make(map[string]struct{}),
	}
}

// claim marks name as pending. It returns claimed=false when another record
// with that name is pending, and hit=true when the filter has seen name
// before, which may be a false positive.
func (s *nameSet) claim(name string) (claimed, hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[name]; ok {
		return false, true
	}
	s.pending[name] = struct{}{}
	return true, s.filter.TestOrAddString(name)
}

func (s *nameSet) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, name)
}
