// Command catalog-import loads gzip-compressed NDJSON product feeds into the
// catalog.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/kart-pricing/internal/catalog"
	"github.com/xenking/kart-pricing/internal/storage/postgres"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		var (
			databaseURL string
			pattern     string
			expected    uint
		)
		flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or PRICING_DATABASE_URL / DATABASE_URL env)")
		flag.StringVar(&pattern, "feeds", "data/*.ndjson.gz", "glob matching the feed files")
		flag.UintVar(&expected, "expected-products", 1_000_000, "expected number of distinct products")
		flag.Parse()

		if databaseURL == "" {
			databaseURL = envOr("PRICING_DATABASE_URL", "DATABASE_URL")
		}
		if databaseURL == "" {
			return errors.New("database URL is required: set --database-url, PRICING_DATABASE_URL or DATABASE_URL")
		}

		paths, err := filepath.Glob(pattern)
		if err != nil {
			return errors.Wrap(err, "match feeds")
		}
		if len(paths) == 0 {
			return errors.Errorf("no feed files match %q", pattern)
		}
		return run(ctx, lg, databaseURL, paths, expected)
	})
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, paths []string, expected uint) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	_, err = importFeeds(ctx, lg, postgres.NewProductRepository(pool), paths, expected)
	return err
}

func importFeeds(ctx context.Context, lg *zap.Logger, store catalog.Store, paths []string, expected uint) (catalog.Stats, error) {
	lg.Info("Importing feeds", zap.Strings("files", paths))
	im := catalog.NewImporter(store, lg, catalog.Options{
		ExpectedProducts: expected,
	})
	stats, err := im.ImportFiles(ctx, paths)
	lg.Info("Import finished",
		zap.Int64("imported", stats.Imported),
		zap.Int64("duplicates", stats.Duplicates),
		zap.Int64("invalid", stats.Invalid),
	)
	if err != nil {
		return stats, errors.Wrap(err, "import feeds")
	}
	return stats, nil
}

// envOr returns the first non-empty environment variable of keys.
func envOr(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
