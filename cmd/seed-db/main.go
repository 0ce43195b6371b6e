// Command seed-db migrates the database and upserts the demo catalog and an
// API key.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/kart-pricing/internal/domain/auth"
	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/product"
	"github.com/xenking/kart-pricing/internal/storage/postgres"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		var (
			databaseURL  string
			apiKey       string
			apiKeyPepper string
			season       int
		)
		flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or PRICING_DATABASE_URL / DATABASE_URL env)")
		flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PRICING_SEED_API_KEY env)")
		flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PRICING_API_KEY_PEPPER env)")
		flag.IntVar(&season, "season-year", time.Now().Year(), "year of the December seasonal window")
		flag.Parse()

		if databaseURL == "" {
			databaseURL = envOr("PRICING_DATABASE_URL", "DATABASE_URL")
		}
		if databaseURL == "" {
			return errors.New("database URL is required: set --database-url, PRICING_DATABASE_URL or DATABASE_URL")
		}
		if apiKey == "" {
			apiKey = os.Getenv("PRICING_SEED_API_KEY")
		}
		if apiKey == "" {
			return errors.New("API key is required: set --api-key or PRICING_SEED_API_KEY")
		}
		if apiKeyPepper == "" {
			apiKeyPepper = os.Getenv("PRICING_API_KEY_PEPPER")
		}

		return run(ctx, lg, databaseURL, seed{
			products:  demoProducts(season),
			discounts: demoDiscounts(),
			key: &auth.APIKey{
				ID:      "default",
				KeyHash: auth.HashKey([]byte(apiKeyPepper), apiKey),
				Name:    "Default key",
				Scopes:  []string{auth.ScopeCatalogWrite, auth.ScopeOrdersWrite},
			},
		})
	})
}

type seed struct {
	products  []product.Product
	discounts []discount.Discount
	key       *auth.APIKey
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, s seed) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	for _, p := range s.products {
		if err := products.Upsert(ctx, p); err != nil {
			return err
		}
		lg.Info("Upserted product", zap.String("id", p.Attrs().ID), zap.String("kind", string(p.Kind())))
	}

	discounts := postgres.NewDiscountRepository(pool)
	for _, d := range s.discounts {
		if err := discounts.Upsert(ctx, d); err != nil {
			return err
		}
		lg.Info("Upserted discount", zap.String("id", d.Attrs().ID), zap.String("kind", string(d.Kind())))
	}

	if err := postgres.NewAPIKeyRepository(pool).Create(ctx, s.key); err != nil {
		return err
	}
	lg.Info("Seeded API key", zap.String("name", s.key.Name), zap.Strings("scopes", s.key.Scopes))
	return nil
}

func demoProducts(year int) []product.Product {
	return []product.Product{
		product.NewFlat(product.Base{
			ID:       "flat-widget",
			Name:     "Widget",
			Price:    decimal.RequireFromString("100.00"),
			IsActive: true,
		}),
		product.NewSeasonal(product.Base{
			ID:       "seasonal-lights",
			Name:     "Holiday Lights",
			Price:    decimal.RequireFromString("200.00"),
			IsActive: true,
		},
			civil.Date{Year: year, Month: time.December, Day: 1},
			civil.Date{Year: year, Month: time.December, Day: 31},
			decimal.NewFromInt(20),
		),
		product.NewBulk(product.Base{
			ID:       "bulk-bolts",
			Name:     "Bolts",
			Price:    decimal.RequireFromString("150.00"),
			IsActive: true,
		}, 10, decimal.NewFromInt(15)),
	}
}

func demoDiscounts() []discount.Discount {
	return []discount.Discount{
		discount.NewPercentage(discount.Base{ID: "ten-percent", Name: "10% off"}, decimal.NewFromInt(10)),
		discount.NewFixedAmount(discount.Base{ID: "twenty-off", Name: "20.00 off"}, decimal.RequireFromString("20.00")),
	}
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
