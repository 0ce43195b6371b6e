package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-pricing/internal/domain/order"
	"github.com/xenking/kart-pricing/internal/handler"
	"github.com/xenking/kart-pricing/internal/storage/postgres"
	"github.com/xenking/kart-pricing/pkg/health"
	"github.com/xenking/kart-pricing/pkg/httpmiddleware"
)

// Run creates all dependencies, serves the API until ctx is cancelled and
// then drains the server. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.Stringer("timezone", cfg.Location()),
	)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	checks := health.New(lg.Named("health"))
	checks.Add(health.Readiness, "postgres", 5*time.Second, health.PingCheck(pool))
	checks.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))

	products := postgres.NewProductRepository(pool)
	discounts := postgres.NewDiscountRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	apikeys := postgres.NewAPIKeyRepository(pool)

	calc := order.NewCalculator(time.Now, cfg.Location())
	orderService, err := order.NewService(products, discounts, orders, calc,
		m.TracerProvider(), m.MeterProvider(),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	security := handler.NewSecurityHandler(apikeys, []byte(cfg.APIKeyPepper))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", checks.LiveEndpoint)
	mux.HandleFunc("GET /readyz", checks.ReadyEndpoint)
	handler.NewHandler(products, discounts, orderService, calc, security).Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		BaseContext:       func(_ net.Listener) context.Context { return context.WithoutCancel(ctx) },
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader, handler.APIKeyHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Retry-After"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RequestID(),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.Instrument("pricing-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		checks.Start(gctx, 10*time.Second)
		checks.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer checks.Stop()

		checks.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}
