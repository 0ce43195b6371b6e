// Package postgres implements the domain repositories on PostgreSQL.
package postgres

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-pricing/db"
)

// SQLSTATE codes the repositories translate into domain errors.
const (
	foreignKeyViolation = "23503"
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}

	cfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool. The schema
// is idempotent, so it runs on every start.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// dateParam converts a civil date into a DATE parameter. The zero date is
// stored as NULL.
func dateParam(d civil.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.In(time.UTC)
}

func dateValue(t *time.Time) civil.Date {
	if t == nil {
		return civil.Date{}
	}
	return civil.DateOf(*t)
}

func timestampParam(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func textParam(s string) any {
	if s == "" {
		return nil
	}
	return s
}
