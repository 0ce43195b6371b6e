package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/discount"
)

const discountColumns = `id, kind, name, description, percentage, amount, created_at`

const (
	listDiscountsSQL = `SELECT ` + discountColumns + ` FROM discounts ORDER BY created_at, id`

	getDiscountByIDSQL = `SELECT ` + discountColumns + ` FROM discounts WHERE id = $1`

	getDiscountsByIDsSQL = `SELECT ` + discountColumns + ` FROM discounts WHERE id = ANY($1)`

	createDiscountSQL = `INSERT INTO discounts (` + discountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))`

	upsertDiscountSQL = createDiscountSQL + `
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			percentage = EXCLUDED.percentage,
			amount = EXCLUDED.amount`

	deleteDiscountSQL = `DELETE FROM discounts WHERE id = $1`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// List returns all discounts ordered by creation time.
func (r *DiscountRepository) List(ctx context.Context) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, listDiscountsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	return pgx.CollectRows(rows, scanDiscount)
}

// GetByID returns a single discount by its identifier.
func (r *DiscountRepository) GetByID(ctx context.Context, id string) (discount.Discount, error) {
	rows, err := r.pool.Query(ctx, getDiscountByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get discount %q", id)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get discount %q", id)
	}
	return d, nil
}

// GetByIDs returns discounts matching any of the given IDs.
func (r *DiscountRepository) GetByIDs(ctx context.Context, ids []string) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, getDiscountsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get discounts by ids")
	}
	return pgx.CollectRows(rows, scanDiscount)
}

// Create inserts a discount.
func (r *DiscountRepository) Create(ctx context.Context, d discount.Discount) error {
	if _, err := r.pool.Exec(ctx, createDiscountSQL, discountArgs(d)...); err != nil {
		return errors.Wrapf(err, "create discount %q", d.Attrs().ID)
	}
	return nil
}

// Upsert inserts a discount or replaces an existing one with the same id.
func (r *DiscountRepository) Upsert(ctx context.Context, d discount.Discount) error {
	if _, err := r.pool.Exec(ctx, upsertDiscountSQL, discountArgs(d)...); err != nil {
		return errors.Wrapf(err, "upsert discount %q", d.Attrs().ID)
	}
	return nil
}

func discountArgs(d discount.Discount) []any {
	b := d.Attrs()
	var pct, amount any
	switch v := d.(type) {
	case *discount.Percentage:
		pct = v.Percentage
	case *discount.FixedAmount:
		amount = v.Amount
	}
	return []any{b.ID, string(d.Kind()), b.Name, b.Description, pct, amount, timestampParam(b.CreatedAt)}
}

// Delete removes a discount. Line items that referenced it keep existing
// without a discount.
func (r *DiscountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteDiscountSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete discount %q", id)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// discountRow holds the scan targets for discountColumns. Every column is
// nullable so the same row type scans the LEFT JOIN in order loads.
type discountRow struct {
	id          *string
	kind        *string
	name        *string
	description *string
	percentage  decimal.NullDecimal
	amount      decimal.NullDecimal
	createdAt   *time.Time
}

func (r *discountRow) targets() []any {
	return []any{
		&r.id, &r.kind, &r.name, &r.description, &r.percentage, &r.amount, &r.createdAt,
	}
}

// discount converts the row into a domain discount. It returns false when the
// row is the NULL side of an outer join.
func (r *discountRow) discount() (discount.Discount, bool, error) {
	if r.id == nil {
		return nil, false, nil
	}

	base := discount.Base{ID: *r.id}
	if r.name != nil {
		base.Name = *r.name
	}
	if r.description != nil {
		base.Description = *r.description
	}
	if r.createdAt != nil {
		base.CreatedAt = *r.createdAt
	}

	var kind string
	if r.kind != nil {
		kind = *r.kind
	}
	switch discount.Kind(kind) {
	case discount.KindPercentage:
		return discount.NewPercentage(base, r.percentage.Decimal), true, nil
	case discount.KindFixedAmount:
		return discount.NewFixedAmount(base, r.amount.Decimal), true, nil
	default:
		return nil, false, errors.Errorf("discount %q: unknown kind %q", base.ID, kind)
	}
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var r discountRow
	if err := row.Scan(r.targets()...); err != nil {
		return nil, err
	}
	d, _, err := r.discount()
	return d, err
}
