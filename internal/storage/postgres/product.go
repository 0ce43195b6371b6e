package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/product"
)

const productColumns = `id, kind, name, description, price, is_active,
	start_date, end_date, discount_percentage, bulk_quantity, bulk_discount_percentage, created_at`

const (
	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY created_at, id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	createProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, now()))`

	upsertProductSQL = createProductSQL + `
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			is_active = EXCLUDED.is_active,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			discount_percentage = EXCLUDED.discount_percentage,
			bulk_quantity = EXCLUDED.bulk_quantity,
			bulk_discount_percentage = EXCLUDED.bulk_discount_percentage`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
// All variants share the products table, discriminated by kind.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products ordered by creation time.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	return p, nil
}

// GetByIDs returns products matching any of the given IDs. Unknown IDs are
// silently absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts a product. A zero CreatedAt is filled in by the database.
func (r *ProductRepository) Create(ctx context.Context, p product.Product) error {
	if _, err := r.pool.Exec(ctx, createProductSQL, productArgs(p)...); err != nil {
		return errors.Wrapf(err, "create product %q", p.Attrs().ID)
	}
	return nil
}

// Upsert inserts a product or replaces the catalog fields of an existing one
// with the same id. The original creation time is kept.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	if _, err := r.pool.Exec(ctx, upsertProductSQL, productArgs(p)...); err != nil {
		return errors.Wrapf(err, "upsert product %q", p.Attrs().ID)
	}
	return nil
}

// Delete removes a product. It returns product.ErrInUse when line items still
// reference it.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return product.ErrInUse
		}
		return errors.Wrapf(err, "delete product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func productArgs(p product.Product) []any {
	b := p.Attrs()
	args := []any{
		b.ID, string(p.Kind()), b.Name, b.Description, b.Price, b.IsActive,
		nil, nil, nil, nil, nil,
		timestampParam(b.CreatedAt),
	}

	switch v := p.(type) {
	case *product.Seasonal:
		args[6] = dateParam(v.StartDate)
		args[7] = dateParam(v.EndDate)
		args[8] = v.DiscountPercentage
	case *product.Bulk:
		args[9] = int32(v.BulkQuantity)
		args[10] = v.BulkDiscountPercentage
	}
	return args
}

// productRow holds the scan targets for productColumns.
type productRow struct {
	id          string
	kind        string
	name        string
	description string
	price       decimal.Decimal
	isActive    bool
	startDate   *time.Time
	endDate     *time.Time
	discountPct decimal.NullDecimal
	bulkQty     *int32
	bulkPct     decimal.NullDecimal
	createdAt   time.Time
}

func (r *productRow) targets() []any {
	return []any{
		&r.id, &r.kind, &r.name, &r.description, &r.price, &r.isActive,
		&r.startDate, &r.endDate, &r.discountPct, &r.bulkQty, &r.bulkPct, &r.createdAt,
	}
}

func (r *productRow) product() (product.Product, error) {
	base := product.Base{
		ID:          r.id,
		Name:        r.name,
		Description: r.description,
		Price:       r.price,
		IsActive:    r.isActive,
		CreatedAt:   r.createdAt,
	}

	switch product.Kind(r.kind) {
	case product.KindFlat:
		return product.NewFlat(base), nil
	case product.KindSeasonal:
		return product.NewSeasonal(base,
			dateValue(r.startDate), dateValue(r.endDate), r.discountPct.Decimal,
		), nil
	case product.KindBulk:
		var threshold int
		if r.bulkQty != nil {
			threshold = int(*r.bulkQty)
		}
		return product.NewBulk(base, threshold, r.bulkPct.Decimal), nil
	default:
		return nil, errors.Errorf("product %q: unknown kind %q", r.id, r.kind)
	}
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var r productRow
	if err := row.Scan(r.targets()...); err != nil {
		return nil, err
	}
	return r.product()
}
