package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/order"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

const (
	createOrderSQL = `INSERT INTO orders (id, created_at) VALUES ($1, COALESCE($2, now()))`

	getOrderSQL = `SELECT id, created_at FROM orders WHERE id = $1`

	// listLineItemsSQL selects the line item, its product (productColumns
	// order) and its optional discount (discountColumns order).
	listLineItemsSQL = `SELECT li.id, li.quantity,
		p.id, p.kind, p.name, p.description, p.price, p.is_active,
		p.start_date, p.end_date, p.discount_percentage,
		p.bulk_quantity, p.bulk_discount_percentage, p.created_at,
		d.id, d.kind, d.name, d.description, d.percentage, d.amount, d.created_at
		FROM line_items li
		JOIN products p ON p.id = li.product_id
		LEFT JOIN discounts d ON d.id = li.discount_id
		WHERE li.order_id = $1
		ORDER BY li.position`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var lineItemColumns = []string{"id", "order_id", "position", "product_id", "quantity", "discount_id"}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order row and copies its line items in one transaction.
// A line item referencing a missing product or discount yields
// order.ErrStaleReference.
func (r *OrderRepository) Create(ctx context.Context, o *order.Record) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createOrderSQL, o.ID, timestampParam(o.CreatedAt)); err != nil {
			return errors.Wrap(err, "insert order")
		}

		rows := make([][]any, len(o.Items))
		for i, it := range o.Items {
			rows[i] = []any{it.ID, o.ID, int32(i), it.ProductID, int32(it.Quantity), textParam(it.DiscountID)}
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"line_items"}, lineItemColumns, pgx.CopyFromRows(rows)); err != nil {
			return errors.Wrap(err, "copy line items")
		}
		return nil
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return order.ErrStaleReference
		}
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

// Load reads the order and its line items inside a read-only repeatable read
// transaction. Line items that reference the same product or discount share
// one instance.
func (r *OrderRepository) Load(ctx context.Context, id string) (*order.Order, error) {
	var o *order.Order
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		var err error
		o, err = loadOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "load order %q", id)
	}
	return o, nil
}

func loadOrder(ctx context.Context, tx pgx.Tx, id string) (*order.Order, error) {
	o := &order.Order{}
	if err := tx.QueryRow(ctx, getOrderSQL, id).Scan(&o.ID, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}

	rows, err := tx.Query(ctx, listLineItemsSQL, id)
	if err != nil {
		return nil, errors.Wrap(err, "list line items")
	}
	defer rows.Close()

	var (
		products  = make(map[string]product.Product)
		discounts = make(map[string]discount.Discount)
	)
	for rows.Next() {
		var (
			itemID   string
			quantity int32
			pr       productRow
			dr       discountRow
		)
		targets := append([]any{&itemID, &quantity}, pr.targets()...)
		targets = append(targets, dr.targets()...)
		if err := rows.Scan(targets...); err != nil {
			return nil, errors.Wrap(err, "scan line item")
		}

		p, ok := products[pr.id]
		if !ok {
			if p, err = pr.product(); err != nil {
				return nil, err
			}
			products[pr.id] = p
		}

		opt := discount.None()
		if dr.id != nil {
			d, ok := discounts[*dr.id]
			if !ok {
				if d, _, err = dr.discount(); err != nil {
					return nil, err
				}
				discounts[*dr.id] = d
			}
			opt = discount.Some(d)
		}

		o.Items = append(o.Items, order.NewLineItem(itemID, o, p, int(quantity), opt))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate line items")
	}
	return o, nil
}

// Delete removes an order. Its line items are removed by the cascade.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}
