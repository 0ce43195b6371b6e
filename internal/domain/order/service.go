package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

// Sentinel errors for order operations.
var (
	ErrEmptyItems = errors.New("items required")
	ErrNotFound   = errors.New("order not found")
	// ErrStaleReference is returned by Repository.Create when a referenced
	// product or discount was deleted after it was resolved.
	ErrStaleReference = errors.New("referenced product or discount no longer exists")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// ProductInactiveError indicates a requested product is not for sale.
type ProductInactiveError struct {
	ProductID string
}

func (e *ProductInactiveError) Error() string {
	return fmt.Sprintf("product %s is not active", e.ProductID)
}

// DiscountNotFoundError indicates a requested discount does not exist.
type DiscountNotFoundError struct {
	DiscountID string
}

func (e *DiscountNotFoundError) Error() string {
	return fmt.Sprintf("discount %s not found", e.DiscountID)
}

// InvalidQuantityError indicates a line item quantity outside
// [1, product.MaxQuantity].
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be between 1 and %d for product %s", product.MaxQuantity, e.ProductID)
}

// ItemRequest is a requested line item. An empty DiscountID means no
// discount.
type ItemRequest struct {
	ProductID  string
	Quantity   int
	DiscountID string
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items []ItemRequest
}

// Result is an order together with its freshly computed pricing.
type Result struct {
	Order   *Order
	Summary Summary
}

// Service encapsulates order placement and retrieval.
type Service struct {
	products  product.Repository
	discounts discount.Repository
	orders    Repository
	calc      *Calculator

	tracer trace.Tracer
	placed metric.Int64Counter
	lines  metric.Int64Histogram
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	discounts discount.Repository,
	orders Repository,
	calc *Calculator,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	meter := mp.Meter("github.com/xenking/kart-pricing/internal/domain/order")

	placed, err := meter.Int64Counter("orders.placed",
		metric.WithDescription("Number of orders placed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders.placed counter")
	}
	lines, err := meter.Int64Histogram("orders.lines",
		metric.WithDescription("Number of line items per placed order"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders.lines histogram")
	}

	return &Service{
		products:  products,
		discounts: discounts,
		orders:    orders,
		calc:      calc,
		tracer:    tp.Tracer("github.com/xenking/kart-pricing/internal/domain/order"),
		placed:    placed,
		lines:     lines,
	}, nil
}

// PlaceOrder validates the requested items, resolves products and discounts
// in two batch lookups, persists the order and returns it priced.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *Result, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.Int("order.items", len(req.Items))),
	)
	defer func() { endSpan(span, rerr) }()

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	var (
		productIDs  = make([]string, 0, len(req.Items))
		discountIDs = make([]string, 0, len(req.Items))
	)
	for _, item := range req.Items {
		if item.Quantity <= 0 || item.Quantity > product.MaxQuantity {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		productIDs = append(productIDs, item.ProductID)
		if item.DiscountID != "" {
			discountIDs = append(discountIDs, item.DiscountID)
		}
	}

	products, err := s.resolveProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	discounts, err := s.resolveDiscounts(ctx, discountIDs)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:        uuid.NewString(),
		Items:     make([]LineItem, 0, len(req.Items)),
		CreatedAt: s.calc.Now().UTC(),
	}
	rec := &Record{
		ID:        o.ID,
		Items:     make([]ItemRef, 0, len(req.Items)),
		CreatedAt: o.CreatedAt,
	}
	for _, item := range req.Items {
		opt := discount.None()
		if item.DiscountID != "" {
			opt = discount.Some(discounts[item.DiscountID])
		}

		li := NewLineItem(uuid.NewString(), o, products[item.ProductID], item.Quantity, opt)
		o.Items = append(o.Items, li)
		rec.Items = append(rec.Items, ItemRef{
			ID:         li.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			DiscountID: item.DiscountID,
		})
	}

	if err := s.orders.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrStaleReference) {
			return nil, s.staleReference(ctx, productIDs, discountIDs)
		}
		return nil, errors.Wrap(err, "create order")
	}

	s.placed.Add(ctx, 1)
	s.lines.Record(ctx, int64(len(o.Items)))
	span.SetAttributes(attribute.String("order.id", o.ID))

	return &Result{
		Order:   o,
		Summary: s.calc.Summarize(o),
	}, nil
}

// GetOrder loads an order and prices it against the current date.
func (s *Service) GetOrder(ctx context.Context, id string) (_ *Result, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.GetOrder",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer func() { endSpan(span, rerr) }()

	o, err := s.orders.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "load order %s", id)
	}

	return &Result{
		Order:   o,
		Summary: s.calc.Summarize(o),
	}, nil
}

// DeleteOrder removes an order and its line items.
func (s *Service) DeleteOrder(ctx context.Context, id string) (rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.DeleteOrder",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer func() { endSpan(span, rerr) }()

	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "delete order %s", id)
	}
	return nil
}

// resolveProducts fetches every distinct product once and verifies each one
// exists and is for sale.
func (s *Service) resolveProducts(ctx context.Context, ids []string) (map[string]product.Product, error) {
	fetched, err := s.products.GetByIDs(ctx, distinct(ids))
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.Attrs().ID] = p
	}
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: id}
		}
		if !p.Attrs().IsActive {
			return nil, &ProductInactiveError{ProductID: id}
		}
	}
	return byID, nil
}

func (s *Service) resolveDiscounts(ctx context.Context, ids []string) (map[string]discount.Discount, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	fetched, err := s.discounts.GetByIDs(ctx, distinct(ids))
	if err != nil {
		return nil, errors.Wrap(err, "get discounts")
	}

	byID := make(map[string]discount.Discount, len(fetched))
	for _, d := range fetched {
		byID[d.Attrs().ID] = d
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, &DiscountNotFoundError{DiscountID: id}
		}
	}
	return byID, nil
}

// staleReference resolves the order's references again to name the one that
// disappeared during the insert.
func (s *Service) staleReference(ctx context.Context, productIDs, discountIDs []string) error {
	if _, err := s.resolveProducts(ctx, productIDs); err != nil {
		return err
	}
	if _, err := s.resolveDiscounts(ctx, discountIDs); err != nil {
		return err
	}
	return ErrStaleReference
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
