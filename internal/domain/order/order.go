package order

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

// Order is a customer order with its line items in insertion order.
type Order struct {
	ID        string
	Items     []LineItem
	CreatedAt time.Time
}

// LineItem binds a product, a quantity and an optional discount to an order.
// Product and Discount are shared with other line items and read-only here.
type LineItem struct {
	ID       string
	OrderID  string
	Product  product.Product
	Quantity int
	Discount discount.Opt
}

// NewLineItem creates a line item attached to o. The item is not appended to
// o.Items.
func NewLineItem(id string, o *Order, p product.Product, quantity int, d discount.Opt) LineItem {
	return LineItem{
		ID:       id,
		OrderID:  o.ID,
		Product:  p,
		Quantity: quantity,
		Discount: d,
	}
}

// Calculator computes line and order totals against an injected clock.
type Calculator struct {
	now func() time.Time
	loc *time.Location
}

// NewCalculator returns a Calculator that reads the current date from now in
// loc. A nil loc means UTC.
func NewCalculator(now func() time.Time, loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{now: now, loc: loc}
}

// Now returns the current instant of the calculator's clock.
func (c *Calculator) Now() time.Time {
	return c.now()
}

// Today returns the civil date seen by seasonal pricing.
func (c *Calculator) Today() civil.Date {
	return civil.DateOf(c.now().In(c.loc))
}

// Line is the priced breakdown of a single line item.
type Line struct {
	Item LineItem
	// UnitPrice is the price after the product's variant rule.
	UnitPrice decimal.Decimal
	// DiscountedPrice is UnitPrice after the optional line discount.
	DiscountedPrice decimal.Decimal
	// Total is DiscountedPrice * Quantity.
	Total decimal.Decimal
}

// Summary is the priced breakdown of an order.
type Summary struct {
	Date  civil.Date
	Lines []Line
	Total decimal.Decimal
}

// LineTotal returns the total of a single line item.
func (c *Calculator) LineTotal(item LineItem) decimal.Decimal {
	return priceLine(c.Today(), item).Total
}

// CalculateTotal returns the sum of all line totals of o. An empty order
// totals zero.
func (c *Calculator) CalculateTotal(o *Order) decimal.Decimal {
	return c.Summarize(o).Total
}

// Summarize prices every line of o against a single reading of the clock, so
// all lines of one order see the same date.
func (c *Calculator) Summarize(o *Order) Summary {
	today := c.Today()
	s := Summary{
		Date:  today,
		Lines: make([]Line, len(o.Items)),
		Total: decimal.Zero,
	}
	for i, item := range o.Items {
		line := priceLine(today, item)
		s.Lines[i] = line
		s.Total = s.Total.Add(line.Total)
	}
	return s
}

// priceLine applies the variant rule, then the line discount, then the
// quantity. The order of these steps is part of the pricing contract.
func priceLine(today civil.Date, item LineItem) Line {
	if item.Product == nil {
		panic("order: line item " + item.ID + " has no product")
	}

	unit := item.Product.UnitPrice(product.PriceContext{
		Today:    today,
		Quantity: item.Quantity,
	})

	discounted := unit
	if d, ok := item.Discount.Get(); ok {
		discounted = d.Apply(unit)
	}

	return Line{
		Item:            item,
		UnitPrice:       unit,
		DiscountedPrice: discounted,
		Total:           discounted.Mul(decimal.NewFromInt(int64(item.Quantity))),
	}
}

// ItemRef is a line item as stored: references by identifier.
type ItemRef struct {
	ID         string
	ProductID  string
	Quantity   int
	DiscountID string
}

// Record is an order as stored.
type Record struct {
	ID        string
	Items     []ItemRef
	CreatedAt time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores the order and its line items atomically.
	Create(ctx context.Context, o *Record) error
	// Load returns the order with every product and discount reference
	// resolved from one consistent snapshot. A discount that has been
	// deleted is returned as an empty discount.Opt.
	Load(ctx context.Context, id string) (*Order, error)
	// Delete removes the order; its line items are removed with it.
	Delete(ctx context.Context, id string) error
}
