package product

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/money"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInUse is returned when deleting a product that order line items
	// still reference.
	ErrInUse = errors.New("product is referenced by order line items")
)

// Kind enumerates the supported pricing variants.
type Kind string

const (
	// KindFlat always sells at the base price.
	KindFlat Kind = "flat"
	// KindSeasonal discounts the base price inside a date window.
	KindSeasonal Kind = "seasonal"
	// KindBulk discounts the base price once a quantity threshold is reached.
	KindBulk Kind = "bulk"
)

// Base holds the attributes shared by every product variant.
type Base struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	IsActive    bool
	CreatedAt   time.Time
}

// Attrs returns the shared attributes of the product.
func (b Base) Attrs() Base { return b }

func (Base) sealed() {}

// PriceContext carries the inputs a variant rule may depend on.
type PriceContext struct {
	// Today is the current civil date as seen by the pricing clock.
	Today civil.Date
	// Quantity is the requested quantity. Zero means unspecified and is
	// treated as 1.
	Quantity int
}

func (pc PriceContext) quantity() int {
	if pc.Quantity == 0 {
		return 1
	}
	return pc.Quantity
}

// Product is a catalog item whose unit price is computed by its variant rule.
//
// The set of implementations is closed: Flat, Seasonal and Bulk.
type Product interface {
	Attrs() Base
	Kind() Kind
	UnitPrice(pc PriceContext) decimal.Decimal

	sealed()
}

var (
	_ Product = (*Flat)(nil)
	_ Product = (*Seasonal)(nil)
	_ Product = (*Bulk)(nil)
)

// Flat is a product sold at its base price.
type Flat struct {
	Base
}

// NewFlat constructs a flat-priced product.
func NewFlat(base Base) *Flat {
	return &Flat{Base: base}
}

// Kind implements Product.
func (*Flat) Kind() Kind { return KindFlat }

// UnitPrice returns the base price unconditionally.
func (p *Flat) UnitPrice(PriceContext) decimal.Decimal {
	return p.Price
}

// Seasonal is a product discounted between StartDate and EndDate, both
// inclusive.
type Seasonal struct {
	Base
	StartDate          civil.Date
	EndDate            civil.Date
	DiscountPercentage decimal.Decimal
}

// NewSeasonal constructs a seasonal product.
func NewSeasonal(base Base, start, end civil.Date, pct decimal.Decimal) *Seasonal {
	return &Seasonal{
		Base:               base,
		StartDate:          start,
		EndDate:            end,
		DiscountPercentage: pct,
	}
}

// Kind implements Product.
func (*Seasonal) Kind() Kind { return KindSeasonal }

// InSeason reports whether day falls inside the discount window.
func (p *Seasonal) InSeason(day civil.Date) bool {
	return !day.Before(p.StartDate) && !day.After(p.EndDate)
}

// UnitPrice applies DiscountPercentage when pc.Today is in season.
func (p *Seasonal) UnitPrice(pc PriceContext) decimal.Decimal {
	if p.InSeason(pc.Today) {
		return money.PercentOff(p.Price, p.DiscountPercentage)
	}
	return p.Price
}

// Bulk is a product discounted when at least BulkQuantity units are bought.
type Bulk struct {
	Base
	BulkQuantity           int
	BulkDiscountPercentage decimal.Decimal
}

// NewBulk constructs a bulk-discounted product.
func NewBulk(base Base, threshold int, pct decimal.Decimal) *Bulk {
	return &Bulk{
		Base:                   base,
		BulkQuantity:           threshold,
		BulkDiscountPercentage: pct,
	}
}

// Kind implements Product.
func (*Bulk) Kind() Kind { return KindBulk }

// UnitPrice applies BulkDiscountPercentage when the quantity reaches the
// threshold. The threshold itself qualifies.
func (p *Bulk) UnitPrice(pc PriceContext) decimal.Decimal {
	if pc.quantity() >= p.BulkQuantity {
		return money.PercentOff(p.Price, p.BulkDiscountPercentage)
	}
	return p.Price
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
}
