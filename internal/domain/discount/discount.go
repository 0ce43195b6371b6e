package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/money"
)

// ErrNotFound is returned when a requested discount does not exist.
var ErrNotFound = errors.New("discount not found")

// Kind enumerates the supported discount strategies.
type Kind string

const (
	// KindPercentage reduces a price by a percentage.
	KindPercentage Kind = "percentage"
	// KindFixedAmount subtracts a fixed amount, never going below zero.
	KindFixedAmount Kind = "fixed_amount"
)

// Base holds the attributes shared by every discount variant.
type Base struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Attrs returns the shared attributes of the discount.
func (b Base) Attrs() Base { return b }

func (Base) sealed() {}

// Discount transforms a unit price into a discounted unit price.
//
// The set of implementations is closed: Percentage and FixedAmount.
type Discount interface {
	Attrs() Base
	Kind() Kind
	Apply(price decimal.Decimal) decimal.Decimal

	sealed()
}

var (
	_ Discount = (*Percentage)(nil)
	_ Discount = (*FixedAmount)(nil)
)

// Percentage takes Percentage percent off the price.
type Percentage struct {
	Base
	Percentage decimal.Decimal
}

// NewPercentage constructs a percentage discount.
func NewPercentage(base Base, pct decimal.Decimal) *Percentage {
	return &Percentage{Base: base, Percentage: pct}
}

// Kind implements Discount.
func (*Percentage) Kind() Kind { return KindPercentage }

// Apply returns price * (1 - Percentage/100).
func (d *Percentage) Apply(price decimal.Decimal) decimal.Decimal {
	return money.PercentOff(price, d.Percentage)
}

// FixedAmount subtracts Amount from the price.
type FixedAmount struct {
	Base
	Amount decimal.Decimal
}

// NewFixedAmount constructs a fixed-amount discount.
func NewFixedAmount(base Base, amount decimal.Decimal) *FixedAmount {
	return &FixedAmount{Base: base, Amount: amount}
}

// Kind implements Discount.
func (*FixedAmount) Kind() Kind { return KindFixedAmount }

// Apply returns price - Amount floored at zero.
func (d *FixedAmount) Apply(price decimal.Decimal) decimal.Decimal {
	return money.FloorAtZero(price.Sub(d.Amount))
}

// Repository defines persistence operations for discounts.
type Repository interface {
	List(ctx context.Context) ([]Discount, error)
	GetByID(ctx context.Context, id string) (Discount, error)
	GetByIDs(ctx context.Context, ids []string) ([]Discount, error)
	Create(ctx context.Context, d Discount) error
	Delete(ctx context.Context, id string) error
}
