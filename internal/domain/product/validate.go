package product

import (
	"fmt"
	"math"
	"strings"

	"github.com/xenking/kart-pricing/internal/domain/money"
)

// MaxQuantity is the largest bulk threshold or line quantity the catalog
// stores.
const MaxQuantity = math.MaxInt32

// ValidationError describes a product field that violates a catalog rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the catalog invariants of p. Pricing itself never calls
// Validate: the rules assume their inputs were checked on the way in.
func Validate(p Product) error {
	b := p.Attrs()
	if strings.TrimSpace(b.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(b.Name) > 100 {
		return &ValidationError{Field: "name", Reason: "must be at most 100 characters"}
	}
	if b.Price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if !money.IsAmount(b.Price) {
		return &ValidationError{Field: "price", Reason: "must be below 100000000 with at most 2 decimal places"}
	}

	switch v := p.(type) {
	case *Flat:
	case *Seasonal:
		if v.StartDate.IsZero() || v.EndDate.IsZero() {
			return &ValidationError{Field: "start_date", Reason: "season dates are required"}
		}
		if !v.StartDate.IsValid() || !v.EndDate.IsValid() {
			return &ValidationError{Field: "start_date", Reason: "season dates must be valid calendar dates"}
		}
		if v.StartDate.After(v.EndDate) {
			return &ValidationError{Field: "end_date", Reason: "must not be before start_date"}
		}
		if !money.IsPercentage(v.DiscountPercentage) {
			return &ValidationError{Field: "discount_percentage", Reason: "must be between 0 and 100 with at most 2 decimal places"}
		}
	case *Bulk:
		if v.BulkQuantity <= 0 {
			return &ValidationError{Field: "bulk_quantity", Reason: "must be greater than 0"}
		}
		if v.BulkQuantity > MaxQuantity {
			return &ValidationError{Field: "bulk_quantity", Reason: fmt.Sprintf("must be at most %d", MaxQuantity)}
		}
		if !money.IsPercentage(v.BulkDiscountPercentage) {
			return &ValidationError{Field: "bulk_discount_percentage", Reason: "must be between 0 and 100 with at most 2 decimal places"}
		}
	default:
		panic(fmt.Sprintf("product: unknown variant %T", p))
	}
	return nil
}
