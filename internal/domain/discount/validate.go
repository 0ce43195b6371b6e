package discount

import (
	"fmt"
	"strings"

	"github.com/xenking/kart-pricing/internal/domain/money"
)

// ValidationError describes a discount field that violates a rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the invariants of d.
func Validate(d Discount) error {
	if strings.TrimSpace(d.Attrs().Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	switch v := d.(type) {
	case *Percentage:
		if !money.IsPercentage(v.Percentage) {
			return &ValidationError{Field: "percentage", Reason: "must be between 0 and 100 with at most 2 decimal places"}
		}
	case *FixedAmount:
		if v.Amount.IsNegative() {
			return &ValidationError{Field: "amount", Reason: "must not be negative"}
		}
		if !money.IsAmount(v.Amount) {
			return &ValidationError{Field: "amount", Reason: "must be below 100000000 with at most 2 decimal places"}
		}
	default:
		panic(fmt.Sprintf("discount: unknown variant %T", d))
	}
	return nil
}
