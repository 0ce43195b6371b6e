package wire

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/discount"
)

// DiscountInput is a discount as submitted by API clients.
type DiscountInput struct {
	Kind        discount.Kind
	Name        string
	Description string
	Percentage  decimal.NullDecimal
	Amount      decimal.NullDecimal
}

// DecodeDiscountInput reads a discount object.
func DecodeDiscountInput(d *jx.Decoder) (DiscountInput, error) {
	var in DiscountInput
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "kind":
			var s string
			s, err = d.Str()
			in.Kind = discount.Kind(s)
		case "name":
			in.Name, err = d.Str()
		case "description":
			in.Description, err = decodeOptStr(d)
		case "percentage":
			var v decimal.Decimal
			v, err = decodeDecimal(d)
			in.Percentage = decimal.NullDecimal{Decimal: v, Valid: err == nil}
		case "amount":
			var v decimal.Decimal
			v, err = decodeDecimal(d)
			in.Amount = decimal.NullDecimal{Decimal: v, Valid: err == nil}
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %s", key)
		}
		return nil
	})
	if err != nil {
		return DiscountInput{}, syntaxErr(err)
	}
	return in, nil
}

// Build constructs and validates the discount variant named by Kind.
func (in DiscountInput) Build(id string, createdAt time.Time) (discount.Discount, error) {
	base := discount.Base{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   createdAt,
	}

	var d discount.Discount
	switch in.Kind {
	case discount.KindPercentage:
		if !in.Percentage.Valid {
			return nil, &discount.ValidationError{Field: "percentage", Reason: "is required"}
		}
		d = discount.NewPercentage(base, in.Percentage.Decimal)
	case discount.KindFixedAmount:
		if !in.Amount.Valid {
			return nil, &discount.ValidationError{Field: "amount", Reason: "is required"}
		}
		d = discount.NewFixedAmount(base, in.Amount.Decimal)
	default:
		return nil, &discount.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", in.Kind)}
	}

	if err := discount.Validate(d); err != nil {
		return nil, err
	}
	return d, nil
}

// EncodeDiscount writes d.
func EncodeDiscount(e *jx.Encoder, d discount.Discount) {
	b := d.Attrs()
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(b.ID) })
	e.Field("kind", func(e *jx.Encoder) { e.Str(string(d.Kind())) })
	e.Field("name", func(e *jx.Encoder) { e.Str(b.Name) })
	e.Field("description", func(e *jx.Encoder) { e.Str(b.Description) })
	switch v := d.(type) {
	case *discount.Percentage:
		e.Field("percentage", func(e *jx.Encoder) { encodeDecimal(e, v.Percentage) })
	case *discount.FixedAmount:
		e.Field("amount", func(e *jx.Encoder) { encodeMoney(e, v.Amount) })
	}
	if !b.CreatedAt.IsZero() {
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, b.CreatedAt) })
	}
	e.ObjEnd()
}
