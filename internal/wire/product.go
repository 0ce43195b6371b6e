package wire

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/product"
)

// ProductInput is a product as submitted by API clients and catalog feeds.
type ProductInput struct {
	Kind        product.Kind
	Name        string
	Description string
	Price       decimal.NullDecimal
	IsActive    bool

	StartDate          civil.Date
	EndDate            civil.Date
	DiscountPercentage decimal.Decimal

	BulkQuantity           int
	BulkDiscountPercentage decimal.Decimal
}

// DecodeProductInput reads a product object. A missing kind means flat and a
// missing is_active means true.
func DecodeProductInput(d *jx.Decoder) (ProductInput, error) {
	in := ProductInput{Kind: product.KindFlat, IsActive: true}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "kind":
			var s string
			s, err = d.Str()
			in.Kind = product.Kind(s)
		case "name":
			in.Name, err = d.Str()
		case "description":
			in.Description, err = decodeOptStr(d)
		case "price":
			var v decimal.Decimal
			v, err = decodeDecimal(d)
			in.Price = decimal.NullDecimal{Decimal: v, Valid: err == nil}
		case "is_active":
			in.IsActive, err = d.Bool()
		case "start_date":
			in.StartDate, err = decodeDate(d)
		case "end_date":
			in.EndDate, err = decodeDate(d)
		case "discount_percentage":
			in.DiscountPercentage, err = decodeDecimal(d)
		case "bulk_quantity":
			in.BulkQuantity, err = d.Int()
		case "bulk_discount_percentage":
			in.BulkDiscountPercentage, err = decodeDecimal(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %s", key)
		}
		return nil
	})
	if err != nil {
		return ProductInput{}, syntaxErr(err)
	}
	return in, nil
}

// Build constructs and validates the product variant named by Kind.
func (in ProductInput) Build(id string, createdAt time.Time) (product.Product, error) {
	if !in.Price.Valid {
		return nil, &product.ValidationError{Field: "price", Reason: "is required"}
	}

	base := product.Base{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price.Decimal,
		IsActive:    in.IsActive,
		CreatedAt:   createdAt,
	}

	var p product.Product
	switch in.Kind {
	case product.KindFlat:
		p = product.NewFlat(base)
	case product.KindSeasonal:
		p = product.NewSeasonal(base, in.StartDate, in.EndDate, in.DiscountPercentage)
	case product.KindBulk:
		p = product.NewBulk(base, in.BulkQuantity, in.BulkDiscountPercentage)
	default:
		return nil, &product.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", in.Kind)}
	}

	if err := product.Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// EncodeProduct writes p together with the unit price it currently sells at.
func EncodeProduct(e *jx.Encoder, p product.Product, unitPrice decimal.Decimal) {
	b := p.Attrs()
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(b.ID) })
	e.Field("kind", func(e *jx.Encoder) { e.Str(string(p.Kind())) })
	e.Field("name", func(e *jx.Encoder) { e.Str(b.Name) })
	e.Field("description", func(e *jx.Encoder) { e.Str(b.Description) })
	e.Field("price", func(e *jx.Encoder) { encodeMoney(e, b.Price) })
	e.Field("unit_price", func(e *jx.Encoder) { encodeMoney(e, unitPrice) })
	e.Field("is_active", func(e *jx.Encoder) { e.Bool(b.IsActive) })

	switch v := p.(type) {
	case *product.Seasonal:
		e.Field("start_date", func(e *jx.Encoder) { e.Str(v.StartDate.String()) })
		e.Field("end_date", func(e *jx.Encoder) { e.Str(v.EndDate.String()) })
		e.Field("discount_percentage", func(e *jx.Encoder) { encodeDecimal(e, v.DiscountPercentage) })
	case *product.Bulk:
		e.Field("bulk_quantity", func(e *jx.Encoder) { e.Int(v.BulkQuantity) })
		e.Field("bulk_discount_percentage", func(e *jx.Encoder) { encodeDecimal(e, v.BulkDiscountPercentage) })
	}

	if !b.CreatedAt.IsZero() {
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, b.CreatedAt) })
	}
	e.ObjEnd()
}
