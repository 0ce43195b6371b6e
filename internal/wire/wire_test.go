package wire

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/order"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestDecodeProductInput(t *testing.T) {
	in, err := DecodeProductInput(jx.DecodeStr(`{
		"kind": "seasonal",
		"name": "Winter Jacket",
		"description": null,
		"price": "200.00",
		"start_date": "2025-12-01",
		"end_date": "2025-12-31",
		"discount_percentage": 20,
		"extra": {"ignored": [1, 2]}
	}`))
	require.NoError(t, err)

	assert.Equal(t, product.KindSeasonal, in.Kind)
	assert.Equal(t, "Winter Jacket", in.Name)
	assert.Empty(t, in.Description)
	assert.True(t, in.Price.Valid)
	assert.True(t, d("200").Equal(in.Price.Decimal))
	assert.True(t, in.IsActive, "is_active defaults to true")
	assert.Equal(t, civil.Date{Year: 2025, Month: 12, Day: 1}, in.StartDate)
	assert.Equal(t, civil.Date{Year: 2025, Month: 12, Day: 31}, in.EndDate)
	assert.True(t, d("20").Equal(in.DiscountPercentage))
}

func TestDecodeProductInput_Malformed(t *testing.T) {
	for _, body := range []string{
		`[]`,
		`{"price": true}`,
		`{"price": "ten"}`,
		`{"start_date": "2025-13-45"}`,
		`{"bulk_quantity": "ten"}`,
		`{"name": "x"`,
	} {
		t.Run(body, func(t *testing.T) {
			_, err := DecodeProductInput(jx.DecodeStr(body))
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
		})
	}
}

func TestDecode_KnownFields(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		decode func(*jx.Decoder) error
	}{
		{
			name: "bulk product",
			body: `{"kind":"bulk","name":"Paper","description":"A4","price":150,"is_active":false,
				"bulk_quantity":10,"bulk_discount_percentage":"15"}`,
			decode: func(d *jx.Decoder) error {
				in, err := DecodeProductInput(d)
				if err == nil && (in.BulkQuantity != 10 || in.IsActive || in.Description != "A4") {
					t.Errorf("unexpected input %+v", in)
				}
				return err
			},
		},
		{
			name: "fixed amount discount",
			body: `{"kind":"fixed_amount","name":"Twenty off","description":"promo","amount":"20.00"}`,
			decode: func(d *jx.Decoder) error {
				in, err := DecodeDiscountInput(d)
				if err == nil && (!in.Amount.Valid || in.Description != "promo") {
					t.Errorf("unexpected input %+v", in)
				}
				return err
			},
		},
		{
			name: "percentage discount",
			body: `{"kind":"percentage","name":"Ten","percentage":10}`,
			decode: func(d *jx.Decoder) error {
				_, err := DecodeDiscountInput(d)
				return err
			},
		},
		{
			name: "order",
			body: `{"items":[{"product_id":"p1","quantity":1,"discount_id":"d1"}]}`,
			decode: func(d *jx.Decoder) error {
				_, err := DecodePlaceOrder(d)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.decode(jx.DecodeStr(tt.body)))
		})
	}
}

func TestProductInput_Build(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		in        ProductInput
		wantKind  product.Kind
		wantField string
	}{
		{
			name:     "flat",
			in:       ProductInput{Kind: product.KindFlat, Name: "Mug", Price: decimal.NewNullDecimal(d("100"))},
			wantKind: product.KindFlat,
		},
		{
			name: "bulk",
			in: ProductInput{
				Kind: product.KindBulk, Name: "Paper", Price: decimal.NewNullDecimal(d("150")),
				BulkQuantity: 10, BulkDiscountPercentage: d("15"),
			},
			wantKind: product.KindBulk,
		},
		{
			name:      "missing price",
			in:        ProductInput{Kind: product.KindFlat, Name: "Mug"},
			wantField: "price",
		},
		{
			name:      "unknown kind",
			in:        ProductInput{Kind: "bundle", Name: "Box", Price: decimal.NewNullDecimal(d("1"))},
			wantField: "kind",
		},
		{
			name: "seasonal window reversed",
			in: ProductInput{
				Kind: product.KindSeasonal, Name: "Jacket", Price: decimal.NewNullDecimal(d("200")),
				StartDate:          civil.Date{Year: 2025, Month: 12, Day: 31},
				EndDate:            civil.Date{Year: 2025, Month: 12, Day: 1},
				DiscountPercentage: d("20"),
			},
			wantField: "end_date",
		},
		{
			name: "bulk without threshold",
			in: ProductInput{
				Kind: product.KindBulk, Name: "Paper", Price: decimal.NewNullDecimal(d("150")),
				BulkDiscountPercentage: d("15"),
			},
			wantField: "bulk_quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.in.Build("p1", created)
			if tt.wantField != "" {
				var ve *product.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.wantField, ve.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, p.Kind())
			assert.Equal(t, "p1", p.Attrs().ID)
			assert.Equal(t, created, p.Attrs().CreatedAt)
		})
	}
}

func TestEncodeProduct(t *testing.T) {
	p := product.NewBulk(product.Base{
		ID: "b1", Name: "Paper", Price: d("150"), IsActive: true,
	}, 10, d("15"))

	var e jx.Encoder
	EncodeProduct(&e, p, d("127.5"))

	assert.JSONEq(t, `{
		"id": "b1",
		"kind": "bulk",
		"name": "Paper",
		"description": "",
		"price": 150.00,
		"unit_price": 127.50,
		"is_active": true,
		"bulk_quantity": 10,
		"bulk_discount_percentage": 15
	}`, e.String())
	assert.Contains(t, e.String(), `"unit_price":127.50`)
}

func TestDiscountInput_Build(t *testing.T) {
	in, err := DecodeDiscountInput(jx.DecodeStr(`{"kind":"fixed_amount","name":"Twenty off","amount":"20.00"}`))
	require.NoError(t, err)

	disc, err := in.Build("d1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, discount.KindFixedAmount, disc.Kind())
	assert.True(t, d("180").Equal(disc.Apply(d("200"))))

	in, err = DecodeDiscountInput(jx.DecodeStr(`{"kind":"percentage","name":"Too much","percentage":150}`))
	require.NoError(t, err)
	_, err = in.Build("d2", time.Time{})
	var ve *discount.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "percentage", ve.Field)

	in, err = DecodeDiscountInput(jx.DecodeStr(`{"kind":"percentage","name":"Missing"}`))
	require.NoError(t, err)
	_, err = in.Build("d3", time.Time{})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "percentage", ve.Field)
}

func TestEncodeDiscount(t *testing.T) {
	var e jx.Encoder
	EncodeDiscount(&e, discount.NewPercentage(discount.Base{ID: "d1", Name: "Ten"}, d("10")))

	assert.JSONEq(t, `{"id":"d1","kind":"percentage","name":"Ten","description":"","percentage":10}`, e.String())
}

func TestDecodePlaceOrder(t *testing.T) {
	req, err := DecodePlaceOrder(jx.DecodeStr(`{
		"items": [
			{"product_id": "p1", "quantity": 2, "discount_id": "d1"},
			{"product_id": "b1", "quantity": 6, "discount_id": null}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, []order.ItemRequest{
		{ProductID: "p1", Quantity: 2, DiscountID: "d1"},
		{ProductID: "b1", Quantity: 6},
	}, req.Items)

	_, err = DecodePlaceOrder(jx.DecodeStr(`{"items": [{"quantity": "two"}]}`))
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
}

func TestEncodeOrder(t *testing.T) {
	o := &order.Order{ID: "o1"}
	flat := product.NewFlat(product.Base{ID: "p1", Name: "Mug", Price: d("100"), IsActive: true})
	pct := discount.NewPercentage(discount.Base{ID: "d1", Name: "Ten"}, d("10"))
	o.Items = []order.LineItem{
		order.NewLineItem("li1", o, flat, 2, discount.Some(pct)),
	}

	calc := order.NewCalculator(func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}, nil)

	var e jx.Encoder
	EncodeOrder(&e, &order.Result{Order: o, Summary: calc.Summarize(o)})

	assert.JSONEq(t, `{
		"id": "o1",
		"priced_on": "2025-06-15",
		"items": [{
			"id": "li1",
			"product_id": "p1",
			"product_name": "Mug",
			"quantity": 2,
			"discount_id": "d1",
			"unit_price": 100,
			"discounted_price": 90,
			"line_total": 180
		}],
		"total": 180
	}`, e.String())
}

func TestEncodeError(t *testing.T) {
	var e jx.Encoder
	EncodeError(&e, 404, "product not found")
	assert.JSONEq(t, `{"code":404,"message":"product not found"}`, e.String())
}
