package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-pricing/internal/domain/order"
)

// DecodePlaceOrder reads {"items":[{"product_id","quantity","discount_id"}]}.
func DecodePlaceOrder(d *jx.Decoder) (order.PlaceOrderRequest, error) {
	var req order.PlaceOrderRequest
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "items" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			item, err := decodeItem(d)
			if err != nil {
				return err
			}
			req.Items = append(req.Items, item)
			return nil
		})
	})
	if err != nil {
		return order.PlaceOrderRequest{}, syntaxErr(err)
	}
	return req, nil
}

func decodeItem(d *jx.Decoder) (order.ItemRequest, error) {
	var item order.ItemRequest
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "product_id":
			item.ProductID, err = d.Str()
		case "quantity":
			item.Quantity, err = d.Int()
		case "discount_id":
			item.DiscountID, err = decodeOptStr(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "item field %s", key)
		}
		return nil
	})
	return item, err
}

// EncodeOrder writes the order together with its priced breakdown.
func EncodeOrder(e *jx.Encoder, res *order.Result) {
	o, s := res.Order, res.Summary
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
	if !o.CreatedAt.IsZero() {
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
	}
	e.Field("priced_on", func(e *jx.Encoder) { e.Str(s.Date.String()) })
	e.Field("items", func(e *jx.Encoder) {
		e.ArrStart()
		for _, line := range s.Lines {
			encodeLine(e, line)
		}
		e.ArrEnd()
	})
	e.Field("total", func(e *jx.Encoder) { encodeMoney(e, s.Total) })
	e.ObjEnd()
}

func encodeLine(e *jx.Encoder, line order.Line) {
	item := line.Item
	p := item.Product.Attrs()
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(item.ID) })
	e.Field("product_id", func(e *jx.Encoder) { e.Str(p.ID) })
	e.Field("product_name", func(e *jx.Encoder) { e.Str(p.Name) })
	e.Field("quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
	if d, ok := item.Discount.Get(); ok {
		e.Field("discount_id", func(e *jx.Encoder) { e.Str(d.Attrs().ID) })
	}
	e.Field("unit_price", func(e *jx.Encoder) { encodeMoney(e, line.UnitPrice) })
	e.Field("discounted_price", func(e *jx.Encoder) { encodeMoney(e, line.DiscountedPrice) })
	e.Field("line_total", func(e *jx.Encoder) { encodeMoney(e, line.Total) })
	e.ObjEnd()
}
