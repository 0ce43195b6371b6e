// Package wire implements the JSON representation of catalog and order
// resources on top of go-faster/jx.
package wire

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/money"
)

// SyntaxError reports a body that is not the expected JSON shape.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string { return "malformed json: " + e.Err.Error() }

func (e *SyntaxError) Unwrap() error { return e.Err }

func syntaxErr(err error) error {
	if err == nil {
		return nil
	}
	var se *SyntaxError
	if errors.As(err, &se) {
		return err
	}
	return &SyntaxError{Err: err}
}

// decodeDecimal reads a decimal given either as a JSON number or a string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = string(n)
	default:
		return decimal.Decimal{}, errors.New("expected number or numeric string")
	}

	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "parse decimal %q", raw)
	}
	return v, nil
}

func decodeDate(d *jx.Decoder) (civil.Date, error) {
	s, err := d.Str()
	if err != nil {
		return civil.Date{}, err
	}
	date, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, errors.Wrapf(err, "parse date %q", s)
	}
	return date, nil
}

// decodeOptStr reads a string that may be null or absent. Null yields "".
func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// encodeMoney writes an amount rounded for display with two decimals.
func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(money.Display(v).StringFixed(2)))
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

// EncodeError writes the {"code":N,"message":"..."} error body.
func EncodeError(e *jx.Encoder, code int, message string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
	})
}
