package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-pricing/internal/domain/auth"
	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/order"
	"github.com/xenking/kart-pricing/internal/domain/product"
	"github.com/xenking/kart-pricing/internal/wire"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		wire.EncodeError(e, status, message)
	})
}

// readBody returns a decoder over the request body, capped at maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) (*jx.Decoder, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &wire.SyntaxError{Err: err}
	}
	return jx.DecodeBytes(body), nil
}

// fail maps err to an error response. Unrecognized errors are logged and
// reported as 500 without details.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		syntaxErr       *wire.SyntaxError
		productInvalid  *product.ValidationError
		discountInvalid *discount.ValidationError
		badQuantity     *order.InvalidQuantityError
		noProduct       *order.ProductNotFoundError
		inactive        *order.ProductInactiveError
		noDiscount      *order.DiscountNotFoundError
	)

	switch {
	case errors.As(err, &syntaxErr), errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &productInvalid), errors.As(err, &discountInvalid),
		errors.As(err, &badQuantity), errors.As(err, &noProduct),
		errors.As(err, &inactive), errors.As(err, &noDiscount),
		errors.Is(err, order.ErrStaleReference):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, product.ErrNotFound), errors.Is(err, discount.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, product.ErrInUse):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
