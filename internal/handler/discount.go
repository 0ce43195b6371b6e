package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/kart-pricing/internal/wire"
)

// ListDiscounts returns every discount.
func (h *Handler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	discounts, err := h.discounts.List(r.Context())
	if err != nil {
		fail(w, r, errors.Wrap(err, "list discounts"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, d := range discounts {
			wire.EncodeDiscount(e, d)
		}
		e.ArrEnd()
	})
}

// CreateDiscount validates and stores a new discount.
func (h *Handler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	dec, err := readBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	in, err := wire.DecodeDiscountInput(dec)
	if err != nil {
		fail(w, r, err)
		return
	}
	d, err := in.Build(uuid.NewString(), h.calc.Now().UTC())
	if err != nil {
		fail(w, r, err)
		return
	}

	if err := h.discounts.Create(r.Context(), d); err != nil {
		fail(w, r, errors.Wrap(err, "create discount"))
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		wire.EncodeDiscount(e, d)
	})
}

// DeleteDiscount removes a discount. Orders that used it keep their lines
// and lose the discount.
func (h *Handler) DeleteDiscount(w http.ResponseWriter, r *http.Request) {
	if err := h.discounts.Delete(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
