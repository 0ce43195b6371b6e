package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-pricing/internal/wire"
)

// PlaceOrder decodes the requested items, delegates to the order service and
// returns the stored order with its priced breakdown.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	req, err := wire.DecodePlaceOrder(d)
	if err != nil {
		fail(w, r, err)
		return
	}

	res, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		wire.EncodeOrder(e, res)
	})
}

// GetOrder returns an order priced against the current date.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	res, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeOrder(e, res)
	})
}

// DeleteOrder removes an order and its line items.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.DeleteOrder(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
