package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/kart-pricing/internal/domain/product"
	"github.com/xenking/kart-pricing/internal/wire"
)

// ListProducts returns every product with its current unit price for a
// single unit.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		fail(w, r, errors.Wrap(err, "list products"))
		return
	}

	pc := product.PriceContext{Today: h.calc.Today(), Quantity: 1}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			wire.EncodeProduct(e, p, p.UnitPrice(pc))
		}
		e.ArrEnd()
	})
}

// GetProduct returns a single product. The optional quantity query parameter
// previews the unit price for that many units.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	quantity := 1
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil || q <= 0 {
			writeError(w, http.StatusBadRequest, "quantity must be a positive integer")
			return
		}
		quantity = q
	}

	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}

	unit := p.UnitPrice(product.PriceContext{Today: h.calc.Today(), Quantity: quantity})
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeProduct(e, p, unit)
	})
}

// CreateProduct validates and stores a new product of any kind.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	in, err := wire.DecodeProductInput(d)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := in.Build(uuid.NewString(), h.calc.Now().UTC())
	if err != nil {
		fail(w, r, err)
		return
	}

	if err := h.products.Create(r.Context(), p); err != nil {
		fail(w, r, errors.Wrap(err, "create product"))
		return
	}

	unit := p.UnitPrice(product.PriceContext{Today: h.calc.Today(), Quantity: 1})
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		wire.EncodeProduct(e, p, unit)
	})
}

// DeleteProduct removes a product that no order references.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
