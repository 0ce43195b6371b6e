// Package handler implements the HTTP API of the pricing service.
package handler

import (
	"net/http"

	"github.com/xenking/kart-pricing/internal/domain/auth"
	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/order"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

// Handler serves the catalog and order endpoints, delegating business logic
// to the order service and the catalog repositories.
type Handler struct {
	products  product.Repository
	discounts discount.Repository
	orders    *order.Service
	calc      *order.Calculator
	security  *SecurityHandler
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	discounts discount.Repository,
	orders *order.Service,
	calc *order.Calculator,
	security *SecurityHandler,
) *Handler {
	return &Handler{
		products:  products,
		discounts: discounts,
		orders:    orders,
		calc:      calc,
		security:  security,
	}
}

// Register mounts the API routes on mux. Mutating routes require an API key
// carrying the matching scope.
func (h *Handler) Register(mux *http.ServeMux) {
	catalogWrite := func(next http.HandlerFunc) http.HandlerFunc {
		return h.security.Require(auth.ScopeCatalogWrite, next)
	}
	ordersWrite := func(next http.HandlerFunc) http.HandlerFunc {
		return h.security.Require(auth.ScopeOrdersWrite, next)
	}

	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("POST /api/products", catalogWrite(h.CreateProduct))
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("DELETE /api/products/{id}", catalogWrite(h.DeleteProduct))

	mux.HandleFunc("GET /api/discounts", h.ListDiscounts)
	mux.HandleFunc("POST /api/discounts", catalogWrite(h.CreateDiscount))
	mux.HandleFunc("DELETE /api/discounts/{id}", catalogWrite(h.DeleteDiscount))

	mux.HandleFunc("POST /api/orders", ordersWrite(h.PlaceOrder))
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", ordersWrite(h.DeleteOrder))
}
