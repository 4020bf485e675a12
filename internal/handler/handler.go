// Package handler exposes the storefront over HTTP. Every cart endpoint
// resolves the client's cart from the X-Cart-Id header and echoes the token
// back so clients can persist it.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/checkout"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// cartHeader carries the client's cart token on requests and responses.
const cartHeader = "X-Cart-Id"

// Handler bundles the HTTP endpoints and their dependencies.
type Handler struct {
	carts    *cart.Service
	checkout *checkout.Orchestrator
	products product.Repository
	coupons  coupon.Repository
	orders   order.Repository
}

// New creates a Handler.
func New(
	carts *cart.Service,
	orchestrator *checkout.Orchestrator,
	products product.Repository,
	coupons coupon.Repository,
	orders order.Repository,
) *Handler {
	return &Handler{
		carts:    carts,
		checkout: orchestrator,
		products: products,
		coupons:  coupons,
		orders:   orders,
	}
}

// Routes mounts all API endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Post("/", h.getCart)
		r.Delete("/", h.abandonCart)

		r.Post("/items", h.addItem)
		r.Delete("/items", h.clearItems)
		r.Put("/items/{item_id}", h.updateItem)
		r.Patch("/items/{item_id}", h.updateItem)
		r.Delete("/items/{item_id}", h.removeItem)
		r.Put("/items/by-product/{product_id}", h.updateItemByProduct)
		r.Patch("/items/by-product/{product_id}", h.updateItemByProduct)
		r.Delete("/items/by-product/{product_id}", h.removeItemByProduct)

		r.Patch("/items/{item_id}/discount", h.setItemDiscount)
		r.Patch("/items/by-product/{product_id}/discount", h.setItemDiscountByProduct)
		r.Patch("/discount", h.setCartDiscount)

		r.Post("/coupons", h.addCoupon)
		r.Get("/coupons", h.getCart)
		r.Delete("/coupons/{code}", h.removeCoupon)
		r.Delete("/coupons", h.clearCoupons)

		r.Post("/checkout", h.checkoutCart)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Get("/{order_id}", h.getOrder)
		r.Get("/by-phone/{phone}", h.listOrdersByPhone)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/{product_id}", h.getProduct)
	})

	r.Route("/coupons", func(r chi.Router) {
		r.Get("/", h.listCoupons)
		r.Post("/", h.createCoupon)
	})

	return r
}

// resolveCart loads or creates the request's cart and stamps the token on
// the response.
func (h *Handler) resolveCart(w http.ResponseWriter, r *http.Request) (*cart.Cart, bool) {
	c, err := h.carts.Resolve(r.Context(), r.Header.Get(cartHeader))
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	w.Header().Set(cartHeader, c.Token)
	return c, true
}
