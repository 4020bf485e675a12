package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/discount"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveCart(w, r)
	if !ok {
		return
	}
	respondOK(w, "cart", viewCart(c, h.carts.Totals(c)))
}

func (h *Handler) abandonCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveCart(w, r)
	if !ok {
		return
	}
	fresh, err := h.carts.Abandon(r.Context(), c)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set(cartHeader, fresh.Token)
	respondOK(w, "cart removed; new cart ready", viewCart(fresh, h.carts.Totals(fresh)))
}

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveCart(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusUnprocessableEntity, "invalid request body", nil)
		return
	}
	if req.ProductID == 0 {
		respond(w, http.StatusUnprocessableEntity, "product_id is required", nil)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	c, err := h.carts.AddItem(r.Context(), c, req.ProductID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "item added", viewCart(c, h.carts.Totals(c)))
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "item_id")
	if err != nil {
		respond(w, http.StatusUnprocessableEntity, "invalid item id", nil)
		return
	}
	h.updateQuantity(w, r, func(c *cart.Cart) (int64, bool) {
		return itemID, true
	})
}

func (h *Handler) updateItemByProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "product_id")
	if err != nil {
		respond(w, http.StatusUnprocessableEntity, "invalid product id", nil)
		return
	}
	h.updateQuantity(w, r, func(c *cart.Cart) (int64, bool) {
		if it := c.FindItemByProduct(productID); it != nil {
			return it.ID, true
		}
		return 0, false
	})
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request, findItem func(*cart.Cart) (int64, bool)) {
	c, ok := h.resolveCart(w, r)
	if !ok {
		return
	}

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		respond(w, http.StatusUnprocessableEntity, "quantity is required", nil)
		return
	}

	itemID, found := findItem(c)
	if !found {
		respond(w, http.StatusNotFound, "item not found in this cart", nil)
		return
	}

	c, err := h.carts.UpdateItemQuantity(r.Context(), c, itemID, *req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "item updated", viewCart(c, h.carts.Totals(c)))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "item_id")
	if err != nil {
		respond(w, http.StatusUnprocessableEntity, "invalid item id", nil)
		return
	}
	c, ok := h.resolveCart(w, r)
	if !ok {
		return
	}

	c, err = h.carts.RemoveItem(r.Context(), c, itemID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "item removed", viewCart(c, h.carts.Totals(c)))
}

func (h *Handler) removeItemByProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "product_id")
	if err != nil {
		respond(w, http.StatusUnprocessableEntity, "invalid product id", nil)
		return
	}
	c, ok := h.resolveCart(w, r)
	if !ok {
		return
	}

	it := c.FindItemByProduct(productID)
	if it == nil {
		respond(w, http.StatusNotFound, "item not found in this cart", nil)
		return
	}

	c, err = h.carts.RemoveItem(r.Context(), c, it.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "item removed", viewCart(c, h.carts.Totals(c)))
}

func (h *Handler) clearItems(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveCart(w, r)
	if !ok {
		return
	}
	c, err := h.carts.ClearItems(r.Context(), c)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "all items removed", viewCart(c, h.carts.Totals(c)))
}

// discountRequest applies a discount when Type and Value are set, or clears
// it when Clear is true.
type discountRequest struct {
	Clear bool             `json:"clear"`
	Type  string           `json:"type"`
	Value *decimal.Decimal `json:"value"`
}

func (r discountRequest) spec() (discount.Spec, bool) {
	if r.Type == "" || r.Value == nil {
		return discount.Spec{}, false
	}
	return discount.Spec{Type: discount.Type(r.Type), Value: *r.Value}, true
}

func (h *Handler) setItemDiscount(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "item_id")
	if err != nil {
		respond(w, http.StatusUnprocessableEntity, "invalid item id", nil)
		return
	}
	h.applyItemDiscount(w, r, func(c *cart.Cart) (int64, bool) {
		return itemID, true
	})
}

func (h *Handler) setItemDiscountByProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "product_id")
	if err != nil {
		respond(w, http.StatusUnprocessableEntity, "invalid product id", nil)
		return
	}
	h.applyItemDiscount(w, r, func(c *cart.Cart) (int64, bool) {
		if it := c.FindItemByProduct(productID); it != nil {
			return it.ID, true
		}
		return 0, false
	})
}

func (h *Handler) applyItemDiscount(w http.ResponseWriter, r *http.Request, findItem func(*cart.Cart) (int64, bool)) {
	c, ok := h.resolveCart(w, r)
	if !ok {
		return
	}

	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusUnprocessableEntity, "invalid request body", nil)
		return
	}

	itemID, found := findItem(c)
	if !found {
		respond(w, http.StatusNotFound, "item not found in this cart", nil)
		return
	}

	var err error
	if req.Clear {
		c, err = h.carts.ClearItemDiscount(r.Context(), c, itemID)
	} else {
		spec, ok := req.spec()
		if !ok {
			respond(w, http.StatusUnprocessableEntity, "type and value are required (or set clear=true)", nil)
			return
		}
		c, err = h.carts.SetItemDiscount(r.Context(), c, itemID, spec)
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "discount updated", viewCart(c, h.carts.Totals(c)))
}

func (h *Handler) setCartDiscount(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveCart(w, r)
	if !ok {
		return
	}

	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusUnprocessableEntity, "invalid request body", nil)
		return
	}

	var err error
	if req.Clear {
		c, err = h.carts.ClearCartDiscount(r.Context(), c)
	} else {
		spec, ok := req.spec()
		if !ok {
			respond(w, http.StatusUnprocessableEntity, "type and value are required (or set clear=true)", nil)
			return
		}
		c, err = h.carts.SetCartDiscount(r.Context(), c, spec)
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "cart discount updated", viewCart(c, h.carts.Totals(c)))
}

type addCouponRequest struct {
	Code string `json:"code"`
}

func (h *Handler) addCoupon(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveCart(w, r)
	if !ok {
		return
	}

	var req addCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		respond(w, http.StatusUnprocessableEntity, "code is required", nil)
		return
	}

	c, err := h.carts.AttachCoupon(r.Context(), c, req.Code)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "coupon added", viewCart(c, h.carts.Totals(c)))
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveCart(w, r)
	if !ok {
		return
	}

	c, err := h.carts.DetachCoupon(r.Context(), c, chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "coupon removed", viewCart(c, h.carts.Totals(c)))
}

func (h *Handler) clearCoupons(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveCart(w, r)
	if !ok {
		return
	}
	c, err := h.carts.ClearCoupons(r.Context(), c)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "all coupons removed", viewCart(c, h.carts.Totals(c)))
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
