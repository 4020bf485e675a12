package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/checkout"
	"github.com/xenking/storefront/internal/domain/order"
)

type checkoutRequest struct {
	Customer struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email"`
	} `json:"customer"`
	ShippingAddress map[string]any `json:"shipping_address"`
	Payment         struct {
		Method string `json:"method"`
	} `json:"payment"`
}

func (h *Handler) checkoutCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveCart(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusUnprocessableEntity, "invalid request body", nil)
		return
	}

	o, err := h.checkout.Checkout(r.Context(), c, checkout.Request{
		Customer: order.Customer{
			Name:    req.Customer.Name,
			Phone:   req.Customer.Phone,
			Email:   req.Customer.Email,
			Address: req.ShippingAddress,
		},
		PaymentMethod: req.Payment.Method,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("X-Order-Id", strconv.FormatInt(o.ID, 10))
	respond(w, http.StatusCreated, "order created", map[string]any{"order": viewOrder(o)})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := order.ListFilter{
		Status: order.Status(q.Get("status")),
		Phone:  q.Get("phone"),
		Email:  q.Get("email"),
		Code:   q.Get("code"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		respond(w, http.StatusUnprocessableEntity, "unknown status", nil)
		return
	}
	for key, dst := range map[string]**time.Time{"start": &filter.Start, "end": &filter.End} {
		if v := q.Get(key); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				respond(w, http.StatusUnprocessableEntity, "invalid "+key+" date, want YYYY-MM-DD", nil)
				return
			}
			*dst = &t
		}
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	filter = filter.Normalize()

	orders, total, err := h.orders.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "orders", map[string]any{
		"page":     filter.Page,
		"per_page": filter.PerPage,
		"total":    total,
		"items":    viewOrders(orders),
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "order_id")
	if err != nil {
		respond(w, http.StatusUnprocessableEntity, "invalid order id", nil)
		return
	}
	o, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "order", viewOrder(o))
}

func (h *Handler) listOrdersByPhone(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByPhone(r.Context(), chi.URLParam(r, "phone"), 50)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "orders", viewOrders(orders))
}
