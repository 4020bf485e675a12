package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
)

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	coupons, err := h.coupons.List(r.Context(), activeOnly)
	if err != nil {
		respondError(w, r, err)
		return
	}
	views := make([]couponView, len(coupons))
	for i := range coupons {
		views[i] = viewCoupon(&coupons[i])
	}
	respondOK(w, "coupons", views)
}

type createCouponRequest struct {
	Code           string           `json:"code"`
	Type           string           `json:"type"`
	Value          *decimal.Decimal `json:"value"`
	Active         *bool            `json:"active"`
	StartsAt       *time.Time       `json:"starts_at"`
	EndsAt         *time.Time       `json:"ends_at"`
	MinSubtotal    *decimal.Decimal `json:"min_subtotal"`
	MaxUses        *int             `json:"max_uses"`
	MaxUsesPerCart int              `json:"max_uses_per_cart"`
	Stackable      bool             `json:"stackable"`
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusUnprocessableEntity, "invalid request body", nil)
		return
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		respond(w, http.StatusUnprocessableEntity, "code is required", nil)
		return
	}
	if req.Value == nil {
		respond(w, http.StatusUnprocessableEntity, "type and value are required", nil)
		return
	}

	c := &coupon.Coupon{
		Code:           code,
		Type:           coupon.Type(req.Type),
		Value:          *req.Value,
		Active:         true,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		MaxUses:        req.MaxUses,
		MaxUsesPerCart: req.MaxUsesPerCart,
		Stackable:      req.Stackable,
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	if req.MinSubtotal != nil {
		c.MinSubtotal = *req.MinSubtotal
	}

	if err := coupon.ValidateStructure(c); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.coupons.Create(r.Context(), c); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "coupon created", viewCoupon(c))
}
