package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/checkout"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// envelope is the uniform response body.
type envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Status:  status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

func respondOK(w http.ResponseWriter, message string, data any) {
	respond(w, http.StatusOK, message, data)
}

// respondError maps a domain error to an HTTP status and writes the
// envelope. Unrecognized errors are logged and surfaced as a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respond(w, status, "internal error", nil)
		return
	}
	respond(w, status, err.Error(), nil)
}

func statusFor(err error) int {
	switch {
	// Missing resources.
	case errors.Is(err, cart.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrCouponNotAttached):
		return http.StatusNotFound

	// State conflicts.
	case errors.Is(err, cart.ErrNotActive),
		errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, cart.ErrCouponAlreadyApplied),
		errors.Is(err, coupon.ErrCodeTaken):
		return http.StatusConflict

	// Client-correctable input.
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, discount.ErrValueNotPositive),
		errors.Is(err, discount.ErrUnknownType),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrCustomerRequired):
		return http.StatusUnprocessableEntity
	}

	var (
		itemNotFound *cart.ItemNotFoundError
		minOrder     *cart.MinimumOrderError
		pctRange     *discount.PercentRangeError
		fixedCap     *discount.FixedCapError
		minSubtotal  *coupon.MinSubtotalError

		unavailable   *checkout.ProductUnavailableError
		insufficient  *checkout.InsufficientStockError
		checkoutMin   *checkout.MinimumOrderError
		couponInvalid *checkout.CouponIneligibleError
	)
	switch {
	case errors.As(err, &itemNotFound):
		return http.StatusNotFound
	case errors.As(err, &unavailable), errors.As(err, &insufficient):
		return http.StatusConflict
	case errors.As(err, &minOrder), errors.As(err, &pctRange), errors.As(err, &fixedCap),
		errors.As(err, &minSubtotal), errors.As(err, &checkoutMin), errors.As(err, &couponInvalid):
		return http.StatusUnprocessableEntity
	}

	// Coupon eligibility sentinels surface on attach and at checkout.
	for _, sentinel := range []error{
		coupon.ErrMalformed, coupon.ErrInactive, coupon.ErrNotStarted, coupon.ErrExpired,
		coupon.ErrPerCartLimit, coupon.ErrExhausted, coupon.ErrNotStackable,
	} {
		if errors.Is(err, sentinel) {
			return http.StatusUnprocessableEntity
		}
	}

	return http.StatusInternalServerError
}
