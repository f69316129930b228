package pricing_api

import (
	"context"
	"fmt"
	"net/http"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Checkout interface {
	Quote(ctx context.Context, courseIDs []string, couponCode string) (models.PriceSummary, error)
	ValidateCoupon(ctx context.Context, code string) (*models.Coupon, error)
}

type Handler struct {
	Checkout Checkout
	Logger   *logger.Logger
}

func NewHandler(checkout Checkout, log *logger.Logger) *Handler {
	return &Handler{Checkout: checkout, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/checkout", func(r chi.Router) {
		r.Post("/quote", h.Quote)
		r.Post("/coupon", h.ValidateCoupon)
	})
}

// Quote prices a cart. An invalid coupon answers 422 with the inline
// message; the cart itself is still valid.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req models.QuoteRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, "Quote", err)
		return
	}

	summary, err := h.Checkout.Quote(r.Context(), req.CourseIDs, req.CouponCode)
	if err != nil {
		h.fail(w, "Quote", err)
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, "quote", summary)
}

func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req models.CouponRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, "ValidateCoupon", err)
		return
	}

	coupon, err := h.Checkout.ValidateCoupon(r.Context(), req.Code)
	if err != nil {
		h.fail(w, "ValidateCoupon", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("ValidateCoupon: %s accepted", coupon.Code))
	_ = utils.WriteSuccess(w, http.StatusOK, "coupon applied", coupon)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	}
	_ = utils.WriteError(w, err)
}
