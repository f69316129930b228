package order_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/receipt"
	"ms-marketplace/internal/utils"

	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, userID string, req models.OrderRequest) (*models.OrderResponse, error)
	GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context, userID string) ([]models.Order, error)
	CancelOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
	HandlePaymentWebhook(ctx context.Context, payload []byte, signature string) (*models.PaymentResult, error)
}

type ReceiptRenderer interface {
	PNG(order models.Order) ([]byte, error)
}

type Handler struct {
	OrderService OrderService
	Receipts     ReceiptRenderer
	Logger       *logger.Logger
}

func NewHandler(orderService OrderService, receipts ReceiptRenderer, log *logger.Logger) *Handler {
	return &Handler{OrderService: orderService, Receipts: receipts, Logger: log}
}

// RegisterRoutes mounts the order endpoints on an authenticated router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrder)
		r.Delete("/{orderID}", h.DeleteOrder)
		r.Get("/{orderID}/receipt.png", h.GetReceipt)
	})
}

// RegisterPublicRoutes mounts the gateway callback, which authenticates by signature.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/payments/webhook", h.StripeWebhook)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req models.OrderRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, "CreateOrder", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateOrder: user=%s courses=%v", userID, req.CourseIDs))

	resp, err := h.OrderService.PlaceOrder(r.Context(), userID, req)
	if err != nil {
		h.fail(w, "CreateOrder", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateOrder: order %s is %s", resp.OrderID, resp.Status))
	_ = utils.WriteSuccess(w, http.StatusCreated, "order placed", resp)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.OrderService.ListOrders(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, "ListOrders", err)
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, "orders", orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	h.Logger.Info("API", fmt.Sprintf("GetOrder: orderID=%s", orderID))

	order, err := h.OrderService.GetOrder(r.Context(), auth.UserID(r.Context()), orderID)
	if err != nil {
		h.fail(w, "GetOrder", err)
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, "order", order)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	h.Logger.Info("API", fmt.Sprintf("DeleteOrder: orderID=%s", orderID))

	order, err := h.OrderService.CancelOrder(r.Context(), auth.UserID(r.Context()), orderID)
	if err != nil {
		h.fail(w, "DeleteOrder", err)
		return
	}
	h.Logger.Info("API", "DeleteOrder: order cancelled successfully")
	_ = utils.WriteSuccess(w, http.StatusOK, "order cancelled", order)
}

func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.OrderService.GetOrder(r.Context(), auth.UserID(r.Context()), orderID)
	if err != nil {
		h.fail(w, "GetReceipt", err)
		return
	}

	png, err := h.Receipts.PNG(*order)
	if errors.Is(err, receipt.ErrNotCompleted) {
		h.fail(w, "GetReceipt", apperrors.Conflict("order_not_completed", "A receipt is available once the order is paid"))
		return
	}
	if err != nil {
		h.fail(w, "GetReceipt", apperrors.Internal("receipt generation failed", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetReceipt: failed to write response: %v", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	}
	_ = utils.WriteError(w, err)
}
