package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/basket-client/internal/api"
	"github.com/fjod/go_cart/basket-client/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// CartService is what the handlers need from the cart service
type CartService interface {
	LoadCart(ctx context.Context)
	AddProduct(ctx context.Context, productID int64, amount int) error
	UpdateProductAmount(ctx context.Context, productID int64, amount int)
	DeleteProduct(ctx context.Context, productID int64) error
	ResetCart()
	Snapshot() (*store.Summary, error)
}

type CartHandler struct {
	cart    CartService
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(cart CartService, timeout time.Duration, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{
		cart:    cart,
		timeout: timeout,
		logger:  logger,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Amount    int   `json:"amount"`
}

type UpdateAmountRequestDTO struct {
	Amount *int `json:"amount"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Routes mounts the cart endpoints on r
func (h *CartHandler) Routes(r chi.Router) {
	r.Get("/", h.GetCart)
	r.Delete("/", h.ClearCart)
	r.Post("/reload", h.ReloadCart)
	r.Post("/items", h.AddItem)
	r.Put("/items/{product_id}", h.UpdateAmount)
	r.Delete("/items/{product_id}", h.RemoveItem)
}

func (h *CartHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondSnapshot(w, http.StatusOK)
}

// ReloadCart fetches the basket from the API. A failed fetch still answers
// 200; the failure is reported through the failed flag.
func (h *CartHandler) ReloadCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.cart.LoadCart(ctx)
	h.respondSnapshot(w, http.StatusOK)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Amount <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid_amount", "amount must be positive")
		return
	}

	if err := h.cart.AddProduct(ctx, req.ProductID, req.Amount); err != nil {
		h.handleUpstreamError(w, r, err)
		return
	}

	h.respondSnapshot(w, http.StatusCreated)
}

// UpdateAmount accepts amounts below 1. Those only change the local line.
func (h *CartHandler) UpdateAmount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := h.productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateAmountRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Amount == nil {
		h.respondError(w, http.StatusBadRequest, "invalid_amount", "amount is required")
		return
	}

	h.cart.UpdateProductAmount(ctx, productID, *req.Amount)
	h.respondSnapshot(w, http.StatusOK)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := h.productIDParam(w, r)
	if !ok {
		return
	}

	if err := h.cart.DeleteProduct(ctx, productID); err != nil {
		h.handleUpstreamError(w, r, err)
		return
	}

	h.respondSnapshot(w, http.StatusOK)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.ResetCart()
	h.respondSnapshot(w, http.StatusOK)
}

func (h *CartHandler) respondSnapshot(w http.ResponseWriter, status int) {
	snapshot, err := h.cart.Snapshot()
	if err != nil {
		h.logger.Error("build cart snapshot failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "inconsistent_cart", "cart state is inconsistent")
		return
	}
	h.respondJSON(w, status, snapshot)
}

func (h *CartHandler) productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}

func (h *CartHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *CartHandler) respondError(w http.ResponseWriter, status int, code, message string) {
	h.respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleUpstreamError converts baskets API failures to gateway responses
func (h *CartHandler) handleUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("baskets API call failed",
		zap.String("request_id", getRequestID(r.Context())),
		zap.Error(err))

	var statusErr *api.StatusError
	switch {
	case errors.As(err, &statusErr):
		if statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
			h.respondJSON(w, statusErr.StatusCode, ErrorResponse{
				Error:   "request rejected by baskets API",
				Code:    "upstream_rejected",
				Details: statusErr.Body,
			})
			return
		}
		h.respondError(w, http.StatusBadGateway, "bad_gateway", "baskets API error")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		h.respondError(w, http.StatusServiceUnavailable, "service_unavailable", "baskets API unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		h.respondError(w, http.StatusGatewayTimeout, "timeout", "baskets API timed out")
	default:
		h.respondError(w, http.StatusBadGateway, "bad_gateway", "baskets API error")
	}
}
