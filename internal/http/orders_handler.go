package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/vapealley/internal/domain"
	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, req *domain.PlaceOrderRequest) (*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
	logger  *slog.Logger
}

func NewOrdersHandler(orders OrderService, timeout time.Duration, logger *slog.Logger) *OrdersHandler {
	return &OrdersHandler{orders: orders, timeout: timeout, logger: logger}
}

type PlaceOrderRequestDTO struct {
	domain.Contact
	Items []domain.OrderLine `json:"items"`
	Total int64              `json:"total"`
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var dto PlaceOrderRequestDTO
	if err := decodeJSON(r, placeOrderSchema, &dto); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	req := &domain.PlaceOrderRequest{
		Contact:        dto.Contact,
		Items:          dto.Items,
		Total:          dto.Total,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	// guests may order; signed-in orders are linked to the user
	if p, ok := principalFromContext(r.Context()); ok {
		req.UserID = p.UserID
	}

	order, err := h.orders.PlaceOrder(ctx, req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.List(ctx)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateStatusRequestDTO
	if err := decodeJSON(r, orderStatusSchema, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	order, err := h.orders.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
