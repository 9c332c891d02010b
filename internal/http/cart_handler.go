package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/vapealley/internal/cart"
	"github.com/fjod/vapealley/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	View(ctx context.Context, userID string) (*cart.View, error)
	AddItem(ctx context.Context, userID, productID string, quantity int, color string) (*cart.View, error)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*cart.View, error)
	RemoveItem(ctx context.Context, userID, productID string) (*cart.View, error)
	Clear(ctx context.Context, userID string) error
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
	logger  *slog.Logger
}

func NewCartHandler(carts CartService, timeout time.Duration, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		logger:  logger,
	}
}

type AddItemRequestDTO struct {
	ProductID     string `json:"productId"`
	Quantity      int    `json:"quantity"`
	SelectedColor string `json:"selectedColor"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.carts.View(ctx, userID(r))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	items := view.Items
	if items == nil {
		items = []domain.CartLine{}
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := decodeJSON(r, addToCartSchema, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	view, err := h.carts.AddItem(ctx, userID(r), req.ProductID, req.Quantity, req.SelectedColor)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, updateQuantitySchema, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	view, err := h.carts.UpdateQuantity(ctx, userID(r), chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.carts.RemoveItem(ctx, userID(r), chi.URLParam(r, "productId"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.Clear(ctx, userID(r)); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}

// userID is only called behind RequireUser.
func userID(r *http.Request) string {
	p, _ := principalFromContext(r.Context())
	return p.UserID
}
