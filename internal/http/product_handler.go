package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/vapealley/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ProductService interface {
	List(ctx context.Context) ([]*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id string, p *domain.Product, stock *int) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

// UpdateProductRequestDTO carries stock separately so an edit without it
// leaves the stored level alone.
type UpdateProductRequestDTO struct {
	domain.Product
	Stock *int `json:"stock"`
}

type ProductHandler struct {
	products ProductService
	timeout  time.Duration
	logger   *slog.Logger
}

func NewProductHandler(products ProductService, timeout time.Duration, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		timeout:  timeout,
		logger:   logger,
	}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.products.List(ctx)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.products.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var p domain.Product
	if err := decodeJSON(r, createProductSchema, &p); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	created, err := h.products.Create(ctx, &p)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateProductRequestDTO
	if err := decodeJSON(r, updateProductSchema, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	updated, err := h.products.Update(ctx, chi.URLParam(r, "id"), &req.Product, req.Stock)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	if err := h.products.Delete(ctx, id); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "product deleted", "id": id})
}
