package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/vapealley/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CategoryService interface {
	List(ctx context.Context) ([]*domain.Category, error)
	Get(ctx context.Context, id string) (*domain.Category, error)
	Create(ctx context.Context, c *domain.Category) (*domain.Category, error)
	Update(ctx context.Context, id string, c *domain.Category) (*domain.Category, error)
	Delete(ctx context.Context, id string) error
}

type BrandService interface {
	List(ctx context.Context) ([]*domain.Brand, error)
	Get(ctx context.Context, id string) (*domain.Brand, error)
	Create(ctx context.Context, b *domain.Brand) (*domain.Brand, error)
	Update(ctx context.Context, id string, b *domain.Brand) (*domain.Brand, error)
	Delete(ctx context.Context, id string) error
}

type ReviewService interface {
	List(ctx context.Context, productID string) ([]*domain.Review, error)
	Get(ctx context.Context, id string) (*domain.Review, error)
	Create(ctx context.Context, r *domain.Review) (*domain.Review, error)
	Update(ctx context.Context, id string, r *domain.Review) (*domain.Review, error)
	Delete(ctx context.Context, id string) error
}

// ReferenceHandler serves the categories, brands and reviews collections.
type ReferenceHandler struct {
	categories CategoryService
	brands     BrandService
	reviews    ReviewService
	timeout    time.Duration
	logger     *slog.Logger
}

func NewReferenceHandler(categories CategoryService, brands BrandService, reviews ReviewService, timeout time.Duration, logger *slog.Logger) *ReferenceHandler {
	return &ReferenceHandler{
		categories: categories,
		brands:     brands,
		reviews:    reviews,
		timeout:    timeout,
		logger:     logger,
	}
}

// serve runs fn under the request timeout and writes its result.
func (h *ReferenceHandler) serve(w http.ResponseWriter, r *http.Request, status int, fn func(ctx context.Context) (any, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := fn(ctx)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, status, result)
}

func deleted(kind, id string) map[string]string {
	return map[string]string{"message": kind + " deleted", "id": id}
}

func (h *ReferenceHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		return h.categories.List(ctx)
	})
}

func (h *ReferenceHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		return h.categories.Get(ctx, chi.URLParam(r, "id"))
	})
}

func (h *ReferenceHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusCreated, func(ctx context.Context) (any, error) {
		var c domain.Category
		if err := decodeJSON(r, categorySchema, &c); err != nil {
			return nil, err
		}
		return h.categories.Create(ctx, &c)
	})
}

func (h *ReferenceHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		var c domain.Category
		if err := decodeJSON(r, categorySchema, &c); err != nil {
			return nil, err
		}
		return h.categories.Update(ctx, chi.URLParam(r, "id"), &c)
	})
}

func (h *ReferenceHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		id := chi.URLParam(r, "id")
		return deleted("category", id), h.categories.Delete(ctx, id)
	})
}

func (h *ReferenceHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		return h.brands.List(ctx)
	})
}

func (h *ReferenceHandler) GetBrand(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		return h.brands.Get(ctx, chi.URLParam(r, "id"))
	})
}

func (h *ReferenceHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusCreated, func(ctx context.Context) (any, error) {
		var b domain.Brand
		if err := decodeJSON(r, brandSchema, &b); err != nil {
			return nil, err
		}
		return h.brands.Create(ctx, &b)
	})
}

func (h *ReferenceHandler) UpdateBrand(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		var b domain.Brand
		if err := decodeJSON(r, brandSchema, &b); err != nil {
			return nil, err
		}
		return h.brands.Update(ctx, chi.URLParam(r, "id"), &b)
	})
}

func (h *ReferenceHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		id := chi.URLParam(r, "id")
		return deleted("brand", id), h.brands.Delete(ctx, id)
	})
}

// ListReviews accepts an optional productId query parameter.
func (h *ReferenceHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		return h.reviews.List(ctx, r.URL.Query().Get("productId"))
	})
}

func (h *ReferenceHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		return h.reviews.Get(ctx, chi.URLParam(r, "id"))
	})
}

func (h *ReferenceHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusCreated, func(ctx context.Context) (any, error) {
		var review domain.Review
		if err := decodeJSON(r, createReviewSchema, &review); err != nil {
			return nil, err
		}
		return h.reviews.Create(ctx, &review)
	})
}

func (h *ReferenceHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		var review domain.Review
		if err := decodeJSON(r, updateReviewSchema, &review); err != nil {
			return nil, err
		}
		return h.reviews.Update(ctx, chi.URLParam(r, "id"), &review)
	})
}

func (h *ReferenceHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		id := chi.URLParam(r, "id")
		return deleted("review", id), h.reviews.Delete(ctx, id)
	})
}
