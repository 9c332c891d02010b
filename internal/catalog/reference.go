package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/vapealley/internal/domain"
	"github.com/google/uuid"
)

// timestamp is truncated to the millisecond precision Mongo stores.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func lookup[T any](ctx context.Context, docs Documents[T], kind, id string) (*T, error) {
	doc, err := docs.Get(ctx, id)
	if errors.Is(err, ErrDocumentNotFound) {
		return nil, domain.NotFoundf("%s %s not found", kind, id)
	}
	return doc, err
}

func remove[T any](ctx context.Context, docs Documents[T], kind, id string) error {
	err := docs.Delete(ctx, id)
	if errors.Is(err, ErrDocumentNotFound) {
		return domain.NotFoundf("%s %s not found", kind, id)
	}
	return err
}

// CategoryService manages product categories. Category values are unique.
type CategoryService struct {
	docs Documents[domain.Category]
}

func NewCategoryService(docs Documents[domain.Category]) *CategoryService {
	return &CategoryService{docs: docs}
}

func (s *CategoryService) List(ctx context.Context) ([]*domain.Category, error) {
	return s.docs.List(ctx, nil)
}

func (s *CategoryService) Get(ctx context.Context, id string) (*domain.Category, error) {
	return lookup(ctx, s.docs, "category", id)
}

func (s *CategoryService) Create(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	created := timestamp()
	c.ID = uuid.NewString()
	c.CreatedAt = created
	c.UpdatedAt = created

	if err := s.docs.Insert(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, domain.Conflictf("category %q already exists", c.Value)
		}
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, c *domain.Category) (*domain.Category, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = timestamp()

	if err := s.docs.Replace(ctx, id, c); err != nil {
		switch {
		case errors.Is(err, ErrDuplicate):
			return nil, domain.Conflictf("category %q already exists", c.Value)
		case errors.Is(err, ErrDocumentNotFound):
			return nil, domain.NotFoundf("category %s not found", id)
		}
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	return remove(ctx, s.docs, "category", id)
}

// BrandService manages brands. A brand may only name existing categories.
type BrandService struct {
	docs       Documents[domain.Brand]
	categories Documents[domain.Category]
}

func NewBrandService(docs Documents[domain.Brand], categories Documents[domain.Category]) *BrandService {
	return &BrandService{docs: docs, categories: categories}
}

func (s *BrandService) List(ctx context.Context) ([]*domain.Brand, error) {
	return s.docs.List(ctx, nil)
}

func (s *BrandService) Get(ctx context.Context, id string) (*domain.Brand, error) {
	return lookup(ctx, s.docs, "brand", id)
}

func (s *BrandService) Create(ctx context.Context, b *domain.Brand) (*domain.Brand, error) {
	if err := s.validate(ctx, b); err != nil {
		return nil, err
	}
	created := timestamp()
	b.ID = uuid.NewString()
	b.CreatedAt = created
	b.UpdatedAt = created

	if err := s.docs.Insert(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BrandService) Update(ctx context.Context, id string, b *domain.Brand) (*domain.Brand, error) {
	if err := s.validate(ctx, b); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b.ID = existing.ID
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = timestamp()

	if err := s.docs.Replace(ctx, id, b); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, domain.NotFoundf("brand %s not found", id)
		}
		return nil, err
	}
	return b, nil
}

func (s *BrandService) Delete(ctx context.Context, id string) error {
	return remove(ctx, s.docs, "brand", id)
}

// validate also drops repeated category ids.
func (s *BrandService) validate(ctx context.Context, b *domain.Brand) error {
	if err := b.Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(b.Categories))
	kept := b.Categories[:0]
	for _, id := range b.Categories {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.categories.Get(ctx, id); err != nil {
			if errors.Is(err, ErrDocumentNotFound) {
				return domain.Validationf("categories", "unknown category %s", id)
			}
			return err
		}
		kept = append(kept, id)
	}
	b.Categories = kept
	return nil
}

// ReviewService manages product reviews.
type ReviewService struct {
	docs     Documents[domain.Review]
	products Repository
}

func NewReviewService(docs Documents[domain.Review], products Repository) *ReviewService {
	return &ReviewService{docs: docs, products: products}
}

// List returns every review, or only those of productID when it is set.
func (s *ReviewService) List(ctx context.Context, productID string) ([]*domain.Review, error) {
	var filter Filter
	if productID != "" {
		filter = Filter{"product_id": productID}
	}
	return s.docs.List(ctx, filter)
}

func (s *ReviewService) Get(ctx context.Context, id string) (*domain.Review, error) {
	return lookup(ctx, s.docs, "review", id)
}

func (s *ReviewService) Create(ctx context.Context, r *domain.Review) (*domain.Review, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.products.Get(ctx, r.ProductID); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, domain.NotFoundf("product %s not found", r.ProductID)
		}
		return nil, err
	}
	created := timestamp()
	r.ID = uuid.NewString()
	r.CreatedAt = created
	r.UpdatedAt = created

	if err := s.docs.Insert(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Update changes the rating and comment. The product and author stay fixed.
func (s *ReviewService) Update(ctx context.Context, id string, r *domain.Review) (*domain.Review, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Rating = r.Rating
	existing.Comment = r.Comment
	if err := existing.Validate(); err != nil {
		return nil, err
	}
	existing.UpdatedAt = timestamp()

	if err := s.docs.Replace(ctx, id, existing); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, domain.NotFoundf("review %s not found", id)
		}
		return nil, err
	}
	return existing, nil
}

func (s *ReviewService) Delete(ctx context.Context, id string) error {
	return remove(ctx, s.docs, "review", id)
}
