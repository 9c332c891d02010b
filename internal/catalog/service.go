package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/vapealley/internal/domain"
	"github.com/google/uuid"
)

// Service handles admin edits of the catalog.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]*domain.Product, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return nil, domain.NotFoundf("product %s not found", id)
	}
	return p, err
}

func (s *Service) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	domain.Reprice(p, p.DiscountPercentage).Apply(p)

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces the editable fields of product id. The sale price is
// recomputed from the submitted discount percentage. A nil stock keeps the
// stored level.
func (s *Service) Update(ctx context.Context, id string, p *domain.Product, stock *int) (*domain.Product, error) {
	if stock != nil {
		if *stock < 0 {
			return nil, domain.Validationf("stock", "must not be negative")
		}
		p.Stock = *stock
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.ID = id
	p.UpdatedAt = time.Now().UTC()
	domain.Reprice(p, p.DiscountPercentage).Apply(p)

	if err := s.repo.Update(ctx, p, stock != nil); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, domain.NotFoundf("product %s not found", id)
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return domain.NotFoundf("product %s not found", id)
	}
	return err
}
