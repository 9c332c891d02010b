package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fjod/vapealley/internal/domain"
)

// MemoryStore implements Repository in memory. Products are copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewMemoryStore(products ...*domain.Product) *MemoryStore {
	s := &MemoryStore{products: make(map[string]*domain.Product)}
	for _, p := range products {
		s.products[p.ID] = clone(p)
	}
	return s
}

func (s *MemoryStore) List(_ context.Context) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, clone(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return clone(p), nil
}

func (s *MemoryStore) GetMany(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[string]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			found[id] = clone(p)
		}
	}
	return found, nil
}

func (s *MemoryStore) Create(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; exists {
		return fmt.Errorf("product %s already exists", p.ID)
	}
	s.products[p.ID] = clone(p)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, p *domain.Product, setStock bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[p.ID]
	if !exists {
		return ErrProductNotFound
	}
	next := clone(p)
	next.CreatedAt = existing.CreatedAt
	if !setStock {
		next.Stock = existing.Stock
	}
	s.products[p.ID] = next
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) ReserveStock(_ context.Context, lines []domain.StockLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: validate every line before touching stock
	for _, line := range lines {
		p, exists := s.products[line.ProductID]
		if !exists {
			return ErrProductNotFound
		}
		if p.Stock < line.Quantity {
			return &StockError{ProductID: p.ID, Name: p.Name, Required: line.Quantity, Available: p.Stock}
		}
	}

	now := time.Now()
	for _, line := range lines {
		p := s.products[line.ProductID]
		p.Stock -= line.Quantity
		p.UpdatedAt = now
	}
	return nil
}

func (s *MemoryStore) RestoreStock(_ context.Context, lines []domain.StockLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range lines {
		if p, exists := s.products[line.ProductID]; exists {
			p.Stock += line.Quantity
		}
	}
	return nil
}

func (s *MemoryStore) ApplyPricing(_ context.Context, updates []domain.PriceUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range updates {
		p, exists := s.products[u.ProductID]
		if !exists {
			return ErrProductNotFound
		}
		if p.Price != u.BasePrice {
			return fmt.Errorf("%w: %s", ErrPriceChanged, u.ProductID)
		}
	}

	now := time.Now()
	for _, u := range updates {
		p := s.products[u.ProductID]
		u.Apply(p)
		p.UpdatedAt = now
	}
	return nil
}

func clone(p *domain.Product) *domain.Product {
	c := *p
	if p.SalePrice != nil {
		sale := *p.SalePrice
		c.SalePrice = &sale
	}
	if p.Brand != nil {
		brand := *p.Brand
		c.Brand = &brand
	}
	c.Images = append([]string(nil), p.Images...)
	c.Colors = append([]string(nil), p.Colors...)
	c.Specifications = append([]domain.Specification(nil), p.Specifications...)
	return &c
}
