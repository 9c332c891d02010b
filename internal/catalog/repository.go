package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/vapealley/internal/domain"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPriceChanged      = errors.New("product price changed during update")
)

// StockError names the product that could not cover a requested quantity.
type StockError struct {
	ProductID string
	Name      string
	Required  int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: required %d, available %d", e.Name, e.Required, e.Available)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Repository is the catalog store. ReserveStock and ApplyPricing are
// all-or-nothing: on error no product has been changed.
type Repository interface {
	List(ctx context.Context) ([]*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	// Update writes the editable fields of p. Stock is left alone unless
	// setStock is true, so reservations made meanwhile survive an edit.
	Update(ctx context.Context, p *domain.Product, setStock bool) error
	Delete(ctx context.Context, id string) error

	// ReserveStock takes every line's quantity from stock.
	ReserveStock(ctx context.Context, lines []domain.StockLine) error
	// RestoreStock returns quantities taken by ReserveStock.
	RestoreStock(ctx context.Context, lines []domain.StockLine) error
	// ApplyPricing writes discount fields. Each update only applies while the
	// product still has update.BasePrice.
	ApplyPricing(ctx context.Context, updates []domain.PriceUpdate) error
}
