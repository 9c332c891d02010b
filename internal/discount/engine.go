package discount

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/vapealley/internal/catalog"
	"github.com/fjod/vapealley/internal/domain"
)

// Request applies Percentage to ProductIDs, or to the whole catalog when
// ProductIDs is empty. A percentage of 0 clears the discount.
type Request struct {
	Percentage int      `json:"percentage"`
	ProductIDs []string `json:"productIds"`
}

// Result reports the products that were repriced.
type Result struct {
	Updated    int `json:"updated"`
	Percentage int `json:"percentage"`
}

type Engine struct {
	catalog catalog.Repository
	logger  *slog.Logger
}

func NewEngine(repo catalog.Repository, logger *slog.Logger) *Engine {
	return &Engine{catalog: repo, logger: logger}
}

// Apply recomputes the sale price of every targeted product from its own
// base price. Either every target is updated or none is.
func (e *Engine) Apply(ctx context.Context, req Request) (*Result, error) {
	if err := domain.ValidatePercentage(req.Percentage); err != nil {
		return nil, err
	}

	targets, err := e.targets(ctx, req.ProductIDs)
	if err != nil {
		return nil, err
	}

	updates := make([]domain.PriceUpdate, 0, len(targets))
	for _, p := range targets {
		updates = append(updates, domain.Reprice(p, req.Percentage))
	}

	if err := e.catalog.ApplyPricing(ctx, updates); err != nil {
		if errors.Is(err, catalog.ErrPriceChanged) {
			return nil, domain.Wrap(domain.KindConflict, err, "a product price changed while the discount was applied; nothing was updated")
		}
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, domain.Wrap(domain.KindNotFound, err, "a product was deleted while the discount was applied; nothing was updated")
		}
		return nil, fmt.Errorf("failed to apply discount: %w", err)
	}

	e.logger.InfoContext(ctx, "discount applied", "percentage", req.Percentage, "products", len(updates))
	return &Result{Updated: len(updates), Percentage: req.Percentage}, nil
}

func (e *Engine) targets(ctx context.Context, ids []string) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return e.catalog.List(ctx)
	}

	ids = dedupe(ids)
	found, err := e.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	targets := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		p, ok := found[id]
		if !ok {
			return nil, domain.NotFoundf("product %s not found", id)
		}
		targets = append(targets, p)
	}
	return targets, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
