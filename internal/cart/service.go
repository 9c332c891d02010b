package cart

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/vapealley/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ProductReader looks up live product data for cart views.
type ProductReader interface {
	GetMany(ctx context.Context, ids []string) (map[string]*domain.Product, error)
}

// View is a cart expanded with live product fields.
type View struct {
	Items    []domain.CartLine `json:"items"`
	Count    int               `json:"count"`
	Subtotal int64             `json:"subtotal"`
}

const cacheGuardStripes = 64

// cacheGuard orders cache fills against invalidations for the users hashed
// to it. A fill is dropped if gen moved since its repository read started.
type cacheGuard struct {
	mu  sync.Mutex
	gen uint64
}

type Service struct {
	repo     Repository
	cache    Cache
	products ProductReader
	logger   *slog.Logger
	sfg      singleflight.Group // Prevents cache stampede
	guards   [cacheGuardStripes]cacheGuard
}

func NewService(repo Repository, cache Cache, products ProductReader, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		products: products,
		logger:   logger,
	}
}

// GetCart returns the stored cart for userID, or an empty cart if the user
// has none.
func (s *Service) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.WarnContext(ctx, "cart cache get failed", "user_id", userID, "error", err)
		}

		gen := s.generation(userID)
		cart, found, err := s.load(ctx, userID)
		if err != nil {
			return nil, err
		}
		if found {
			go s.fill(userID, cart, gen)
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// load reads the cart from the repository. A missing cart is returned empty
// with found set to false.
func (s *Service) load(ctx context.Context, userID string) (*domain.Cart, bool, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		now := time.Now().UTC()
		return &domain.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cart, true, nil
}

func (s *Service) guard(userID string) *cacheGuard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.guards[h.Sum32()%cacheGuardStripes]
}

func (s *Service) generation(userID string) uint64 {
	g := s.guard(userID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen
}

// fill caches cart unless a write invalidated userID after gen was taken.
func (s *Service) fill(userID string, cart *domain.Cart, gen uint64) {
	g := s.guard(userID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != gen {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, userID, cart); err != nil {
		s.logger.Warn("cart cache set failed", "user_id", userID, "error", err)
	}
}

// View expands the cart with the current product name, prices and image.
// Lines whose product was deleted are left out.
func (s *Service) View(ctx context.Context, userID string) (*View, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, cart)
}

// freshView reads the cart straight from the repository so a write is never
// answered with a read that started before it.
func (s *Service) freshView(ctx context.Context, userID string) (*View, error) {
	cart, _, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, cart)
}

func (s *Service) expand(ctx context.Context, cart *domain.Cart) (*View, error) {
	products, err := s.products.GetMany(ctx, cart.ProductIDs())
	if err != nil {
		return nil, err
	}
	return newView(cart.Expand(products)), nil
}

func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int, color string) (*View, error) {
	if quantity < 1 {
		return nil, domain.Validationf("quantity", "must be at least 1")
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}

	item := domain.CartItem{ProductID: productID, Quantity: quantity, SelectedColor: color}
	if err := s.repo.AddItem(ctx, userID, item); err != nil {
		s.logger.ErrorContext(ctx, "cart add item failed", "user_id", userID, "error", err)
		return nil, err
	}
	s.invalidate(userID)
	return s.freshView(ctx, userID)
}

// UpdateQuantity sets the absolute quantity of a line. A quantity <= 0
// removes it.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*View, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}

	item := domain.CartItem{ProductID: productID, Quantity: quantity}
	if err := s.repo.SetItemQuantity(ctx, userID, item); err != nil {
		s.logger.ErrorContext(ctx, "cart update quantity failed", "user_id", userID, "error", err)
		return nil, err
	}
	s.invalidate(userID)
	return s.freshView(ctx, userID)
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*View, error) {
	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		s.logger.ErrorContext(ctx, "cart remove item failed", "user_id", userID, "error", err)
		return nil, err
	}
	s.invalidate(userID)
	return s.freshView(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	err := s.repo.DeleteCart(ctx, userID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		s.logger.ErrorContext(ctx, "cart clear failed", "user_id", userID, "error", err)
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *Service) requireProduct(ctx context.Context, productID string) error {
	if productID == "" {
		return domain.Validationf("productId", "is required")
	}
	found, err := s.products.GetMany(ctx, []string{productID})
	if err != nil {
		return err
	}
	if _, ok := found[productID]; !ok {
		return domain.NotFoundf("product %s not found", productID)
	}
	return nil
}

// invalidate drops the cached cart and makes reads already in flight skip
// their cache fill. Later GetCart calls start a new flight.
func (s *Service) invalidate(userID string) {
	g := s.guard(userID)
	g.mu.Lock()
	g.gen++
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cart cache invalidate failed", "user_id", userID, "error", err)
	}
	cancel()
	g.mu.Unlock()

	s.sfg.Forget(userID)
}

func newView(lines []domain.CartLine) *View {
	v := &View{Items: lines}
	for _, l := range lines {
		price := l.Price
		if l.SalePrice != nil {
			price = *l.SalePrice
		}
		v.Count += l.Quantity
		v.Subtotal += price * int64(l.Quantity)
	}
	return v
}
