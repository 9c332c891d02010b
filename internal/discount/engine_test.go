package discount

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/fjod/vapealley/internal/catalog"
	"github.com/fjod/vapealley/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCatalog() *catalog.MemoryStore {
	now := time.Now()
	return catalog.NewMemoryStore(
		&domain.Product{ID: "a", Name: "A", Category: "pods", Price: 1000, CreatedAt: now},
		&domain.Product{ID: "b", Name: "B", Category: "pods", Price: 999, CreatedAt: now},
		&domain.Product{ID: "c", Name: "C", Category: "mods", Price: 1250, CreatedAt: now},
	)
}

func newTestEngine(repo catalog.Repository) *Engine {
	return NewEngine(repo, slog.New(slog.DiscardHandler))
}

func TestApply_SelectedProducts(t *testing.T) {
	store := seedCatalog()
	ctx := context.Background()

	res, err := newTestEngine(store).Apply(ctx, Request{Percentage: 20, ProductIDs: []string{"a", "b", "a"}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)

	a, _ := store.Get(ctx, "a")
	require.NotNil(t, a.SalePrice)
	assert.Equal(t, int64(800), *a.SalePrice)
	assert.Equal(t, 20, a.DiscountPercentage)

	c, _ := store.Get(ctx, "c")
	assert.Nil(t, c.SalePrice)
}

func TestApply_AllProductsWhenNoIDs(t *testing.T) {
	store := seedCatalog()
	ctx := context.Background()

	res, err := newTestEngine(store).Apply(ctx, Request{Percentage: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Updated)

	c, _ := store.Get(ctx, "c")
	require.NotNil(t, c.SalePrice)
	assert.Equal(t, int64(1125), *c.SalePrice)
}

func TestApply_NonCompounding(t *testing.T) {
	store := seedCatalog()
	ctx := context.Background()
	engine := newTestEngine(store)

	_, err := engine.Apply(ctx, Request{Percentage: 50, ProductIDs: []string{"a"}})
	require.NoError(t, err)
	_, err = engine.Apply(ctx, Request{Percentage: 20, ProductIDs: []string{"a"}})
	require.NoError(t, err)

	a, _ := store.Get(ctx, "a")
	require.NotNil(t, a.SalePrice)
	assert.Equal(t, int64(800), *a.SalePrice)
}

func TestApply_ZeroClears(t *testing.T) {
	store := seedCatalog()
	ctx := context.Background()
	engine := newTestEngine(store)

	_, err := engine.Apply(ctx, Request{Percentage: 20, ProductIDs: []string{"a"}})
	require.NoError(t, err)
	_, err = engine.Apply(ctx, Request{Percentage: 0, ProductIDs: []string{"a"}})
	require.NoError(t, err)

	a, _ := store.Get(ctx, "a")
	assert.Nil(t, a.SalePrice)
	assert.Equal(t, 0, a.DiscountPercentage)
}

func TestApply_InvalidPercentage(t *testing.T) {
	_, err := newTestEngine(seedCatalog()).Apply(context.Background(), Request{Percentage: 101})

	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindValidation, de.Kind)
	assert.Equal(t, "percentage", de.Field)
}

func TestApply_UnknownProductUpdatesNothing(t *testing.T) {
	store := seedCatalog()
	ctx := context.Background()

	_, err := newTestEngine(store).Apply(ctx, Request{Percentage: 20, ProductIDs: []string{"a", "missing"}})
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	a, _ := store.Get(ctx, "a")
	assert.Nil(t, a.SalePrice)
}

type priceChangingStore struct {
	*catalog.MemoryStore
}

func (s priceChangingStore) ApplyPricing(context.Context, []domain.PriceUpdate) error {
	return catalog.ErrPriceChanged
}

func TestApply_ConcurrentPriceChangeIsConflict(t *testing.T) {
	_, err := newTestEngine(priceChangingStore{seedCatalog()}).Apply(context.Background(), Request{Percentage: 5})

	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.True(t, errors.Is(err, catalog.ErrPriceChanged))
}
