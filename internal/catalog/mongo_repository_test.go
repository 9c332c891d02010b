package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fjod/vapealley/internal/db"
	"github.com/fjod/vapealley/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestDB(t *testing.T) (*MongoRepository, func()) {
	ctx := context.Background()

	// Transactions need a replica set
	mongoContainer, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	database, err := db.ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	repo := NewMongoRepository(database)
	require.NoError(t, repo.CreateIndexes(ctx))

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func TestMongoRepository_GetNotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	p, err := repo.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Nil(t, p)
}

func TestMongoRepository_CreateAndGetMany(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, product("a", 500, 10)))
	require.NoError(t, repo.Create(ctx, product("b", 300, 2)))

	found, err := repo.GetMany(ctx, []string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, int64(500), found["a"].Price)
	assert.Equal(t, 2, found["b"].Stock)
}

func TestMongoRepository_ReserveStock(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, product("a", 500, 10)))

	err := repo.ReserveStock(ctx, []domain.StockLine{{ProductID: "a", Quantity: 2}})
	require.NoError(t, err)

	a, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 8, a.Stock)
}

func TestMongoRepository_ReserveStock_RollsBackEarlierLines(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, product("a", 500, 10)))
	require.NoError(t, repo.Create(ctx, product("b", 300, 1)))

	err := repo.ReserveStock(ctx, []domain.StockLine{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 5},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "b", stockErr.ProductID)
	assert.Equal(t, 5, stockErr.Required)
	assert.Equal(t, 1, stockErr.Available)

	a, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 10, a.Stock)
}

func TestMongoRepository_ApplyPricing(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, product("a", 1000, 1)))
	a, err := repo.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, repo.ApplyPricing(ctx, []domain.PriceUpdate{domain.Reprice(a, 20)}))
	a, err = repo.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, a.SalePrice)
	assert.Equal(t, int64(800), *a.SalePrice)
	assert.Equal(t, 20, a.DiscountPercentage)

	// zero percent removes the sale price field
	require.NoError(t, repo.ApplyPricing(ctx, []domain.PriceUpdate{domain.Reprice(a, 0)}))
	a, err = repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, a.SalePrice)
	assert.Equal(t, 0, a.DiscountPercentage)
}

func TestMongoRepository_ApplyPricing_PriceChangedAbortsBatch(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, product("a", 1000, 1)))
	require.NoError(t, repo.Create(ctx, product("b", 500, 1)))
	a, _ := repo.Get(ctx, "a")
	b, _ := repo.Get(ctx, "b")

	stale := domain.Reprice(b, 10)
	stale.BasePrice = 450

	err := repo.ApplyPricing(ctx, []domain.PriceUpdate{domain.Reprice(a, 20), stale})
	require.ErrorIs(t, err, ErrPriceChanged)

	a, err = repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, a.SalePrice)
}

func TestMongoRepository_Update_LeavesStockUnlessAsked(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	brand := "Uwell"
	p := product("a", 1000, 10)
	p.Brand = &brand
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.ReserveStock(ctx, []domain.StockLine{{ProductID: "a", Quantity: 3}}))

	edit := product("a", 1200, 0)
	edit.Name = "Caliburn"
	require.NoError(t, repo.Update(ctx, edit, false))

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Caliburn", got.Name)
	assert.Equal(t, int64(1200), got.Price)
	assert.Equal(t, 7, got.Stock)
	assert.Nil(t, got.Brand)

	edit.Stock = 15
	require.NoError(t, repo.Update(ctx, edit, true))
	got, err = repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 15, got.Stock)

	assert.ErrorIs(t, repo.Update(ctx, product("missing", 1, 1), false), ErrProductNotFound)
}

func TestMongoRepository_ReserveStock_ConcurrentBuyers(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, product("a", 500, 10)))

	const buyers = 25
	var wg sync.WaitGroup
	var succeeded, shortStock atomic.Int32
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.ReserveStock(ctx, []domain.StockLine{{ProductID: "a", Quantity: 1}})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrInsufficientStock):
				shortStock.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), succeeded.Load())
	assert.Equal(t, int32(buyers-10), shortStock.Load())

	a, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, a.Stock)
}
