package catalog

import (
	"context"
	"testing"

	"github.com/fjod/vapealley/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Create_ComputesSalePrice(t *testing.T) {
	svc := NewService(NewMemoryStore())

	created, err := svc.Create(context.Background(), &domain.Product{
		Name:               "Caliburn G2",
		Category:           "pods",
		Price:              1250,
		DiscountPercentage: 10,
		Stock:              4,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	require.NotNil(t, created.SalePrice)
	assert.Equal(t, int64(1125), *created.SalePrice)
}

func TestService_Create_Invalid(t *testing.T) {
	svc := NewService(NewMemoryStore())

	_, err := svc.Create(context.Background(), &domain.Product{Name: "x", Category: "pods", Price: 0})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestService_Update_PreservesCreatedAt(t *testing.T) {
	existing := product("a", 1000, 3)
	svc := NewService(NewMemoryStore(existing))

	updated, err := svc.Update(context.Background(), "a", &domain.Product{
		Name:     "Renamed",
		Category: "pods",
		Price:    2000,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "a", updated.ID)
	assert.True(t, updated.CreatedAt.Equal(existing.CreatedAt))
	assert.Nil(t, updated.SalePrice)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestService_NotFound(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = svc.Update(ctx, "missing", &domain.Product{Name: "x", Category: "pods", Price: 1}, nil)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	err = svc.Delete(ctx, "missing")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestService_Update_KeepsReservedStock(t *testing.T) {
	store := NewMemoryStore(product("a", 1000, 10))
	svc := NewService(store)
	ctx := context.Background()

	require.NoError(t, store.ReserveStock(ctx, []domain.StockLine{{ProductID: "a", Quantity: 3}}))

	updated, err := svc.Update(ctx, "a", &domain.Product{Name: "Renamed", Category: "pods", Price: 1000}, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Stock)

	stock := 20
	updated, err = svc.Update(ctx, "a", &domain.Product{Name: "Renamed", Category: "pods", Price: 1000}, &stock)
	require.NoError(t, err)
	assert.Equal(t, 20, updated.Stock)

	negative := -1
	_, err = svc.Update(ctx, "a", &domain.Product{Name: "Renamed", Category: "pods", Price: 1000}, &negative)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}
