package catalog

import (
	"context"
	"testing"

	"github.com/fjod/vapealley/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestCategoryService_UniqueValue(t *testing.T) {
	svc := NewCategoryService(NewMemoryDocuments[domain.Category]("value"))
	ctx := context.Background()

	pods, err := svc.Create(ctx, &domain.Category{Name: "Pods", Value: "pods"})
	require.NoError(t, err)
	assert.NotEmpty(t, pods.ID)

	_, err = svc.Create(ctx, &domain.Category{Name: "Pod Systems", Value: "pods"})
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	mods, err := svc.Create(ctx, &domain.Category{Name: "Mods", Value: "mods"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, mods.ID, &domain.Category{Name: "Mods", Value: "pods"})
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	renamed, err := svc.Update(ctx, pods.ID, &domain.Category{Name: "Pod Kits", Value: "pods"})
	require.NoError(t, err)
	assert.Equal(t, "Pod Kits", renamed.Name)
	assert.True(t, renamed.CreatedAt.Equal(pods.CreatedAt))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, mods.ID, list[0].ID)
}

func TestCategoryService_Validation(t *testing.T) {
	svc := NewCategoryService(NewMemoryDocuments[domain.Category]("value"))

	_, err := svc.Create(context.Background(), &domain.Category{Name: "Pods", Value: "  "})
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "value", de.Field)
}

func TestBrandService_CategoriesMustExist(t *testing.T) {
	categories := NewMemoryDocuments[domain.Category]("value")
	ctx := context.Background()
	pods, err := NewCategoryService(categories).Create(ctx, &domain.Category{Name: "Pods", Value: "pods"})
	require.NoError(t, err)

	svc := NewBrandService(NewMemoryDocuments[domain.Brand](), categories)

	_, err = svc.Create(ctx, &domain.Brand{Name: "Uwell", Categories: []string{"nope"}})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	brand, err := svc.Create(ctx, &domain.Brand{Name: "Uwell", Categories: []string{pods.ID, pods.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{pods.ID}, brand.Categories)

	got, err := svc.Get(ctx, brand.ID)
	require.NoError(t, err)
	assert.Equal(t, "Uwell", got.Name)

	require.NoError(t, svc.Delete(ctx, brand.ID))
	_, err = svc.Get(ctx, brand.ID)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.Equal(t, domain.KindNotFound, domain.KindOf(svc.Delete(ctx, brand.ID)))
}

func TestReviewService(t *testing.T) {
	ctx := context.Background()
	svc := NewReviewService(NewMemoryDocuments[domain.Review](), NewMemoryStore(product("a", 1000, 1), product("b", 500, 1)))

	tests := []struct {
		name   string
		review domain.Review
		kind   domain.Kind
	}{
		{"rating too low", domain.Review{ProductID: "a", User: "Sara", Rating: 0, Comment: "ok"}, domain.KindValidation},
		{"rating too high", domain.Review{ProductID: "a", User: "Sara", Rating: 6, Comment: "ok"}, domain.KindValidation},
		{"missing comment", domain.Review{ProductID: "a", User: "Sara", Rating: 4, Comment: " "}, domain.KindValidation},
		{"unknown product", domain.Review{ProductID: "zz", User: "Sara", Rating: 4, Comment: "ok"}, domain.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.review
			_, err := svc.Create(ctx, &r)
			assert.Equal(t, tt.kind, domain.KindOf(err))
		})
	}

	first, err := svc.Create(ctx, &domain.Review{ProductID: "a", User: "Sara", Rating: 5, Comment: "Smooth draw"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &domain.Review{ProductID: "b", User: "Omar", Rating: 3, Comment: "Leaks a bit"})
	require.NoError(t, err)

	forA, err := svc.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, forA, 1)
	assert.Equal(t, first.ID, forA[0].ID)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	updated, err := svc.Update(ctx, first.ID, &domain.Review{ProductID: "b", User: "Someone", Rating: 4, Comment: "Still good"})
	require.NoError(t, err)
	assert.Equal(t, "a", updated.ProductID)
	assert.Equal(t, "Sara", updated.User)
	assert.Equal(t, 4, updated.Rating)
}

func TestMongoDocuments(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	database := repo.collection.Database()

	categories := NewMongoDocuments[domain.Category](database, "categories", "value")
	require.NoError(t, categories.CreateIndexes(ctx))
	svc := NewCategoryService(categories)

	pods, err := svc.Create(ctx, &domain.Category{Name: "Pods", Value: "pods"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &domain.Category{Name: "Pod Kits", Value: "pods"})
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	reviews := NewMongoDocuments[domain.Review](database, "reviews")
	require.NoError(t, reviews.CreateIndexes(ctx, mongo.IndexModel{Keys: bson.D{{Key: "product_id", Value: 1}}}))
	require.NoError(t, repo.Create(ctx, product("a", 1000, 1)))
	reviewSvc := NewReviewService(reviews, repo)
	_, err = reviewSvc.Create(ctx, &domain.Review{ProductID: "a", User: "Sara", Rating: 5, Comment: "Great"})
	require.NoError(t, err)

	forA, err := reviewSvc.List(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, forA, 1)
	forB, err := reviewSvc.List(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, forB)

	require.NoError(t, svc.Delete(ctx, pods.ID))
	_, err = categories.Get(ctx, pods.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.ErrorIs(t, categories.Replace(ctx, pods.ID, pods), ErrDocumentNotFound)
}
