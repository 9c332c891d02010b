package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/vapealley/internal/db"
	"github.com/fjod/vapealley/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(database *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: database.Collection("products"),
	}
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoRepository) List(ctx context.Context) ([]*domain.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	products := make([]*domain.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

func (m *MongoRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (m *MongoRepository) GetMany(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	found := make(map[string]*domain.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	cursor, err := m.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	var products []*domain.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	for _, p := range products {
		found[p.ID] = p
	}
	return found, nil
}

func (m *MongoRepository) Create(ctx context.Context, p *domain.Product) error {
	if _, err := m.collection.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (m *MongoRepository) Update(ctx context.Context, p *domain.Product, setStock bool) error {
	set := bson.M{
		"name":                p.Name,
		"category":            p.Category,
		"description":         p.Description,
		"price":               p.Price,
		"discount_percentage": p.DiscountPercentage,
		"image":               p.Image,
		"images":              p.Images,
		"colors":              p.Colors,
		"specifications":      p.Specifications,
		"updated_at":          p.UpdatedAt,
	}
	unset := bson.M{}
	if p.Brand != nil {
		set["brand"] = *p.Brand
	} else {
		unset["brand"] = ""
	}
	if p.SalePrice != nil {
		set["sale_price"] = *p.SalePrice
	} else {
		unset["sale_price"] = ""
	}
	if setStock {
		set["stock"] = p.Stock
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (m *MongoRepository) Delete(ctx context.Context, id string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (m *MongoRepository) ReserveStock(ctx context.Context, lines []domain.StockLine) error {
	applied := make([]domain.StockLine, 0, len(lines))
	for _, line := range lines {
		// stock is only decremented while it stays >= 0
		filter := bson.M{
			"_id":   line.ProductID,
			"stock": bson.M{"$gte": line.Quantity},
		}
		update := bson.M{
			"$inc": bson.M{"stock": -line.Quantity},
			"$set": bson.M{"updated_at": time.Now()},
		}
		result, err := m.collection.UpdateOne(ctx, filter, update)
		if err == nil && result.MatchedCount == 1 {
			applied = append(applied, line)
			continue
		}

		// inside a transaction the abort undoes earlier lines
		if mongo.SessionFromContext(ctx) != nil {
			if err != nil {
				return fmt.Errorf("failed to decrement stock for %s: %w", line.ProductID, err)
			}
			return m.stockFailure(ctx, line)
		}
		if restoreErr := m.RestoreStock(context.WithoutCancel(ctx), applied); restoreErr != nil {
			return fmt.Errorf("failed to restore stock after failed reservation: %w", restoreErr)
		}
		if err != nil {
			return fmt.Errorf("failed to decrement stock for %s: %w", line.ProductID, err)
		}
		return m.stockFailure(ctx, line)
	}
	return nil
}

// stockFailure explains why a conditional decrement matched nothing.
func (m *MongoRepository) stockFailure(ctx context.Context, line domain.StockLine) error {
	p, err := m.Get(ctx, line.ProductID)
	if err != nil {
		return err
	}
	return &StockError{
		ProductID: p.ID,
		Name:      p.Name,
		Required:  line.Quantity,
		Available: p.Stock,
	}
}

func (m *MongoRepository) RestoreStock(ctx context.Context, lines []domain.StockLine) error {
	for _, line := range lines {
		update := bson.M{
			"$inc": bson.M{"stock": line.Quantity},
			"$set": bson.M{"updated_at": time.Now()},
		}
		if _, err := m.collection.UpdateOne(ctx, bson.M{"_id": line.ProductID}, update); err != nil {
			return fmt.Errorf("failed to restore stock for %s: %w", line.ProductID, err)
		}
	}
	return nil
}

func (m *MongoRepository) ApplyPricing(ctx context.Context, updates []domain.PriceUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	now := time.Now()
	models := make([]mongo.WriteModel, len(updates))
	for i, u := range updates {
		update := bson.M{"$set": bson.M{
			"discount_percentage": u.DiscountPercentage,
			"sale_price":          u.SalePrice,
			"updated_at":          now,
		}}
		if u.SalePrice == nil {
			update = bson.M{
				"$set":   bson.M{"discount_percentage": 0, "updated_at": now},
				"$unset": bson.M{"sale_price": ""},
			}
		}
		models[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": u.ProductID, "price": u.BasePrice}).
			SetUpdate(update)
	}

	return db.WithTransaction(ctx, m.collection.Database().Client(), func(sc mongo.SessionContext) error {
		result, err := m.collection.BulkWrite(sc, models, options.BulkWrite().SetOrdered(true))
		if err != nil {
			return fmt.Errorf("failed to apply pricing: %w", err)
		}
		if int(result.MatchedCount) != len(updates) {
			return fmt.Errorf("%w: matched %d of %d products", ErrPriceChanged, result.MatchedCount, len(updates))
		}
		return nil
	})
}
