package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/vapealley/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// upsertAttempts bounds retries when two writers race to create the same cart.
const upsertAttempts = 3

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

func (m *MongoRepository) AddItem(ctx context.Context, userID string, item domain.CartItem) error {
	inc := bson.M{
		"$inc": bson.M{"items.$.quantity": item.Quantity},
		"$set": bson.M{"updated_at": time.Now()},
	}
	return m.writeLine(ctx, userID, item, inc)
}

func (m *MongoRepository) SetItemQuantity(ctx context.Context, userID string, item domain.CartItem) error {
	set := bson.M{
		"$set": bson.M{
			"items.$.quantity": item.Quantity,
			"updated_at":       time.Now(),
		},
	}
	return m.writeLine(ctx, userID, item, set)
}

// writeLine applies existing to the line for item.ProductID. When no such
// line exists the item is pushed, creating the cart if needed.
func (m *MongoRepository) writeLine(ctx context.Context, userID string, item domain.CartItem, existing bson.M) error {
	for attempt := 0; attempt < upsertAttempts; attempt++ {
		filter := bson.M{"user_id": userID, "items.product_id": item.ProductID}
		result, err := m.collection.UpdateOne(ctx, filter, existing)
		if err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}
		if result.MatchedCount == 1 {
			return nil
		}

		now := time.Now()
		item.AddedAt = now
		filter = bson.M{"user_id": userID, "items.product_id": bson.M{"$ne": item.ProductID}}
		push := bson.M{
			"$push":        bson.M{"items": item},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		}
		_, err = m.collection.UpdateOne(ctx, filter, push, options.Update().SetUpsert(true))
		if err == nil {
			return nil
		}
		// the line appeared or the cart was created concurrently
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to add cart item: %w", err)
		}
	}
	return fmt.Errorf("failed to write cart item for user %s: too much contention", userID)
}

func (m *MongoRepository) RemoveItem(ctx context.Context, userID string, productID string) error {
	update := bson.M{
		"$pull": bson.M{"items": bson.M{"product_id": productID}},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	if _, err := m.collection.UpdateOne(ctx, bson.M{"user_id": userID}, update); err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, userID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}
