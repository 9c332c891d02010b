package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDuplicate        = errors.New("duplicate document")
)

// Filter matches documents whose bson fields equal the given strings.
type Filter map[string]string

// Documents keeps one kind of catalog reference record (brands, categories,
// reviews) keyed by its "_id". List returns the newest first.
type Documents[T any] interface {
	List(ctx context.Context, filter Filter) ([]*T, error)
	Get(ctx context.Context, id string) (*T, error)
	Insert(ctx context.Context, doc *T) error
	Replace(ctx context.Context, id string, doc *T) error
	Delete(ctx context.Context, id string) error
}

type MongoDocuments[T any] struct {
	collection *mongo.Collection
	unique     []string
}

// NewMongoDocuments stores T in the named collection. Each unique field gets
// a unique index from CreateIndexes.
func NewMongoDocuments[T any](database *mongo.Database, name string, unique ...string) *MongoDocuments[T] {
	return &MongoDocuments[T]{
		collection: database.Collection(name),
		unique:     unique,
	}
}

func (m *MongoDocuments[T]) CreateIndexes(ctx context.Context, extra ...mongo.IndexModel) error {
	indexes := []mongo.IndexModel{{Keys: bson.D{{Key: "created_at", Value: -1}}}}
	for _, field := range m.unique {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
	}
	indexes = append(indexes, extra...)
	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", m.collection.Name(), err)
	}
	return nil
}

func (m *MongoDocuments[T]) List(ctx context.Context, filter Filter) ([]*T, error) {
	match := bson.M{}
	for field, value := range filter {
		match[field] = value
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.collection.Find(ctx, match, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", m.collection.Name(), err)
	}
	defer cursor.Close(ctx)

	docs := make([]*T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", m.collection.Name(), err)
	}
	return docs, nil
}

func (m *MongoDocuments[T]) Get(ctx context.Context, id string) (*T, error) {
	var doc T
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s document: %w", m.collection.Name(), err)
	}
	return &doc, nil
}

func (m *MongoDocuments[T]) Insert(ctx context.Context, doc *T) error {
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert %s document: %w", m.collection.Name(), err)
	}
	return nil
}

func (m *MongoDocuments[T]) Replace(ctx context.Context, id string, doc *T) error {
	result, err := m.collection.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to replace %s document: %w", m.collection.Name(), err)
	}
	if result.MatchedCount == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (m *MongoDocuments[T]) Delete(ctx context.Context, id string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s document: %w", m.collection.Name(), err)
	}
	if result.DeletedCount == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// MemoryDocuments implements Documents in memory. Records are kept as bson so
// filters and unique fields use the same field names as Mongo.
type MemoryDocuments[T any] struct {
	mu     sync.RWMutex
	docs   map[string]bson.Raw
	order  []string
	unique []string
}

func NewMemoryDocuments[T any](unique ...string) *MemoryDocuments[T] {
	return &MemoryDocuments[T]{docs: make(map[string]bson.Raw), unique: unique}
}

func (s *MemoryDocuments[T]) List(_ context.Context, filter Filter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*T, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		raw := s.docs[s.order[i]]
		if !matches(raw, filter) {
			continue
		}
		doc, err := decodeDocument[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *MemoryDocuments[T]) Get(_ context.Context, id string) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return decodeDocument[T](raw)
}

func (s *MemoryDocuments[T]) Insert(_ context.Context, doc *T) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	id, _ := bson.Raw(raw).Lookup("_id").StringValueOK()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[id]; exists || s.conflicts(raw, "") {
		return ErrDuplicate
	}
	s.docs[id] = raw
	s.order = append(s.order, id)
	return nil
}

func (s *MemoryDocuments[T]) Replace(_ context.Context, id string, doc *T) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[id]; !exists {
		return ErrDocumentNotFound
	}
	if s.conflicts(raw, id) {
		return ErrDuplicate
	}
	s.docs[id] = raw
	return nil
}

func (s *MemoryDocuments[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[id]; !exists {
		return ErrDocumentNotFound
	}
	delete(s.docs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// conflicts reports whether another document already holds one of raw's
// unique values.
func (s *MemoryDocuments[T]) conflicts(raw bson.Raw, self string) bool {
	for _, field := range s.unique {
		value, ok := raw.Lookup(field).StringValueOK()
		if !ok {
			continue
		}
		for id, other := range s.docs {
			if id == self {
				continue
			}
			if v, ok := other.Lookup(field).StringValueOK(); ok && v == value {
				return true
			}
		}
	}
	return false
}

func matches(raw bson.Raw, filter Filter) bool {
	for field, want := range filter {
		if got, ok := raw.Lookup(field).StringValueOK(); !ok || got != want {
			return false
		}
	}
	return true
}

func decodeDocument[T any](raw bson.Raw) (*T, error) {
	var doc T
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &doc, nil
}
