package cnx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// QueryBuilder translates a connector-level filter value into a Mongo query
// document.
type QueryBuilder[V any] func(filter V) any

// MongoConnector realizes the contract over a Mongo collection. Entities are
// stored under their key as _id, so T should tag no field with `bson:"_id"`
// of its own unless it mirrors the key. Save upserts; Remove of a missing id
// fails, unlike the in-memory and file backends.
type MongoConnector[T any, V any] struct {
	collection *mongo.Collection
	buildQuery QueryBuilder[V]
}

// MongoOption mutates a MongoConnector during construction.
type MongoOption[T any, V any] func(*MongoConnector[T, V]) error

// WithQueryBuilder installs the translation List applies to a filter value.
// Without one, filtered lists are rejected.
func WithQueryBuilder[T any, V any](build QueryBuilder[V]) MongoOption[T, V] {
	return func(c *MongoConnector[T, V]) error {
		if build == nil {
			return errors.New("nil query builder provided")
		}
		c.buildQuery = build
		return nil
	}
}

func NewMongoConnector[T any, V any](collection *mongo.Collection, opts ...MongoOption[T, V]) (*MongoConnector[T, V], error) {
	if collection == nil {
		return nil, errors.New("mongo connector: collection is required")
	}
	c := &MongoConnector[T, V]{collection: collection}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MongoConnectorFor builds a connector over the collection conventionally
// named for a resource ("task" maps to the tasks collection).
func MongoConnectorFor[T any, V any](client *MongoClient, resource string, opts ...MongoOption[T, V]) (*MongoConnector[T, V], error) {
	if client == nil {
		return nil, errors.New("mongo connector: client is required")
	}
	if resource == "" {
		return nil, errors.New("mongo connector: resource name is required")
	}
	return NewMongoConnector[T, V](client.Collection(CollectionFor(resource)), opts...)
}

// CollectionFor derives the conventional collection name for a resource.
func CollectionFor(resource string) string {
	return Pluralize(strings.ToLower(resource))
}

func (c *MongoConnector[T, V]) Fetch(ctx context.Context, id V) (T, bool, error) {
	var zero T
	res := c.collection.FindOne(ctx, bson.M{"_id": id})
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("mongo fetch: %w", err)
	}
	var item T
	if err := res.Decode(&item); err != nil {
		return zero, false, fmt.Errorf("mongo decode: %w", err)
	}
	return item, true, nil
}

func (c *MongoConnector[T, V]) List(ctx context.Context, filter ...V) ([]T, error) {
	if len(filter) > 1 {
		return nil, errors.New("mongo connector: at most one filter value is accepted")
	}
	query := any(bson.M{})
	if len(filter) == 1 {
		if c.buildQuery == nil {
			return nil, errors.New("mongo connector: filtered list requires a query builder")
		}
		query = c.buildQuery(filter[0])
	}

	cursor, err := c.collection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("mongo list: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]T, 0)
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, fmt.Errorf("mongo decode: %w", err)
		}
		items = append(items, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo cursor: %w", err)
	}
	return items, nil
}

func (c *MongoConnector[T, V]) Save(ctx context.Context, id V, value T) error {
	doc, err := withID(id, value)
	if err != nil {
		return fmt.Errorf("mongo save: %w", err)
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := c.collection.ReplaceOne(ctx, bson.M{"_id": id}, doc, opts); err != nil {
		return fmt.Errorf("mongo save: %w", err)
	}
	return nil
}

func (c *MongoConnector[T, V]) Remove(ctx context.Context, id V) error {
	result, err := c.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo remove: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("mongo remove: no document for key %v", id)
	}
	return nil
}

// withID flattens the value into a bson document keyed by _id, so the stored
// shape matches the filters used by Fetch and Remove.
func withID[T any, V any](id V, value T) (bson.M, error) {
	raw, err := bson.Marshal(value)
	if err != nil {
		return nil, err
	}
	doc := bson.M{}
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	doc["_id"] = id
	return doc, nil
}
