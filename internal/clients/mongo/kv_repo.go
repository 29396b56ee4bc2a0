package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"postit/internal/kv"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// kvDoc stores the JSON value as a string so the wire bytes round-trip
// exactly.
type kvDoc struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// KVRepo implements kv.Store on a MongoDB collection.
type KVRepo struct {
	collection *mongo.Collection
	now        func() time.Time
}

var (
	_ kv.Store  = (*KVRepo)(nil)
	_ kv.Pinger = (*KVRepo)(nil)
)

// opTimeout bounds a single repository call.
const opTimeout = 5 * time.Second

// repoCtx applies opTimeout unless parent already expires sooner.
func repoCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok && time.Until(dl) <= opTimeout {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, opTimeout)
}

// NewKVRepo creates the repository over the "kv" collection.
func NewKVRepo(parentCtx context.Context, db *mongo.Database) (*KVRepo, error) {
	collection := db.Collection("kv")

	ctx, cancel := repoCtx(parentCtx)
	defer cancel()

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("created_at_asc_id_asc"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kv collection index: %w", err)
	}

	return &KVRepo{
		collection: collection,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *KVRepo) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var doc kvDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return json.RawMessage(doc.Value), true, nil
}

// Set upserts key; created_at is only written on insert so key order is stable.
func (r *KVRepo) Set(ctx context.Context, key string, value json.RawMessage) error {
	if key == "" {
		return kv.ErrKeyRequired
	}
	if len(value) == 0 {
		value = json.RawMessage("null")
	}
	if !json.Valid(value) {
		return fmt.Errorf("set %q: value is not valid JSON", key)
	}

	ctx, cancel := repoCtx(ctx)
	defer cancel()

	now := r.now()
	update := bson.M{
		"$set":         bson.M{"value": string(value), "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": key}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (r *KVRepo) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	docs, err := r.find(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(docs))
	for _, d := range docs {
		out[d.Key] = json.RawMessage(d.Value)
	}
	return out, nil
}

// Keys returns the stored keys in insertion order.
func (r *KVRepo) Keys(ctx context.Context) ([]string, error) {
	docs, err := r.find(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(docs))
	for _, d := range docs {
		keys = append(keys, d.Key)
	}
	return keys, nil
}

func (r *KVRepo) find(ctx context.Context) ([]kvDoc, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list kv: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []kvDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode kv: %w", err)
	}
	return docs, nil
}

func (r *KVRepo) Remove(ctx context.Context, key string) error {
	if key == "" {
		return kv.ErrKeyRequired
	}
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

func (r *KVRepo) Clear(ctx context.Context) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	if _, err := r.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// Ping checks the server behind the collection.
func (r *KVRepo) Ping(ctx context.Context) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()
	return r.collection.Database().Client().Ping(ctx, nil)
}
