package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageParams holds offset pagination configuration
type PageParams struct {
	Skip  int64
	Limit int64
	Sort  bson.D
}

// Repository provides generic CRUD operations for MongoDB
type Repository[T any] struct {
	collection *mongo.Collection
}

// NewRepository creates a new generic repository
func NewRepository[T any](db *mongo.Database, collectionName string) *Repository[T] {
	return &Repository[T]{
		collection: db.Collection(collectionName),
	}
}

func OpenConnection(ctx context.Context, uri string, database string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return client.Database(database), nil
}

// Create inserts a new document
func (r *Repository[T]) Create(ctx context.Context, document T) (*mongo.InsertOneResult, error) {
	return r.collection.InsertOne(ctx, document)
}

// FindByID finds a document by its _id. Returns nil, nil when absent.
func (r *Repository[T]) FindByID(ctx context.Context, id any) (*T, error) {
	return r.FindOne(ctx, bson.M{"_id": id})
}

// FindOne finds a single document matching the filter. Returns nil, nil when absent.
func (r *Repository[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	var result T
	err := r.collection.FindOne(ctx, filter).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// FindAll finds all documents matching the filter in the given order
func (r *Repository[T]) FindAll(ctx context.Context, filter bson.M, sort bson.D) ([]T, error) {
	findOptions := options.Find()
	if len(sort) > 0 {
		findOptions.SetSort(sort)
	}
	return r.find(ctx, filter, findOptions)
}

// FindPage finds one page of documents using skip/limit
func (r *Repository[T]) FindPage(ctx context.Context, filter bson.M, params PageParams) ([]T, error) {
	findOptions := options.Find()
	if params.Skip > 0 {
		findOptions.SetSkip(params.Skip)
	}
	if params.Limit > 0 {
		findOptions.SetLimit(params.Limit)
	}
	if len(params.Sort) > 0 {
		findOptions.SetSort(params.Sort)
	}
	return r.find(ctx, filter, findOptions)
}

func (r *Repository[T]) find(ctx context.Context, filter bson.M, findOptions *options.FindOptions) ([]T, error) {
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := make([]T, 0)
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Update updates a single document matching the filter
func (r *Repository[T]) Update(ctx context.Context, filter bson.M, update bson.M) (*mongo.UpdateResult, error) {
	return r.collection.UpdateOne(ctx, filter, bson.M{"$set": update})
}

// UpdateMany updates multiple documents matching the filter
func (r *Repository[T]) UpdateMany(ctx context.Context, filter bson.M, update bson.M) (*mongo.UpdateResult, error) {
	return r.collection.UpdateMany(ctx, filter, bson.M{"$set": update})
}

// DeleteMany deletes multiple documents matching the filter
func (r *Repository[T]) DeleteMany(ctx context.Context, filter bson.M) (*mongo.DeleteResult, error) {
	return r.collection.DeleteMany(ctx, filter)
}

// Count counts documents matching the filter
func (r *Repository[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	return r.collection.CountDocuments(ctx, filter)
}

// Sequence hands out monotonically increasing numeric ids from a counters
// collection ({_id: name, seq: n}).
type Sequence struct {
	collection *mongo.Collection
	name       string
}

func NewSequence(db *mongo.Database, collectionName string, name string) *Sequence {
	return &Sequence{collection: db.Collection(collectionName), name: name}
}

// Next atomically increments and returns the counter.
func (s *Sequence) Next(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": s.name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}
