package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists values as {_id: key, value, updatedAt} documents
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// ConnectMongo connects to uri and verifies the connection within timeout
func ConnectMongo(ctx context.Context, uri, database, collection string, timeout time.Duration) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging mongo: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, key string) (string, bool, error) {
	var doc kvDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error reading key %s: %w", key, err)
	}
	return doc.Value, true, nil
}

func (s *MongoStore) Set(ctx context.Context, key, value string) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value, "updatedAt": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("error writing key %s: %w", key, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
