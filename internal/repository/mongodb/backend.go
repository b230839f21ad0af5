package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"salakbook/internal/repository"
)

// Backend is the durable document backend over MongoDB.
type Backend struct {
	client *mongo.Client
	dbName string
}

// New connects to MongoDB and verifies reachability with a ping. Callers
// treat a connection failure as "run on the fallback backend" rather than a
// fatal condition.
func New(ctx context.Context, uri string, dbName string) (*Backend, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Backend{client: client, dbName: dbName}, nil
}

// Name identifies this backend in logs and health output.
func (b *Backend) Name() string { return "mongodb" }

// Collection returns a handle bound to the named collection.
func (b *Backend) Collection(name string) repository.Collection {
	return &collection{coll: b.client.Database(b.dbName).Collection(name)}
}

// Close disconnects the underlying client.
func (b *Backend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

type collection struct {
	coll *mongo.Collection
}

func (c *collection) Query(ctx context.Context, filter repository.Document) ([]repository.Stored, error) {
	cursor, err := c.coll.Find(ctx, bson.M(filter))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var out []repository.Stored
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode document from %s: %w", c.coll.Name(), err)
		}

		stored := repository.Stored{Data: repository.Document(doc)}
		if oid, ok := doc["_id"].(primitive.ObjectID); ok {
			stored.ID = oid.Hex()
		}
		delete(doc, "_id")
		out = append(out, stored)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c.coll.Name(), err)
	}
	return out, nil
}

func (c *collection) Set(ctx context.Context, id string, doc repository.Document) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", id, err)
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := c.coll.ReplaceOne(ctx, bson.M{"_id": oid}, bson.M(doc), opts); err != nil {
		return fmt.Errorf("replace document in %s: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *collection) Add(ctx context.Context, doc repository.Document) (string, error) {
	res, err := c.coll.InsertOne(ctx, bson.M(doc))
	if err != nil {
		return "", fmt.Errorf("insert document into %s: %w", c.coll.Name(), err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", id, err)
	}

	if _, err := c.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete document from %s: %w", c.coll.Name(), err)
	}
	return nil
}
