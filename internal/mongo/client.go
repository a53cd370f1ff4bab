package mongo

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	Users       = "users"
	Listings    = "listings"
	Payments    = "payments"
	Connections = "connections"
	Reviews     = "reviews"
)

func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	log.Println("✅ Connected to MongoDB")
	return client, nil
}

// EnsureIndexes creates the indexes the services rely on. The unique ones
// are what turns a duplicate connection, review or account into
// mongo.IsDuplicateKeyError.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		Users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		Connections: {
			{Keys: bson.D{{Key: "tenant", Value: 1}, {Key: "listing", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "tenant", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		Reviews: {
			{Keys: bson.D{{Key: "listing", Value: 1}, {Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		Payments: {
			{Keys: bson.D{{Key: "mpesaTransactionId", Value: 1}}},
			{Keys: bson.D{{Key: "checkoutRequestId", Value: 1}}},
			{Keys: bson.D{{Key: "listing", Value: 1}, {Key: "paymentType", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "effectStatus", Value: 1}}},
		},
		Listings: {
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "paymentStatus", Value: 1}, {Key: "availabilityStatus", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "availabilityStatus", Value: 1}, {Key: "scheduledDeletionAt", Value: 1}}},
			{Keys: bson.D{{Key: "landlord", Value: 1}}},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
