package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jimmygitz3/final-project/internal/model"
	dbmongo "github.com/jimmygitz3/final-project/internal/mongo"
)

type ConnectionRepository struct {
	coll *mongo.Collection
}

func NewConnectionRepository(db *mongo.Database) *ConnectionRepository {
	return &ConnectionRepository{coll: db.Collection(dbmongo.Connections)}
}

// Create inserts a connection. The (tenant, listing) unique index turns a
// second insert into ErrDuplicate.
func (r *ConnectionRepository) Create(ctx context.Context, c *model.Connection) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("ConnectionRepository.Create: %w", translate(err))
	}
	return nil
}

func (r *ConnectionRepository) Get(ctx context.Context, tenantID, listingID primitive.ObjectID) (*model.Connection, error) {
	var c model.Connection
	err := r.coll.FindOne(ctx, bson.M{"tenant": tenantID, "listing": listingID}).Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("ConnectionRepository.Get: %w", translate(err))
	}
	return &c, nil
}

// Renew moves an expired connection over to a new payment. It only matches
// while the row still carries previousPayment, so of two racing renewals one
// gets ErrNotFound.
func (r *ConnectionRepository) Renew(ctx context.Context, c *model.Connection, previousPayment primitive.ObjectID) error {
	filter := bson.M{"tenant": c.TenantID, "listing": c.ListingID, "payment": previousPayment}
	update := bson.M{"$set": bson.M{
		"payment":           c.PaymentID,
		"status":            model.ConnectionActive,
		"contactUnlockedAt": c.ContactUnlockedAt,
		"expiresAt":         c.ExpiresAt,
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("ConnectionRepository.Renew: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("ConnectionRepository.Renew: %w", ErrNotFound)
	}
	return nil
}

func (r *ConnectionRepository) ListByTenant(ctx context.Context, tenantID primitive.ObjectID) ([]model.Connection, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"tenant": tenantID}, opts)
	if err != nil {
		return nil, fmt.Errorf("ConnectionRepository.ListByTenant: %w", err)
	}
	conns := []model.Connection{}
	if err := cur.All(ctx, &conns); err != nil {
		return nil, fmt.Errorf("ConnectionRepository.ListByTenant: %w", err)
	}
	return conns, nil
}
