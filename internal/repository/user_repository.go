package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jimmygitz3/final-project/internal/model"
	dbmongo "github.com/jimmygitz3/final-project/internal/mongo"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(dbmongo.Users)}
}

// Create inserts a user. E-mails are stored lower-cased and are unique.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = strings.ToLower(u.Email)
	if _, err := r.coll.InsertOne(ctx, u); err != nil {
		return fmt.Errorf("UserRepository.Create: %w", translate(err))
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	var u model.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, fmt.Errorf("UserRepository.GetByID: %w", translate(err))
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.coll.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&u); err != nil {
		return nil, fmt.Errorf("UserRepository.GetByEmail: %w", translate(err))
	}
	return &u, nil
}

func (r *UserRepository) ActivateSubscription(ctx context.Context, id primitive.ObjectID, expiry time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"subscriptionStatus": model.SubscriptionActive,
		"subscriptionExpiry": expiry,
	}})
	if err != nil {
		return fmt.Errorf("UserRepository.ActivateSubscription: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("UserRepository.ActivateSubscription: %w", ErrNotFound)
	}
	return nil
}
