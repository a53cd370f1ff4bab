package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jimmygitz3/final-project/internal/model"
	dbmongo "github.com/jimmygitz3/final-project/internal/mongo"
)

type PaymentRepository struct {
	coll *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{coll: db.Collection(dbmongo.Payments)}
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("PaymentRepository.Create: %w", translate(err))
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Payment, error) {
	return r.findOne(ctx, "GetByID", bson.M{"_id": id}, nil)
}

// GetByTransactionID finds one of the user's payments by its gateway id.
func (r *PaymentRepository) GetByTransactionID(ctx context.Context, userID primitive.ObjectID, txID string) (*model.Payment, error) {
	return r.findOne(ctx, "GetByTransactionID", bson.M{"user": userID, "mpesaTransactionId": txID}, nil)
}

func (r *PaymentRepository) GetByCheckoutRequestID(ctx context.Context, checkoutID string) (*model.Payment, error) {
	return r.findOne(ctx, "GetByCheckoutRequestID", bson.M{"checkoutRequestId": checkoutID}, nil)
}

// LatestCompleted returns the newest completed payment of a type for a listing.
func (r *PaymentRepository) LatestCompleted(ctx context.Context, listingID primitive.ObjectID, t model.PaymentType) (*model.Payment, error) {
	filter := bson.M{"listing": listingID, "paymentType": t, "status": model.PaymentCompleted}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.findOne(ctx, "LatestCompleted", filter, opts)
}

// ListByUser returns the user's payments newest first. limit <= 0 means all.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]model.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, "ListByUser", bson.M{"user": userID}, opts)
}

func (r *PaymentRepository) CountCompletedSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"user":      userID,
		"status":    model.PaymentCompleted,
		"createdAt": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("PaymentRepository.CountCompletedSince: %w", err)
	}
	return n, nil
}

// Resolve moves a pending payment to its terminal status. The filter on
// status makes the write happen at most once; a payment that is already
// terminal yields ErrNotPending.
func (r *PaymentRepository) Resolve(ctx context.Context, id primitive.ObjectID, res model.Resolution) (*model.Payment, error) {
	set := bson.M{
		"status":     res.Status,
		"resolvedAt": res.ResolvedAt,
		"updatedAt":  res.ResolvedAt,
	}
	if res.ResultDesc != "" {
		set["resultDesc"] = res.ResultDesc
	}
	if res.ReceiptNumber != "" {
		set["mpesaReceiptNumber"] = res.ReceiptNumber
	}
	if !res.TransactionDate.IsZero() {
		set["transactionDate"] = res.TransactionDate
	}
	if res.Status != model.PaymentCompleted {
		set["effectStatus"] = model.EffectSkipped
	}

	var p model.Payment
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": model.PaymentPending},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(translate(err), ErrNotFound) {
		return nil, fmt.Errorf("PaymentRepository.Resolve: %w", err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("PaymentRepository.Resolve: %w", ErrNotFound)
	}
	return nil, fmt.Errorf("PaymentRepository.Resolve: %w", ErrNotPending)
}

// SetEffect records the outcome of applying a completed payment.
func (r *PaymentRepository) SetEffect(ctx context.Context, id primitive.ObjectID, status model.EffectStatus, msg string) error {
	set := bson.M{"effectStatus": status, "updatedAt": time.Now()}
	update := bson.M{"$set": set}
	if msg != "" {
		set["effectError"] = msg
	} else {
		update["$unset"] = bson.M{"effectError": ""}
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("PaymentRepository.SetEffect: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("PaymentRepository.SetEffect: %w", ErrNotFound)
	}
	return nil
}

// PendingEffects lists completed payments whose effect was never recorded.
func (r *PaymentRepository) PendingEffects(ctx context.Context, limit int) ([]model.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "resolvedAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	filter := bson.M{"status": model.PaymentCompleted, "effectStatus": model.EffectPending}
	return r.find(ctx, "PendingEffects", filter, opts)
}

func (r *PaymentRepository) findOne(ctx context.Context, op string, filter interface{}, opts *options.FindOneOptions) (*model.Payment, error) {
	var p model.Payment
	var err error
	if opts != nil {
		err = r.coll.FindOne(ctx, filter, opts).Decode(&p)
	} else {
		err = r.coll.FindOne(ctx, filter).Decode(&p)
	}
	if err != nil {
		return nil, fmt.Errorf("PaymentRepository.%s: %w", op, translate(err))
	}
	return &p, nil
}

func (r *PaymentRepository) find(ctx context.Context, op string, filter interface{}, opts *options.FindOptions) ([]model.Payment, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("PaymentRepository.%s: %w", op, err)
	}
	payments := []model.Payment{}
	if err := cur.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("PaymentRepository.%s: %w", op, err)
	}
	return payments, nil
}
