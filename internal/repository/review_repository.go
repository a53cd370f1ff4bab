package repository

import (
	"context"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jimmygitz3/final-project/internal/model"
	dbmongo "github.com/jimmygitz3/final-project/internal/mongo"
)

type ReviewRepository struct {
	coll *mongo.Collection
}

func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{coll: db.Collection(dbmongo.Reviews)}
}

// Create saves a new review. A second review by the same user on the same
// listing hits the unique index and comes back as ErrDuplicate.
func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, review); err != nil {
		return fmt.Errorf("ReviewRepository.Create: %w", translate(err))
	}
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Review, error) {
	var rev model.Review
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rev); err != nil {
		return nil, fmt.Errorf("ReviewRepository.GetByID: %w", translate(err))
	}
	return &rev, nil
}

// ListByListing returns all reviews for a listing, newest first.
func (r *ReviewRepository) ListByListing(ctx context.Context, listingID primitive.ObjectID) ([]model.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, "ListByListing", bson.M{"listing": listingID}, opts)
}

// ListRecentForListings returns the newest reviews left on any of the listings.
func (r *ReviewRepository) ListRecentForListings(ctx context.Context, listingIDs []primitive.ObjectID, limit int) ([]model.Review, error) {
	if len(listingIDs) == 0 {
		return []model.Review{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, "ListRecentForListings", bson.M{"listing": bson.M{"$in": listingIDs}}, opts)
}

// IncrementHelpful bumps the helpful counter and returns the new value.
func (r *ReviewRepository) IncrementHelpful(ctx context.Context, id primitive.ObjectID) (int64, error) {
	var rev model.Review
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$inc": bson.M{"helpfulVotes": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rev)
	if err != nil {
		return 0, fmt.Errorf("ReviewRepository.IncrementHelpful: %w", translate(err))
	}
	return rev.HelpfulVotes, nil
}

// Summary aggregates the rating distribution of one listing.
func (r *ReviewRepository) Summary(ctx context.Context, listingID primitive.ObjectID) (model.RatingSummary, error) {
	summary := model.NewRatingSummary()
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"listing": listingID}}},
		{{Key: "$group", Value: bson.M{"_id": "$rating", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return summary, fmt.Errorf("ReviewRepository.Summary: %w", err)
	}
	var buckets []struct {
		Rating int   `bson:"_id"`
		Count  int64 `bson:"count"`
	}
	if err := cur.All(ctx, &buckets); err != nil {
		return summary, fmt.Errorf("ReviewRepository.Summary: %w", err)
	}

	var sum int64
	for _, b := range buckets {
		summary.RatingDistribution[b.Rating] = b.Count
		summary.TotalReviews += b.Count
		sum += int64(b.Rating) * b.Count
	}
	if summary.TotalReviews > 0 {
		summary.AverageRating = roundRating(float64(sum) / float64(summary.TotalReviews))
	}
	return summary, nil
}

// Stats aggregates platform-wide review figures.
func (r *ReviewRepository) Stats(ctx context.Context) (model.ReviewStats, error) {
	var stats model.ReviewStats
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"total":     bson.M{"$sum": 1},
			"average":   bson.M{"$avg": "$rating"},
			"reviewers": bson.M{"$addToSet": "$user"},
		}}},
		{{Key: "$project", Value: bson.M{
			"total":     1,
			"average":   1,
			"reviewers": bson.M{"$size": "$reviewers"},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, fmt.Errorf("ReviewRepository.Stats: %w", err)
	}
	var rows []struct {
		Total     int64   `bson:"total"`
		Average   float64 `bson:"average"`
		Reviewers int64   `bson:"reviewers"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return stats, fmt.Errorf("ReviewRepository.Stats: %w", err)
	}
	if len(rows) > 0 {
		stats.TotalReviews = rows[0].Total
		stats.AverageRating = roundRating(rows[0].Average)
		stats.HappyStudents = rows[0].Reviewers
	}
	return stats, nil
}

// roundRating keeps one decimal place.
func roundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

func (r *ReviewRepository) find(ctx context.Context, op string, filter interface{}, opts *options.FindOptions) ([]model.Review, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("ReviewRepository.%s: %w", op, err)
	}
	reviews := []model.Review{}
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("ReviewRepository.%s: %w", op, err)
	}
	return reviews, nil
}
