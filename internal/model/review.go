package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MaxReviewComment = 500

// Review represents a user’s review of a listing. One per (user, listing).
type Review struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ListingID    primitive.ObjectID `bson:"listing" json:"listingId"`
	UserID       primitive.ObjectID `bson:"user" json:"userId"`
	Rating       int                `bson:"rating" json:"rating"`
	Comment      string             `bson:"comment" json:"comment"`
	IsVerified   bool               `bson:"isVerified" json:"isVerified"`
	HelpfulVotes int64              `bson:"helpfulVotes" json:"helpfulVotes"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

type RatingSummary struct {
	AverageRating      float64       `json:"averageRating"`
	TotalReviews       int64         `json:"totalReviews"`
	RatingDistribution map[int]int64 `json:"ratingDistribution"`
}

type ReviewStats struct {
	TotalReviews  int64   `json:"totalReviews"`
	AverageRating float64 `json:"averageRating"`
	HappyStudents int64   `json:"happyStudents"`
}

// NewRatingSummary returns an empty summary with all five buckets present.
func NewRatingSummary() RatingSummary {
	return RatingSummary{RatingDistribution: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
}
