package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/apperr"
	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/repository"
)

// ReviewService contains business logic for reviews.
type ReviewService struct {
	reviewRepo  ReviewStore
	listingRepo ListingStore
	connections ConnectionStore
	now         func() time.Time
}

// NewReviewService constructs a ReviewService with its required stores.
func NewReviewService(rr ReviewStore, lr ListingStore, cr ConnectionStore) *ReviewService {
	return &ReviewService{
		reviewRepo:  rr,
		listingRepo: lr,
		connections: cr,
		now:         time.Now,
	}
}

type ReviewInput struct {
	ListingID string `json:"listingId" binding:"required,objectid"`
	Rating    int    `json:"rating" binding:"required"`
	Comment   string `json:"comment" binding:"required"`
}

// CreateReview checks that the listing exists and stores the user's review.
// A review is verified when the user has paid to connect to the listing.
func (s *ReviewService) CreateReview(ctx context.Context, userID primitive.ObjectID, in ReviewInput) (*model.Review, error) {
	listingID, err := primitive.ObjectIDFromHex(in.ListingID)
	if err != nil {
		return nil, apperr.Validation("Invalid listing ID")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.Validation("Rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(in.Comment)
	if comment == "" {
		return nil, apperr.Validation("Comment is required")
	}
	if utf8.RuneCountInString(comment) > model.MaxReviewComment {
		return nil, apperr.Validation("Comment must be at most %d characters", model.MaxReviewComment)
	}

	if _, err := s.listingRepo.GetByID(ctx, listingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Listing not found")
		}
		return nil, fmt.Errorf("ReviewService.CreateReview: checking listing exists: %w", err)
	}

	rev := &model.Review{
		ListingID: listingID,
		UserID:    userID,
		Rating:    in.Rating,
		Comment:   comment,
		CreatedAt: s.now(),
	}
	if _, err := s.connections.Get(ctx, userID, listingID); err == nil {
		rev.IsVerified = true
	}

	if err := s.reviewRepo.Create(ctx, rev); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict(nil, "You have already reviewed this listing")
		}
		return nil, fmt.Errorf("ReviewService.CreateReview: insert: %w", err)
	}
	return rev, nil
}

// GetReviews fetches all reviews for the listing, newest first.
func (s *ReviewService) GetReviews(ctx context.Context, listingID primitive.ObjectID) ([]model.Review, error) {
	reviews, err := s.reviewRepo.ListByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("ReviewService.GetReviews: %w", err)
	}
	return reviews, nil
}

func (s *ReviewService) Summary(ctx context.Context, listingID primitive.ObjectID) (model.RatingSummary, error) {
	summary, err := s.reviewRepo.Summary(ctx, listingID)
	if err != nil {
		return summary, fmt.Errorf("ReviewService.Summary: %w", err)
	}
	return summary, nil
}

func (s *ReviewService) Stats(ctx context.Context) (model.ReviewStats, error) {
	stats, err := s.reviewRepo.Stats(ctx)
	if err != nil {
		return stats, fmt.Errorf("ReviewService.Stats: %w", err)
	}
	return stats, nil
}

// MarkHelpful adds one helpful vote. Votes are not tracked per user.
func (s *ReviewService) MarkHelpful(ctx context.Context, reviewID primitive.ObjectID) (int64, error) {
	n, err := s.reviewRepo.IncrementHelpful(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperr.NotFound("Review not found")
		}
		return 0, fmt.Errorf("ReviewService.MarkHelpful: %w", err)
	}
	return n, nil
}
