package memory

import (
	"context"
	"math"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/model"
)

type ReviewStore struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]model.Review
}

func NewReviewStore() *ReviewStore {
	return &ReviewStore{items: map[primitive.ObjectID]model.Review{}}
}

// Create enforces one review per (listing, user).
func (s *ReviewStore) Create(_ context.Context, r *model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.ListingID == r.ListingID && existing.UserID == r.UserID {
			return duplicate("ReviewStore.Create")
		}
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	s.items[r.ID] = *r
	return nil
}

func (s *ReviewStore) GetByID(_ context.Context, id primitive.ObjectID) (*model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[id]
	if !ok {
		return nil, notFound("ReviewStore.GetByID")
	}
	return &r, nil
}

func (s *ReviewStore) ListByListing(_ context.Context, listingID primitive.ObjectID) ([]model.Review, error) {
	return s.filter(func(r model.Review) bool { return r.ListingID == listingID }), nil
}

func (s *ReviewStore) ListRecentForListings(_ context.Context, listingIDs []primitive.ObjectID, limit int) ([]model.Review, error) {
	set := make(map[primitive.ObjectID]bool, len(listingIDs))
	for _, id := range listingIDs {
		set[id] = true
	}
	out := s.filter(func(r model.Review) bool { return set[r.ListingID] })
	return limitOf(out, limit), nil
}

func (s *ReviewStore) IncrementHelpful(_ context.Context, id primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return 0, notFound("ReviewStore.IncrementHelpful")
	}
	r.HelpfulVotes++
	s.items[id] = r
	return r.HelpfulVotes, nil
}

func (s *ReviewStore) Summary(_ context.Context, listingID primitive.ObjectID) (model.RatingSummary, error) {
	summary := model.NewRatingSummary()
	var sum int64
	for _, r := range s.filter(func(r model.Review) bool { return r.ListingID == listingID }) {
		summary.RatingDistribution[r.Rating]++
		summary.TotalReviews++
		sum += int64(r.Rating)
	}
	if summary.TotalReviews > 0 {
		summary.AverageRating = round1(float64(sum) / float64(summary.TotalReviews))
	}
	return summary, nil
}

func (s *ReviewStore) Stats(_ context.Context) (model.ReviewStats, error) {
	var stats model.ReviewStats
	reviewers := map[primitive.ObjectID]bool{}
	var sum int64
	for _, r := range s.filter(func(model.Review) bool { return true }) {
		stats.TotalReviews++
		sum += int64(r.Rating)
		reviewers[r.UserID] = true
	}
	if stats.TotalReviews > 0 {
		stats.AverageRating = round1(float64(sum) / float64(stats.TotalReviews))
	}
	stats.HappyStudents = int64(len(reviewers))
	return stats, nil
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func (s *ReviewStore) filter(keep func(model.Review) bool) []model.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Review{}
	for _, r := range s.items {
		if keep(r) {
			out = append(out, r)
		}
	}
	newestFirst(out, func(r model.Review) time.Time { return r.CreatedAt })
	return out
}
