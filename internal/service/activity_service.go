package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/model"
)

const (
	feedSize         = 10
	viewMilestone    = 100
	activityWindow   = 30 * 24 * time.Hour
	recentPerSection = 5
	recentReviews    = 3
)

// ActivityService builds a user's dashboard feed out of their listings,
// payments and the reviews left on their listings.
type ActivityService struct {
	listings ListingStore
	payments PaymentStore
	reviews  ReviewStore
	users    UserStore
	now      func() time.Time
}

func NewActivityService(ls ListingStore, ps PaymentStore, rs ReviewStore, us UserStore) *ActivityService {
	return &ActivityService{listings: ls, payments: ps, reviews: rs, users: us, now: time.Now}
}

func (s *ActivityService) Feed(ctx context.Context, userID primitive.ObjectID) ([]model.Activity, error) {
	activities := []model.Activity{}

	listings, err := s.listings.ListByLandlord(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("ActivityService.Feed: %w", err)
	}
	recent := listings
	if len(recent) > recentPerSection {
		recent = recent[:recentPerSection]
	}
	titles := make(map[primitive.ObjectID]string, len(recent))
	ids := make([]primitive.ObjectID, 0, len(recent))
	for _, l := range recent {
		titles[l.ID] = l.Title
		ids = append(ids, l.ID)
		activities = append(activities, model.Activity{
			Type:        "listing_created",
			Title:       "New property listing created",
			Description: "Created listing: " + l.Title,
			Date:        l.CreatedAt,
			Icon:        "home",
			Color:       "primary",
		})
	}

	payments, err := s.payments.ListByUser(ctx, userID, recentPerSection)
	if err != nil {
		return nil, fmt.Errorf("ActivityService.Feed: %w", err)
	}
	for _, p := range payments {
		a := model.Activity{
			Type:        "payment",
			Title:       "Payment initiated",
			Description: fmt.Sprintf("%s - KES %s", p.Description, strconv.FormatFloat(p.Amount, 'f', -1, 64)),
			Date:        p.CreatedAt,
			Icon:        "payment",
			Color:       "warning",
		}
		if p.Status == model.PaymentCompleted {
			a.Title = "Payment received"
			a.Color = "success"
		}
		activities = append(activities, a)
	}

	if len(ids) > 0 {
		reviews, err := s.reviews.ListRecentForListings(ctx, ids, recentReviews)
		if err != nil {
			return nil, fmt.Errorf("ActivityService.Feed: %w", err)
		}
		for _, r := range reviews {
			name := "Someone"
			if u, err := s.users.GetByID(ctx, r.UserID); err == nil {
				name = u.Name
			}
			activities = append(activities, model.Activity{
				Type:        "review_received",
				Title:       "New review received",
				Description: fmt.Sprintf("%s rated %s - %d stars", name, titles[r.ListingID], r.Rating),
				Date:        r.CreatedAt,
				Icon:        "star",
				Color:       "info",
			})
		}
	}

	if views := totalViews(listings); views >= viewMilestone {
		activities = append(activities, model.Activity{
			Type:        "milestone",
			Title:       "Milestone reached!",
			Description: fmt.Sprintf("Your properties have received %d total views", views),
			Date:        s.now(),
			Icon:        "visibility",
			Color:       "secondary",
		})
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Date.After(activities[j].Date)
	})
	if len(activities) > feedSize {
		activities = activities[:feedSize]
	}
	return activities, nil
}

func (s *ActivityService) Stats(ctx context.Context, userID primitive.ObjectID) (*model.ActivityStats, error) {
	since := s.now().Add(-activityWindow)
	recentListings, err := s.listings.CountByLandlordSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("ActivityService.Stats: %w", err)
	}
	recentPayments, err := s.payments.CountCompletedSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("ActivityService.Stats: %w", err)
	}
	listings, err := s.listings.ListByLandlord(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("ActivityService.Stats: %w", err)
	}
	return &model.ActivityStats{
		RecentListings: recentListings,
		RecentPayments: recentPayments,
		TotalViews:     totalViews(listings),
		Period:         "30 days",
	}, nil
}

func totalViews(listings []model.Listing) int64 {
	var n int64
	for _, l := range listings {
		n += l.Views
	}
	return n
}
