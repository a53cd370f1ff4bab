package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/repository"
)

type ListingStore struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]model.Listing
}

func NewListingStore() *ListingStore {
	return &ListingStore{items: map[primitive.ObjectID]model.Listing{}}
}

func (s *ListingStore) Create(_ context.Context, l *model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	if _, ok := s.items[l.ID]; ok {
		return duplicate("ListingStore.Create")
	}
	s.items[l.ID] = cloneListing(*l)
	return nil
}

func (s *ListingStore) GetByID(_ context.Context, id primitive.ObjectID) (*model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.items[id]
	if !ok {
		return nil, notFound("ListingStore.GetByID")
	}
	c := cloneListing(l)
	return &c, nil
}

func (s *ListingStore) Update(_ context.Context, l *model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[l.ID]
	if !ok {
		return notFound("ListingStore.Update")
	}
	cur.Title = l.Title
	cur.Description = l.Description
	cur.Price = l.Price
	cur.Location = l.Location
	cur.PropertyType = l.PropertyType
	cur.Amenities = append([]string{}, l.Amenities...)
	cur.Images = append([]string{}, l.Images...)
	cur.NearbyUniversities = append([]model.NearbyUniversity{}, l.NearbyUniversities...)
	cur.UpdatedAt = l.UpdatedAt
	s.items[l.ID] = cur
	return nil
}

func (s *ListingStore) IncrementViews(_ context.Context, id primitive.ObjectID) (*model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.items[id]
	if !ok {
		return nil, notFound("ListingStore.IncrementViews")
	}
	l.Views++
	s.items[id] = l
	c := cloneListing(l)
	return &c, nil
}

func (s *ListingStore) Search(_ context.Context, f model.ListingFilter) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Listing{}
	for _, l := range s.items {
		if !matches(l, f) {
			continue
		}
		out = append(out, cloneListing(l))
	}
	newestFirst(out, func(l model.Listing) time.Time { return l.CreatedAt })
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []model.Listing{}, nil
		}
		out = out[f.Offset:]
	}
	return limitOf(out, f.Limit), nil
}

func matches(l model.Listing, f model.ListingFilter) bool {
	if !l.Searchable() {
		return false
	}
	if f.County != "" && !containsFold(l.Location.County, f.County) {
		return false
	}
	if f.Town != "" && !containsFold(l.Location.Town, f.Town) {
		return false
	}
	if f.PropertyType != "" && l.PropertyType != f.PropertyType {
		return false
	}
	if f.MinPrice != nil && l.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && l.Price > *f.MaxPrice {
		return false
	}
	if f.University != "" {
		found := false
		for _, u := range l.NearbyUniversities {
			if containsFold(u.Name, f.University) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *ListingStore) ListByLandlord(_ context.Context, landlord primitive.ObjectID, limit int) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Listing{}
	for _, l := range s.items {
		if l.LandlordID == landlord {
			out = append(out, cloneListing(l))
		}
	}
	newestFirst(out, func(l model.Listing) time.Time { return l.CreatedAt })
	return limitOf(out, limit), nil
}

func (s *ListingStore) CountByLandlordSince(_ context.Context, landlord primitive.ObjectID, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, l := range s.items {
		if l.LandlordID == landlord && !l.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *ListingStore) Activate(_ context.Context, id primitive.ObjectID, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.items[id]
	if !ok {
		return notFound("ListingStore.Activate")
	}
	l.IsActive = true
	l.PaymentStatus = model.ListingPaymentPaid
	l.PaymentExpiry = timePtr(expiry)
	l.UpdatedAt = time.Now()
	s.items[id] = l
	return nil
}

func (s *ListingStore) SetAvailability(_ context.Context, id primitive.ObjectID, status model.Availability, markedAt, deleteAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.items[id]
	if !ok {
		return notFound("ListingStore.SetAvailability")
	}
	l.AvailabilityStatus = status
	l.MarkedUnavailableAt = nil
	l.ScheduledDeletionAt = nil
	if markedAt != nil {
		l.MarkedUnavailableAt = timePtr(*markedAt)
	}
	if deleteAt != nil {
		l.ScheduledDeletionAt = timePtr(*deleteAt)
	}
	l.UpdatedAt = time.Now()
	s.items[id] = l
	return nil
}

func (s *ListingStore) AddImage(_ context.Context, id primitive.ObjectID, fileID string, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.items[id]
	if !ok || len(l.Images) >= max {
		return fmt.Errorf("memory.ListingStore.AddImage: %w", repository.ErrLimit)
	}
	l.Images = append(append([]string{}, l.Images...), fileID)
	l.UpdatedAt = time.Now()
	s.items[id] = l
	return nil
}

func (s *ListingStore) DueForDeletion(_ context.Context, before time.Time) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Listing{}
	for _, l := range s.items {
		if due(l, before) {
			out = append(out, cloneListing(l))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledDeletionAt.Before(*out[j].ScheduledDeletionAt)
	})
	return out, nil
}

func (s *ListingStore) DeleteIfDue(_ context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.items[id]
	if !ok || !due(l, now) {
		return false, nil
	}
	delete(s.items, id)
	return true, nil
}

func due(l model.Listing, t time.Time) bool {
	return l.AvailabilityStatus == model.NotAvailable &&
		l.ScheduledDeletionAt != nil && !l.ScheduledDeletionAt.After(t)
}

func cloneListing(l model.Listing) model.Listing {
	l.Amenities = append([]string{}, l.Amenities...)
	l.Images = append([]string{}, l.Images...)
	l.NearbyUniversities = append([]model.NearbyUniversity{}, l.NearbyUniversities...)
	return l
}
