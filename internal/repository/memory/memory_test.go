package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/repository"
)

func TestConnectionUniquePerTenantAndListing(t *testing.T) {
	ctx := context.Background()
	s := NewConnectionStore()
	tenant, listing := primitive.NewObjectID(), primitive.NewObjectID()

	require.NoError(t, s.Create(ctx, &model.Connection{TenantID: tenant, ListingID: listing}))
	err := s.Create(ctx, &model.Connection{TenantID: tenant, ListingID: listing})
	assert.True(t, errors.Is(err, repository.ErrDuplicate))

	require.NoError(t, s.Create(ctx, &model.Connection{TenantID: tenant, ListingID: primitive.NewObjectID()}))
	conns, err := s.ListByTenant(ctx, tenant)
	require.NoError(t, err)
	assert.Len(t, conns, 2)
}

func TestConnectionRenewNeedsPreviousPayment(t *testing.T) {
	ctx := context.Background()
	s := NewConnectionStore()
	tenant, listing := primitive.NewObjectID(), primitive.NewObjectID()
	first, second := primitive.NewObjectID(), primitive.NewObjectID()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Create(ctx, &model.Connection{
		TenantID: tenant, ListingID: listing, PaymentID: first,
		Status: model.ConnectionActive, ExpiresAt: start, CreatedAt: start,
	}))

	renewed := &model.Connection{TenantID: tenant, ListingID: listing, PaymentID: second, ExpiresAt: start.Add(model.AccessPeriod)}
	require.NoError(t, s.Renew(ctx, renewed, first))
	got, err := s.Get(ctx, tenant, listing)
	require.NoError(t, err)
	assert.Equal(t, second, got.PaymentID)
	assert.Equal(t, start.Add(model.AccessPeriod), got.ExpiresAt)
	assert.Equal(t, start, got.CreatedAt)

	err = s.Renew(ctx, &model.Connection{TenantID: tenant, ListingID: listing, PaymentID: primitive.NewObjectID()}, first)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestReviewUniquePerUserAndListing(t *testing.T) {
	ctx := context.Background()
	s := NewReviewStore()
	user, listing := primitive.NewObjectID(), primitive.NewObjectID()

	require.NoError(t, s.Create(ctx, &model.Review{UserID: user, ListingID: listing, Rating: 4}))
	err := s.Create(ctx, &model.Review{UserID: user, ListingID: listing, Rating: 2})
	assert.True(t, errors.Is(err, repository.ErrDuplicate))
}

func TestUserEmailUniqueCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	require.NoError(t, s.Create(ctx, &model.User{Email: "Jane@Example.com"}))
	err := s.Create(ctx, &model.User{Email: "jane@example.com"})
	assert.True(t, errors.Is(err, repository.ErrDuplicate))

	u, err := s.GetByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
}

func TestPaymentResolveOnlyFromPending(t *testing.T) {
	ctx := context.Background()
	s := NewPaymentStore()
	p := &model.Payment{Status: model.PaymentPending, EffectStatus: model.EffectPending}
	require.NoError(t, s.Create(ctx, p))

	now := time.Now()
	got, err := s.Resolve(ctx, p.ID, model.Resolution{Status: model.PaymentFailed, ResultDesc: "insufficient funds", ResolvedAt: now})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, got.Status)
	assert.Equal(t, model.EffectSkipped, got.EffectStatus)

	_, err = s.Resolve(ctx, p.ID, model.Resolution{Status: model.PaymentCompleted, ResolvedAt: now})
	assert.True(t, errors.Is(err, repository.ErrNotPending))

	stored, err := s.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, stored.Status)

	_, err = s.Resolve(ctx, primitive.NewObjectID(), model.Resolution{Status: model.PaymentCompleted})
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestDeleteIfDueRechecksPredicate(t *testing.T) {
	ctx := context.Background()
	s := NewListingStore()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := &model.Listing{AvailabilityStatus: model.Available}
	require.NoError(t, s.Create(ctx, l))

	deleteAt := t0.Add(24 * time.Hour)
	require.NoError(t, s.SetAvailability(ctx, l.ID, model.NotAvailable, &t0, &deleteAt))

	pending, err := s.DueForDeletion(ctx, t0.Add(25*time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// restored between selection and deletion
	require.NoError(t, s.SetAvailability(ctx, l.ID, model.Available, nil, nil))
	deleted, err := s.DeleteIfDue(ctx, l.ID, t0.Add(25*time.Hour))
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = s.GetByID(ctx, l.ID)
	assert.NoError(t, err)
}

func TestAddImageLimit(t *testing.T) {
	ctx := context.Background()
	s := NewListingStore()
	l := &model.Listing{}
	require.NoError(t, s.Create(ctx, l))
	for i := 0; i < model.MaxListingImages; i++ {
		require.NoError(t, s.AddImage(ctx, l.ID, primitive.NewObjectID().Hex(), model.MaxListingImages))
	}
	err := s.AddImage(ctx, l.ID, "one-too-many", model.MaxListingImages)
	assert.True(t, errors.Is(err, repository.ErrLimit))
}

func TestSearchFilters(t *testing.T) {
	ctx := context.Background()
	s := NewListingStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(title, town string, price float64, offset time.Duration, visible bool) {
		l := &model.Listing{
			Title: title, Price: price, Location: model.Location{County: "Nairobi", Town: town},
			PropertyType: model.PropertyBedsitter, AvailabilityStatus: model.Available,
			PaymentStatus: model.ListingPaymentPending, CreatedAt: base.Add(offset),
			NearbyUniversities: []model.NearbyUniversity{{Name: "University of Nairobi"}},
		}
		if visible {
			l.IsActive = true
			l.PaymentStatus = model.ListingPaymentPaid
		}
		require.NoError(t, s.Create(ctx, l))
	}
	mk("a", "Westlands", 8000, time.Hour, true)
	mk("b", "Kilimani", 12000, 2*time.Hour, true)
	mk("c", "Westlands", 9000, 3*time.Hour, false)

	all, err := s.Search(ctx, model.ListingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].Title)

	ceiling := 10000.0
	cheap, err := s.Search(ctx, model.ListingFilter{Town: "westl", MaxPrice: &ceiling, University: "nairobi"})
	require.NoError(t, err)
	require.Len(t, cheap, 1)
	assert.Equal(t, "a", cheap[0].Title)
}
