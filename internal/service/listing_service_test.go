package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/apperr"
	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/mpesa"
	"github.com/jimmygitz3/final-project/internal/repository"
)

func TestCreateListing(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)
	landlord := f.user(model.RoleLandlord, "landlord")
	tenant := f.user(model.RoleTenant, "tenant")

	l := f.listing(landlord, "  Bedsitter near KU ")
	assert.Equal(t, "Bedsitter near KU", l.Title)
	assert.False(t, l.IsActive)
	assert.Equal(t, model.ListingPaymentPending, l.PaymentStatus)
	assert.Equal(t, model.Available, l.AvailabilityStatus)
	assert.NotNil(t, l.Amenities)

	good := ListingInput{
		Title:        "Room",
		Price:        5000,
		Location:     model.Location{County: "Kiambu", Town: "Juja"},
		PropertyType: model.PropertySingleRoom,
	}
	_, err := f.listings.Create(f.ctx, tenant.ID, good)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	bad := good
	bad.Price = 0
	_, err = f.listings.Create(f.ctx, landlord.ID, bad)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	bad = good
	bad.PropertyType = "castle"
	_, err = f.listings.Create(f.ctx, landlord.ID, bad)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	bad = good
	bad.Location.Town = ""
	_, err = f.listings.Create(f.ctx, landlord.ID, bad)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateListingOwnerOnly(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)
	owner := f.user(model.RoleLandlord, "owner")
	other := f.user(model.RoleLandlord, "other")
	l := f.listing(owner, "Room")

	price := 9500.0
	updated, err := f.listings.Update(f.ctx, l.ID, owner.ID, ListingUpdate{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 9500.0, updated.Price)
	assert.Equal(t, "Room", updated.Title)

	_, err = f.listings.Update(f.ctx, l.ID, other.ID, ListingUpdate{Price: &price})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	zero := 0.0
	_, err = f.listings.Update(f.ctx, l.ID, owner.ID, ListingUpdate{Price: &zero})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestMarkUnavailableAndRestore(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)
	owner := f.user(model.RoleLandlord, "owner")
	other := f.user(model.RoleLandlord, "other")
	l := f.paidListing(owner, "Room")

	_, err := f.listings.MarkUnavailable(f.ctx, l.ID, other.ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	_, err = f.listings.RestoreAvailability(f.ctx, l.ID, owner.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	marked, err := f.listings.MarkUnavailable(f.ctx, l.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, marked.ScheduledDeletionAt)
	assert.Equal(t, epoch.Add(24*time.Hour), *marked.ScheduledDeletionAt)
	assert.Equal(t, epoch, *marked.MarkedUnavailableAt)

	_, err = f.listings.MarkUnavailable(f.ctx, l.ID, owner.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	results, err := f.listings.Search(f.ctx, model.ListingFilter{})
	require.NoError(t, err)
	assert.Empty(t, results)

	restored, err := f.listings.RestoreAvailability(f.ctx, l.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Available, restored.AvailabilityStatus)

	stored, err := f.st.Listings.GetByID(f.ctx, l.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.MarkedUnavailableAt)
	assert.Nil(t, stored.ScheduledDeletionAt)
}

func TestCleanupHonoursGracePeriod(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)
	owner := f.user(model.RoleLandlord, "owner")
	l := f.paidListing(owner, "Room")
	keep := f.paidListing(owner, "Still available")

	photoID, err := f.listings.AddPhoto(f.ctx, l.ID, owner.ID, "front.jpg", bytes.NewReader([]byte("jpeg")))
	require.NoError(t, err)
	_, err = f.listings.MarkUnavailable(f.ctx, l.ID, owner.ID)
	require.NoError(t, err)

	f.clock.advance(23 * time.Hour)
	manifest, err := f.listings.Cleanup(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, manifest.DeletedCount)
	assert.Empty(t, manifest.DeletedListings)

	f.clock.advance(2 * time.Hour)
	manifest, err = f.listings.Cleanup(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, manifest.DeletedCount)
	assert.Equal(t, l.ID, manifest.DeletedListings[0].ID)
	assert.Equal(t, "Room", manifest.DeletedListings[0].Title)
	assert.Equal(t, epoch, *manifest.DeletedListings[0].MarkedUnavailableAt)

	_, err = f.st.Listings.GetByID(f.ctx, l.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.st.Photos.Download(f.ctx, photoID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.st.Listings.GetByID(f.ctx, keep.ID)
	assert.NoError(t, err)
}

func TestRestoredListingSurvivesCleanup(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)
	owner := f.user(model.RoleLandlord, "owner")
	l := f.paidListing(owner, "Room")

	_, err := f.listings.MarkUnavailable(f.ctx, l.ID, owner.ID)
	require.NoError(t, err)
	f.clock.advance(20 * time.Hour)
	_, err = f.listings.RestoreAvailability(f.ctx, l.ID, owner.ID)
	require.NoError(t, err)

	f.clock.advance(10 * time.Hour)
	manifest, err := f.listings.Cleanup(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, manifest.DeletedCount)
}

func TestPendingDeletionWindow(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)
	owner := f.user(model.RoleLandlord, "owner")
	other := f.user(model.RoleLandlord, "other")
	soon := f.paidListing(owner, "Soon")
	later := f.paidListing(owner, "Later")
	foreign := f.paidListing(other, "Foreign")

	_, err := f.listings.MarkUnavailable(f.ctx, soon.ID, owner.ID)
	require.NoError(t, err)
	_, err = f.listings.MarkUnavailable(f.ctx, foreign.ID, other.ID)
	require.NoError(t, err)
	f.clock.advance(12 * time.Hour)
	_, err = f.listings.MarkUnavailable(f.ctx, later.ID, owner.ID)
	require.NoError(t, err)

	f.clock.advance(11*time.Hour + 30*time.Minute)
	pending, err := f.listings.PendingDeletion(f.ctx, owner.ID, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, soon.ID, pending[0].ID)

	pending, err = f.listings.PendingDeletion(f.ctx, owner.ID, 13*time.Hour)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	pending, err = f.listings.PendingDeletion(f.ctx, other.ID, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, foreign.ID, pending[0].ID)

	_, err = f.listings.PendingDeletion(f.ctx, owner.ID, DeletionGrace+time.Hour)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCleanupOwnedLeavesOtherLandlords(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)
	owner := f.user(model.RoleLandlord, "owner")
	other := f.user(model.RoleLandlord, "other")
	mine := f.paidListing(owner, "Mine")
	theirs := f.paidListing(other, "Theirs")
	_, err := f.listings.MarkUnavailable(f.ctx, mine.ID, owner.ID)
	require.NoError(t, err)
	_, err = f.listings.MarkUnavailable(f.ctx, theirs.ID, other.ID)
	require.NoError(t, err)
	f.clock.advance(DeletionGrace + time.Hour)

	manifest, err := f.listings.CleanupOwned(f.ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, 1, manifest.DeletedCount)
	assert.Equal(t, mine.ID, manifest.DeletedListings[0].ID)
	_, err = f.st.Listings.GetByID(f.ctx, theirs.ID)
	assert.NoError(t, err)

	manifest, err = f.listings.Cleanup(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.DeletedCount)
}

func TestSearchShowsOnlyLiveListings(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)
	owner := f.user(model.RoleLandlord, "owner")
	f.listing(owner, "Unpaid")
	live := f.paidListing(owner, "Live")
	f.clock.advance(time.Minute)
	newer := f.paidListing(owner, "Newer")

	results, err := f.listings.Search(f.ctx, model.ListingFilter{County: "nairobi"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, newer.ID, results[0].ID)
	assert.Equal(t, live.ID, results[1].ID)

	results, err = f.listings.Search(f.ctx, model.ListingFilter{County: "Mombasa"})
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = f.listings.Search(f.ctx, model.ListingFilter{PropertyType: "castle"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestGetRevealsContactOnlyWithAccess(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)
	owner := f.user(model.RoleLandlord, "owner")
	tenant := f.user(model.RoleTenant, "tenant")
	l := f.paidListing(owner, "Room")

	anon, err := f.listings.Get(f.ctx, l.ID, primitive.NilObjectID)
	require.NoError(t, err)
	assert.False(t, anon.ContactUnlocked)
	require.NotNil(t, anon.Landlord)
	assert.Equal(t, "owner", anon.Landlord.Name)
	assert.Empty(t, anon.Landlord.Phone)
	assert.Equal(t, int64(1), anon.Views)

	own, err := f.listings.Get(f.ctx, l.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, own.ContactUnlocked)
	assert.Equal(t, owner.Phone, own.Landlord.Phone)

	before, err := f.listings.Get(f.ctx, l.ID, tenant.ID)
	require.NoError(t, err)
	assert.False(t, before.ContactUnlocked)

	f.complete(f.initiate(tenant, model.PaymentConnectionFee, l).Payment)
	after, err := f.listings.Get(f.ctx, l.ID, tenant.ID)
	require.NoError(t, err)
	assert.True(t, after.ContactUnlocked)
	assert.Equal(t, owner.Email, after.Landlord.Email)
	assert.Equal(t, int64(4), after.Views)

	f.clock.advance(model.AccessPeriod + time.Minute)
	expired, err := f.listings.Get(f.ctx, l.ID, tenant.ID)
	require.NoError(t, err)
	assert.False(t, expired.ContactUnlocked)

	_, err = f.listings.Get(f.ctx, primitive.NewObjectID(), tenant.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAddPhotoLimit(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)
	owner := f.user(model.RoleLandlord, "owner")
	other := f.user(model.RoleLandlord, "other")
	l := f.listing(owner, "Room")

	_, err := f.listings.AddPhoto(f.ctx, l.ID, other.ID, "x.jpg", bytes.NewReader([]byte("x")))
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	var ids []string
	for i := 0; i < model.MaxListingImages; i++ {
		id, err := f.listings.AddPhoto(f.ctx, l.ID, owner.ID, "x.jpg", bytes.NewReader([]byte{byte(i)}))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err = f.listings.AddPhoto(f.ctx, l.ID, owner.ID, "x.jpg", bytes.NewReader([]byte("extra")))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, model.MaxListingImages, f.st.Photos.Len())

	data, err := f.listings.Photo(f.ctx, l.ID, ids[2])
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, data)

	_, err = f.listings.Photo(f.ctx, l.ID, "not-a-photo")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMyListings(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)
	owner := f.user(model.RoleLandlord, "owner")
	other := f.user(model.RoleLandlord, "other")
	f.listing(owner, "One")
	f.clock.advance(time.Minute)
	f.listing(owner, "Two")
	f.listing(other, "Theirs")

	mine, err := f.listings.MyListings(f.ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "Two", mine[0].Title)
}
