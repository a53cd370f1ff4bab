package service

import (
	"context"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/model"
)

// The stores below are satisfied by the Mongo repositories and by the
// in-memory ones in repository/memory. They report repository.ErrNotFound,
// repository.ErrDuplicate and repository.ErrNotPending.

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ActivateSubscription(ctx context.Context, id primitive.ObjectID, expiry time.Time) error
}

type ListingStore interface {
	Create(ctx context.Context, l *model.Listing) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Listing, error)
	Update(ctx context.Context, l *model.Listing) error
	IncrementViews(ctx context.Context, id primitive.ObjectID) (*model.Listing, error)
	Search(ctx context.Context, f model.ListingFilter) ([]model.Listing, error)
	ListByLandlord(ctx context.Context, landlord primitive.ObjectID, limit int) ([]model.Listing, error)
	CountByLandlordSince(ctx context.Context, landlord primitive.ObjectID, since time.Time) (int64, error)
	Activate(ctx context.Context, id primitive.ObjectID, expiry time.Time) error
	SetAvailability(ctx context.Context, id primitive.ObjectID, status model.Availability, markedAt, deleteAt *time.Time) error
	AddImage(ctx context.Context, id primitive.ObjectID, fileID string, max int) error
	DueForDeletion(ctx context.Context, before time.Time) ([]model.Listing, error)
	DeleteIfDue(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Payment, error)
	GetByTransactionID(ctx context.Context, userID primitive.ObjectID, txID string) (*model.Payment, error)
	GetByCheckoutRequestID(ctx context.Context, checkoutID string) (*model.Payment, error)
	LatestCompleted(ctx context.Context, listingID primitive.ObjectID, t model.PaymentType) (*model.Payment, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]model.Payment, error)
	CountCompletedSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error)
	Resolve(ctx context.Context, id primitive.ObjectID, res model.Resolution) (*model.Payment, error)
	SetEffect(ctx context.Context, id primitive.ObjectID, status model.EffectStatus, msg string) error
	PendingEffects(ctx context.Context, limit int) ([]model.Payment, error)
}

type ConnectionStore interface {
	Create(ctx context.Context, c *model.Connection) error
	Get(ctx context.Context, tenantID, listingID primitive.ObjectID) (*model.Connection, error)
	Renew(ctx context.Context, c *model.Connection, previousPayment primitive.ObjectID) error
	ListByTenant(ctx context.Context, tenantID primitive.ObjectID) ([]model.Connection, error)
}

type ReviewStore interface {
	Create(ctx context.Context, r *model.Review) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Review, error)
	ListByListing(ctx context.Context, listingID primitive.ObjectID) ([]model.Review, error)
	ListRecentForListings(ctx context.Context, listingIDs []primitive.ObjectID, limit int) ([]model.Review, error)
	IncrementHelpful(ctx context.Context, id primitive.ObjectID) (int64, error)
	Summary(ctx context.Context, listingID primitive.ObjectID) (model.RatingSummary, error)
	Stats(ctx context.Context) (model.ReviewStats, error)
}

type PhotoStore interface {
	Upload(ctx context.Context, filename string, src io.Reader) (string, error)
	Download(ctx context.Context, photoID string) ([]byte, error)
	Delete(ctx context.Context, photoID string) error
}

// CallbackJournal records raw gateway callbacks. Optional.
type CallbackJournal interface {
	Record(ctx context.Context, e *model.CallbackEntry) error
}

// Notifier tells a payer that a payment went through. Optional.
type Notifier interface {
	PaymentCompleted(ctx context.Context, u *model.User, p *model.Payment) error
}
