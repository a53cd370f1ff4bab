package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/repository"
)

// ConnectionService answers whether a tenant has paid to see a landlord's
// contact details.
type ConnectionService struct {
	connections ConnectionStore
	listings    ListingStore
	users       UserStore
	payments    PaymentStore
	now         func() time.Time
}

func NewConnectionService(cs ConnectionStore, ls ListingStore, us UserStore, ps PaymentStore) *ConnectionService {
	return &ConnectionService{connections: cs, listings: ls, users: us, payments: ps, now: time.Now}
}

// CheckAccess evaluates the connection at read time. Expired connections are
// reported as no access but never rewritten.
func (s *ConnectionService) CheckAccess(ctx context.Context, tenantID, listingID primitive.ObjectID) (*model.AccessCheck, error) {
	c, err := s.connections.Get(ctx, tenantID, listingID)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.AccessCheck{HasAccess: false, Message: "No connection to this listing"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ConnectionService.CheckAccess: %w", err)
	}
	if !c.Grants(s.now()) {
		return &model.AccessCheck{HasAccess: false, Connection: c, ExpiresAt: &c.ExpiresAt, Message: "Connection expired"}, nil
	}
	return &model.AccessCheck{
		HasAccess:   true,
		Connection:  c,
		PaymentDate: &c.ContactUnlockedAt,
		ExpiresAt:   &c.ExpiresAt,
	}, nil
}

// ListForTenant returns the tenant's connections, newest first, with the
// listing, landlord and payment they refer to.
func (s *ConnectionService) ListForTenant(ctx context.Context, tenantID primitive.ObjectID) ([]model.ConnectionView, error) {
	conns, err := s.connections.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("ConnectionService.ListForTenant: %w", err)
	}
	views := make([]model.ConnectionView, 0, len(conns))
	for _, c := range conns {
		v := model.ConnectionView{Connection: c}
		if l, err := s.listings.GetByID(ctx, c.ListingID); err == nil {
			v.Listing = &model.ListingSummary{ID: l.ID, Title: l.Title, Location: l.Location, Price: l.Price}
		}
		if u, err := s.users.GetByID(ctx, c.LandlordID); err == nil {
			contact := u.Contact()
			v.Landlord = &contact
		}
		if p, err := s.payments.GetByID(ctx, c.PaymentID); err == nil {
			v.Payment = &model.PaymentSummary{ID: p.ID, Amount: p.Amount, CreatedAt: p.CreatedAt}
		}
		views = append(views, v)
	}
	return views, nil
}

// CanSeeContact reports whether viewer may see the landlord's phone and
// e-mail on a listing.
func (s *ConnectionService) CanSeeContact(ctx context.Context, viewer primitive.ObjectID, l *model.Listing) bool {
	if viewer.IsZero() {
		return false
	}
	if viewer == l.LandlordID {
		return true
	}
	access, err := s.CheckAccess(ctx, viewer, l.ID)
	return err == nil && access.HasAccess
}
