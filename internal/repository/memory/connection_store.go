package memory

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/model"
)

type connKey struct {
	tenant, listing primitive.ObjectID
}

// ConnectionStore enforces one connection per (tenant, listing).
type ConnectionStore struct {
	mu    sync.RWMutex
	items map[connKey]model.Connection
}

func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{items: map[connKey]model.Connection{}}
}

func (s *ConnectionStore) Create(_ context.Context, c *model.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := connKey{c.TenantID, c.ListingID}
	if _, ok := s.items[key]; ok {
		return duplicate("ConnectionStore.Create")
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	s.items[key] = *c
	return nil
}

func (s *ConnectionStore) Get(_ context.Context, tenantID, listingID primitive.ObjectID) (*model.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[connKey{tenantID, listingID}]
	if !ok {
		return nil, notFound("ConnectionStore.Get")
	}
	return &c, nil
}

// Renew replaces the payment and validity of a connection still held by
// previousPayment.
func (s *ConnectionStore) Renew(_ context.Context, c *model.Connection, previousPayment primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := connKey{c.TenantID, c.ListingID}
	cur, ok := s.items[key]
	if !ok || cur.PaymentID != previousPayment {
		return notFound("ConnectionStore.Renew")
	}
	cur.PaymentID = c.PaymentID
	cur.Status = model.ConnectionActive
	cur.ContactUnlockedAt = c.ContactUnlockedAt
	cur.ExpiresAt = c.ExpiresAt
	s.items[key] = cur
	return nil
}

func (s *ConnectionStore) ListByTenant(_ context.Context, tenantID primitive.ObjectID) ([]model.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Connection{}
	for k, c := range s.items {
		if k.tenant == tenantID {
			out = append(out, c)
		}
	}
	newestFirst(out, func(c model.Connection) time.Time { return c.CreatedAt })
	return out, nil
}
