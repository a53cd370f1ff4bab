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

type PaymentStore struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]model.Payment
}

func NewPaymentStore() *PaymentStore {
	return &PaymentStore{items: map[primitive.ObjectID]model.Payment{}}
}

func (s *PaymentStore) Create(_ context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, ok := s.items[p.ID]; ok {
		return duplicate("PaymentStore.Create")
	}
	s.items[p.ID] = *p
	return nil
}

func (s *PaymentStore) GetByID(_ context.Context, id primitive.ObjectID) (*model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	if !ok {
		return nil, notFound("PaymentStore.GetByID")
	}
	return &p, nil
}

func (s *PaymentStore) GetByTransactionID(_ context.Context, userID primitive.ObjectID, txID string) (*model.Payment, error) {
	return s.first("PaymentStore.GetByTransactionID", func(p model.Payment) bool {
		return p.UserID == userID && p.TransactionID == txID
	})
}

func (s *PaymentStore) GetByCheckoutRequestID(_ context.Context, checkoutID string) (*model.Payment, error) {
	return s.first("PaymentStore.GetByCheckoutRequestID", func(p model.Payment) bool {
		return p.CheckoutRequestID == checkoutID
	})
}

func (s *PaymentStore) LatestCompleted(_ context.Context, listingID primitive.ObjectID, t model.PaymentType) (*model.Payment, error) {
	return s.first("PaymentStore.LatestCompleted", func(p model.Payment) bool {
		return p.ListingID != nil && *p.ListingID == listingID && p.PaymentType == t && p.Status == model.PaymentCompleted
	})
}

func (s *PaymentStore) ListByUser(_ context.Context, userID primitive.ObjectID, limit int) ([]model.Payment, error) {
	out := s.filter(func(p model.Payment) bool { return p.UserID == userID })
	return limitOf(out, limit), nil
}

func (s *PaymentStore) CountCompletedSince(_ context.Context, userID primitive.ObjectID, since time.Time) (int64, error) {
	out := s.filter(func(p model.Payment) bool {
		return p.UserID == userID && p.Status == model.PaymentCompleted && !p.CreatedAt.Before(since)
	})
	return int64(len(out)), nil
}

// Resolve applies the terminal write only while the payment is pending.
func (s *PaymentStore) Resolve(_ context.Context, id primitive.ObjectID, res model.Resolution) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, notFound("PaymentStore.Resolve")
	}
	if p.Status != model.PaymentPending {
		return nil, fmt.Errorf("memory.PaymentStore.Resolve: %w", repository.ErrNotPending)
	}
	p.Status = res.Status
	p.ResolvedAt = timePtr(res.ResolvedAt)
	p.UpdatedAt = res.ResolvedAt
	if res.ResultDesc != "" {
		p.ResultDesc = res.ResultDesc
	}
	if res.ReceiptNumber != "" {
		p.ReceiptNumber = res.ReceiptNumber
	}
	if !res.TransactionDate.IsZero() {
		p.TransactionDate = timePtr(res.TransactionDate)
	}
	if res.Status != model.PaymentCompleted {
		p.EffectStatus = model.EffectSkipped
	}
	s.items[id] = p
	return &p, nil
}

func (s *PaymentStore) SetEffect(_ context.Context, id primitive.ObjectID, status model.EffectStatus, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return notFound("PaymentStore.SetEffect")
	}
	p.EffectStatus = status
	p.EffectError = msg
	p.UpdatedAt = time.Now()
	s.items[id] = p
	return nil
}

func (s *PaymentStore) PendingEffects(_ context.Context, limit int) ([]model.Payment, error) {
	out := s.filter(func(p model.Payment) bool {
		return p.Status == model.PaymentCompleted && p.EffectStatus == model.EffectPending
	})
	sort.SliceStable(out, func(i, j int) bool {
		return resolvedAt(out[i]).Before(resolvedAt(out[j]))
	})
	return limitOf(out, limit), nil
}

func resolvedAt(p model.Payment) time.Time {
	if p.ResolvedAt == nil {
		return time.Time{}
	}
	return *p.ResolvedAt
}

// filter returns matching payments newest first.
func (s *PaymentStore) filter(keep func(model.Payment) bool) []model.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Payment{}
	for _, p := range s.items {
		if keep(p) {
			out = append(out, p)
		}
	}
	newestFirst(out, func(p model.Payment) time.Time { return p.CreatedAt })
	return out
}

func (s *PaymentStore) first(op string, keep func(model.Payment) bool) (*model.Payment, error) {
	out := s.filter(keep)
	if len(out) == 0 {
		return nil, notFound(op)
	}
	return &out[0], nil
}
