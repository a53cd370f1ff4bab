package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/model"
)

type UserStore struct {
	mu      sync.RWMutex
	items   map[primitive.ObjectID]model.User
	byEmail map[string]primitive.ObjectID
}

func NewUserStore() *UserStore {
	return &UserStore{
		items:   map[primitive.ObjectID]model.User{},
		byEmail: map[string]primitive.ObjectID{},
	}
}

func (s *UserStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	if _, ok := s.byEmail[u.Email]; ok {
		return duplicate("UserStore.Create")
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.items[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.items[id]
	if !ok {
		return nil, notFound("UserStore.GetByID")
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, notFound("UserStore.GetByEmail")
	}
	u := s.items[id]
	return &u, nil
}

func (s *UserStore) ActivateSubscription(_ context.Context, id primitive.ObjectID, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.items[id]
	if !ok {
		return notFound("UserStore.ActivateSubscription")
	}
	u.SubscriptionStatus = model.SubscriptionActive
	u.SubscriptionExpiry = timePtr(expiry)
	s.items[id] = u
	return nil
}
