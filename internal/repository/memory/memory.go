// Package memory holds in-process stores with the same contracts as the
// Mongo repositories, unique constraints included. They back the test suite
// and STORAGE_DRIVER=memory.
package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jimmygitz3/final-project/internal/repository"
)

// Stores bundles one of each in-memory store.
type Stores struct {
	Users       *UserStore
	Listings    *ListingStore
	Payments    *PaymentStore
	Connections *ConnectionStore
	Reviews     *ReviewStore
	Photos      *PhotoStore
	Journal     *Journal
}

func New() *Stores {
	return &Stores{
		Users:       NewUserStore(),
		Listings:    NewListingStore(),
		Payments:    NewPaymentStore(),
		Connections: NewConnectionStore(),
		Reviews:     NewReviewStore(),
		Photos:      NewPhotoStore(),
		Journal:     &Journal{},
	}
}

func notFound(op string) error {
	return fmt.Errorf("memory.%s: %w", op, repository.ErrNotFound)
}

func duplicate(op string) error {
	return fmt.Errorf("memory.%s: %w", op, repository.ErrDuplicate)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func limitOf[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func newestFirst[T any](items []T, created func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return created(items[i]).After(created(items[j]))
	})
}

func timePtr(t time.Time) *time.Time { return &t }
