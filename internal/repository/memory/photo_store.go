package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/model"
)

type PhotoStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewPhotoStore() *PhotoStore {
	return &PhotoStore{files: map[string][]byte{}}
}

func (s *PhotoStore) Upload(_ context.Context, _ string, src io.Reader) (string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("memory.PhotoStore.Upload: %w", err)
	}
	id := primitive.NewObjectID().Hex()
	s.mu.Lock()
	s.files[id] = data
	s.mu.Unlock()
	return id, nil
}

func (s *PhotoStore) Download(_ context.Context, photoID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[photoID]
	if !ok {
		return nil, notFound("PhotoStore.Download")
	}
	return data, nil
}

func (s *PhotoStore) Delete(_ context.Context, photoID string) error {
	s.mu.Lock()
	delete(s.files, photoID)
	s.mu.Unlock()
	return nil
}

// Len reports how many photos are stored.
func (s *PhotoStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Journal keeps callback entries in a slice.
type Journal struct {
	mu      sync.Mutex
	entries []model.CallbackEntry
}

func (j *Journal) Record(_ context.Context, e *model.CallbackEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	e.ID = int64(len(j.entries) + 1)
	j.entries = append(j.entries, *e)
	return nil
}

func (j *Journal) Entries() []model.CallbackEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]model.CallbackEntry(nil), j.entries...)
}
