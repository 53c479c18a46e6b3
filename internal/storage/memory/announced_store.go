package memory

import (
	"context"
	"sort"
	"sync"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/storage"
)

// AnnouncedStore is an in-memory implementation of storage.AnnouncedStore.
type AnnouncedStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AnnouncedEntry
}

// NewAnnouncedStore creates a new in-memory announced store.
func NewAnnouncedStore() *AnnouncedStore {
	return &AnnouncedStore{
		data: make(map[string]*domain.AnnouncedEntry),
	}
}

// Compile-time interface check.
var _ storage.AnnouncedStore = (*AnnouncedStore)(nil)

// MarkAnnounced inserts the wallet if absent.
func (s *AnnouncedStore) MarkAnnounced(_ context.Context, wallet string, at int64) (bool, error) {
	if wallet == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[wallet]; exists {
		return false, nil
	}
	s.data[wallet] = &domain.AnnouncedEntry{Wallet: wallet, AnnouncedAt: at}
	return true, nil
}

// IsAnnounced reports whether the wallet was ever announced.
func (s *AnnouncedStore) IsAnnounced(_ context.Context, wallet string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[wallet]
	return exists, nil
}

// List returns all entries ordered by announcement time ASC.
func (s *AnnouncedStore) List(_ context.Context) ([]*domain.AnnouncedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.AnnouncedEntry, 0, len(s.data))
	for _, e := range s.data {
		copy := *e
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AnnouncedAt != result[j].AnnouncedAt {
			return result[i].AnnouncedAt < result[j].AnnouncedAt
		}
		return result[i].Wallet < result[j].Wallet
	})
	return result, nil
}
