package memory

import (
	"context"
	"sort"
	"sync"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/storage"
)

// FollowStore is an in-memory implementation of storage.FollowStore.
type FollowStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FollowEntry
}

// NewFollowStore creates a new in-memory follow store.
func NewFollowStore() *FollowStore {
	return &FollowStore{
		data: make(map[string]*domain.FollowEntry),
	}
}

// Compile-time interface check.
var _ storage.FollowStore = (*FollowStore)(nil)

// Follow adds the wallet, keeping the original timestamp if already followed.
func (s *FollowStore) Follow(_ context.Context, wallet string, at int64) error {
	if wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[wallet]; exists {
		return nil
	}
	s.data[wallet] = &domain.FollowEntry{Wallet: wallet, CreatedAt: at}
	return nil
}

// Unfollow removes the wallet.
func (s *FollowStore) Unfollow(_ context.Context, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, wallet)
	return nil
}

// IsFollowed reports whether the wallet is on the list.
func (s *FollowStore) IsFollowed(_ context.Context, wallet string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[wallet]
	return exists, nil
}

// List returns all entries ordered by creation time ASC.
func (s *FollowStore) List(_ context.Context) ([]*domain.FollowEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FollowEntry, 0, len(s.data))
	for _, e := range s.data {
		copy := *e
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].Wallet < result[j].Wallet
	})
	return result, nil
}
