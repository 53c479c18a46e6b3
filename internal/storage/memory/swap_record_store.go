package memory

import (
	"context"
	"sort"
	"sync"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/storage"
)

// SwapRecordStore is an in-memory implementation of storage.SwapRecordStore.
type SwapRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SwapRecord // keyed by signature
}

// NewSwapRecordStore creates a new in-memory swap store.
func NewSwapRecordStore() *SwapRecordStore {
	return &SwapRecordStore{
		data: make(map[string]*domain.SwapRecord),
	}
}

// Compile-time interface check.
var _ storage.SwapRecordStore = (*SwapRecordStore)(nil)

// Insert adds a new swap. Returns ErrDuplicateKey if signature exists.
func (s *SwapRecordStore) Insert(_ context.Context, r *domain.SwapRecord) error {
	if r == nil || r.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.Signature] = &copy
	return nil
}

// GetBySignature retrieves a swap. Returns ErrNotFound if not exists.
func (s *SwapRecordStore) GetBySignature(_ context.Context, signature string) (*domain.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[signature]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetByWallet retrieves all swaps of a wallet, ordered by timestamp ASC.
func (s *SwapRecordStore) GetByWallet(_ context.Context, wallet string) ([]*domain.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SwapRecord
	for _, r := range s.data {
		if r.Wallet == wallet {
			copy := *r
			result = append(result, &copy)
		}
	}

	sortSwapRecords(result)
	return result, nil
}

func (s *SwapRecordStore) has(signature string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.data[signature]
	return exists
}

func sortSwapRecords(records []*domain.SwapRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp != records[j].Timestamp {
			return records[i].Timestamp < records[j].Timestamp
		}
		return records[i].Signature < records[j].Signature
	})
}
