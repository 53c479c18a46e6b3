package memory

import (
	"context"
	"sort"
	"sync"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by wallet|token
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Get retrieves a position. Returns ErrNotFound if not exists.
func (s *PositionStore) Get(_ context.Context, wallet, tokenMint string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[domain.PositionKey(wallet, tokenMint)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *p
	return &copy, nil
}

// GetForUpdate is Get. Exclusion for in-memory positions comes from the
// Ledger, which runs one transaction at a time.
func (s *PositionStore) GetForUpdate(ctx context.Context, wallet, tokenMint string) (*domain.Position, error) {
	return s.Get(ctx, wallet, tokenMint)
}

// Upsert creates or overwrites the position.
func (s *PositionStore) Upsert(_ context.Context, p *domain.Position) error {
	if p == nil || p.Wallet == "" || p.TokenMint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *p
	s.data[domain.PositionKey(p.Wallet, p.TokenMint)] = &copy
	return nil
}

// GetByWallet retrieves all positions of a wallet, ordered by token ASC.
func (s *PositionStore) GetByWallet(_ context.Context, wallet string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Wallet == wallet {
			copy := *p
			result = append(result, &copy)
		}
	}

	sortPositions(result)
	return result, nil
}

func sortPositions(positions []*domain.Position) {
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].TokenMint < positions[j].TokenMint
	})
}
