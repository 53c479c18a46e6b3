package memory

import (
	"context"
	"sort"
	"sync"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/storage"
)

// RealizedTradeStore is an in-memory implementation of storage.RealizedTradeStore
// and storage.TradeAggregator.
type RealizedTradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RealizedTrade // keyed by trade_id
}

// NewRealizedTradeStore creates a new in-memory realized trade store.
func NewRealizedTradeStore() *RealizedTradeStore {
	return &RealizedTradeStore{
		data: make(map[string]*domain.RealizedTrade),
	}
}

// Compile-time interface checks.
var (
	_ storage.RealizedTradeStore = (*RealizedTradeStore)(nil)
	_ storage.TradeAggregator    = (*RealizedTradeStore)(nil)
	_ storage.TradeLister        = (*RealizedTradeStore)(nil)
)

// Insert adds a new realized trade. Returns ErrDuplicateKey if trade_id exists.
func (s *RealizedTradeStore) Insert(_ context.Context, t *domain.RealizedTrade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.TradeID] = &copy
	return nil
}

// GetByWallet retrieves all trades of a wallet, ordered by timestamp ASC.
func (s *RealizedTradeStore) GetByWallet(_ context.Context, wallet string) ([]*domain.RealizedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RealizedTrade
	for _, t := range s.data {
		if t.Wallet == wallet {
			copy := *t
			result = append(result, &copy)
		}
	}

	sortRealizedTrades(result)
	return result, nil
}

// ListAfter returns up to limit trades strictly after cursor in
// (timestamp, trade_id) order.
func (s *RealizedTradeStore) ListAfter(_ context.Context, cursor storage.TradeCursor, limit int) ([]*domain.RealizedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RealizedTrade
	for _, t := range s.data {
		if t.Timestamp > cursor.Timestamp || (t.Timestamp == cursor.Timestamp && t.TradeID > cursor.TradeID) {
			copy := *t
			result = append(result, &copy)
		}
	}

	sortRealizedTrades(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// AggregateByWallet groups trades with timestamp >= since by wallet.
func (s *RealizedTradeStore) AggregateByWallet(_ context.Context, since int64) ([]*domain.WalletAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byWallet := make(map[string]*domain.WalletAggregate)
	tokens := make(map[string]map[string]struct{})

	for _, t := range s.data {
		if t.Timestamp < since {
			continue
		}
		agg, ok := byWallet[t.Wallet]
		if !ok {
			agg = &domain.WalletAggregate{Wallet: t.Wallet}
			byWallet[t.Wallet] = agg
			tokens[t.Wallet] = make(map[string]struct{})
		}
		agg.Trades++
		if t.IsWin {
			agg.Wins++
		}
		agg.PnLSum += t.PnL
		tokens[t.Wallet][t.TokenMint] = struct{}{}
	}

	result := make([]*domain.WalletAggregate, 0, len(byWallet))
	for wallet, agg := range byWallet {
		agg.DistinctTokens = len(tokens[wallet])
		result = append(result, agg)
	}
	return result, nil
}

// AggregateByToken groups one wallet's trades by token.
func (s *RealizedTradeStore) AggregateByToken(_ context.Context, wallet string) ([]*domain.TokenAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byToken := make(map[string]*domain.TokenAggregate)
	for _, t := range s.data {
		if t.Wallet != wallet {
			continue
		}
		agg, ok := byToken[t.TokenMint]
		if !ok {
			agg = &domain.TokenAggregate{TokenMint: t.TokenMint}
			byToken[t.TokenMint] = agg
		}
		agg.Trades++
		if t.IsWin {
			agg.Wins++
		}
		agg.PnLSum += t.PnL
	}

	result := make([]*domain.TokenAggregate, 0, len(byToken))
	for _, agg := range byToken {
		result = append(result, agg)
	}
	return result, nil
}

func (s *RealizedTradeStore) has(tradeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.data[tradeID]
	return exists
}

func sortRealizedTrades(trades []*domain.RealizedTrade) {
	sort.Slice(trades, func(i, j int) bool {
		if trades[i].Timestamp != trades[j].Timestamp {
			return trades[i].Timestamp < trades[j].Timestamp
		}
		return trades[i].TradeID < trades[j].TradeID
	})
}
