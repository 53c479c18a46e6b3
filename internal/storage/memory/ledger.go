package memory

import (
	"context"
	"sync"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/storage"
)

// Ledger is an in-memory implementation of storage.Ledger.
// Transactions run one at a time and buffer their writes until commit.
type Ledger struct {
	txMu sync.Mutex

	swaps     *SwapRecordStore
	positions *PositionStore
	realized  *RealizedTradeStore
	follows   *FollowStore
	announced *AnnouncedStore
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		swaps:     NewSwapRecordStore(),
		positions: NewPositionStore(),
		realized:  NewRealizedTradeStore(),
		follows:   NewFollowStore(),
		announced: NewAnnouncedStore(),
	}
}

// Compile-time interface check.
var _ storage.Ledger = (*Ledger)(nil)

// RunInTx runs fn against a buffered view of the accounting tables.
func (l *Ledger) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.txMu.Lock()
	defer l.txMu.Unlock()

	tx := newLedgerTx(l)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (l *Ledger) Swaps() storage.SwapRecordStore             { return l.swaps }
func (l *Ledger) Positions() storage.PositionStore           { return l.positions }
func (l *Ledger) RealizedTrades() storage.RealizedTradeStore { return l.realized }
func (l *Ledger) Aggregates() storage.TradeAggregator        { return l.realized }
func (l *Ledger) History() storage.TradeLister               { return l.realized }
func (l *Ledger) Follows() storage.FollowStore               { return l.follows }
func (l *Ledger) Announced() storage.AnnouncedStore          { return l.announced }

// ledgerTx overlays pending writes on top of the committed stores.
type ledgerTx struct {
	swaps     *txSwapStore
	positions *txPositionStore
	realized  *txRealizedTradeStore
}

func newLedgerTx(l *Ledger) *ledgerTx {
	return &ledgerTx{
		swaps:     &txSwapStore{base: l.swaps, pending: make(map[string]*domain.SwapRecord)},
		positions: &txPositionStore{base: l.positions, pending: make(map[string]*domain.Position)},
		realized:  &txRealizedTradeStore{base: l.realized, pending: make(map[string]*domain.RealizedTrade)},
	}
}

func (t *ledgerTx) Swaps() storage.SwapRecordStore             { return t.swaps }
func (t *ledgerTx) Positions() storage.PositionStore           { return t.positions }
func (t *ledgerTx) RealizedTrades() storage.RealizedTradeStore { return t.realized }

func (t *ledgerTx) commit() {
	t.swaps.base.mu.Lock()
	for sig, r := range t.swaps.pending {
		t.swaps.base.data[sig] = r
	}
	t.swaps.base.mu.Unlock()

	t.positions.base.mu.Lock()
	for key, p := range t.positions.pending {
		t.positions.base.data[key] = p
	}
	t.positions.base.mu.Unlock()

	t.realized.base.mu.Lock()
	for id, r := range t.realized.pending {
		t.realized.base.data[id] = r
	}
	t.realized.base.mu.Unlock()
}

type txSwapStore struct {
	base    *SwapRecordStore
	pending map[string]*domain.SwapRecord
}

func (s *txSwapStore) Insert(_ context.Context, r *domain.SwapRecord) error {
	if r == nil || r.Signature == "" {
		return storage.ErrInvalidInput
	}
	if _, exists := s.pending[r.Signature]; exists || s.base.has(r.Signature) {
		return storage.ErrDuplicateKey
	}
	copy := *r
	s.pending[r.Signature] = &copy
	return nil
}

func (s *txSwapStore) GetBySignature(ctx context.Context, signature string) (*domain.SwapRecord, error) {
	if r, exists := s.pending[signature]; exists {
		copy := *r
		return &copy, nil
	}
	return s.base.GetBySignature(ctx, signature)
}

func (s *txSwapStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.SwapRecord, error) {
	result, err := s.base.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	for _, r := range s.pending {
		if r.Wallet == wallet {
			copy := *r
			result = append(result, &copy)
		}
	}
	sortSwapRecords(result)
	return result, nil
}

type txPositionStore struct {
	base    *PositionStore
	pending map[string]*domain.Position
}

func (s *txPositionStore) Get(ctx context.Context, wallet, tokenMint string) (*domain.Position, error) {
	if p, exists := s.pending[domain.PositionKey(wallet, tokenMint)]; exists {
		copy := *p
		return &copy, nil
	}
	return s.base.Get(ctx, wallet, tokenMint)
}

func (s *txPositionStore) GetForUpdate(ctx context.Context, wallet, tokenMint string) (*domain.Position, error) {
	return s.Get(ctx, wallet, tokenMint)
}

func (s *txPositionStore) Upsert(_ context.Context, p *domain.Position) error {
	if p == nil || p.Wallet == "" || p.TokenMint == "" {
		return storage.ErrInvalidInput
	}
	copy := *p
	s.pending[domain.PositionKey(p.Wallet, p.TokenMint)] = &copy
	return nil
}

func (s *txPositionStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.Position, error) {
	committed, err := s.base.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	var result []*domain.Position
	for _, p := range committed {
		if _, overridden := s.pending[domain.PositionKey(p.Wallet, p.TokenMint)]; !overridden {
			result = append(result, p)
		}
	}
	for _, p := range s.pending {
		if p.Wallet == wallet {
			copy := *p
			result = append(result, &copy)
		}
	}
	sortPositions(result)
	return result, nil
}

type txRealizedTradeStore struct {
	base    *RealizedTradeStore
	pending map[string]*domain.RealizedTrade
}

func (s *txRealizedTradeStore) Insert(_ context.Context, t *domain.RealizedTrade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}
	if _, exists := s.pending[t.TradeID]; exists || s.base.has(t.TradeID) {
		return storage.ErrDuplicateKey
	}
	copy := *t
	s.pending[t.TradeID] = &copy
	return nil
}

func (s *txRealizedTradeStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.RealizedTrade, error) {
	result, err := s.base.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	for _, t := range s.pending {
		if t.Wallet == wallet {
			copy := *t
			result = append(result, &copy)
		}
	}
	sortRealizedTrades(result)
	return result, nil
}
