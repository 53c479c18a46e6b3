package storage

import (
	"context"
	"math"

	"wallet-winrate/internal/domain"
)

// SinceBeginning selects every realized trade regardless of timestamp.
const SinceBeginning int64 = math.MinInt64

// SwapRecordStore provides access to swaps storage.
type SwapRecordStore interface {
	// Insert adds a new swap. Returns ErrDuplicateKey if signature exists.
	Insert(ctx context.Context, r *domain.SwapRecord) error

	// GetBySignature retrieves a swap. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.SwapRecord, error)

	// GetByWallet retrieves all swaps of a wallet, ordered by timestamp ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.SwapRecord, error)
}

// PositionStore provides access to positions storage.
type PositionStore interface {
	// Get retrieves a position. Returns ErrNotFound if not exists.
	Get(ctx context.Context, wallet, tokenMint string) (*domain.Position, error)

	// GetForUpdate is Get that also holds the (wallet, token) row exclusively
	// until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, wallet, tokenMint string) (*domain.Position, error)

	// Upsert creates or overwrites the position.
	Upsert(ctx context.Context, p *domain.Position) error

	// GetByWallet retrieves all positions of a wallet, ordered by token ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.Position, error)
}

// RealizedTradeStore provides access to realized_trades storage.
type RealizedTradeStore interface {
	// Insert adds a new realized trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.RealizedTrade) error

	// GetByWallet retrieves all trades of a wallet, ordered by timestamp ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.RealizedTrade, error)
}

// TradeAggregator groups realized trades for the statistics engine.
type TradeAggregator interface {
	// AggregateByWallet groups trades with timestamp >= since by wallet.
	// Order of the result is unspecified.
	AggregateByWallet(ctx context.Context, since int64) ([]*domain.WalletAggregate, error)

	// AggregateByToken groups one wallet's trades by token.
	// Order of the result is unspecified.
	AggregateByToken(ctx context.Context, wallet string) ([]*domain.TokenAggregate, error)
}

// TradeCursor is a position in the (timestamp, trade_id) order of realized
// trades.
type TradeCursor struct {
	Timestamp int64
	TradeID   string
}

// FirstTrade is the cursor preceding every realized trade.
var FirstTrade = TradeCursor{Timestamp: SinceBeginning}

// TradeLister pages through realized trades in (timestamp, trade_id) order.
type TradeLister interface {
	// ListAfter returns up to limit trades strictly after cursor.
	ListAfter(ctx context.Context, cursor TradeCursor, limit int) ([]*domain.RealizedTrade, error)
}

// FollowStore provides access to the follow list.
type FollowStore interface {
	// Follow adds the wallet. Following an already followed wallet is a no-op.
	Follow(ctx context.Context, wallet string, at int64) error

	// Unfollow removes the wallet. Unfollowing an unknown wallet is a no-op.
	Unfollow(ctx context.Context, wallet string) error

	// IsFollowed reports whether the wallet is on the list.
	IsFollowed(ctx context.Context, wallet string) (bool, error)

	// List returns all entries ordered by creation time ASC.
	List(ctx context.Context) ([]*domain.FollowEntry, error)
}

// AnnouncedStore provides access to the write-once announced list.
type AnnouncedStore interface {
	// MarkAnnounced inserts the wallet if absent. Reports whether this call inserted it.
	MarkAnnounced(ctx context.Context, wallet string, at int64) (bool, error)

	// IsAnnounced reports whether the wallet was ever announced.
	IsAnnounced(ctx context.Context, wallet string) (bool, error)

	// List returns all entries ordered by announcement time ASC.
	List(ctx context.Context) ([]*domain.AnnouncedEntry, error)
}

// Tx is the unit of work a swap is ingested in. Writes made through a Tx
// become visible together when the transaction commits.
type Tx interface {
	Swaps() SwapRecordStore
	Positions() PositionStore
	RealizedTrades() RealizedTradeStore
}

// Ledger is the full set of tables plus transactional access to the
// accounting tables.
type Ledger interface {
	// RunInTx runs fn in a transaction. A nil return commits, any error rolls
	// back and is returned unchanged. Backends may re-run fn on transient
	// conflicts, so fn must not have side effects outside tx.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Swaps() SwapRecordStore
	Positions() PositionStore
	RealizedTrades() RealizedTradeStore
	Aggregates() TradeAggregator
	History() TradeLister
	Follows() FollowStore
	Announced() AnnouncedStore
}
