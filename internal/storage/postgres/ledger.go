package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"

	"wallet-winrate/internal/observability"
	"wallet-winrate/internal/storage"
)

// Default retry policy for conflicting ledger transactions.
const (
	defaultMaxRetries      = 5
	defaultInitialInterval = 10 * time.Millisecond
	defaultMaxInterval     = 500 * time.Millisecond
)

// Ledger implements storage.Ledger on a single Postgres pool.
type Ledger struct {
	pool *Pool

	swaps     *SwapRecordStore
	positions *PositionStore
	realized  *RealizedTradeStore
	follows   *FollowStore
	announced *AnnouncedStore

	maxRetries      uint64
	initialInterval time.Duration
}

// NewLedger creates a Ledger over pool.
func NewLedger(pool *Pool) *Ledger {
	return &Ledger{
		pool:            pool,
		swaps:           NewSwapRecordStore(pool),
		positions:       NewPositionStore(pool),
		realized:        NewRealizedTradeStore(pool),
		follows:         NewFollowStore(pool),
		announced:       NewAnnouncedStore(pool),
		maxRetries:      defaultMaxRetries,
		initialInterval: defaultInitialInterval,
	}
}

// WithRetry overrides the conflict retry policy.
func (l *Ledger) WithRetry(maxRetries uint64, initialInterval time.Duration) *Ledger {
	l.maxRetries = maxRetries
	l.initialInterval = initialInterval
	return l
}

// Compile-time interface check.
var _ storage.Ledger = (*Ledger)(nil)

// RunInTx runs fn in a READ COMMITTED transaction. Serialization failures
// and deadlocks re-run fn with exponential backoff; any other error rolls
// back and is returned as is.
func (l *Ledger) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	start := time.Now()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.initialInterval
	b.MaxInterval = defaultMaxInterval
	b.MaxElapsedTime = 0

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			observability.RecordTxRetry()
		}

		err := l.runOnce(ctx, fn)
		if err == nil || isRetryableError(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(b, l.maxRetries), ctx))

	observability.RecordDBQuery("postgres", "ledger_tx", time.Since(start).Seconds(), err)
	return err
}

func (l *Ledger) runOnce(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, newLedgerTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (l *Ledger) Swaps() storage.SwapRecordStore             { return l.swaps }
func (l *Ledger) Positions() storage.PositionStore           { return l.positions }
func (l *Ledger) RealizedTrades() storage.RealizedTradeStore { return l.realized }
func (l *Ledger) Aggregates() storage.TradeAggregator        { return l.realized }
func (l *Ledger) History() storage.TradeLister               { return l.realized }
func (l *Ledger) Follows() storage.FollowStore               { return l.follows }
func (l *Ledger) Announced() storage.AnnouncedStore          { return l.announced }

// ledgerTx binds the accounting stores to one pgx transaction.
type ledgerTx struct {
	swaps     *SwapRecordStore
	positions *PositionStore
	realized  *RealizedTradeStore
}

func newLedgerTx(tx pgx.Tx) *ledgerTx {
	return &ledgerTx{
		swaps:     &SwapRecordStore{q: tx},
		positions: &PositionStore{q: tx},
		realized:  &RealizedTradeStore{q: tx},
	}
}

func (t *ledgerTx) Swaps() storage.SwapRecordStore             { return t.swaps }
func (t *ledgerTx) Positions() storage.PositionStore           { return t.positions }
func (t *ledgerTx) RealizedTrades() storage.RealizedTradeStore { return t.realized }
