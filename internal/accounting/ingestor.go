package accounting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/keylock"
	"wallet-winrate/internal/notify"
	"wallet-winrate/internal/observability"
	"wallet-winrate/internal/storage"
)

// IngestorOptions configures an Ingestor.
type IngestorOptions struct {
	Ledger   storage.Ledger
	Locker   *keylock.Locker            // nil creates a private locker
	Notifier notify.Notifier            // nil discards events
	Mirror   storage.RealizedTradeStore // optional analytics copy of realized trades
	Clock    func() time.Time
	Logger   *zap.Logger

	// BookAtSwapTime stamps realized trades with the triggering swap's
	// timestamp instead of the clock. Backfills set it so historical sells
	// land in historical windows.
	BookAtSwapTime bool
}

// IngestResult describes what a single Ingest call changed.
type IngestResult struct {
	Inserted bool                  // false for redelivered signatures
	PnL      float64               // realized PnL of a sell, 0 otherwise
	Trade    *domain.RealizedTrade // nil unless a realized trade was recorded
}

// Ingestor records swaps exactly once and applies their accounting effects.
type Ingestor struct {
	ledger   storage.Ledger
	locker   *keylock.Locker
	notifier notify.Notifier
	mirror   storage.RealizedTradeStore
	tracker  PositionTracker
	realizer *Realizer
	now      func() time.Time
	logger   *zap.Logger

	bookAtSwapTime bool
}

// NewIngestor creates an Ingestor.
func NewIngestor(opts IngestorOptions) *Ingestor {
	if opts.Locker == nil {
		opts.Locker = keylock.New()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	logger := opts.Logger.Named("ingest")

	return &Ingestor{
		ledger:   opts.Ledger,
		locker:   opts.Locker,
		notifier: opts.Notifier,
		mirror:   opts.Mirror,
		realizer: NewRealizer(opts.Clock, logger),
		now:      opts.Clock,
		logger:   logger,

		bookAtSwapTime: opts.BookAtSwapTime,
	}
}

// ValidateRecord checks the structural invariants every stored swap must hold.
func ValidateRecord(r *domain.SwapRecord) error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: nil record", storage.ErrInvalidInput)
	case r.Signature == "":
		return fmt.Errorf("%w: missing signature", storage.ErrInvalidInput)
	case r.Wallet == "" || r.TokenMint == "" || r.BaseMint == "":
		return fmt.Errorf("%w: missing wallet or asset", storage.ErrInvalidInput)
	case !r.Direction.Valid():
		return fmt.Errorf("%w: unknown direction %q", storage.ErrInvalidInput, r.Direction)
	case !nonNegative(r.BaseAmount) || !nonNegative(r.TokenAmount):
		return fmt.Errorf("%w: amounts must be finite and non-negative", storage.ErrInvalidInput)
	}
	return nil
}

func nonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Ingest stores the record and, for a new signature, applies it: a BUY adds
// to the position, a SELL is realized against it. All writes commit together.
// A redelivered signature returns Inserted=false and changes nothing.
func (in *Ingestor) Ingest(ctx context.Context, r *domain.SwapRecord) (IngestResult, error) {
	if err := ValidateRecord(r); err != nil {
		return IngestResult{}, err
	}

	start := time.Now()
	res, err := in.apply(ctx, r)

	if errors.Is(err, storage.ErrDuplicateKey) {
		observability.RecordSwapDuplicate()
		in.logger.Debug("duplicate swap ignored", zap.String("signature", r.Signature))
		return IngestResult{}, nil
	}
	if err != nil {
		observability.RecordIngestError()
		return IngestResult{}, fmt.Errorf("ingest swap %s: %w", r.Signature, err)
	}

	observability.RecordSwapIngested(string(r.Direction), time.Since(start).Seconds(), in.now().Unix())
	in.afterCommit(ctx, r, res)
	return res, nil
}

// apply runs the ledger transaction for r while holding its position key.
func (in *Ingestor) apply(ctx context.Context, r *domain.SwapRecord) (IngestResult, error) {
	unlock := in.locker.Lock(r.PositionKey())
	defer unlock()

	var res IngestResult
	err := in.ledger.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		res = IngestResult{}
		if err := tx.Swaps().Insert(ctx, r); err != nil {
			return err
		}

		switch r.Direction {
		case domain.DirectionBuy:
			if _, err := in.tracker.ApplyDelta(ctx, tx.Positions(), r.Wallet, r.TokenMint, r.TokenAmount, r.BaseAmount); err != nil {
				return err
			}
		case domain.DirectionSell:
			var bookedAt int64
			if in.bookAtSwapTime {
				bookedAt = r.Timestamp
			}
			pnl, trade, err := in.realizer.Realize(ctx, tx, Sell{
				Signature:    r.Signature,
				Wallet:       r.Wallet,
				TokenMint:    r.TokenMint,
				Quantity:     r.TokenAmount,
				BaseReceived: r.BaseAmount,
				BaseMint:     r.BaseMint,
				BookedAt:     bookedAt,
			})
			if err != nil {
				return err
			}
			res.PnL, res.Trade = pnl, trade
		}

		res.Inserted = true
		return nil
	})
	return res, err
}

// afterCommit runs the side effects that must not roll back the ledger.
func (in *Ingestor) afterCommit(ctx context.Context, r *domain.SwapRecord, res IngestResult) {
	if t := res.Trade; t != nil {
		observability.RecordRealizedTrade(t.IsWin)

		if in.mirror != nil {
			if err := in.mirror.Insert(ctx, t); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				observability.RecordMirrorError()
				in.logger.Warn("mirror realized trade", zap.String("trade_id", t.TradeID), zap.Error(err))
			}
		}

		if t.PnL != 0 {
			in.notifier.RealizedTrade(ctx, notify.RealizedTradeEvent{
				Wallet:    t.Wallet,
				TokenMint: t.TokenMint,
				PnL:       t.PnL,
				BaseMint:  t.BaseMint,
				Timestamp: t.Timestamp,
			})
		}
	}

	followed, err := in.ledger.Follows().IsFollowed(ctx, r.Wallet)
	if err != nil {
		in.logger.Warn("check follow list", zap.String("wallet", r.Wallet), zap.Error(err))
		return
	}
	if followed {
		in.notifier.FollowedSwap(ctx, notify.FollowedSwapEvent{
			Wallet:     r.Wallet,
			Direction:  r.Direction,
			TokenMint:  r.TokenMint,
			BaseAmount: r.BaseAmount,
			BaseMint:   r.BaseMint,
			Timestamp:  r.Timestamp,
			Signature:  r.Signature,
		})
	}
}
