package accounting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/idhash"
	"wallet-winrate/internal/observability"
	"wallet-winrate/internal/storage"
)

// Sell is a token disposal to be realized against the open position.
type Sell struct {
	Signature    string
	Wallet       string
	TokenMint    string
	Quantity     float64 // tokens sold
	BaseReceived float64 // quote asset received
	BaseMint     string
	BookedAt     int64 // unix seconds; 0 books at the realizer's clock
}

// Realizer converts sells into realized trades.
type Realizer struct {
	tracker PositionTracker
	now     func() time.Time
	logger  *zap.Logger
}

// NewRealizer creates a Realizer. A nil clock means time.Now.
func NewRealizer(now func() time.Time, logger *zap.Logger) *Realizer {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Realizer{now: now, logger: logger}
}

// Realize closes the sold fraction of the position at average cost and
// records the result. A sell with no positive position or no proceeds only
// reduces the quantity and returns 0 with a nil trade. Selling more than is
// held closes the whole cost basis.
func (r *Realizer) Realize(ctx context.Context, tx storage.Tx, s Sell) (float64, *domain.RealizedTrade, error) {
	pos, err := tx.Positions().GetForUpdate(ctx, s.Wallet, s.TokenMint)
	if errors.Is(err, storage.ErrNotFound) {
		pos = &domain.Position{Wallet: s.Wallet, TokenMint: s.TokenMint}
	} else if err != nil {
		return 0, nil, fmt.Errorf("read position: %w", err)
	}

	if s.Quantity <= 0 || s.BaseReceived <= 0 || pos.Quantity <= 0 {
		if _, err := r.tracker.ApplyDelta(ctx, tx.Positions(), s.Wallet, s.TokenMint, -s.Quantity, 0); err != nil {
			return 0, nil, err
		}
		observability.RecordDegenerateSell()
		r.logger.Info("sell without realizable position",
			zap.String("wallet", s.Wallet),
			zap.String("token", s.TokenMint),
			zap.String("signature", s.Signature),
			zap.Float64("sell_qty", s.Quantity),
			zap.Float64("base_received", s.BaseReceived),
			zap.Float64("position_qty", pos.Quantity),
		)
		return 0, nil, nil
	}

	portion := math.Min(1, s.Quantity/pos.Quantity)
	costPortion := pos.CostBasis * portion
	pnl := s.BaseReceived - costPortion

	if _, err := r.tracker.ApplyDelta(ctx, tx.Positions(), s.Wallet, s.TokenMint, -s.Quantity, -costPortion); err != nil {
		return 0, nil, err
	}

	bookedAt := s.BookedAt
	if bookedAt == 0 {
		bookedAt = r.now().Unix()
	}
	trade := &domain.RealizedTrade{
		TradeID:   idhash.ComputeRealizedTradeID(s.Signature, s.Wallet, s.TokenMint),
		Signature: s.Signature,
		Timestamp: bookedAt,
		Wallet:    s.Wallet,
		TokenMint: s.TokenMint,
		PnL:       pnl,
		BaseMint:  s.BaseMint,
		IsWin:     pnl > 0,
	}
	if err := tx.RealizedTrades().Insert(ctx, trade); err != nil {
		return 0, nil, fmt.Errorf("insert realized trade: %w", err)
	}

	return pnl, trade, nil
}
