// Package stats ranks wallets by realized-trade performance.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/observability"
	"wallet-winrate/internal/storage"
)

const secondsPerDay = 86400

// Unlimited disables the result limit of TopWallets and FilterWindow.
const Unlimited = 0

// Floor is the admission rule of a ranking. The zero value admits every
// wallet with at least one trade.
type Floor struct {
	minTrades   int
	performance bool
	minWinRate  float64 // percent
	minPnL      float64
}

// TradeFloor admits wallets with at least minTrades trades, whatever their
// win rate or PnL.
func TradeFloor(minTrades int) Floor {
	return Floor{minTrades: minTrades}
}

// PerformanceFloor admits wallets meeting all three minimums.
func PerformanceFloor(minTrades int, minWinRate, minPnL float64) Floor {
	return Floor{minTrades: minTrades, performance: true, minWinRate: minWinRate, minPnL: minPnL}
}

// Admits reports whether s meets the floor.
func (f Floor) Admits(s domain.WalletStats) bool {
	if s.Trades < f.minTrades {
		return false
	}
	if !f.performance {
		return true
	}
	return s.WinRatePct >= f.minWinRate && s.PnLSum >= f.minPnL
}

func (f Floor) key() string {
	if !f.performance {
		return fmt.Sprintf("%d", f.minTrades)
	}
	return fmt.Sprintf("%d:%g:%g", f.minTrades, f.minWinRate, f.minPnL)
}

// Cache stores serialized query results. Implementations report a miss
// with found=false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	Aggregator storage.TradeAggregator
	Positions  storage.PositionStore // optional, adds open positions to summaries
	Follows    storage.FollowStore   // optional, marks followed wallets in summaries
	Cache      Cache                 // optional
	CacheTTL   time.Duration
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Engine computes lifetime and windowed wallet statistics.
type Engine struct {
	agg       storage.TradeAggregator
	positions storage.PositionStore
	follows   storage.FollowStore
	cache     Cache
	cacheTTL  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewEngine creates an Engine.
func NewEngine(opts EngineOptions) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	return &Engine{
		agg:       opts.Aggregator,
		positions: opts.Positions,
		follows:   opts.Follows,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		now:       opts.Clock,
		logger:    opts.Logger.Named("stats"),
	}
}

// TopWallets ranks all wallets with at least minTrades lifetime trades,
// returning at most limit rows (Unlimited for all).
func (e *Engine) TopWallets(ctx context.Context, minTrades, limit int) ([]domain.WalletStats, error) {
	key := fmt.Sprintf("stats:top:%d:%d", minTrades, limit)
	return e.cached(ctx, "top", key, func(ctx context.Context) ([]domain.WalletStats, error) {
		aggs, err := e.agg.AggregateByWallet(ctx, storage.SinceBeginning)
		if err != nil {
			return nil, fmt.Errorf("aggregate lifetime: %w", err)
		}
		return Rank(aggs, TradeFloor(minTrades), limit), nil
	})
}

// WindowStats ranks every wallet with a realized trade in the last days days,
// losing wallets included. The window start is inclusive.
func (e *Engine) WindowStats(ctx context.Context, days int) ([]domain.WalletStats, error) {
	return e.FilterWindow(ctx, days, Floor{}, Unlimited)
}

// FilterWindow is WindowStats restricted to wallets meeting floor.
func (e *Engine) FilterWindow(ctx context.Context, days int, floor Floor, limit int) ([]domain.WalletStats, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", storage.ErrInvalidInput)
	}

	key := fmt.Sprintf("stats:window:%d:%s:%d", days, floor.key(), limit)
	return e.cached(ctx, "window", key, func(ctx context.Context) ([]domain.WalletStats, error) {
		since := e.now().Unix() - int64(days)*secondsPerDay
		aggs, err := e.agg.AggregateByWallet(ctx, since)
		if err != nil {
			return nil, fmt.Errorf("aggregate %dd window: %w", days, err)
		}
		return Rank(aggs, floor, limit), nil
	})
}

// WalletSummary returns the lifetime aggregate of one wallet and its top
// topN tokens by PnL. A wallet without trades yields a zero summary.
func (e *Engine) WalletSummary(ctx context.Context, wallet string, topN int) (*domain.WalletSummary, error) {
	summary := &domain.WalletSummary{
		Wallet:   wallet,
		Lifetime: domain.WalletStats{Wallet: wallet},
	}

	tokens, err := e.agg.AggregateByToken(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("aggregate tokens: %w", err)
	}

	var pnl decimal.Decimal
	for _, t := range tokens {
		summary.Lifetime.Trades += t.Trades
		summary.Lifetime.Wins += t.Wins
		pnl = pnl.Add(decimal.NewFromFloat(t.PnLSum))
		summary.Tokens = append(summary.Tokens, domain.TokenStats{
			TokenMint:  t.TokenMint,
			Wins:       t.Wins,
			Trades:     t.Trades,
			WinRatePct: WinRatePct(t.Wins, t.Trades),
			PnLSum:     Round2(t.PnLSum),
		})
	}
	summary.Lifetime.DistinctTokens = len(tokens)
	summary.Lifetime.WinRatePct = WinRatePct(summary.Lifetime.Wins, summary.Lifetime.Trades)
	summary.Lifetime.PnLSum = pnl.Round(2).InexactFloat64()

	sort.Slice(summary.Tokens, func(i, j int) bool {
		a, b := summary.Tokens[i], summary.Tokens[j]
		if a.PnLSum != b.PnLSum {
			return a.PnLSum > b.PnLSum
		}
		return a.TokenMint < b.TokenMint
	})
	if topN > 0 && len(summary.Tokens) > topN {
		summary.Tokens = summary.Tokens[:topN]
	}

	if e.positions != nil {
		positions, err := e.positions.GetByWallet(ctx, wallet)
		if err != nil {
			return nil, fmt.Errorf("read positions: %w", err)
		}
		for _, p := range positions {
			if p.Quantity != 0 || p.CostBasis != 0 {
				summary.Open = append(summary.Open, p)
			}
		}
	}

	if e.follows != nil {
		followed, err := e.follows.IsFollowed(ctx, wallet)
		if err != nil {
			return nil, fmt.Errorf("read follow list: %w", err)
		}
		summary.Followed = followed
	}

	return summary, nil
}

// Rank converts aggregates into stats, drops rows below floor and orders by
// win rate desc, PnL desc, wallet asc.
func Rank(aggs []*domain.WalletAggregate, floor Floor, limit int) []domain.WalletStats {
	result := make([]domain.WalletStats, 0, len(aggs))
	for _, a := range aggs {
		if a.Trades == 0 {
			continue
		}
		s := domain.WalletStats{
			Wallet:         a.Wallet,
			Wins:           a.Wins,
			Trades:         a.Trades,
			WinRatePct:     WinRatePct(a.Wins, a.Trades),
			PnLSum:         Round2(a.PnLSum),
			DistinctTokens: a.DistinctTokens,
		}
		if floor.Admits(s) {
			result = append(result, s)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.WinRatePct != b.WinRatePct {
			return a.WinRatePct > b.WinRatePct
		}
		if a.PnLSum != b.PnLSum {
			return a.PnLSum > b.PnLSum
		}
		return a.Wallet < b.Wallet
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// WinRatePct is 100*wins/trades rounded to 2 places, 0 for no trades.
func WinRatePct(wins, trades int) float64 {
	if trades == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(wins)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(trades)), 2).
		InexactFloat64()
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func (e *Engine) cached(
	ctx context.Context,
	query, key string,
	compute func(ctx context.Context) ([]domain.WalletStats, error),
) ([]domain.WalletStats, error) {
	if e.cache == nil {
		return compute(ctx)
	}

	if data, found, err := e.cache.Get(ctx, key); err != nil {
		e.logger.Warn("stats cache get", zap.String("key", key), zap.Error(err))
	} else if found {
		var result []domain.WalletStats
		if err := json.Unmarshal(data, &result); err == nil {
			observability.RecordStatsCache(query, true)
			return result, nil
		}
	}
	observability.RecordStatsCache(query, false)

	result, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := e.cache.Set(ctx, key, data, e.cacheTTL); err != nil {
			e.logger.Warn("stats cache set", zap.String("key", key), zap.Error(err))
		}
	}
	return result, nil
}
