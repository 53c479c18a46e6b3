// Package discovery promotes wallets that win consistently over the
// lifetime, 30-day and 90-day horizons to the long-term winner list.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/notify"
	"wallet-winrate/internal/observability"
	"wallet-winrate/internal/stats"
	"wallet-winrate/internal/storage"
)

// Window lengths in days.
const (
	ShortWindowDays = 30
	LongWindowDays  = 90
)

// Thresholds is one horizon's set of minimums. All bounds are inclusive.
type Thresholds struct {
	MinTrades  int
	MinWinRate float64 // percent
	MinPnL     float64
}

func (t Thresholds) floor() stats.Floor {
	return stats.PerformanceFloor(t.MinTrades, t.MinWinRate, t.MinPnL)
}

// Criteria holds the thresholds for every horizon.
type Criteria struct {
	Lifetime Thresholds
	Days30   Thresholds
	Days90   Thresholds
}

// DefaultCriteria returns the production thresholds.
func DefaultCriteria() Criteria {
	return Criteria{
		Lifetime: Thresholds{MinTrades: 30, MinWinRate: 58, MinPnL: 1000},
		Days30:   Thresholds{MinTrades: 5, MinWinRate: 55, MinPnL: 100},
		Days90:   Thresholds{MinTrades: 12, MinWinRate: 60, MinPnL: 300},
	}
}

// StatsSource is the subset of the statistics engine discovery reads.
type StatsSource interface {
	TopWallets(ctx context.Context, minTrades, limit int) ([]domain.WalletStats, error)
	WindowStats(ctx context.Context, days int) ([]domain.WalletStats, error)
}

// Options configures a Filter.
type Options struct {
	Stats      StatsSource
	Announced  storage.AnnouncedStore
	Follows    storage.FollowStore
	Notifier   notify.Notifier
	Criteria   Criteria
	AutoFollow bool
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Filter runs discovery passes.
type Filter struct {
	stats      StatsSource
	announced  storage.AnnouncedStore
	follows    storage.FollowStore
	notifier   notify.Notifier
	criteria   Criteria
	autoFollow bool
	now        func() time.Time
	logger     *zap.Logger
}

// NewFilter creates a Filter.
func NewFilter(opts Options) *Filter {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Filter{
		stats:      opts.Stats,
		announced:  opts.Announced,
		follows:    opts.Follows,
		notifier:   opts.Notifier,
		criteria:   opts.Criteria,
		autoFollow: opts.AutoFollow,
		now:        opts.Clock,
		logger:     opts.Logger.Named("discovery"),
	}
}

// Criteria returns the thresholds the filter applies.
func (f *Filter) Criteria() Criteria {
	return f.criteria
}

// Qualify returns every wallet that currently clears all three horizons,
// announced or not, ordered by lifetime rank.
func (f *Filter) Qualify(ctx context.Context) ([]domain.Winner, error) {
	life, err := f.stats.TopWallets(ctx, 1, stats.Unlimited)
	if err != nil {
		return nil, fmt.Errorf("lifetime stats: %w", err)
	}
	d30, err := f.stats.WindowStats(ctx, ShortWindowDays)
	if err != nil {
		return nil, fmt.Errorf("%dd stats: %w", ShortWindowDays, err)
	}
	d90, err := f.stats.WindowStats(ctx, LongWindowDays)
	if err != nil {
		return nil, fmt.Errorf("%dd stats: %w", LongWindowDays, err)
	}

	byWallet30 := index(d30)
	byWallet90 := index(d90)

	var winners []domain.Winner
	for _, l := range life {
		s30, ok30 := byWallet30[l.Wallet]
		s90, ok90 := byWallet90[l.Wallet]
		if !ok30 || !ok90 {
			continue
		}
		if !f.criteria.Lifetime.floor().Admits(l) ||
			!f.criteria.Days30.floor().Admits(s30) ||
			!f.criteria.Days90.floor().Admits(s90) {
			continue
		}
		winners = append(winners, domain.Winner{Wallet: l.Wallet, Lifetime: l, Days30: s30, Days90: s90})
	}
	return winners, nil
}

// Discover announces every qualifying wallet that was never announced
// before and returns them. A wallet is marked announced before its event is
// emitted, so concurrent or repeated passes never emit it twice.
func (f *Filter) Discover(ctx context.Context) ([]domain.Winner, error) {
	start := f.now()

	winners, err := f.Qualify(ctx)
	if err != nil {
		observability.RecordDiscoveryRun("error", f.now().Sub(start).Seconds(), 0, start.Unix())
		return nil, err
	}

	var announced []domain.Winner
	for _, w := range winners {
		inserted, err := f.announced.MarkAnnounced(ctx, w.Wallet, f.now().Unix())
		if err != nil {
			observability.RecordDiscoveryRun("error", f.now().Sub(start).Seconds(), len(announced), start.Unix())
			return announced, fmt.Errorf("mark announced %s: %w", w.Wallet, err)
		}
		if !inserted {
			continue
		}

		f.notifier.Winner(ctx, notify.WinnerEvent{Winner: w})
		announced = append(announced, w)

		if f.autoFollow && f.follows != nil {
			if err := f.follows.Follow(ctx, w.Wallet, f.now().Unix()); err != nil {
				f.logger.Warn("auto-follow", zap.String("wallet", w.Wallet), zap.Error(err))
			}
		}
	}

	f.logger.Info("discovery pass",
		zap.Int("qualified", len(winners)),
		zap.Int("announced", len(announced)),
	)
	observability.RecordDiscoveryRun("success", f.now().Sub(start).Seconds(), len(announced), f.now().Unix())
	return announced, nil
}

func index(rows []domain.WalletStats) map[string]domain.WalletStats {
	m := make(map[string]domain.WalletStats, len(rows))
	for _, r := range rows {
		m[r.Wallet] = r
	}
	return m
}

// SortByLifetimePnL orders winners by lifetime PnL desc, wallet asc.
func SortByLifetimePnL(winners []domain.Winner) {
	sort.Slice(winners, func(i, j int) bool {
		if winners[i].Lifetime.PnLSum != winners[j].Lifetime.PnLSum {
			return winners[i].Lifetime.PnLSum > winners[j].Lifetime.PnLSum
		}
		return winners[i].Wallet < winners[j].Wallet
	})
}
