package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"wallet-winrate/internal/discovery"
	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/stats"
	"wallet-winrate/internal/storage"
)

// Rankings is the part of the statistics engine a report reads.
type Rankings interface {
	TopWallets(ctx context.Context, minTrades, limit int) ([]domain.WalletStats, error)
	FilterWindow(ctx context.Context, days int, floor stats.Floor, limit int) ([]domain.WalletStats, error)
}

// Qualifier lists wallets currently clearing the discovery criteria.
type Qualifier interface {
	Qualify(ctx context.Context) ([]domain.Winner, error)
	Criteria() discovery.Criteria
}

// Generator produces reports from stored data.
type Generator struct {
	rankings  Rankings
	qualifier Qualifier
	follows   storage.FollowStore
	announced storage.AnnouncedStore
	minTrades int
	limit     int
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. Rankings are cut at limit
// rows (stats.Unlimited for all).
func NewGenerator(rankings Rankings, qualifier Qualifier, follows storage.FollowStore, announced storage.AnnouncedStore, limit int) *Generator {
	return &Generator{
		rankings:  rankings,
		qualifier: qualifier,
		follows:   follows,
		announced: announced,
		minTrades: 1,
		limit:     limit,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithMinTrades sets the lifetime leaderboard floor.
func (g *Generator) WithMinTrades(n int) *Generator {
	g.minTrades = n
	return g
}

// Generate produces a complete leaderboard report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	criteria := g.qualifier.Criteria()

	lifetime, err := g.rankings.TopWallets(ctx, g.minTrades, stats.Unlimited)
	if err != nil {
		return nil, fmt.Errorf("lifetime ranking: %w", err)
	}
	days30, err := g.rankings.FilterWindow(ctx, discovery.ShortWindowDays, stats.Floor{}, g.limit)
	if err != nil {
		return nil, fmt.Errorf("%dd ranking: %w", discovery.ShortWindowDays, err)
	}
	days90, err := g.rankings.FilterWindow(ctx, discovery.LongWindowDays, stats.Floor{}, g.limit)
	if err != nil {
		return nil, fmt.Errorf("%dd ranking: %w", discovery.LongWindowDays, err)
	}

	winners, err := g.qualifier.Qualify(ctx)
	if err != nil {
		return nil, fmt.Errorf("qualify winners: %w", err)
	}
	discovery.SortByLifetimePnL(winners)

	follows, err := g.follows.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	announced, err := g.announced.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list announced: %w", err)
	}

	summary := summarize(lifetime)
	summary.Followed = len(follows)
	summary.Announced = len(announced)

	if g.limit > 0 && len(lifetime) > g.limit {
		lifetime = lifetime[:g.limit]
	}

	return &Report{
		GeneratedAt: g.now(),
		MinTrades:   g.minTrades,
		Criteria:    criteria,
		Summary:     summary,
		Lifetime:    lifetime,
		Days30:      days30,
		Days90:      days90,
		Winners:     winners,
		Follows:     follows,
		Announced:   announced,
	}, nil
}

// summarize totals the full lifetime ranking before it is cut.
func summarize(rows []domain.WalletStats) Summary {
	var (
		s   Summary
		pnl decimal.Decimal
	)
	for _, r := range rows {
		s.RankedWallets++
		s.RealizedTrades += r.Trades
		pnl = pnl.Add(decimal.NewFromFloat(r.PnLSum))
	}
	s.TotalPnL = pnl.Round(2).InexactFloat64()
	return s
}
