package reporting

import (
	"time"

	"wallet-winrate/internal/discovery"
	"wallet-winrate/internal/domain"
)

// Report is the leaderboard snapshot rendered by the report command.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	MinTrades   int // lifetime leaderboard floor
	Criteria    discovery.Criteria

	Summary Summary

	// Rankings, ordered by win rate desc, PnL desc, wallet asc
	Lifetime []domain.WalletStats
	Days30   []domain.WalletStats
	Days90   []domain.WalletStats

	// Wallets clearing every discovery horizon right now, by lifetime PnL
	Winners []domain.Winner

	// Follow list and announcement history, oldest first
	Follows   []*domain.FollowEntry
	Announced []*domain.AnnouncedEntry
}

// Summary holds the headline counts.
type Summary struct {
	RankedWallets  int
	RealizedTrades int
	TotalPnL       float64
	Followed       int
	Announced      int
}
