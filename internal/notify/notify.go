// Package notify carries accounting and discovery events to operators.
// Formatting and delivery belong to implementations; callers never block on
// or fail because of a notifier.
package notify

import (
	"context"

	"wallet-winrate/internal/domain"
)

// Event kinds, used as the "type" field on serialized events.
const (
	KindRealizedTrade = "realized_trade"
	KindFollowedSwap  = "followed_swap"
	KindWinner        = "winner"
	KindLeaderboard   = "leaderboard"
)

// RealizedTradeEvent reports a realized trade with non-zero PnL.
type RealizedTradeEvent struct {
	Wallet    string  `json:"wallet"`
	TokenMint string  `json:"token_mint"`
	PnL       float64 `json:"pnl"`
	BaseMint  string  `json:"base_mint"`
	Timestamp int64   `json:"timestamp"`
}

// FollowedSwapEvent reports a newly ingested swap by a followed wallet.
type FollowedSwapEvent struct {
	Wallet     string           `json:"wallet"`
	Direction  domain.Direction `json:"direction"`
	TokenMint  string           `json:"token_mint"`
	BaseAmount float64          `json:"base_amount"`
	BaseMint   string           `json:"base_mint"`
	Timestamp  int64            `json:"timestamp"`
	Signature  string           `json:"signature"`
}

// WinnerEvent reports a wallet qualifying as a long-term winner.
type WinnerEvent struct {
	Winner domain.Winner `json:"winner"`
}

// LeaderboardEvent is the periodic lifetime leaderboard push.
type LeaderboardEvent struct {
	MinTrades int                  `json:"min_trades"`
	Wallets   []domain.WalletStats `json:"wallets"`
}

// Notifier receives events. Implementations must be safe for concurrent use.
type Notifier interface {
	RealizedTrade(ctx context.Context, e RealizedTradeEvent)
	FollowedSwap(ctx context.Context, e FollowedSwapEvent)
	Winner(ctx context.Context, e WinnerEvent)
	Leaderboard(ctx context.Context, e LeaderboardEvent)
}

// Nop discards every event.
type Nop struct{}

func (Nop) RealizedTrade(context.Context, RealizedTradeEvent) {}
func (Nop) FollowedSwap(context.Context, FollowedSwapEvent)   {}
func (Nop) Winner(context.Context, WinnerEvent)               {}
func (Nop) Leaderboard(context.Context, LeaderboardEvent)     {}

// Multi fans every event out to each notifier in order.
type Multi []Notifier

func (m Multi) RealizedTrade(ctx context.Context, e RealizedTradeEvent) {
	for _, n := range m {
		n.RealizedTrade(ctx, e)
	}
}

func (m Multi) FollowedSwap(ctx context.Context, e FollowedSwapEvent) {
	for _, n := range m {
		n.FollowedSwap(ctx, e)
	}
}

func (m Multi) Winner(ctx context.Context, e WinnerEvent) {
	for _, n := range m {
		n.Winner(ctx, e)
	}
}

func (m Multi) Leaderboard(ctx context.Context, e LeaderboardEvent) {
	for _, n := range m {
		n.Leaderboard(ctx, e)
	}
}
