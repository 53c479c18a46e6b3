package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes every event as a structured log line.
type LogNotifier struct {
	logger *zap.Logger
	assets map[string]string // base mint -> display symbol
}

// NewLogNotifier creates a LogNotifier. assets maps quote mints to symbols
// such as USDC or SOL and may be nil.
func NewLogNotifier(logger *zap.Logger, assets map[string]string) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notify"), assets: assets}
}

func (n *LogNotifier) symbol(mint string) string {
	if s, ok := n.assets[mint]; ok {
		return s
	}
	return mint
}

// RealizedTrade logs a realized trade.
func (n *LogNotifier) RealizedTrade(_ context.Context, e RealizedTradeEvent) {
	n.logger.Info("realized trade",
		zap.String("wallet", e.Wallet),
		zap.String("token", e.TokenMint),
		zap.Float64("pnl", e.PnL),
		zap.String("asset", n.symbol(e.BaseMint)),
		zap.Int64("ts", e.Timestamp),
	)
}

// FollowedSwap logs a swap by a followed wallet.
func (n *LogNotifier) FollowedSwap(_ context.Context, e FollowedSwapEvent) {
	n.logger.Info("followed wallet swap",
		zap.String("wallet", e.Wallet),
		zap.String("direction", string(e.Direction)),
		zap.String("token", e.TokenMint),
		zap.Float64("base_amount", e.BaseAmount),
		zap.String("asset", n.symbol(e.BaseMint)),
		zap.String("signature", e.Signature),
	)
}

// Winner logs a newly discovered long-term winner.
func (n *LogNotifier) Winner(_ context.Context, e WinnerEvent) {
	w := e.Winner
	n.logger.Info("long-term winner",
		zap.String("wallet", w.Wallet),
		zap.Int("life_trades", w.Lifetime.Trades),
		zap.Float64("life_win_rate", w.Lifetime.WinRatePct),
		zap.Float64("life_pnl", w.Lifetime.PnLSum),
		zap.Int("d30_trades", w.Days30.Trades),
		zap.Float64("d30_win_rate", w.Days30.WinRatePct),
		zap.Float64("d30_pnl", w.Days30.PnLSum),
		zap.Int("d90_trades", w.Days90.Trades),
		zap.Float64("d90_win_rate", w.Days90.WinRatePct),
		zap.Float64("d90_pnl", w.Days90.PnLSum),
	)
}

// Leaderboard logs the leaderboard, one line per wallet.
func (n *LogNotifier) Leaderboard(_ context.Context, e LeaderboardEvent) {
	n.logger.Info("leaderboard", zap.Int("min_trades", e.MinTrades), zap.Int("wallets", len(e.Wallets)))
	for i, s := range e.Wallets {
		n.logger.Info("leaderboard entry",
			zap.Int("rank", i+1),
			zap.String("wallet", s.Wallet),
			zap.Float64("win_rate", s.WinRatePct),
			zap.Int("trades", s.Trades),
			zap.Float64("pnl", s.PnLSum),
			zap.Int("tokens", s.DistinctTokens),
		)
	}
}
