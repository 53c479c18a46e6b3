package domain

// WalletAggregate is the raw per-wallet grouping of realized trades.
type WalletAggregate struct {
	Wallet         string
	Wins           int
	Trades         int
	PnLSum         float64
	DistinctTokens int
}

// TokenAggregate is the raw per-token grouping of one wallet's realized trades.
type TokenAggregate struct {
	TokenMint string
	Wins      int
	Trades    int
	PnLSum    float64
}

// WalletStats is the ranked, rounded view of a WalletAggregate.
type WalletStats struct {
	Wallet         string  `json:"wallet"`
	Wins           int     `json:"wins"`
	Trades         int     `json:"trades"`
	WinRatePct     float64 `json:"win_rate_pct"` // 0..100, 2 decimals
	PnLSum         float64 `json:"pnl_sum"`      // 2 decimals
	DistinctTokens int     `json:"distinct_tokens"`
}

// TokenStats is one row of a wallet's per-token breakdown.
type TokenStats struct {
	TokenMint  string  `json:"token_mint"`
	Wins       int     `json:"wins"`
	Trades     int     `json:"trades"`
	WinRatePct float64 `json:"win_rate_pct"`
	PnLSum     float64 `json:"pnl_sum"`
}

// WalletSummary is the lifetime view of a single wallet.
type WalletSummary struct {
	Wallet   string       `json:"wallet"`
	Lifetime WalletStats  `json:"lifetime"`
	Tokens   []TokenStats `json:"tokens"` // ordered by PnL desc
	Open     []*Position  `json:"open_positions,omitempty"`
	Followed bool         `json:"followed"`
}

// Winner is a wallet that cleared the lifetime, 30-day and 90-day thresholds.
type Winner struct {
	Wallet   string      `json:"wallet"`
	Lifetime WalletStats `json:"lifetime"`
	Days30   WalletStats `json:"d30"`
	Days90   WalletStats `json:"d90"`
}
