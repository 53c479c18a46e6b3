package domain

// RealizedTrade is the closed PnL of a sell against an open position.
// Append-only; at most one per triggering swap signature.
type RealizedTrade struct {
	TradeID   string  `json:"trade_id"`  // deterministic hash of the swap signature
	Signature string  `json:"signature"` // triggering sell
	Timestamp int64   `json:"timestamp"` // recording time, unix seconds
	Wallet    string  `json:"wallet"`
	TokenMint string  `json:"token_mint"`
	PnL       float64 `json:"pnl"`       // base units, signed
	BaseMint  string  `json:"base_mint"` // quote asset the pnl is denominated in
	IsWin     bool    `json:"is_win"`    // PnL > 0
}
