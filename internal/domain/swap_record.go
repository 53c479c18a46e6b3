package domain

// Direction is the side of a swap from the wallet's point of view.
type Direction string

// Swap directions.
const (
	DirectionBuy  Direction = "BUY"  // base asset out, token in
	DirectionSell Direction = "SELL" // token out, base asset in
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// SwapRecord is a normalized swap executed by an observed wallet.
// Records are append-only and unique by Signature.
type SwapRecord struct {
	Signature   string    `json:"signature"`    // transaction signature, dedup key
	Timestamp   int64     `json:"timestamp"`    // block time, unix seconds
	Wallet      string    `json:"wallet"`       // fee payer / trader
	Direction   Direction `json:"direction"`    // BUY | SELL
	BaseMint    string    `json:"base_mint"`    // quote asset (USDC, wSOL)
	BaseAmount  float64   `json:"base_amount"`  // base units spent (BUY) or received (SELL)
	TokenMint   string    `json:"token_mint"`   // traded token
	TokenAmount float64   `json:"token_amount"` // token units received (BUY) or sent (SELL)
}

// PositionKey returns the (wallet, token) key the record applies to.
func (r *SwapRecord) PositionKey() string {
	return PositionKey(r.Wallet, r.TokenMint)
}
