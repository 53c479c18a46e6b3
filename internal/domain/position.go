package domain

import "math"

// PositionEpsilon is the magnitude below which quantities and cost basis
// are treated as exactly zero.
const PositionEpsilon = 1e-9

// Position is the running holding of one token by one wallet.
// Quantity may go negative when sells arrive without a recorded buy.
type Position struct {
	Wallet    string  `json:"wallet"`
	TokenMint string  `json:"token_mint"`
	Quantity  float64 `json:"quantity"`
	CostBasis float64 `json:"cost_basis"` // base units
}

// AvgCost returns cost basis per token unit, or 0 for a flat position.
func (p *Position) AvgCost() float64 {
	if p.Quantity <= 0 {
		return 0
	}
	return p.CostBasis / p.Quantity
}

// Apply adds the deltas and snaps near-zero results to exactly zero.
func (p *Position) Apply(qtyDelta, costDelta float64) {
	p.Quantity = Snap(p.Quantity + qtyDelta)
	p.CostBasis = Snap(p.CostBasis + costDelta)
}

// Snap returns 0 when |v| < PositionEpsilon, otherwise v.
func Snap(v float64) float64 {
	if math.Abs(v) < PositionEpsilon {
		return 0
	}
	return v
}

// PositionKey joins wallet and token into a single lookup key.
func PositionKey(wallet, tokenMint string) string {
	return wallet + "|" + tokenMint
}
