package accounting

import (
	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/solana"
)

// Rejection reasons, used as metric labels.
const (
	RejectMalformed = "malformed"
	RejectAddress   = "address"
	RejectQuote     = "quote"
	RejectMinBase   = "min_base"
)

// Admission holds the rules a record must pass before it reaches the ledger.
// Webhook intake and backfills apply the same rules.
type Admission struct {
	QuoteMints   []string
	MinTradeBase float64
}

// Check returns "" for an admissible record, otherwise the rejection reason.
func (a Admission) Check(r *domain.SwapRecord) string {
	if err := ValidateRecord(r); err != nil {
		return RejectMalformed
	}
	if r.BaseAmount == 0 && r.TokenAmount == 0 {
		return RejectMalformed
	}
	if solana.ValidateSignature(r.Signature) != nil ||
		solana.ValidateWallet(r.Wallet) != nil ||
		solana.ValidateMint(r.BaseMint) != nil ||
		solana.ValidateMint(r.TokenMint) != nil {
		return RejectAddress
	}
	if !a.isQuote(r.BaseMint) || a.isQuote(r.TokenMint) {
		return RejectQuote
	}
	if r.BaseAmount < a.MinTradeBase {
		return RejectMinBase
	}
	return ""
}

func (a Admission) isQuote(mint string) bool {
	for _, m := range a.QuoteMints {
		if m == mint {
			return true
		}
	}
	return false
}
