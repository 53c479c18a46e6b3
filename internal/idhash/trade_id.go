package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRealizedTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(signature|wallet|token_mint)
// Returns hex-encoded hash (64 characters).
func ComputeRealizedTradeID(signature, wallet, tokenMint string) string {
	data := fmt.Sprintf("%s|%s|%s", signature, wallet, tokenMint)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
