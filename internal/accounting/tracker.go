// Package accounting turns swap records into positions and realized trades
// using weighted-average cost.
package accounting

import (
	"context"
	"errors"
	"fmt"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/storage"
)

// PositionTracker is the only writer of position rows.
type PositionTracker struct{}

// ApplyDelta adds the deltas to the (wallet, token) position, creating it at
// (0, 0) on first touch, and snaps near-zero results to zero. Callers run it
// inside a ledger transaction and under the key's lock.
func (PositionTracker) ApplyDelta(
	ctx context.Context,
	positions storage.PositionStore,
	wallet, tokenMint string,
	qtyDelta, costDelta float64,
) (*domain.Position, error) {
	pos, err := positions.GetForUpdate(ctx, wallet, tokenMint)
	if errors.Is(err, storage.ErrNotFound) {
		pos = &domain.Position{Wallet: wallet, TokenMint: tokenMint}
	} else if err != nil {
		return nil, fmt.Errorf("read position: %w", err)
	}

	pos.Apply(qtyDelta, costDelta)

	if err := positions.Upsert(ctx, pos); err != nil {
		return nil, fmt.Errorf("write position: %w", err)
	}
	return pos, nil
}
