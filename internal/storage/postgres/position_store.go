package postgres

import (
	"context"
	"fmt"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	q querier
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{q: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Get retrieves a position. Returns ErrNotFound if not exists.
func (s *PositionStore) Get(ctx context.Context, wallet, tokenMint string) (*domain.Position, error) {
	return s.get(ctx, wallet, tokenMint, "")
}

// GetForUpdate takes a transaction-scoped advisory lock on (wallet, token)
// before reading, so it also serializes the first write of a new position
// across processes. The row lock is taken as well when the row exists.
func (s *PositionStore) GetForUpdate(ctx context.Context, wallet, tokenMint string) (*domain.Position, error) {
	_, err := s.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		domain.PositionKey(wallet, tokenMint))
	if err != nil {
		return nil, fmt.Errorf("lock position: %w", err)
	}
	return s.get(ctx, wallet, tokenMint, "FOR UPDATE")
}

func (s *PositionStore) get(ctx context.Context, wallet, tokenMint, lockClause string) (*domain.Position, error) {
	query := `
		SELECT wallet, token_mint, qty, cost_base
		FROM positions
		WHERE wallet = $1 AND token_mint = $2
	` + lockClause

	var p domain.Position
	err := s.q.QueryRow(ctx, query, wallet, tokenMint).Scan(
		&p.Wallet,
		&p.TokenMint,
		&p.Quantity,
		&p.CostBasis,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position: %w", err)
	}
	return &p, nil
}

// Upsert creates or overwrites the position.
func (s *PositionStore) Upsert(ctx context.Context, p *domain.Position) error {
	query := `
		INSERT INTO positions (wallet, token_mint, qty, cost_base, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (wallet, token_mint) DO UPDATE
		SET qty = EXCLUDED.qty, cost_base = EXCLUDED.cost_base, updated_at = now()
	`

	_, err := s.q.Exec(ctx, query, p.Wallet, p.TokenMint, p.Quantity, p.CostBasis)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}

// GetByWallet retrieves all positions of a wallet, ordered by token ASC.
func (s *PositionStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.Position, error) {
	query := `
		SELECT wallet, token_mint, qty, cost_base
		FROM positions
		WHERE wallet = $1
		ORDER BY token_mint ASC
	`

	rows, err := s.q.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get positions by wallet: %w", err)
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.Wallet, &p.TokenMint, &p.Quantity, &p.CostBasis); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return positions, nil
}
