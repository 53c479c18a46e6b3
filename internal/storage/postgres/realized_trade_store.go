package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/storage"
)

// RealizedTradeStore implements storage.RealizedTradeStore and
// storage.TradeAggregator using PostgreSQL.
type RealizedTradeStore struct {
	q querier
}

// NewRealizedTradeStore creates a new RealizedTradeStore.
func NewRealizedTradeStore(pool *Pool) *RealizedTradeStore {
	return &RealizedTradeStore{q: pool}
}

// Compile-time interface checks.
var (
	_ storage.RealizedTradeStore = (*RealizedTradeStore)(nil)
	_ storage.TradeAggregator    = (*RealizedTradeStore)(nil)
	_ storage.TradeLister        = (*RealizedTradeStore)(nil)
)

// Insert adds a new realized trade. Returns ErrDuplicateKey if trade_id exists.
func (s *RealizedTradeStore) Insert(ctx context.Context, t *domain.RealizedTrade) error {
	query := `
		INSERT INTO realized_trades (
			trade_id, signature, ts, wallet, token_mint, pnl_base, base_mint, is_win
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (trade_id) DO NOTHING
	`

	tag, err := s.q.Exec(ctx, query,
		t.TradeID,
		t.Signature,
		t.Timestamp,
		t.Wallet,
		t.TokenMint,
		t.PnL,
		t.BaseMint,
		t.IsWin,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert realized trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrDuplicateKey
	}
	return nil
}

// GetByWallet retrieves all trades of a wallet, ordered by timestamp ASC.
func (s *RealizedTradeStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.RealizedTrade, error) {
	query := `
		SELECT trade_id, signature, ts, wallet, token_mint, pnl_base, base_mint, is_win
		FROM realized_trades
		WHERE wallet = $1
		ORDER BY ts ASC, trade_id ASC
	`

	rows, err := s.q.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get realized trades by wallet: %w", err)
	}
	defer rows.Close()

	return scanRealizedTrades(rows)
}

// ListAfter returns up to limit trades strictly after cursor in
// (timestamp, trade_id) order.
func (s *RealizedTradeStore) ListAfter(ctx context.Context, cursor storage.TradeCursor, limit int) ([]*domain.RealizedTrade, error) {
	query := `
		SELECT trade_id, signature, ts, wallet, token_mint, pnl_base, base_mint, is_win
		FROM realized_trades
		WHERE (ts, trade_id) > ($1, $2)
		ORDER BY ts ASC, trade_id ASC
		LIMIT $3
	`

	rows, err := s.q.Query(ctx, query, cursor.Timestamp, cursor.TradeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list realized trades: %w", err)
	}
	defer rows.Close()

	return scanRealizedTrades(rows)
}

// AggregateByWallet groups trades with timestamp >= since by wallet.
func (s *RealizedTradeStore) AggregateByWallet(ctx context.Context, since int64) ([]*domain.WalletAggregate, error) {
	query := `
		SELECT wallet,
		       COUNT(*) FILTER (WHERE is_win) AS wins,
		       COUNT(*) AS trades,
		       COALESCE(SUM(pnl_base), 0) AS pnl_sum,
		       COUNT(DISTINCT token_mint) AS tokens
		FROM realized_trades
		WHERE ts >= $1
		GROUP BY wallet
	`

	rows, err := s.q.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("aggregate by wallet: %w", err)
	}
	defer rows.Close()

	var result []*domain.WalletAggregate
	for rows.Next() {
		var a domain.WalletAggregate
		if err := rows.Scan(&a.Wallet, &a.Wins, &a.Trades, &a.PnLSum, &a.DistinctTokens); err != nil {
			return nil, fmt.Errorf("scan wallet aggregate: %w", err)
		}
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet aggregates: %w", err)
	}
	return result, nil
}

// AggregateByToken groups one wallet's trades by token.
func (s *RealizedTradeStore) AggregateByToken(ctx context.Context, wallet string) ([]*domain.TokenAggregate, error) {
	query := `
		SELECT token_mint,
		       COUNT(*) FILTER (WHERE is_win) AS wins,
		       COUNT(*) AS trades,
		       COALESCE(SUM(pnl_base), 0) AS pnl_sum
		FROM realized_trades
		WHERE wallet = $1
		GROUP BY token_mint
	`

	rows, err := s.q.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("aggregate by token: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenAggregate
	for rows.Next() {
		var a domain.TokenAggregate
		if err := rows.Scan(&a.TokenMint, &a.Wins, &a.Trades, &a.PnLSum); err != nil {
			return nil, fmt.Errorf("scan token aggregate: %w", err)
		}
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token aggregates: %w", err)
	}
	return result, nil
}

// scanRealizedTrades scans multiple rows into a slice of RealizedTrade.
func scanRealizedTrades(rows pgx.Rows) ([]*domain.RealizedTrade, error) {
	var trades []*domain.RealizedTrade

	for rows.Next() {
		var t domain.RealizedTrade

		err := rows.Scan(
			&t.TradeID,
			&t.Signature,
			&t.Timestamp,
			&t.Wallet,
			&t.TokenMint,
			&t.PnL,
			&t.BaseMint,
			&t.IsWin,
		)
		if err != nil {
			return nil, fmt.Errorf("scan realized trade: %w", err)
		}
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate realized trades: %w", err)
	}

	return trades, nil
}
