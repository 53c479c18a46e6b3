package clickhouse

import (
	"context"
	"fmt"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/storage"
)

// RealizedTradeStore is the analytics copy of realized trades. It implements
// storage.RealizedTradeStore and storage.TradeAggregator, so the statistics
// engine can read from it instead of the ledger.
type RealizedTradeStore struct {
	conn *Conn
}

// NewRealizedTradeStore creates a new RealizedTradeStore.
func NewRealizedTradeStore(conn *Conn) *RealizedTradeStore {
	return &RealizedTradeStore{conn: conn}
}

// Compile-time interface checks.
var (
	_ storage.RealizedTradeStore = (*RealizedTradeStore)(nil)
	_ storage.TradeAggregator    = (*RealizedTradeStore)(nil)
)

// Insert adds a trade. Returns ErrDuplicateKey if trade_id exists.
func (s *RealizedTradeStore) Insert(ctx context.Context, t *domain.RealizedTrade) error {
	// ReplacingMergeTree only collapses on merge; check first for append-only semantics.
	exists, err := s.exists(ctx, t.TradeID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO realized_trades (
			trade_id, signature, ts, wallet, token_mint, pnl_base, base_mint, is_win
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = s.conn.Exec(ctx, query,
		t.TradeID, t.Signature, t.Timestamp, t.Wallet, t.TokenMint, t.PnL, t.BaseMint, boolToUInt8(t.IsWin),
	)
	if err != nil {
		return fmt.Errorf("insert realized trade: %w", err)
	}
	return nil
}

// GetByWallet retrieves all trades of a wallet, ordered by timestamp ASC.
func (s *RealizedTradeStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.RealizedTrade, error) {
	query := `
		SELECT trade_id, signature, ts, wallet, token_mint, pnl_base, base_mint, is_win
		FROM realized_trades FINAL
		WHERE wallet = ?
		ORDER BY ts ASC, trade_id ASC
	`

	rows, err := s.conn.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("query realized trades: %w", err)
	}
	defer rows.Close()

	var result []*domain.RealizedTrade
	for rows.Next() {
		var t domain.RealizedTrade
		var win uint8
		if err := rows.Scan(&t.TradeID, &t.Signature, &t.Timestamp, &t.Wallet, &t.TokenMint, &t.PnL, &t.BaseMint, &win); err != nil {
			return nil, fmt.Errorf("scan realized trade: %w", err)
		}
		t.IsWin = win == 1
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate realized trades: %w", err)
	}
	return result, nil
}

// AggregateByWallet groups trades with timestamp >= since by wallet.
func (s *RealizedTradeStore) AggregateByWallet(ctx context.Context, since int64) ([]*domain.WalletAggregate, error) {
	query := `
		SELECT wallet,
		       countIf(is_win = 1) AS wins,
		       count() AS trades,
		       sum(pnl_base) AS pnl_sum,
		       uniqExact(token_mint) AS tokens
		FROM realized_trades FINAL
		WHERE ts >= ?
		GROUP BY wallet
	`

	rows, err := s.conn.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("aggregate by wallet: %w", err)
	}
	defer rows.Close()

	var result []*domain.WalletAggregate
	for rows.Next() {
		var (
			a                    domain.WalletAggregate
			wins, trades, tokens uint64
		)
		if err := rows.Scan(&a.Wallet, &wins, &trades, &a.PnLSum, &tokens); err != nil {
			return nil, fmt.Errorf("scan wallet aggregate: %w", err)
		}
		a.Wins, a.Trades, a.DistinctTokens = int(wins), int(trades), int(tokens)
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
		       countIf(is_win = 1) AS wins,
		       count() AS trades,
		       sum(pnl_base) AS pnl_sum
		FROM realized_trades FINAL
		WHERE wallet = ?
		GROUP BY token_mint
	`

	rows, err := s.conn.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("aggregate by token: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenAggregate
	for rows.Next() {
		var (
			a            domain.TokenAggregate
			wins, trades uint64
		)
		if err := rows.Scan(&a.TokenMint, &wins, &trades, &a.PnLSum); err != nil {
			return nil, fmt.Errorf("scan token aggregate: %w", err)
		}
		a.Wins, a.Trades = int(wins), int(trades)
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token aggregates: %w", err)
	}
	return result, nil
}

func (s *RealizedTradeStore) exists(ctx context.Context, tradeID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM realized_trades WHERE trade_id = ?`, tradeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
