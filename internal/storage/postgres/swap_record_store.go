package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/storage"
)

// SwapRecordStore implements storage.SwapRecordStore using PostgreSQL.
type SwapRecordStore struct {
	q querier
}

// NewSwapRecordStore creates a new SwapRecordStore.
func NewSwapRecordStore(pool *Pool) *SwapRecordStore {
	return &SwapRecordStore{q: pool}
}

// Compile-time interface check.
var _ storage.SwapRecordStore = (*SwapRecordStore)(nil)

// Insert adds a new swap. Returns ErrDuplicateKey if signature exists.
// Conflicts are resolved without raising, so an enclosing transaction stays usable.
func (s *SwapRecordStore) Insert(ctx context.Context, r *domain.SwapRecord) error {
	query := `
		INSERT INTO swaps (
			signature, ts, wallet, direction, base_mint, base_amount, token_mint, token_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (signature) DO NOTHING
	`

	tag, err := s.q.Exec(ctx, query,
		r.Signature,
		r.Timestamp,
		r.Wallet,
		string(r.Direction),
		r.BaseMint,
		r.BaseAmount,
		r.TokenMint,
		r.TokenAmount,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert swap: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrDuplicateKey
	}
	return nil
}

// GetBySignature retrieves a swap. Returns ErrNotFound if not exists.
func (s *SwapRecordStore) GetBySignature(ctx context.Context, signature string) (*domain.SwapRecord, error) {
	query := `
		SELECT signature, ts, wallet, direction, base_mint, base_amount, token_mint, token_amount
		FROM swaps
		WHERE signature = $1
	`

	rows, err := s.q.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("get swap by signature: %w", err)
	}
	defer rows.Close()

	records, err := scanSwapRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

// GetByWallet retrieves all swaps of a wallet, ordered by timestamp ASC.
func (s *SwapRecordStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.SwapRecord, error) {
	query := `
		SELECT signature, ts, wallet, direction, base_mint, base_amount, token_mint, token_amount
		FROM swaps
		WHERE wallet = $1
		ORDER BY ts ASC, signature ASC
	`

	rows, err := s.q.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get swaps by wallet: %w", err)
	}
	defer rows.Close()

	return scanSwapRecords(rows)
}

// scanSwapRecords scans multiple rows into a slice of SwapRecord.
func scanSwapRecords(rows pgx.Rows) ([]*domain.SwapRecord, error) {
	var records []*domain.SwapRecord

	for rows.Next() {
		var r domain.SwapRecord
		var direction string

		err := rows.Scan(
			&r.Signature,
			&r.Timestamp,
			&r.Wallet,
			&direction,
			&r.BaseMint,
			&r.BaseAmount,
			&r.TokenMint,
			&r.TokenAmount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap: %w", err)
		}
		r.Direction = domain.Direction(direction)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swaps: %w", err)
	}

	return records, nil
}
