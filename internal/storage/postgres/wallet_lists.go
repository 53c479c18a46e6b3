package postgres

import (
	"context"
	"fmt"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/storage"
)

// FollowStore implements storage.FollowStore using PostgreSQL.
type FollowStore struct {
	q querier
}

// NewFollowStore creates a new FollowStore.
func NewFollowStore(pool *Pool) *FollowStore {
	return &FollowStore{q: pool}
}

// Compile-time interface check.
var _ storage.FollowStore = (*FollowStore)(nil)

// Follow adds the wallet, keeping the original timestamp if already followed.
func (s *FollowStore) Follow(ctx context.Context, wallet string, at int64) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO follows (wallet, created_at) VALUES ($1, $2)
		ON CONFLICT (wallet) DO NOTHING
	`, wallet, at)
	if err != nil {
		return fmt.Errorf("follow wallet: %w", err)
	}
	return nil
}

// Unfollow removes the wallet.
func (s *FollowStore) Unfollow(ctx context.Context, wallet string) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM follows WHERE wallet = $1`, wallet); err != nil {
		return fmt.Errorf("unfollow wallet: %w", err)
	}
	return nil
}

// IsFollowed reports whether the wallet is on the list.
func (s *FollowStore) IsFollowed(ctx context.Context, wallet string) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM follows WHERE wallet = $1)`, wallet).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check follow: %w", err)
	}
	return exists, nil
}

// List returns all entries ordered by creation time ASC.
func (s *FollowStore) List(ctx context.Context) ([]*domain.FollowEntry, error) {
	rows, err := s.q.Query(ctx, `SELECT wallet, created_at FROM follows ORDER BY created_at ASC, wallet ASC`)
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	defer rows.Close()

	var entries []*domain.FollowEntry
	for rows.Next() {
		var e domain.FollowEntry
		if err := rows.Scan(&e.Wallet, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan follow: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate follows: %w", err)
	}
	return entries, nil
}

// AnnouncedStore implements storage.AnnouncedStore using PostgreSQL.
type AnnouncedStore struct {
	q querier
}

// NewAnnouncedStore creates a new AnnouncedStore.
func NewAnnouncedStore(pool *Pool) *AnnouncedStore {
	return &AnnouncedStore{q: pool}
}

// Compile-time interface check.
var _ storage.AnnouncedStore = (*AnnouncedStore)(nil)

// MarkAnnounced inserts the wallet if absent.
func (s *AnnouncedStore) MarkAnnounced(ctx context.Context, wallet string, at int64) (bool, error) {
	tag, err := s.q.Exec(ctx, `
		INSERT INTO announced (wallet, announced_at) VALUES ($1, $2)
		ON CONFLICT (wallet) DO NOTHING
	`, wallet, at)
	if err != nil {
		return false, fmt.Errorf("mark announced: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// IsAnnounced reports whether the wallet was ever announced.
func (s *AnnouncedStore) IsAnnounced(ctx context.Context, wallet string) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM announced WHERE wallet = $1)`, wallet).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check announced: %w", err)
	}
	return exists, nil
}

// List returns all entries ordered by announcement time ASC.
func (s *AnnouncedStore) List(ctx context.Context) ([]*domain.AnnouncedEntry, error) {
	rows, err := s.q.Query(ctx, `SELECT wallet, announced_at FROM announced ORDER BY announced_at ASC, wallet ASC`)
	if err != nil {
		return nil, fmt.Errorf("list announced: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AnnouncedEntry
	for rows.Next() {
		var e domain.AnnouncedEntry
		if err := rows.Scan(&e.Wallet, &e.AnnouncedAt); err != nil {
			return nil, fmt.Errorf("scan announced: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate announced: %w", err)
	}
	return entries, nil
}
