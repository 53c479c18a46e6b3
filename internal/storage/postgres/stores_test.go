package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/storage"
)

func TestSwapRecordStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSwapRecordStore(pool)

	rec := &domain.SwapRecord{
		Signature:   "sig-1",
		Timestamp:   1700000000,
		Wallet:      "W1",
		Direction:   domain.DirectionBuy,
		BaseMint:    "USDC",
		BaseAmount:  100,
		TokenMint:   "T1",
		TokenAmount: 1000,
	}
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetBySignature(ctx, "sig-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	err = store.Insert(ctx, rec)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetBySignature(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	byWallet, err := store.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	assert.Len(t, byWallet, 1)
}

func TestPositionStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPositionStore(pool)

	_, err := store.Get(ctx, "W1", "T1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Upsert(ctx, &domain.Position{Wallet: "W1", TokenMint: "T1", Quantity: 10, CostBasis: 5}))
	require.NoError(t, store.Upsert(ctx, &domain.Position{Wallet: "W1", TokenMint: "T1", Quantity: 4, CostBasis: 2}))

	p, err := store.Get(ctx, "W1", "T1")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, p.Quantity, 1e-12)
	assert.InDelta(t, 2.0, p.CostBasis, 1e-12)

	require.NoError(t, store.Upsert(ctx, &domain.Position{Wallet: "W1", TokenMint: "T0", Quantity: 1, CostBasis: 1}))
	all, err := store.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "T0", all[0].TokenMint)
}

func TestRealizedTradeStore_Aggregates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRealizedTradeStore(pool)

	trades := []*domain.RealizedTrade{
		{TradeID: "a", Signature: "s1", Timestamp: 100, Wallet: "W1", TokenMint: "T1", PnL: 50, BaseMint: "USDC", IsWin: true},
		{TradeID: "b", Signature: "s2", Timestamp: 200, Wallet: "W1", TokenMint: "T2", PnL: -20, BaseMint: "USDC"},
		{TradeID: "c", Signature: "s3", Timestamp: 300, Wallet: "W1", TokenMint: "T1", PnL: 10, BaseMint: "USDC", IsWin: true},
		{TradeID: "d", Signature: "s4", Timestamp: 300, Wallet: "W2", TokenMint: "T1", PnL: -5, BaseMint: "USDC"},
	}
	for _, tr := range trades {
		require.NoError(t, store.Insert(ctx, tr))
	}
	assert.ErrorIs(t, store.Insert(ctx, trades[0]), storage.ErrDuplicateKey)

	aggs, err := store.AggregateByWallet(ctx, storage.SinceBeginning)
	require.NoError(t, err)
	byWallet := map[string]*domain.WalletAggregate{}
	for _, a := range aggs {
		byWallet[a.Wallet] = a
	}
	require.Len(t, byWallet, 2)
	assert.Equal(t, 2, byWallet["W1"].Wins)
	assert.Equal(t, 3, byWallet["W1"].Trades)
	assert.InDelta(t, 40.0, byWallet["W1"].PnLSum, 1e-9)
	assert.Equal(t, 2, byWallet["W1"].DistinctTokens)
	assert.Equal(t, 0, byWallet["W2"].Wins)

	// Lower bound is inclusive.
	recent, err := store.AggregateByWallet(ctx, 200)
	require.NoError(t, err)
	for _, a := range recent {
		if a.Wallet == "W1" {
			assert.Equal(t, 2, a.Trades)
		}
	}

	tokens, err := store.AggregateByToken(ctx, "W1")
	require.NoError(t, err)
	assert.Len(t, tokens, 2)

	got, err := store.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].TradeID)
	assert.True(t, got[0].IsWin)
}

func TestRealizedTradeStore_ListAfter(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRealizedTradeStore(pool)

	for _, tr := range []*domain.RealizedTrade{
		{TradeID: "b", Signature: "s1", Timestamp: 200, Wallet: "W1", TokenMint: "T1", PnL: 1, BaseMint: "USDC", IsWin: true},
		{TradeID: "a", Signature: "s2", Timestamp: 200, Wallet: "W1", TokenMint: "T1", PnL: 1, BaseMint: "USDC", IsWin: true},
		{TradeID: "c", Signature: "s3", Timestamp: 100, Wallet: "W2", TokenMint: "T2", PnL: -1, BaseMint: "USDC"},
	} {
		require.NoError(t, store.Insert(ctx, tr))
	}

	first, err := store.ListAfter(ctx, storage.FirstTrade, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "c", first[0].TradeID)
	assert.Equal(t, "a", first[1].TradeID)

	rest, err := store.ListAfter(ctx, storage.TradeCursor{Timestamp: 200, TradeID: "a"}, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "b", rest[0].TradeID)
}

func TestWalletLists(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	follows := NewFollowStore(pool)
	announced := NewAnnouncedStore(pool)

	require.NoError(t, follows.Follow(ctx, "W1", 10))
	require.NoError(t, follows.Follow(ctx, "W1", 20))
	list, err := follows.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(10), list[0].CreatedAt)

	ok, err := follows.IsFollowed(ctx, "W1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, follows.Unfollow(ctx, "W1"))
	require.NoError(t, follows.Unfollow(ctx, "W1"))
	ok, err = follows.IsFollowed(ctx, "W1")
	require.NoError(t, err)
	assert.False(t, ok)

	inserted, err := announced.MarkAnnounced(ctx, "W9", 5)
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = announced.MarkAnnounced(ctx, "W9", 6)
	require.NoError(t, err)
	assert.False(t, inserted)

	ok, err = announced.IsAnnounced(ctx, "W9")
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := announced.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(5), entries[0].AnnouncedAt)
}
