package accounting

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/notify"
	"wallet-winrate/internal/storage"
	"wallet-winrate/internal/storage/memory"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	ledger   *memory.Ledger
	recorder *notify.Recorder
	mirror   *memory.RealizedTradeStore
	ingestor *Ingestor
}

func newFixture() *fixture {
	f := &fixture{
		ledger:   memory.NewLedger(),
		recorder: notify.NewRecorder(),
		mirror:   memory.NewRealizedTradeStore(),
	}
	f.ingestor = NewIngestor(IngestorOptions{
		Ledger:   f.ledger,
		Notifier: f.recorder,
		Mirror:   f.mirror,
		Clock:    func() time.Time { return fixedNow },
	})
	return f
}

var sigSeq int

func swap(wallet string, dir domain.Direction, tokenAmt, baseAmt float64) *domain.SwapRecord {
	sigSeq++
	return &domain.SwapRecord{
		Signature:   fmt.Sprintf("sig-%d", sigSeq),
		Timestamp:   fixedNow.Unix() - 60,
		Wallet:      wallet,
		Direction:   dir,
		BaseMint:    "USDC",
		BaseAmount:  baseAmt,
		TokenMint:   "T",
		TokenAmount: tokenAmt,
	}
}

func (f *fixture) ingest(t *testing.T, r *domain.SwapRecord) IngestResult {
	t.Helper()
	res, err := f.ingestor.Ingest(context.Background(), r)
	require.NoError(t, err)
	return res
}

func (f *fixture) position(t *testing.T, wallet, token string) *domain.Position {
	t.Helper()
	p, err := f.ledger.Positions().Get(context.Background(), wallet, token)
	require.NoError(t, err)
	return p
}

func (f *fixture) trades(t *testing.T, wallet string) []*domain.RealizedTrade {
	t.Helper()
	trades, err := f.ledger.RealizedTrades().GetByWallet(context.Background(), wallet)
	require.NoError(t, err)
	return trades
}

func TestIngest_BuyThenFullSell(t *testing.T) {
	f := newFixture()

	f.ingest(t, swap("W1", domain.DirectionBuy, 100, 50))
	res := f.ingest(t, swap("W1", domain.DirectionSell, 100, 80))

	require.True(t, res.Inserted)
	require.NotNil(t, res.Trade)
	assert.InDelta(t, 30.0, res.PnL, 1e-12)
	assert.True(t, res.Trade.IsWin)
	assert.Equal(t, fixedNow.Unix(), res.Trade.Timestamp)
	assert.Equal(t, "USDC", res.Trade.BaseMint)

	p := f.position(t, "W1", "T")
	assert.Equal(t, 0.0, p.Quantity)
	assert.Equal(t, 0.0, p.CostBasis)

	require.Len(t, f.trades(t, "W1"), 1)
}

func TestIngest_SellWithoutBuy(t *testing.T) {
	f := newFixture()

	res := f.ingest(t, swap("W2", domain.DirectionSell, 10, 5))

	assert.True(t, res.Inserted)
	assert.Nil(t, res.Trade)
	assert.Equal(t, 0.0, res.PnL)
	assert.Empty(t, f.trades(t, "W2"))

	p := f.position(t, "W2", "T")
	assert.Equal(t, -10.0, p.Quantity)
	assert.Equal(t, 0.0, p.CostBasis)
	assert.Empty(t, f.recorder.RealizedTrades())
}

func TestIngest_DuplicateSignatureIsNoop(t *testing.T) {
	f := newFixture()
	buy := swap("W1", domain.DirectionBuy, 100, 50)
	sell := swap("W1", domain.DirectionSell, 50, 40)

	f.ingest(t, buy)
	f.ingest(t, sell)
	before := f.position(t, "W1", "T")

	again := f.ingest(t, buy)
	assert.False(t, again.Inserted)
	again = f.ingest(t, sell)
	assert.False(t, again.Inserted)
	assert.Nil(t, again.Trade)

	assert.Equal(t, before, f.position(t, "W1", "T"))
	assert.Len(t, f.trades(t, "W1"), 1)
	assert.Len(t, f.recorder.RealizedTrades(), 1)
}

func TestIngest_CostBasisConservation(t *testing.T) {
	f := newFixture()

	f.ingest(t, swap("W1", domain.DirectionBuy, 10, 5))
	f.ingest(t, swap("W1", domain.DirectionBuy, 30, 20))
	f.ingest(t, swap("W1", domain.DirectionBuy, 60, 25))

	p := f.position(t, "W1", "T")
	assert.InDelta(t, 100.0, p.Quantity, 1e-12)
	assert.InDelta(t, 50.0, p.CostBasis, 1e-12)
}

func TestIngest_PartialExitKeepsAverageCost(t *testing.T) {
	f := newFixture()

	f.ingest(t, swap("W1", domain.DirectionBuy, 100, 50))
	avgBefore := f.position(t, "W1", "T").AvgCost()

	res := f.ingest(t, swap("W1", domain.DirectionSell, 40, 30))

	// 40% of a 50 cost basis is 20.
	assert.InDelta(t, 10.0, res.PnL, 1e-12)
	p := f.position(t, "W1", "T")
	assert.InDelta(t, 60.0, p.Quantity, 1e-12)
	assert.InDelta(t, 30.0, p.CostBasis, 1e-12)
	assert.InDelta(t, avgBefore, p.AvgCost(), 1e-12)
}

func TestIngest_OversellClampsPortion(t *testing.T) {
	f := newFixture()

	f.ingest(t, swap("W1", domain.DirectionBuy, 100, 50))
	res := f.ingest(t, swap("W1", domain.DirectionSell, 150, 90))

	assert.InDelta(t, 40.0, res.PnL, 1e-12)
	p := f.position(t, "W1", "T")
	assert.InDelta(t, -50.0, p.Quantity, 1e-12)
	assert.Equal(t, 0.0, p.CostBasis)
}

func TestIngest_NoProceedsNoTrade(t *testing.T) {
	f := newFixture()

	f.ingest(t, swap("W1", domain.DirectionBuy, 100, 50))
	res := f.ingest(t, swap("W1", domain.DirectionSell, 30, 0))

	assert.Nil(t, res.Trade)
	assert.Empty(t, f.trades(t, "W1"))

	p := f.position(t, "W1", "T")
	assert.InDelta(t, 70.0, p.Quantity, 1e-12)
	assert.InDelta(t, 50.0, p.CostBasis, 1e-12)
}

func TestIngest_EpsilonSnapsToZero(t *testing.T) {
	f := newFixture()

	f.ingest(t, swap("W1", domain.DirectionBuy, 1, 1))
	f.ingest(t, swap("W1", domain.DirectionSell, 1-1e-10, 2))

	p := f.position(t, "W1", "T")
	assert.Equal(t, 0.0, p.Quantity)
	assert.Equal(t, 0.0, p.CostBasis)
}

func TestIngest_ZeroPnLRecordedButNotAnnounced(t *testing.T) {
	f := newFixture()

	f.ingest(t, swap("W1", domain.DirectionBuy, 10, 5))
	res := f.ingest(t, swap("W1", domain.DirectionSell, 10, 5))

	require.NotNil(t, res.Trade)
	assert.False(t, res.Trade.IsWin)
	assert.Empty(t, f.recorder.RealizedTrades())
}

func TestIngest_NotificationsAndMirror(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.ledger.Follows().Follow(ctx, "W1", fixedNow.Unix()))

	f.ingest(t, swap("W1", domain.DirectionBuy, 100, 50))
	f.ingest(t, swap("W1", domain.DirectionSell, 100, 40))
	f.ingest(t, swap("W9", domain.DirectionBuy, 1, 1))

	followed := f.recorder.FollowedSwaps()
	require.Len(t, followed, 2)
	assert.Equal(t, domain.DirectionBuy, followed[0].Direction)
	assert.Equal(t, domain.DirectionSell, followed[1].Direction)

	realized := f.recorder.RealizedTrades()
	require.Len(t, realized, 1)
	assert.InDelta(t, -10.0, realized[0].PnL, 1e-12)

	mirrored, err := f.mirror.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	require.Len(t, mirrored, 1)
	assert.False(t, mirrored[0].IsWin)
}

func TestIngest_RejectsMalformed(t *testing.T) {
	f := newFixture()

	bad := swap("W1", "HOLD", 1, 1)
	_, err := f.ingestor.Ingest(context.Background(), bad)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	neg := swap("W1", domain.DirectionBuy, -1, 1)
	_, err = f.ingestor.Ingest(context.Background(), neg)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = f.ledger.Swaps().GetBySignature(context.Background(), bad.Signature)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIngest_ConcurrentSameKey(t *testing.T) {
	f := newFixture()

	records := make([]*domain.SwapRecord, 200)
	for i := range records {
		records[i] = swap("W1", domain.DirectionBuy, 1, 0.5)
	}

	var wg sync.WaitGroup
	for _, r := range records {
		wg.Add(1)
		go func(r *domain.SwapRecord) {
			defer wg.Done()
			_, err := f.ingestor.Ingest(context.Background(), r)
			assert.NoError(t, err)
		}(r)
	}
	// Redeliver every record concurrently with the first delivery.
	for _, r := range records {
		wg.Add(1)
		go func(r *domain.SwapRecord) {
			defer wg.Done()
			_, err := f.ingestor.Ingest(context.Background(), r)
			assert.NoError(t, err)
		}(r)
	}
	wg.Wait()

	p := f.position(t, "W1", "T")
	assert.InDelta(t, 200.0, p.Quantity, 1e-9)
	assert.InDelta(t, 100.0, p.CostBasis, 1e-9)
}

func TestIngest_BookAtSwapTime(t *testing.T) {
	ledger := memory.NewLedger()
	ingestor := NewIngestor(IngestorOptions{
		Ledger:         ledger,
		Clock:          func() time.Time { return fixedNow },
		BookAtSwapTime: true,
	})
	old := fixedNow.AddDate(-1, 0, 0).Unix()

	buy := swap("W", domain.DirectionBuy, 10, 100)
	sell := swap("W", domain.DirectionSell, 10, 150)
	buy.Timestamp, sell.Timestamp = old-60, old

	_, err := ingestor.Ingest(context.Background(), buy)
	require.NoError(t, err)
	res, err := ingestor.Ingest(context.Background(), sell)
	require.NoError(t, err)
	require.NotNil(t, res.Trade)
	assert.Equal(t, old, res.Trade.Timestamp)

	// Live ingestion books at the clock.
	f := newFixture()
	f.ingest(t, swap("W", domain.DirectionBuy, 10, 100))
	live := f.ingest(t, swap("W", domain.DirectionSell, 10, 150))
	require.NotNil(t, live.Trade)
	assert.Equal(t, fixedNow.Unix(), live.Trade.Timestamp)
}

// panickingLedger panics inside the first transaction it is asked to run.
type panickingLedger struct {
	*memory.Ledger
	once sync.Once
}

func (l *panickingLedger) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	l.once.Do(func() { panic("store failure") })
	return l.Ledger.RunInTx(ctx, fn)
}

func TestIngest_PanicReleasesPositionKey(t *testing.T) {
	ingestor := NewIngestor(IngestorOptions{
		Ledger: &panickingLedger{Ledger: memory.NewLedger()},
		Clock:  func() time.Time { return fixedNow },
	})

	func() {
		defer func() {
			assert.NotNil(t, recover())
		}()
		ingestor.Ingest(context.Background(), swap("W", domain.DirectionBuy, 1, 10))
	}()

	done := make(chan error, 1)
	go func() {
		_, err := ingestor.Ingest(context.Background(), swap("W", domain.DirectionBuy, 1, 10))
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("position key still held after panic")
	}
}
