package replay

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"wallet-winrate/internal/accounting"
	"wallet-winrate/internal/discovery"
	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/solana"
	"wallet-winrate/internal/stats"
	"wallet-winrate/internal/storage"
	"wallet-winrate/internal/storage/memory"
)

func newTestRunner(t *testing.T) (*Runner, *memory.Ledger) {
	t.Helper()
	ledger := memory.NewLedger()
	fixed := time.Unix(1_700_000_000, 0)
	ingestor := accounting.NewIngestor(accounting.IngestorOptions{
		Ledger: ledger,
		Clock:  func() time.Time { return fixed },
	})
	return NewRunner(ingestor, nil), ledger
}

func swap(sig string, ts int64, dir domain.Direction, base, tokens float64) *domain.SwapRecord {
	return &domain.SwapRecord{
		Signature:   sig,
		Timestamp:   ts,
		Wallet:      "wallet1",
		Direction:   dir,
		BaseMint:    "USDC",
		BaseAmount:  base,
		TokenMint:   "token1",
		TokenAmount: tokens,
	}
}

func TestSortRecords_TimestampThenSignature(t *testing.T) {
	records := []*domain.SwapRecord{
		swap("c", 300, domain.DirectionBuy, 1, 1),
		swap("b", 100, domain.DirectionBuy, 1, 1),
		swap("a", 100, domain.DirectionBuy, 1, 1),
		swap("d", 200, domain.DirectionBuy, 1, 1),
	}
	SortRecords(records)

	want := []string{"a", "b", "d", "c"}
	for i, r := range records {
		if r.Signature != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], r.Signature)
		}
	}
	if !IsSorted(records) {
		t.Error("expected records to be sorted")
	}
}

func TestRunner_AppliesInChainOrder(t *testing.T) {
	runner, ledger := newTestRunner(t)
	ctx := context.Background()

	// Sell listed before the buy it closes.
	records := []*domain.SwapRecord{
		swap("sig-sell", 200, domain.DirectionSell, 150, 10),
		swap("sig-buy", 100, domain.DirectionBuy, 100, 10),
	}

	st, err := runner.Run(ctx, records)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if st.Inserted != 2 || st.Realized != 1 {
		t.Fatalf("expected 2 inserted and 1 realized, got %+v", st)
	}
	if st.RealizedPnL != 50 {
		t.Errorf("expected realized pnl 50, got %v", st.RealizedPnL)
	}
	if st.FirstTimestamp != 100 || st.LastTimestamp != 200 {
		t.Errorf("unexpected time bounds: %d..%d", st.FirstTimestamp, st.LastTimestamp)
	}

	trades, err := ledger.RealizedTrades().GetByWallet(ctx, "wallet1")
	if err != nil {
		t.Fatalf("GetByWallet failed: %v", err)
	}
	if len(trades) != 1 || !trades[0].IsWin {
		t.Fatalf("expected one winning trade, got %+v", trades)
	}
}

func TestRunner_RepeatIsIdempotent(t *testing.T) {
	runner, ledger := newTestRunner(t)
	ctx := context.Background()

	load := func() []*domain.SwapRecord {
		return []*domain.SwapRecord{
			swap("sig-buy", 100, domain.DirectionBuy, 100, 10),
			swap("sig-sell", 200, domain.DirectionSell, 80, 5),
		}
	}
	if _, err := runner.Run(ctx, load()); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	st, err := runner.Run(ctx, load())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if st.Duplicates != 2 || st.Inserted != 0 {
		t.Errorf("expected 2 duplicates on repeat, got %+v", st)
	}

	pos, err := ledger.Positions().Get(ctx, "wallet1", "token1")
	if err != nil {
		t.Fatalf("Get position failed: %v", err)
	}
	if pos.Quantity != 5 || pos.CostBasis != 50 {
		t.Errorf("expected position 5 @ 50, got %v @ %v", pos.Quantity, pos.CostBasis)
	}
}

func TestRunner_SkipsInvalidRecords(t *testing.T) {
	runner, _ := newTestRunner(t)

	bad := swap("sig-bad", 100, "HOLD", 1, 1)
	st, err := runner.Run(context.Background(), []*domain.SwapRecord{
		bad,
		swap("sig-ok", 101, domain.DirectionBuy, 10, 1),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if st.Rejected != 1 || st.Inserted != 1 {
		t.Errorf("expected 1 rejected and 1 inserted, got %+v", st)
	}
}

func TestRunner_StopsOnCancelledContext(t *testing.T) {
	runner, _ := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, []*domain.SwapRecord{swap("sig", 1, domain.DirectionBuy, 1, 1)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReadRecords_Formats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"empty", "  \n", 0},
		{"array", `[{"signature":"a","direction":"BUY"},{"signature":"b","direction":"SELL"}]`, 2},
		{"ndjson", "{\"signature\":\"a\"}\n\n{\"signature\":\"b\"}\n{\"signature\":\"c\"}\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ReadRecords(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ReadRecords failed: %v", err)
			}
			if len(records) != tt.want {
				t.Errorf("expected %d records, got %d", tt.want, len(records))
			}
		})
	}
}

func TestReadRecords_Malformed(t *testing.T) {
	_, err := ReadRecords(strings.NewReader("{\"signature\":\"a\"}\n{not json}\n"))
	if !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line number in error, got %v", err)
	}
}

func TestRunner_HistoricalDumpStaysOutOfRecentWindows(t *testing.T) {
	ledger := memory.NewLedger()
	fixed := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return fixed }
	ingestor := accounting.NewIngestor(accounting.IngestorOptions{
		Ledger:         ledger,
		Clock:          clock,
		BookAtSwapTime: true,
	})

	yearAgo := fixed.AddDate(-1, 0, 0).Unix()
	var records []*domain.SwapRecord
	for i := 0; i < 40; i++ {
		ts := yearAgo + int64(i)*60
		records = append(records,
			swap(fmt.Sprintf("buy-%02d", i), ts, domain.DirectionBuy, 100, 10),
			swap(fmt.Sprintf("sell-%02d", i), ts+30, domain.DirectionSell, 200, 10),
		)
	}
	st, err := NewRunner(ingestor, nil).Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if st.Realized != 40 {
		t.Fatalf("expected 40 realized trades, got %d", st.Realized)
	}

	engine := stats.NewEngine(stats.EngineOptions{Aggregator: ledger.Aggregates(), Clock: clock})
	window, err := engine.WindowStats(context.Background(), 30)
	if err != nil {
		t.Fatalf("WindowStats failed: %v", err)
	}
	if len(window) != 0 {
		t.Errorf("expected empty 30d window, got %+v", window)
	}
	lifetime, err := engine.TopWallets(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("TopWallets failed: %v", err)
	}
	if len(lifetime) != 1 || lifetime[0].Trades != 40 {
		t.Errorf("expected one wallet with 40 lifetime trades, got %+v", lifetime)
	}

	filter := discovery.NewFilter(discovery.Options{
		Stats:     engine,
		Announced: ledger.Announced(),
		Criteria:  discovery.DefaultCriteria(),
		Clock:     clock,
	})
	winners, err := filter.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(winners) != 0 {
		t.Errorf("expected no winners from a year-old dump, got %d", len(winners))
	}
}

func TestRunner_AdmissionMatchesIntake(t *testing.T) {
	runner, _ := newTestRunner(t)
	runner.WithAdmission(accounting.Admission{QuoteMints: []string{solana.MintUSDC}, MinTradeBase: 50})

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	token := make([]byte, solana.AddressLength)
	token[0] = 9
	valid := func(n byte, base float64) *domain.SwapRecord {
		sig := make([]byte, solana.SignatureLength)
		sig[0] = n
		return &domain.SwapRecord{
			Signature:   solana.Encode(sig),
			Timestamp:   int64(n),
			Wallet:      solana.Encode(pub),
			Direction:   domain.DirectionBuy,
			BaseMint:    solana.MintUSDC,
			BaseAmount:  base,
			TokenMint:   solana.Encode(token),
			TokenAmount: 1,
		}
	}

	st, err := runner.Run(context.Background(), []*domain.SwapRecord{
		valid(1, 100),
		valid(2, 10),                                  // below MIN_TRADE_BASE
		swap("plain", 3, domain.DirectionBuy, 100, 1), // not base58 addresses
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if st.Inserted != 1 || st.Rejected != 2 {
		t.Errorf("expected 1 inserted and 2 rejected, got %+v", st)
	}
}

// flakyMirror fails every insert while down.
type flakyMirror struct {
	*memory.RealizedTradeStore
	down bool
}

func (m *flakyMirror) Insert(ctx context.Context, t *domain.RealizedTrade) error {
	if m.down {
		return errors.New("mirror unavailable")
	}
	return m.RealizedTradeStore.Insert(ctx, t)
}

func TestReconciler_BackfillsMirrorAfterOutage(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	mirror := &flakyMirror{RealizedTradeStore: memory.NewRealizedTradeStore(), down: true}
	ingestor := accounting.NewIngestor(accounting.IngestorOptions{
		Ledger:         ledger,
		Mirror:         mirror,
		BookAtSwapTime: true,
	})
	load := func() []*domain.SwapRecord {
		return []*domain.SwapRecord{
			swap("b1", 100, domain.DirectionBuy, 100, 10),
			swap("s1", 200, domain.DirectionSell, 60, 5),
			swap("s2", 300, domain.DirectionSell, 90, 5),
		}
	}
	runner := NewRunner(ingestor, nil)

	if _, err := runner.Run(ctx, load()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	mirror.down = false
	// Redelivery hits the duplicate path and cannot repair the mirror.
	if _, err := runner.Run(ctx, load()); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if trades, _ := mirror.GetByWallet(ctx, "wallet1"); len(trades) != 0 {
		t.Fatalf("expected empty mirror before reconcile, got %d trades", len(trades))
	}

	reconciler := NewReconciler(ledger.History(), mirror, nil).WithBatchSize(1)
	st, err := reconciler.Run(ctx)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if st.Scanned != 2 || st.Copied != 2 {
		t.Errorf("expected 2 scanned and 2 copied, got %+v", st)
	}

	want, _ := ledger.Aggregates().AggregateByWallet(ctx, storage.SinceBeginning)
	got, _ := mirror.AggregateByWallet(ctx, storage.SinceBeginning)
	if len(want) != 1 || len(got) != 1 || *want[0] != *got[0] {
		t.Errorf("mirror aggregates %+v differ from ledger %+v", got, want)
	}

	again, err := reconciler.Run(ctx)
	if err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}
	if again.Copied != 0 {
		t.Errorf("expected nothing to copy on repeat, got %d", again.Copied)
	}
}

func TestReconciler_StopsOnMirrorFailure(t *testing.T) {
	ctx := context.Background()
	runner, ledger := newTestRunner(t)
	if _, err := runner.Run(ctx, []*domain.SwapRecord{
		swap("b1", 100, domain.DirectionBuy, 100, 10),
		swap("s1", 200, domain.DirectionSell, 150, 10),
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mirror := &flakyMirror{RealizedTradeStore: memory.NewRealizedTradeStore(), down: true}
	_, err := NewReconciler(ledger.History(), mirror, nil).Run(ctx)
	if err == nil {
		t.Fatal("expected error from unavailable mirror")
	}
}
