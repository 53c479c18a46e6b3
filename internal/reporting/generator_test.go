package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"wallet-winrate/internal/discovery"
	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/stats"
	"wallet-winrate/internal/storage/memory"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setupGenerator(t *testing.T) *Generator {
	t.Helper()
	ctx := context.Background()
	ledger := memory.NewLedger()
	clock := func() time.Time { return fixedNow }
	now := fixedNow.Unix()
	day := int64(86400)

	trades := []*domain.RealizedTrade{
		{TradeID: "t1", Wallet: "alice", TokenMint: "m1", PnL: 120, Timestamp: now - 5*day, IsWin: true},
		{TradeID: "t2", Wallet: "alice", TokenMint: "m2", PnL: 80, Timestamp: now - 40*day, IsWin: true},
		{TradeID: "t3", Wallet: "bob", TokenMint: "m1", PnL: -30, Timestamp: now - 5*day},
		{TradeID: "t4", Wallet: "bob", TokenMint: "m1", PnL: 10, Timestamp: now - 200*day, IsWin: true},
		{TradeID: "t5", Wallet: "carol", TokenMint: "m3", PnL: 5, Timestamp: now - 300*day, IsWin: true},
	}
	for _, tr := range trades {
		if err := ledger.RealizedTrades().Insert(ctx, tr); err != nil {
			t.Fatalf("Insert trade failed: %v", err)
		}
	}
	if err := ledger.Follows().Follow(ctx, "bob", now-day); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}
	if _, err := ledger.Announced().MarkAnnounced(ctx, "alice", now-day); err != nil {
		t.Fatalf("MarkAnnounced failed: %v", err)
	}

	engine := stats.NewEngine(stats.EngineOptions{Aggregator: ledger.Aggregates(), Clock: clock})
	filter := discovery.NewFilter(discovery.Options{
		Stats:     engine,
		Announced: ledger.Announced(),
		Criteria: discovery.Criteria{
			Lifetime: discovery.Thresholds{MinTrades: 2, MinWinRate: 50, MinPnL: 100},
			Days30:   discovery.Thresholds{MinTrades: 1},
			Days90:   discovery.Thresholds{MinTrades: 1},
		},
		Clock: clock,
	})

	return NewGenerator(engine, filter, ledger.Follows(), ledger.Announced(), stats.Unlimited).WithClock(clock)
}

func TestGenerator_Generate(t *testing.T) {
	report, err := setupGenerator(t).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixedNow) {
		t.Errorf("GeneratedAt = %v, want %v", report.GeneratedAt, fixedNow)
	}
	if report.Summary.RankedWallets != 3 {
		t.Errorf("RankedWallets = %d, want 3", report.Summary.RankedWallets)
	}
	if report.Summary.RealizedTrades != 5 {
		t.Errorf("RealizedTrades = %d, want 5", report.Summary.RealizedTrades)
	}
	if report.Summary.TotalPnL != 185 {
		t.Errorf("TotalPnL = %v, want 185", report.Summary.TotalPnL)
	}
	if report.Summary.Followed != 1 || report.Summary.Announced != 1 {
		t.Errorf("Followed/Announced = %d/%d, want 1/1", report.Summary.Followed, report.Summary.Announced)
	}

	// alice and carol are both at 100%; alice has more PnL.
	if got := report.Lifetime[0].Wallet; got != "alice" {
		t.Errorf("Lifetime[0] = %s, want alice", got)
	}
	if got := report.Lifetime[1].Wallet; got != "carol" {
		t.Errorf("Lifetime[1] = %s, want carol", got)
	}

	if len(report.Days30) != 2 {
		t.Errorf("Days30 rows = %d, want 2", len(report.Days30))
	}
	if len(report.Days90) != 2 {
		t.Errorf("Days90 rows = %d, want 2", len(report.Days90))
	}

	if len(report.Winners) != 1 || report.Winners[0].Wallet != "alice" {
		t.Fatalf("Winners = %+v, want only alice", report.Winners)
	}
}

func TestGenerator_Limit(t *testing.T) {
	g := setupGenerator(t)
	g.limit = 1

	report, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(report.Lifetime) != 1 {
		t.Errorf("Lifetime rows = %d, want 1", len(report.Lifetime))
	}
	// Summary counts the full ranking.
	if report.Summary.RankedWallets != 3 {
		t.Errorf("RankedWallets = %d, want 3", report.Summary.RankedWallets)
	}
}

func TestRenderMarkdown(t *testing.T) {
	report, err := setupGenerator(t).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)

	for _, want := range []string{
		"# Wallet Win-Rate Report",
		"Generated: 2025-06-01T12:00:00Z",
		"## Lifetime Leaderboard",
		"## Last 30 Days",
		"## Last 90 Days",
		"| 1 | `alice` | 100.00 | 2 | 2 | 200.00 | 2 |",
		"- Lifetime: 2 / 50.00 / 100.00",
		"## Followed Wallets",
		"- `bob` since",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	md := RenderMarkdown(&Report{GeneratedAt: fixedNow})
	if !strings.Contains(md, "No realized trades.") {
		t.Error("expected empty ranking placeholder")
	}
	if !strings.Contains(md, "No wallet currently qualifies.") {
		t.Error("expected empty winners placeholder")
	}
}

func TestRenderCSV(t *testing.T) {
	csv := RenderCSV([]domain.WalletStats{
		{Wallet: "alice", Wins: 2, Trades: 3, WinRatePct: 66.67, PnLSum: 12.5, DistinctTokens: 2},
	})
	want := "rank,wallet,wins,trades,win_rate_pct,pnl_sum,distinct_tokens\n" +
		"1,alice,2,3,66.67,12.50,2\n"
	if csv != want {
		t.Errorf("RenderCSV =\n%s\nwant\n%s", csv, want)
	}

	lines := strings.Split(strings.TrimSpace(RenderWinnersCSV([]domain.Winner{{Wallet: "alice"}})), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "alice,0,0.00") {
		t.Errorf("RenderWinnersCSV lines = %q", lines)
	}
}
