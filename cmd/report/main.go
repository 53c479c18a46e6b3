// Package main renders the leaderboard report (Markdown + CSV) from the
// ledger, or from a built-in fixture when no database is given.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wallet-winrate/internal/accounting"
	"wallet-winrate/internal/config"
	"wallet-winrate/internal/discovery"
	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/reporting"
	"wallet-winrate/internal/stats"
	"wallet-winrate/internal/storage"
	chstore "wallet-winrate/internal/storage/clickhouse"
	"wallet-winrate/internal/storage/memory"
	pgstore "wallet-winrate/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Parse flags
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", cfg.Storage.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "Rank from the ClickHouse mirror at this DSN instead of PostgreSQL")
	useFixtures := flag.Bool("use-fixtures", false, "Use in-memory fixtures instead of database")
	limit := flag.Int("limit", 50, "Rows per ranking (0 for all)")
	minTrades := flag.Int("min-trades", 3, "Lifetime leaderboard minimum trades")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	if !*useFixtures && *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn is required when not using fixtures")
		fmt.Fprintln(os.Stderr, "Use --use-fixtures to run with demo data instead")
		os.Exit(1)
	}

	var (
		ledger storage.Ledger
		agg    storage.TradeAggregator
		clock  = time.Now
	)
	if *useFixtures {
		fixed := time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC)
		clock = func() time.Time { return fixed }

		mem := memory.NewLedger()
		if err := loadFixtures(ctx, mem, clock); err != nil {
			logger.Fatal("load fixtures", zap.Error(err))
		}
		ledger, agg = mem, mem.Aggregates()
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatal("connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		pg := pgstore.NewLedger(pool)
		ledger, agg = pg, pg.Aggregates()

		if *clickhouseDSN != "" {
			conn, err := chstore.NewConn(ctx, *clickhouseDSN)
			if err != nil {
				logger.Fatal("connect to clickhouse", zap.Error(err))
			}
			defer conn.Close()
			agg = chstore.NewRealizedTradeStore(conn)
		}
	}

	engine := stats.NewEngine(stats.EngineOptions{Aggregator: agg, Clock: clock, Logger: logger})
	filter := discovery.NewFilter(discovery.Options{
		Stats:     engine,
		Announced: ledger.Announced(),
		Criteria:  cfg.Discovery.Criteria,
		Clock:     clock,
		Logger:    logger,
	})

	report, err := reporting.NewGenerator(engine, filter, ledger.Follows(), ledger.Announced(), *limit).
		WithClock(clock).
		WithMinTrades(*minTrades).
		Generate(ctx)
	if err != nil {
		logger.Fatal("generate report", zap.Error(err))
	}

	if err := writeOutputs(*outputDir, report); err != nil {
		logger.Fatal("write report", zap.Error(err))
	}
	logger.Info("report written",
		zap.String("dir", *outputDir),
		zap.Int("ranked_wallets", report.Summary.RankedWallets),
		zap.Int("winners", len(report.Winners)),
	)
}

func writeOutputs(dir string, r *reporting.Report) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	files := map[string]string{
		"REPORT.md":                reporting.RenderMarkdown(r),
		"leaderboard_lifetime.csv": reporting.RenderCSV(r.Lifetime),
		"leaderboard_30d.csv":      reporting.RenderCSV(r.Days30),
		"leaderboard_90d.csv":      reporting.RenderCSV(r.Days90),
		"winners.csv":              reporting.RenderWinnersCSV(r.Winners),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// loadFixtures replays a small swap history through the ingestor so the
// report exercises the same accounting as the server.
func loadFixtures(ctx context.Context, ledger *memory.Ledger, clock func() time.Time) error {
	ingestor := accounting.NewIngestor(accounting.IngestorOptions{Ledger: ledger, Clock: clock})
	ts := clock().Unix()

	type leg struct {
		wallet, token string
		dir           domain.Direction
		base, tokens  float64
	}
	legs := []leg{
		{"FixtureWalletA", "TokenX", domain.DirectionBuy, 100, 1000},
		{"FixtureWalletA", "TokenX", domain.DirectionSell, 180, 1000},
		{"FixtureWalletA", "TokenY", domain.DirectionBuy, 200, 50},
		{"FixtureWalletA", "TokenY", domain.DirectionSell, 150, 25},
		{"FixtureWalletA", "TokenY", domain.DirectionSell, 260, 25},
		{"FixtureWalletB", "TokenX", domain.DirectionBuy, 500, 4000},
		{"FixtureWalletB", "TokenX", domain.DirectionSell, 300, 4000},
		{"FixtureWalletB", "TokenZ", domain.DirectionSell, 40, 10},
	}
	for i, l := range legs {
		_, err := ingestor.Ingest(ctx, &domain.SwapRecord{
			Signature:   fmt.Sprintf("fixture-%03d", i),
			Timestamp:   ts,
			Wallet:      l.wallet,
			Direction:   l.dir,
			BaseMint:    "USDC",
			BaseAmount:  l.base,
			TokenMint:   l.token,
			TokenAmount: l.tokens,
		})
		if err != nil {
			return err
		}
	}
	return ledger.Follows().Follow(ctx, "FixtureWalletA", ts)
}
