// Package main backfills the ledger from a dump of historical swaps and
// brings the ClickHouse mirror in step with it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wallet-winrate/internal/accounting"
	"wallet-winrate/internal/config"
	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/replay"
	"wallet-winrate/internal/storage"
	chstore "wallet-winrate/internal/storage/clickhouse"
	"wallet-winrate/internal/storage/memory"
	"wallet-winrate/internal/storage/migrations"
	pgstore "wallet-winrate/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Parse flags
	input := flag.String("input", "-", "Swap dump (JSON array or NDJSON), - for stdin")
	postgresDSN := flag.String("postgres-dsn", cfg.Storage.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.Storage.ClickhouseDSN, "ClickHouse mirror to keep in step with the ledger")
	reconcileOnly := flag.Bool("reconcile-only", false, "Skip the dump and only copy ledger trades missing from the mirror")
	useMemory := flag.Bool("use-memory", false, "Dry run against in-memory storage")
	outputJSON := flag.Bool("json", false, "Output summary as JSON")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	exitCode := 0

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, stopping replay", zap.String("signal", sig.String()))
		cancel()
	}()

	var ledger storage.Ledger = memory.NewLedger()
	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required unless --use-memory is set")
		}
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatal("connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("run migrations", zap.Error(err))
		}
		ledger = pgstore.NewLedger(pool)
	}

	var mirror storage.RealizedTradeStore
	if *clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN, logger)
		if err != nil {
			logger.Fatal("connect to clickhouse", zap.Error(err))
		}
		defer conn.Close()
		mirror = chstore.NewRealizedTradeStore(conn)
	} else if *reconcileOnly {
		logger.Fatal("--reconcile-only needs --clickhouse-dsn")
	}

	var st replay.Stats
	if !*reconcileOnly {
		records, err := readInput(*input)
		if err != nil {
			logger.Fatal("read swaps", zap.Error(err))
		}

		ingestor := accounting.NewIngestor(accounting.IngestorOptions{
			Ledger:         ledger,
			Mirror:         mirror,
			Logger:         logger,
			BookAtSwapTime: true,
		})
		admission := accounting.Admission{QuoteMints: cfg.Intake.QuoteMints, MinTradeBase: cfg.Intake.MinTradeBase}
		st, err = replay.NewRunner(ingestor, logger).WithAdmission(admission).Run(ctx, records)
		if err != nil {
			logger.Error("replay stopped", zap.Error(err), zap.Int("processed", st.Total))
			exitCode = 1
		}
	}

	// Trades whose mirror insert failed, now or in an earlier run, are copied
	// from the ledger.
	var rec replay.ReconcileStats
	if mirror != nil && exitCode == 0 {
		var err error
		rec, err = replay.NewReconciler(ledger.History(), mirror, logger).Run(ctx)
		if err != nil {
			logger.Error("reconcile mirror", zap.Error(err))
			exitCode = 1
		}
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(struct {
			replay.Stats
			Mirror replay.ReconcileStats `json:"mirror"`
		}{st, rec}, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("\n=== Replay Summary ===\n")
		fmt.Printf("Records:           %d\n", st.Total)
		fmt.Printf("Inserted:          %d\n", st.Inserted)
		fmt.Printf("Duplicates:        %d\n", st.Duplicates)
		fmt.Printf("Rejected:          %d\n", st.Rejected)
		fmt.Printf("Realized Trades:   %d\n", st.Realized)
		fmt.Printf("Realized PnL:      %.2f\n", st.RealizedPnL)
		if st.LastTimestamp > 0 {
			fmt.Printf("First Swap Time:   %s\n", time.Unix(st.FirstTimestamp, 0).UTC().Format(time.RFC3339))
			fmt.Printf("Last Swap Time:    %s\n", time.Unix(st.LastTimestamp, 0).UTC().Format(time.RFC3339))
		} else {
			fmt.Printf("First Swap Time:   N/A\n")
			fmt.Printf("Last Swap Time:    N/A\n")
		}
		if mirror != nil {
			fmt.Printf("Mirror Scanned:    %d\n", rec.Scanned)
			fmt.Printf("Mirror Copied:     %d\n", rec.Copied)
		}
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func readInput(path string) ([]*domain.SwapRecord, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return replay.ReadRecords(r)
}
