// Package main runs the wallet win-rate service: swap intake, operator
// queries, the discovery scheduler and the periodic leaderboard push.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wallet-winrate/internal/accounting"
	"wallet-winrate/internal/api"
	"wallet-winrate/internal/cache/rediscache"
	"wallet-winrate/internal/config"
	"wallet-winrate/internal/discovery"
	"wallet-winrate/internal/keylock"
	"wallet-winrate/internal/notify"
	"wallet-winrate/internal/notify/wsfeed"
	"wallet-winrate/internal/replay"
	"wallet-winrate/internal/solana"
	"wallet-winrate/internal/stats"
	"wallet-winrate/internal/storage"
	chstore "wallet-winrate/internal/storage/clickhouse"
	"wallet-winrate/internal/storage/memory"
	"wallet-winrate/internal/storage/migrations"
	pgstore "wallet-winrate/internal/storage/postgres"
)

// Server holds all components of the service.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	engine     *stats.Engine
	filter     *discovery.Filter
	reconciler *replay.Reconciler // nil without a mirror
	notifier   notify.Notifier
	hub        *wsfeed.Hub
	handler    http.Handler

	// State
	mu               sync.Mutex
	discoveryRunning bool
	pushRunning      bool
	reconcileRunning bool
}

// backends holds the storage selected by configuration.
type backends struct {
	ledger storage.Ledger
	mirror storage.RealizedTradeStore // nil without ClickHouse
	agg    storage.TradeAggregator
	cache  stats.Cache // nil without Redis
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := config.Load()

	// Flags override the environment
	addr := flag.String("addr", cfg.HTTP.Addr, "HTTP listen address")
	useMemory := flag.Bool("use-memory", cfg.Storage.UseMemory, "Use in-memory storage instead of PostgreSQL")
	flag.Parse()
	cfg.HTTP.Addr = *addr
	cfg.Storage.UseMemory = *useMemory

	logger, err := newLogger(cfg.LogDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if res := cfg.Validate(); !res.Valid {
		logger.Fatal("invalid configuration", zap.String("errors", res.Error()))
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createBackends(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("create stores", zap.Error(err))
	}
	defer cleanup()

	server := newServer(cfg, stores, logger)
	defer server.hub.Close()

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// createBackends connects the configured stores and applies migrations.
func createBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backends, func(), error) {
	var (
		b       = &backends{}
		closers []func()
		cleanup = func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	)

	if cfg.Storage.UseMemory {
		ledger := memory.NewLedger()
		b.ledger = ledger
		logger.Info("using in-memory storage")
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		b.ledger = pgstore.NewLedger(pool)
	}
	b.agg = b.ledger.Aggregates()

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })

		mirror := chstore.NewRealizedTradeStore(conn)
		b.mirror = mirror
		if cfg.Storage.StatsFromCH {
			b.agg = mirror
		}
	}

	if cfg.Storage.RedisAddr != "" {
		cache, err := rediscache.Connect(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { cache.Close() })
		b.cache = cache
	}

	logger.Info("storage ready",
		zap.Bool("memory", cfg.Storage.UseMemory),
		zap.Bool("clickhouse_mirror", b.mirror != nil),
		zap.Bool("stats_from_clickhouse", cfg.Storage.StatsFromCH),
		zap.Bool("redis_cache", b.cache != nil),
	)
	return b, cleanup, nil
}

func newServer(cfg *config.Config, b *backends, logger *zap.Logger) *Server {
	hub := wsfeed.NewHub(logger.Named("feed"))
	notifier := notify.Multi{
		notify.NewLogNotifier(logger, map[string]string{solana.MintUSDC: "USDC", solana.MintWSOL: "SOL"}),
		hub,
	}

	engine := stats.NewEngine(stats.EngineOptions{
		Aggregator: b.agg,
		Positions:  b.ledger.Positions(),
		Follows:    b.ledger.Follows(),
		Cache:      b.cache,
		CacheTTL:   cfg.Stats.CacheTTL,
		Logger:     logger,
	})

	filter := discovery.NewFilter(discovery.Options{
		Stats:      engine,
		Announced:  b.ledger.Announced(),
		Follows:    b.ledger.Follows(),
		Notifier:   notifier,
		Criteria:   cfg.Discovery.Criteria,
		AutoFollow: cfg.Discovery.AutoFollow,
		Logger:     logger,
	})

	ingestor := accounting.NewIngestor(accounting.IngestorOptions{
		Ledger:   b.ledger,
		Locker:   keylock.New(),
		Notifier: notifier,
		Mirror:   b.mirror,
		Logger:   logger,
	})

	handler := api.NewServer(api.Options{
		Ingestor:   ingestor,
		Stats:      engine,
		Follows:    b.ledger.Follows(),
		Discoverer: filter,
		Feed:       hub,
		Admission:  accounting.Admission{QuoteMints: cfg.Intake.QuoteMints, MinTradeBase: cfg.Intake.MinTradeBase},
		Secret:     cfg.HTTP.WebhookSecret,
		Logger:     logger.Named("api"),
	})

	srv := &Server{
		cfg:      cfg,
		logger:   logger,
		engine:   engine,
		filter:   filter,
		notifier: notifier,
		hub:      hub,
		handler:  handler,
	}
	if b.mirror != nil {
		srv.reconciler = replay.NewReconciler(b.ledger.History(), b.mirror, logger)
	}
	return srv
}

// Run serves HTTP and runs the schedulers until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	httpServer := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if s.cfg.Discovery.Enabled {
		go s.runScheduler(ctx, "discovery", s.cfg.Discovery.Interval, s.runDiscovery)
	}
	if s.cfg.Stats.TopPushInterval > 0 {
		go s.runScheduler(ctx, "top push", s.cfg.Stats.TopPushInterval, s.runTopPush)
	}
	if s.reconciler != nil && s.cfg.Storage.MirrorReconcile > 0 {
		// Catch up on inserts lost before the last shutdown, then keep in step.
		go s.runReconcile(ctx)
		go s.runScheduler(ctx, "mirror reconcile", s.cfg.Storage.MirrorReconcile, s.runReconcile)
	}

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		s.logger.Warn("http shutdown", zap.Error(serr))
	}
	return err
}

// runScheduler invokes job every interval. The first run is one interval
// after start.
func (s *Server) runScheduler(ctx context.Context, name string, interval time.Duration, job func(context.Context)) {
	s.logger.Info("scheduler started", zap.String("job", name), zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}

// runDiscovery executes one discovery pass unless one is in flight.
func (s *Server) runDiscovery(ctx context.Context) {
	if !s.begin(&s.discoveryRunning) {
		s.logger.Info("discovery already running, skipping")
		return
	}
	defer s.end(&s.discoveryRunning)

	winners, err := s.filter.Discover(ctx)
	if err != nil {
		s.logger.Error("discovery pass", zap.Error(err))
		return
	}
	s.logger.Info("discovery pass complete", zap.Int("announced", len(winners)))
}

// runTopPush sends the lifetime leaderboard to the notifier.
func (s *Server) runTopPush(ctx context.Context) {
	if !s.begin(&s.pushRunning) {
		return
	}
	defer s.end(&s.pushRunning)

	rows, err := s.engine.TopWallets(ctx, s.cfg.Stats.TopMinTrades, s.cfg.Stats.TopLimit)
	if err != nil {
		s.logger.Error("top push", zap.Error(err))
		return
	}
	if len(rows) == 0 {
		return
	}
	s.notifier.Leaderboard(ctx, notify.LeaderboardEvent{MinTrades: s.cfg.Stats.TopMinTrades, Wallets: rows})
}

// runReconcile copies ledger trades the mirror missed.
func (s *Server) runReconcile(ctx context.Context) {
	if !s.begin(&s.reconcileRunning) {
		return
	}
	defer s.end(&s.reconcileRunning)

	if _, err := s.reconciler.Run(ctx); err != nil {
		s.logger.Error("mirror reconcile", zap.Error(err))
	}
}

// begin sets *running unless it is already set.
func (s *Server) begin(running *bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *running {
		return false
	}
	*running = true
	return true
}

func (s *Server) end(running *bool) {
	s.mu.Lock()
	*running = false
	s.mu.Unlock()
}
