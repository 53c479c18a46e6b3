// Package api exposes swap intake and the operator queries over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"wallet-winrate/internal/accounting"
	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/observability"
	"wallet-winrate/internal/stats"
	"wallet-winrate/internal/storage"
)

// Ingestor is the swap intake the webhook feeds.
type Ingestor interface {
	Ingest(ctx context.Context, r *domain.SwapRecord) (accounting.IngestResult, error)
}

// StatsReader is the part of the statistics engine the queries use.
type StatsReader interface {
	TopWallets(ctx context.Context, minTrades, limit int) ([]domain.WalletStats, error)
	FilterWindow(ctx context.Context, days int, floor stats.Floor, limit int) ([]domain.WalletStats, error)
	WalletSummary(ctx context.Context, wallet string, topN int) (*domain.WalletSummary, error)
}

// Discoverer runs one discovery pass.
type Discoverer interface {
	Discover(ctx context.Context) ([]domain.Winner, error)
}

// Options configures a Server.
type Options struct {
	Ingestor   Ingestor
	Stats      StatsReader
	Follows    storage.FollowStore
	Discoverer Discoverer   // nil disables POST /discover
	Feed       http.Handler // nil disables GET /feed
	Admission  accounting.Admission
	Secret     string // required Authorization header value on POST /swaps
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Server routes intake and query requests.
type Server struct {
	ingestor   Ingestor
	stats      StatsReader
	follows    storage.FollowStore
	discoverer Discoverer
	admission  accounting.Admission
	secret     string
	now        func() time.Time
	logger     *zap.Logger
	mux        *http.ServeMux
}

// maxBodyBytes bounds a webhook delivery.
const maxBodyBytes = 8 << 20

// NewServer creates a Server with all routes registered.
func NewServer(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		ingestor:   opts.Ingestor,
		stats:      opts.Stats,
		follows:    opts.Follows,
		discoverer: opts.Discoverer,
		admission:  opts.Admission,
		secret:     opts.Secret,
		now:        opts.Clock,
		logger:     opts.Logger,
		mux:        http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", observability.Handler())
	s.mux.HandleFunc("POST /swaps", s.handleSwaps)
	s.mux.HandleFunc("GET /wallets/top", s.handleTop)
	s.mux.HandleFunc("GET /wallets/window", s.handleWindow)
	s.mux.HandleFunc("GET /wallets/{wallet}", s.handleWallet)
	s.mux.HandleFunc("GET /follows", s.handleListFollows)
	s.mux.HandleFunc("PUT /follows/{wallet}", s.handleFollow)
	s.mux.HandleFunc("DELETE /follows/{wallet}", s.handleUnfollow)
	if s.discoverer != nil {
		s.mux.HandleFunc("POST /discover", s.handleDiscover)
	}
	if opts.Feed != nil {
		s.mux.Handle("GET /feed", opts.Feed)
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": s.now().Unix()})
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{OK: false, Message: msg})
}

// writeStoreError maps storage sentinels to status codes.
func (s *Server) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error(op, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
