package api

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/solana"
	"wallet-winrate/internal/stats"
)

// Query defaults.
const (
	defaultTopMinTrades  = 3
	defaultTopLimit      = 10
	defaultWindowDays    = 90
	defaultWindowTrades  = 10
	defaultWindowWinRate = 58.0
	defaultWindowPnL     = 300.0
	defaultWindowLimit   = 20
	summaryTokens        = 10
)

// RankingResponse is the body of the leaderboard queries.
type RankingResponse struct {
	Wallets []domain.WalletStats `json:"wallets"`
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	minTrades, ok1 := intParam(q.Get("min_trades"), defaultTopMinTrades)
	limit, ok2 := intParam(q.Get("limit"), defaultTopLimit)
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "min_trades and limit must be integers")
		return
	}

	rows, err := s.stats.TopWallets(r.Context(), minTrades, limit)
	if err != nil {
		s.writeStoreError(w, "top wallets", err)
		return
	}
	writeJSON(w, http.StatusOK, RankingResponse{Wallets: nonNil(rows)})
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, ok1 := intParam(q.Get("days"), defaultWindowDays)
	minTrades, ok2 := intParam(q.Get("min_trades"), defaultWindowTrades)
	minWin, ok3 := floatParam(q.Get("min_win_rate"), defaultWindowWinRate)
	minPnL, ok4 := floatParam(q.Get("min_pnl"), defaultWindowPnL)
	limit, ok5 := intParam(q.Get("limit"), defaultWindowLimit)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		writeError(w, http.StatusBadRequest, "invalid numeric parameter")
		return
	}

	floor := stats.PerformanceFloor(minTrades, minWin, minPnL)
	rows, err := s.stats.FilterWindow(r.Context(), days, floor, limit)
	if err != nil {
		s.writeStoreError(w, "window stats", err)
		return
	}
	writeJSON(w, http.StatusOK, RankingResponse{Wallets: nonNil(rows)})
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	wallet := strings.TrimSpace(r.PathValue("wallet"))
	if _, err := solana.ParseAddress(wallet); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.stats.WalletSummary(r.Context(), wallet, summaryTokens)
	if err != nil {
		s.writeStoreError(w, "wallet summary", err)
		return
	}
	if summary.Lifetime.Trades == 0 {
		writeError(w, http.StatusNotFound, "no realized trades for wallet")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListFollows(w http.ResponseWriter, r *http.Request) {
	entries, err := s.follows.List(r.Context())
	if err != nil {
		s.writeStoreError(w, "list follows", err)
		return
	}
	if entries == nil {
		entries = []*domain.FollowEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"follows": entries})
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	wallet := strings.TrimSpace(r.PathValue("wallet"))
	if _, err := solana.ParseAddress(wallet); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.follows.Follow(r.Context(), wallet, s.now().Unix()); err != nil {
		s.writeStoreError(w, "follow", err)
		return
	}
	s.logger.Info("wallet followed", zap.String("wallet", wallet))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "wallet": wallet})
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	wallet := strings.TrimSpace(r.PathValue("wallet"))
	if err := s.follows.Unfollow(r.Context(), wallet); err != nil {
		s.writeStoreError(w, "unfollow", err)
		return
	}
	s.logger.Info("wallet unfollowed", zap.String("wallet", wallet))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "wallet": wallet})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	winners, err := s.discoverer.Discover(r.Context())
	if err != nil {
		s.writeStoreError(w, "discover", err)
		return
	}
	if winners == nil {
		winners = []domain.Winner{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "announced": winners})
}

// intParam parses v, returning def when v is empty.
func intParam(v string, def int) (int, bool) {
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func floatParam(v string, def float64) (float64, bool) {
	if v == "" {
		return def, true
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

func nonNil(rows []domain.WalletStats) []domain.WalletStats {
	if rows == nil {
		return []domain.WalletStats{}
	}
	return rows
}
