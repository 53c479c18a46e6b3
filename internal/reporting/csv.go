package reporting

import (
	"fmt"
	"strings"

	"wallet-winrate/internal/domain"
)

// RenderCSV renders a ranking as CSV string.
func RenderCSV(rows []domain.WalletStats) string {
	var sb strings.Builder

	// Header
	sb.WriteString("rank,wallet,wins,trades,win_rate_pct,pnl_sum,distinct_tokens\n")

	// Rows
	for i, r := range rows {
		sb.WriteString(fmt.Sprintf("%d,%s,%d,%d,%.2f,%.2f,%d\n",
			i+1,
			r.Wallet,
			r.Wins,
			r.Trades,
			r.WinRatePct,
			r.PnLSum,
			r.DistinctTokens,
		))
	}

	return sb.String()
}

// RenderWinnersCSV renders qualifying winners with all three horizons.
func RenderWinnersCSV(winners []domain.Winner) string {
	var sb strings.Builder

	sb.WriteString("wallet,life_trades,life_win_rate_pct,life_pnl,d30_trades,d30_win_rate_pct,d30_pnl,d90_trades,d90_win_rate_pct,d90_pnl\n")
	for _, w := range winners {
		sb.WriteString(fmt.Sprintf("%s,%d,%.2f,%.2f,%d,%.2f,%.2f,%d,%.2f,%.2f\n",
			w.Wallet,
			w.Lifetime.Trades, w.Lifetime.WinRatePct, w.Lifetime.PnLSum,
			w.Days30.Trades, w.Days30.WinRatePct, w.Days30.PnLSum,
			w.Days90.Trades, w.Days90.WinRatePct, w.Days90.PnLSum,
		))
	}

	return sb.String()
}
