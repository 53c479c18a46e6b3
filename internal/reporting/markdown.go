package reporting

import (
	"fmt"
	"strings"
	"time"

	"wallet-winrate/internal/discovery"
	"wallet-winrate/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Wallet Win-Rate Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Ranked Wallets (min %d trades) | %d |\n", r.MinTrades, r.Summary.RankedWallets))
	sb.WriteString(fmt.Sprintf("| Realized Trades | %d |\n", r.Summary.RealizedTrades))
	sb.WriteString(fmt.Sprintf("| Total PnL | %.2f |\n", r.Summary.TotalPnL))
	sb.WriteString(fmt.Sprintf("| Followed Wallets | %d |\n", r.Summary.Followed))
	sb.WriteString(fmt.Sprintf("| Announced Winners | %d |\n", r.Summary.Announced))
	sb.WriteString("\n")

	writeRanking(&sb, "Lifetime Leaderboard", r.Lifetime)
	writeRanking(&sb, fmt.Sprintf("Last %d Days", discovery.ShortWindowDays), r.Days30)
	writeRanking(&sb, fmt.Sprintf("Last %d Days", discovery.LongWindowDays), r.Days90)

	// Winners
	sb.WriteString("## Long-Term Winners\n\n")
	sb.WriteString("Criteria (min trades / min win rate % / min PnL):\n\n")
	sb.WriteString(fmt.Sprintf("- Lifetime: %s\n", thresholds(r.Criteria.Lifetime)))
	sb.WriteString(fmt.Sprintf("- %dd: %s\n", discovery.ShortWindowDays, thresholds(r.Criteria.Days30)))
	sb.WriteString(fmt.Sprintf("- %dd: %s\n\n", discovery.LongWindowDays, thresholds(r.Criteria.Days90)))
	if len(r.Winners) > 0 {
		sb.WriteString("| Wallet | Life WinRate | Life Trades | Life PnL | 30d WinRate | 30d PnL | 90d WinRate | 90d PnL |\n")
		sb.WriteString("|--------|--------------|-------------|----------|-------------|---------|-------------|---------|\n")
		for _, w := range r.Winners {
			sb.WriteString(fmt.Sprintf("| `%s` | %.2f | %d | %.2f | %.2f | %.2f | %.2f | %.2f |\n",
				w.Wallet,
				w.Lifetime.WinRatePct, w.Lifetime.Trades, w.Lifetime.PnLSum,
				w.Days30.WinRatePct, w.Days30.PnLSum,
				w.Days90.WinRatePct, w.Days90.PnLSum))
		}
	} else {
		sb.WriteString("No wallet currently qualifies.\n")
	}
	sb.WriteString("\n")

	// Follow list
	sb.WriteString("## Followed Wallets\n\n")
	if len(r.Follows) > 0 {
		for _, f := range r.Follows {
			sb.WriteString(fmt.Sprintf("- `%s` since %s\n", f.Wallet, time.Unix(f.CreatedAt, 0).UTC().Format(time.RFC3339)))
		}
	} else {
		sb.WriteString("No followed wallets.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func writeRanking(sb *strings.Builder, title string, rows []domain.WalletStats) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(rows) == 0 {
		sb.WriteString("No realized trades.\n\n")
		return
	}
	sb.WriteString("| # | Wallet | WinRate | Wins | Trades | PnL | Tokens |\n")
	sb.WriteString("|---|--------|---------|------|--------|-----|--------|\n")
	for i, r := range rows {
		sb.WriteString(fmt.Sprintf("| %d | `%s` | %.2f | %d | %d | %.2f | %d |\n",
			i+1, r.Wallet, r.WinRatePct, r.Wins, r.Trades, r.PnLSum, r.DistinctTokens))
	}
	sb.WriteString("\n")
}

func thresholds(t discovery.Thresholds) string {
	return fmt.Sprintf("%d / %.2f / %.2f", t.MinTrades, t.MinWinRate, t.MinPnL)
}
