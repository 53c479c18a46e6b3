// Package replay backfills the ledger from a dump of historical swaps.
package replay

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"wallet-winrate/internal/accounting"
	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/observability"
	"wallet-winrate/internal/storage"
)

// Sink ingests a single swap. *accounting.Ingestor satisfies it.
type Sink interface {
	Ingest(ctx context.Context, r *domain.SwapRecord) (accounting.IngestResult, error)
}

// Stats summarizes a replay run.
type Stats struct {
	Total          int     `json:"total"`
	Inserted       int     `json:"inserted"`
	Duplicates     int     `json:"duplicates"`
	Rejected       int     `json:"rejected"`
	Realized       int     `json:"realized"`
	RealizedPnL    float64 `json:"realized_pnl"`
	FirstTimestamp int64   `json:"first_timestamp"`
	LastTimestamp  int64   `json:"last_timestamp"`
}

// Runner replays swaps through a Sink in deterministic order.
type Runner struct {
	sink      Sink
	admission *accounting.Admission
	logger    *zap.Logger
}

// NewRunner creates a new replay runner.
func NewRunner(sink Sink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{sink: sink, logger: logger.Named("replay")}
}

// WithAdmission applies the intake admission rules before ingesting, so a
// backfill accepts exactly what the webhook would.
func (r *Runner) WithAdmission(a accounting.Admission) *Runner {
	r.admission = &a
	return r
}

// Run sorts records by (timestamp, signature) and ingests them one by one.
// Records failing validation or admission are counted and skipped; any other
// error stops the run and is returned with the stats gathered so far. Already
// ingested signatures count as duplicates, so a run can be repeated safely.
func (r *Runner) Run(ctx context.Context, records []*domain.SwapRecord) (Stats, error) {
	var st Stats
	SortRecords(records)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.Total++

		if r.admission != nil {
			if reason := r.admission.Check(rec); reason != "" {
				st.Rejected++
				observability.RecordSwapRejected(reason)
				r.logger.Debug("swap not admitted", zap.String("signature", rec.Signature), zap.String("reason", reason))
				continue
			}
		}

		res, err := r.sink.Ingest(ctx, rec)
		if errors.Is(err, storage.ErrInvalidInput) {
			st.Rejected++
			r.logger.Warn("skipping invalid swap", zap.String("signature", rec.Signature), zap.Error(err))
			continue
		}
		if err != nil {
			return st, err
		}

		if st.FirstTimestamp == 0 || rec.Timestamp < st.FirstTimestamp {
			st.FirstTimestamp = rec.Timestamp
		}
		if rec.Timestamp > st.LastTimestamp {
			st.LastTimestamp = rec.Timestamp
		}

		if !res.Inserted {
			st.Duplicates++
			continue
		}
		st.Inserted++
		if res.Trade != nil {
			st.Realized++
			st.RealizedPnL += res.PnL
		}
	}

	r.logger.Info("replay finished",
		zap.Int("total", st.Total),
		zap.Int("inserted", st.Inserted),
		zap.Int("duplicates", st.Duplicates),
		zap.Int("rejected", st.Rejected),
	)
	return st, nil
}
