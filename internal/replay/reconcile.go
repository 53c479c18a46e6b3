package replay

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"wallet-winrate/internal/observability"
	"wallet-winrate/internal/storage"
)

const defaultReconcileBatch = 500

// ReconcileStats summarizes a reconciliation pass.
type ReconcileStats struct {
	Scanned int `json:"scanned"`
	Copied  int `json:"copied"`
}

// Reconciler copies realized trades the analytics mirror is missing from the
// ledger. The mirror rejects known trade ids, so a pass can be repeated.
type Reconciler struct {
	source storage.TradeLister
	mirror storage.RealizedTradeStore
	batch  int
	logger *zap.Logger
}

// NewReconciler creates a Reconciler reading from source and writing to mirror.
func NewReconciler(source storage.TradeLister, mirror storage.RealizedTradeStore, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		source: source,
		mirror: mirror,
		batch:  defaultReconcileBatch,
		logger: logger.Named("reconcile"),
	}
}

// WithBatchSize sets the page size used to read the ledger.
func (r *Reconciler) WithBatchSize(n int) *Reconciler {
	if n > 0 {
		r.batch = n
	}
	return r
}

// Run walks every ledger trade and inserts the ones the mirror lacks. It stops
// at the first mirror failure, returning the stats gathered so far.
func (r *Reconciler) Run(ctx context.Context) (ReconcileStats, error) {
	var st ReconcileStats
	cursor := storage.FirstTrade

	for {
		page, err := r.source.ListAfter(ctx, cursor, r.batch)
		if err != nil {
			return st, fmt.Errorf("list ledger trades: %w", err)
		}

		for _, t := range page {
			st.Scanned++
			err := r.mirror.Insert(ctx, t)
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			if err != nil {
				observability.RecordMirrorError()
				return st, fmt.Errorf("mirror trade %s: %w", t.TradeID, err)
			}
			st.Copied++
		}

		if len(page) < r.batch {
			break
		}
		last := page[len(page)-1]
		cursor = storage.TradeCursor{Timestamp: last.Timestamp, TradeID: last.TradeID}
	}

	r.logger.Info("mirror reconciled", zap.Int("scanned", st.Scanned), zap.Int("copied", st.Copied))
	return st, nil
}
