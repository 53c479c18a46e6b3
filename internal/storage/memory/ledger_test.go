package memory

import (
	"context"
	"errors"
	"testing"

	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/storage"
)

func TestLedger_CommitMakesWritesVisible(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()

	err := ledger.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Swaps().Insert(ctx, testSwap("sig1", "w1", 100)); err != nil {
			return err
		}
		if err := tx.Positions().Upsert(ctx, &domain.Position{Wallet: "w1", TokenMint: "TOKEN", Quantity: 100, CostBasis: 50}); err != nil {
			return err
		}

		// Own writes are visible inside the transaction.
		p, err := tx.Positions().GetForUpdate(ctx, "w1", "TOKEN")
		if err != nil {
			return err
		}
		if p.Quantity != 100 {
			t.Errorf("expected pending quantity 100, got %f", p.Quantity)
		}

		// But not outside of it.
		if _, err := ledger.Positions().Get(ctx, "w1", "TOKEN"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("uncommitted position visible: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}

	if _, err := ledger.Swaps().GetBySignature(ctx, "sig1"); err != nil {
		t.Errorf("committed swap not visible: %v", err)
	}
	p, err := ledger.Positions().Get(ctx, "w1", "TOKEN")
	if err != nil {
		t.Fatalf("committed position not visible: %v", err)
	}
	if p.CostBasis != 50 {
		t.Errorf("expected cost basis 50, got %f", p.CostBasis)
	}
}

func TestLedger_ErrorRollsBack(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()
	boom := errors.New("boom")

	err := ledger.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_ = tx.Swaps().Insert(ctx, testSwap("sig1", "w1", 100))
		_ = tx.RealizedTrades().Insert(ctx, &domain.RealizedTrade{TradeID: "t1", Wallet: "w1"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := ledger.Swaps().GetBySignature(ctx, "sig1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("rolled back swap is visible: %v", err)
	}
	trades, _ := ledger.RealizedTrades().GetByWallet(ctx, "w1")
	if len(trades) != 0 {
		t.Errorf("rolled back trade is visible: %+v", trades)
	}
}

func TestLedger_DuplicateAgainstCommitted(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()

	insert := func(ctx context.Context, tx storage.Tx) error {
		return tx.Swaps().Insert(ctx, testSwap("sig1", "w1", 100))
	}

	if err := ledger.RunInTx(ctx, insert); err != nil {
		t.Fatalf("first tx failed: %v", err)
	}
	if err := ledger.RunInTx(ctx, insert); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestLedger_CancelledContext(t *testing.T) {
	ledger := NewLedger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := ledger.RunInTx(ctx, func(context.Context, storage.Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("fn must not run on a cancelled context")
	}
}
