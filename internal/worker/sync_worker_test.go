package worker

import (
	"context"
	"errors"
	"testing"

	"dompet/internal/amqp"
	"dompet/internal/core"
	applog "dompet/internal/log"
	sheetsmem "dompet/internal/sheets/memory"
	"dompet/internal/store/memory"
)

func setup(t *testing.T) (*SyncWorker, *memory.Store, *sheetsmem.Ledger) {
	t.Helper()
	st := memory.New()
	ledger := sheetsmem.New()
	ctx := context.Background()
	if err := st.CreateCategory(ctx, core.Category{ID: "c1", UserID: "u1", Name: "Food", Kind: core.KindExpense}); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateExpense(ctx, core.Expense{ID: "e1", UserID: "u1", CategoryID: "c1", Amount: core.Money{Cents: 1250}, Description: "Pizza", Date: core.NewDate(2025, 4, 2)}); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateIncome(ctx, core.Income{ID: "i1", UserID: "u1", Amount: core.Money{Cents: 300000}, Source: "Salary", Date: core.NewDate(2025, 4, 1)}); err != nil {
		t.Fatal(err)
	}
	return NewSyncWorker(st, ledger, applog.Discard()), st, ledger
}

func TestHandleUpsertWritesRow(t *testing.T) {
	w, _, ledger := setup(t)

	ev := amqp.NewTransactionEvent(amqp.OpUpsert, core.KindExpense, "e1", "u1")
	if err := w.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	rows := ledger.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %+v", rows)
	}
	if rows[0].Category != "Food" || rows[0].Amount.Cents != 1250 || rows[0].Description != "Pizza" {
		t.Fatalf("unexpected row %+v", rows[0])
	}
}

func TestHandleUpsertIsIdempotent(t *testing.T) {
	w, st, ledger := setup(t)
	ctx := context.Background()
	ev := amqp.NewTransactionEvent(amqp.OpUpsert, core.KindExpense, "e1", "u1")

	_ = w.HandleEvent(ctx, ev)
	e, _ := st.GetExpense(ctx, "u1", "e1")
	e.Amount = core.Money{Cents: 999}
	_ = st.UpdateExpense(ctx, e)
	_ = w.HandleEvent(ctx, ev)

	rows := ledger.Rows()
	if len(rows) != 1 || rows[0].Amount.Cents != 999 {
		t.Fatalf("expected the row to be replaced, got %+v", rows)
	}
}

func TestHandleDeleteRemovesRow(t *testing.T) {
	w, _, ledger := setup(t)
	ctx := context.Background()
	_ = w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.OpUpsert, core.KindIncome, "i1", "u1"))

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.OpDelete, core.KindIncome, "i1", "u1")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(ledger.Rows()) != 0 {
		t.Fatalf("expected empty ledger, got %+v", ledger.Rows())
	}
}

func TestHandleUpsertForVanishedRowDeletes(t *testing.T) {
	w, st, ledger := setup(t)
	ctx := context.Background()
	_ = w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.OpUpsert, core.KindExpense, "e1", "u1"))
	_ = st.DeleteExpense(ctx, "u1", "e1")

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.OpUpsert, core.KindExpense, "e1", "u1")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(ledger.Rows()) != 0 {
		t.Fatalf("expected row removal, got %+v", ledger.Rows())
	}
}

func TestHandleLedgerFailureIsReturned(t *testing.T) {
	w, _, ledger := setup(t)
	boom := errors.New("quota exceeded")
	ledger.FailWith(boom)

	err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.OpUpsert, core.KindExpense, "e1", "u1"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped ledger error for requeue, got %v", err)
	}
}

func TestBackfill(t *testing.T) {
	w, _, ledger := setup(t)

	n, err := w.Backfill(context.Background(), "u1")
	if err != nil || n != 2 {
		t.Fatalf("backfill: n=%d err=%v", n, err)
	}
	rows := ledger.Rows()
	if len(rows) != 2 || rows[0].Kind != core.KindIncome || rows[0].Description != "Salary" {
		t.Fatalf("unexpected ledger %+v", rows)
	}
}
