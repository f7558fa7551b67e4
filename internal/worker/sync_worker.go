// Package worker mirrors transaction changes from the row store into the ledger sheet.
package worker

import (
	"context"
	"errors"
	"fmt"

	"dompet/internal/amqp"
	"dompet/internal/core"
	applog "dompet/internal/log"
	"dompet/internal/sheets"
	"dompet/internal/store"
)

// TransactionReader is the slice of the row store the worker reads.
type TransactionReader interface {
	GetIncome(ctx context.Context, userID, id string) (core.Income, error)
	GetExpense(ctx context.Context, userID, id string) (core.Expense, error)
	ListIncomes(ctx context.Context, userID string, f store.ListFilter) ([]core.Income, error)
	ListExpenses(ctx context.Context, userID string, f store.ListFilter) ([]core.Expense, error)
	ListCategories(ctx context.Context, userID string, kind core.Kind) ([]core.Category, error)
}

// SyncWorker applies TransactionEvents to a ledger.
type SyncWorker struct {
	store  TransactionReader
	ledger sheets.LedgerWriter
	logger *applog.Logger
}

func NewSyncWorker(reader TransactionReader, ledger sheets.LedgerWriter, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &SyncWorker{
		store:  reader,
		ledger: ledger,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleEvent processes a single event from AMQP. It matches amqp.Handler.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	fields := applog.NewFields().
		WithOperation(applog.OpSync).
		WithUser(ev.UserID).
		WithRecord(string(ev.Kind), ev.ID, "")

	if ev.Op == amqp.OpDelete {
		if err := w.ledger.Delete(ctx, ev.ID); err != nil {
			return fmt.Errorf("delete ledger row: %w", err)
		}
		w.logger.InfoContext(ctx, "Ledger row deleted", fields.ToSlice()...)
		return nil
	}

	row, err := w.loadRow(ctx, ev.UserID, ev.Kind, ev.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted after the upsert was published; the delete event may be lost.
		w.logger.WarnContext(ctx, "Transaction vanished before sync, removing ledger row", fields.ToSlice()...)
		if err := w.ledger.Delete(ctx, ev.ID); err != nil {
			return fmt.Errorf("delete ledger row: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}

	if err := w.ledger.Upsert(ctx, row); err != nil {
		return fmt.Errorf("upsert ledger row: %w", err)
	}
	w.logger.InfoContext(ctx, "Ledger row synced", fields.ToSlice()...)
	return nil
}

// Backfill writes every transaction of userID to the ledger. It recovers
// from lost messages or worker downtime.
func (w *SyncWorker) Backfill(ctx context.Context, userID string) (synced int, err error) {
	names, err := w.categoryNames(ctx, userID, "")
	if err != nil {
		return 0, err
	}

	incomes, err := w.store.ListIncomes(ctx, userID, store.ListFilter{})
	if err != nil {
		return 0, fmt.Errorf("list incomes: %w", err)
	}
	expenses, err := w.store.ListExpenses(ctx, userID, store.ListFilter{})
	if err != nil {
		return 0, fmt.Errorf("list expenses: %w", err)
	}

	rows := make([]sheets.LedgerRow, 0, len(incomes)+len(expenses))
	for _, in := range incomes {
		rows = append(rows, incomeRow(in, names[in.CategoryID]))
	}
	for _, e := range expenses {
		rows = append(rows, expenseRow(e, names[e.CategoryID]))
	}

	failed := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := w.ledger.Upsert(ctx, row); err != nil {
			w.logger.ErrorContext(ctx, "Failed to backfill ledger row",
				applog.NewFields().WithUser(userID).WithRecord(string(row.Kind), row.ID, "").WithError(err).ToSlice()...)
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Backfill completed",
		"user_id", userID, "total", len(rows), "synced", synced, "errors", failed)
	if failed > 0 {
		return synced, fmt.Errorf("backfill: %d of %d rows failed", failed, len(rows))
	}
	return synced, nil
}

func (w *SyncWorker) loadRow(ctx context.Context, userID string, kind core.Kind, id string) (sheets.LedgerRow, error) {
	switch kind {
	case core.KindIncome:
		in, err := w.store.GetIncome(ctx, userID, id)
		if err != nil {
			return sheets.LedgerRow{}, err
		}
		name, err := w.categoryName(ctx, userID, kind, in.CategoryID)
		if err != nil {
			return sheets.LedgerRow{}, err
		}
		return incomeRow(in, name), nil
	case core.KindExpense:
		e, err := w.store.GetExpense(ctx, userID, id)
		if err != nil {
			return sheets.LedgerRow{}, err
		}
		name, err := w.categoryName(ctx, userID, kind, e.CategoryID)
		if err != nil {
			return sheets.LedgerRow{}, err
		}
		return expenseRow(e, name), nil
	}
	return sheets.LedgerRow{}, core.ErrInvalidKind
}

func (w *SyncWorker) categoryName(ctx context.Context, userID string, kind core.Kind, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	names, err := w.categoryNames(ctx, userID, kind)
	if err != nil {
		return "", err
	}
	return names[id], nil
}

func (w *SyncWorker) categoryNames(ctx context.Context, userID string, kind core.Kind) (map[string]string, error) {
	cats, err := w.store.ListCategories(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

func incomeRow(in core.Income, category string) sheets.LedgerRow {
	desc := in.Source
	if in.Description != "" {
		desc += ": " + in.Description
	}
	return sheets.LedgerRow{
		Date:        in.Date,
		Kind:        core.KindIncome,
		Amount:      in.Amount,
		Category:    category,
		Description: desc,
		ID:          in.ID,
		UserID:      in.UserID,
	}
}

func expenseRow(e core.Expense, category string) sheets.LedgerRow {
	return sheets.LedgerRow{
		Date:        e.Date,
		Kind:        core.KindExpense,
		Amount:      e.Amount,
		Category:    category,
		Description: e.Description,
		ID:          e.ID,
		UserID:      e.UserID,
	}
}
