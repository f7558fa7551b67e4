package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"dompet/internal/core"
	"dompet/internal/stats"
	"dompet/internal/store"
)

// DefaultHistoryMonths is the length of the balance chart.
const DefaultHistoryMonths = 12

// MaxHistoryMonths bounds BalanceHistory requests.
const MaxHistoryMonths = 60

// ReportStore is the row-store slice the charts read.
type ReportStore interface {
	store.AmountReader
	store.ReportReader
}

type ReportService struct {
	store ReportStore
	now   func() time.Time
}

func NewReportService(st ReportStore) *ReportService {
	return &ReportService{store: st, now: time.Now}
}

// CategoryBreakdown returns all-time expense totals per category, largest first.
func (s *ReportService) CategoryBreakdown(ctx context.Context, userID string) ([]core.CategoryAmount, error) {
	totals, err := s.store.ExpenseTotalsByCategory(ctx, userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	if totals == nil {
		totals = []core.CategoryAmount{}
	}
	return totals, nil
}

// BalanceHistory returns income, expenses and balance for the last months
// calendar months ending with the current one, oldest first. months <= 0
// selects DefaultHistoryMonths.
func (s *ReportService) BalanceHistory(ctx context.Context, userID string, months int) ([]core.MonthlyBalance, error) {
	if months <= 0 {
		months = DefaultHistoryMonths
	}
	if months > MaxHistoryMonths {
		return nil, invalidf("months must be at most %d", MaxHistoryMonths)
	}

	now := s.now()
	out := make([]core.MonthlyBalance, months)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range out {
		year, month := core.AddMonths(now.Year(), int(now.Month()), i-(months-1))
		out[i].Year, out[i].Month = year, month
		g.Go(func() error {
			start, next := core.MonthBounds(year, month)
			income, err := stats.SumAmounts(gctx, s.store, store.AmountQuery{
				Table: store.TableIncome, UserID: userID, From: &start, To: &next,
			})
			if err != nil {
				return err
			}
			expenses, err := stats.SumAmounts(gctx, s.store, store.AmountQuery{
				Table: store.TableExpenses, UserID: userID, From: &start, To: &next,
			})
			if err != nil {
				return err
			}
			out[i].Income, out[i].Expenses = income, expenses
			out[i].Balance = income.Sub(expenses)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("balance history: %w", err)
	}
	return out, nil
}
