// Package store defines the row-store ports the service reads and writes through.
package store

import (
	"context"
	"errors"

	"dompet/internal/core"
)

// Table names in the row store.
const (
	TableIncome     = "income"
	TableExpenses   = "expenses"
	TableCategories = "categories"
	TableGoals      = "goals"
	TableBudgets    = "budgets"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

// TableFor maps a transaction kind to its table.
func TableFor(k core.Kind) string {
	if k == core.KindIncome {
		return TableIncome
	}
	return TableExpenses
}

type (
	// AmountQuery selects the amount column of Table for UserID, optionally
	// restricted to From <= date < To.
	AmountQuery struct {
		Table  string
		UserID string
		From   *core.Date
		To     *core.Date
	}

	// AmountRow is one amount as the store returned it, before numeric coercion.
	AmountRow struct {
		Amount string
	}

	// ListFilter narrows transaction listings. Zero values mean no restriction.
	ListFilter struct {
		From       *core.Date
		To         *core.Date // exclusive
		CategoryID string
		Limit      int
	}
)

// Ports for outbound adapters.
type (
	AmountReader interface {
		Amounts(ctx context.Context, q AmountQuery) ([]AmountRow, error)
	}

	IncomeStore interface {
		CreateIncome(ctx context.Context, in core.Income) error
		UpdateIncome(ctx context.Context, in core.Income) error
		DeleteIncome(ctx context.Context, userID, id string) error
		GetIncome(ctx context.Context, userID, id string) (core.Income, error)
		ListIncomes(ctx context.Context, userID string, f ListFilter) ([]core.Income, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) error
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, userID, id string) error
		GetExpense(ctx context.Context, userID, id string) (core.Expense, error)
		ListExpenses(ctx context.Context, userID string, f ListFilter) ([]core.Expense, error)
	}

	CategoryStore interface {
		CreateCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, userID, id string) error
		ListCategories(ctx context.Context, userID string, kind core.Kind) ([]core.Category, error)
	}

	GoalStore interface {
		CreateGoal(ctx context.Context, g core.Goal) error
		UpdateGoal(ctx context.Context, g core.Goal) error
		DeleteGoal(ctx context.Context, userID, id string) error
		GetGoal(ctx context.Context, userID, id string) (core.Goal, error)
		// ListGoals returns goals newest first.
		ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, userID, id string) error
		ListBudgets(ctx context.Context, userID string, year, month int) ([]core.Budget, error)
	}

	// ReportReader provides per-category expense totals for the category chart.
	// A nil range means all time.
	ReportReader interface {
		ExpenseTotalsByCategory(ctx context.Context, userID string, from, to *core.Date) ([]core.CategoryAmount, error)
	}

	// Store is the full row store used by the service.
	Store interface {
		AmountReader
		IncomeStore
		ExpenseStore
		CategoryStore
		GoalStore
		BudgetStore
		ReportReader
		Ping(ctx context.Context) error
		Close() error
	}
)
