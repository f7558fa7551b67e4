package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dompet/internal/core"
	"dompet/internal/store"
)

type BudgetInput struct {
	CategoryID string
	Limit      core.Money
	Month      int
	Year       int
}

// BudgetStore is the row-store slice the budget service reads and writes.
type BudgetStore interface {
	store.BudgetStore
	store.CategoryStore
	store.ReportReader
}

type BudgetService struct {
	store BudgetStore
	newID func() string
	now   func() time.Time
}

func NewBudgetService(st BudgetStore) *BudgetService {
	return &BudgetService{store: st, newID: uuid.NewString, now: time.Now}
}

func (s *BudgetService) List(ctx context.Context, userID string, year, month int) ([]core.Budget, error) {
	if err := validPeriod(year, month); err != nil {
		return nil, err
	}
	return s.store.ListBudgets(ctx, userID, year, month)
}

// Create adds a monthly limit for one expense category. There is at most one
// budget per category and month.
func (s *BudgetService) Create(ctx context.Context, userID string, in BudgetInput) (core.Budget, error) {
	b := core.Budget{
		ID:         s.newID(),
		UserID:     userID,
		CategoryID: strings.TrimSpace(in.CategoryID),
		Limit:      in.Limit,
		Month:      in.Month,
		Year:       in.Year,
		CreatedAt:  s.now().UTC(),
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, invalid(err)
	}

	cats, err := s.store.ListCategories(ctx, userID, core.KindExpense)
	if err != nil {
		return core.Budget{}, fmt.Errorf("list categories: %w", err)
	}
	if !hasCategory(cats, b.CategoryID) {
		return core.Budget{}, invalid(ErrUnknownCategory)
	}

	existing, err := s.store.ListBudgets(ctx, userID, b.Year, b.Month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("list budgets: %w", err)
	}
	for _, e := range existing {
		if e.CategoryID == b.CategoryID {
			return core.Budget{}, invalid(ErrDuplicateBudget)
		}
	}

	if err := s.store.CreateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteBudget(ctx, userID, id)
}

// Usage joins the month's budgets with what was spent in each category.
func (s *BudgetService) Usage(ctx context.Context, userID string, year, month int) ([]core.BudgetUsage, error) {
	if err := validPeriod(year, month); err != nil {
		return nil, err
	}
	budgets, err := s.store.ListBudgets(ctx, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return []core.BudgetUsage{}, nil
	}

	start, next := core.MonthBounds(year, month)
	totals, err := s.store.ExpenseTotalsByCategory(ctx, userID, &start, &next)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	spent := make(map[string]core.Money, len(totals))
	for _, t := range totals {
		if t.CategoryID != "" {
			spent[t.CategoryID] = t.Amount
		}
	}

	out := make([]core.BudgetUsage, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, core.NewBudgetUsage(b, spent[b.CategoryID]))
	}
	return out, nil
}

func validPeriod(year, month int) error {
	if month < 1 || month > 12 {
		return invalid(core.ErrInvalidMonth)
	}
	if year < 1970 || year > 9999 {
		return invalid(core.ErrInvalidYear)
	}
	return nil
}

func hasCategory(cats []core.Category, id string) bool {
	for _, c := range cats {
		if c.ID == id {
			return true
		}
	}
	return false
}
