package http

import (
	"time"

	"dompet/internal/core"
)

// Amounts travel as decimal strings and dates as YYYY-MM-DD.

type (
	incomeRequest struct {
		CategoryID  string `json:"category_id"`
		Amount      string `json:"amount"`
		Source      string `json:"source"`
		Description string `json:"description"`
		Date        string `json:"date"`
	}

	expenseRequest struct {
		CategoryID  string `json:"category_id"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
		Date        string `json:"date"`
	}

	categoryRequest struct {
		Name  string `json:"name"`
		Kind  string `json:"kind"`
		Color string `json:"color"`
	}

	goalRequest struct {
		Name     string `json:"name"`
		Target   string `json:"target"`
		Current  string `json:"current"`
		Deadline string `json:"deadline"`
	}

	budgetRequest struct {
		CategoryID string `json:"category_id"`
		Limit      string `json:"limit"`
		Year       int    `json:"year"`
		Month      int    `json:"month"`
	}
)

type (
	statsResponse struct {
		TotalIncome     string `json:"total_income"`
		TotalExpenses   string `json:"total_expenses"`
		Balance         string `json:"balance"`
		MonthlyIncome   string `json:"monthly_income"`
		MonthlyExpenses string `json:"monthly_expenses"`
		// Stale is set when the numbers are the last good snapshot because a
		// refresh failed.
		Stale bool `json:"stale"`
	}

	incomeResponse struct {
		ID          string    `json:"id"`
		CategoryID  string    `json:"category_id,omitempty"`
		Amount      string    `json:"amount"`
		Source      string    `json:"source"`
		Description string    `json:"description"`
		Date        string    `json:"date"`
		CreatedAt   time.Time `json:"created_at"`
	}

	expenseResponse struct {
		ID          string    `json:"id"`
		CategoryID  string    `json:"category_id,omitempty"`
		Amount      string    `json:"amount"`
		Description string    `json:"description"`
		Date        string    `json:"date"`
		CreatedAt   time.Time `json:"created_at"`
	}

	categoryResponse struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Kind      string    `json:"kind"`
		Color     string    `json:"color"`
		CreatedAt time.Time `json:"created_at"`
	}

	goalResponse struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Target    string    `json:"target"`
		Current   string    `json:"current"`
		Deadline  *string   `json:"deadline"`
		Progress  float64   `json:"progress"`
		Completed bool      `json:"completed"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	budgetResponse struct {
		ID         string    `json:"id"`
		CategoryID string    `json:"category_id"`
		Limit      string    `json:"limit"`
		Year       int       `json:"year"`
		Month      int       `json:"month"`
		CreatedAt  time.Time `json:"created_at"`
	}

	budgetUsageResponse struct {
		Budget    budgetResponse `json:"budget"`
		Spent     string         `json:"spent"`
		Remaining string         `json:"remaining"`
		Percent   float64        `json:"percent"`
	}

	categoryAmountResponse struct {
		CategoryID string `json:"category_id,omitempty"`
		Name       string `json:"name"`
		Color      string `json:"color"`
		Amount     string `json:"amount"`
	}

	monthlyBalanceResponse struct {
		Year     int    `json:"year"`
		Month    int    `json:"month"`
		Income   string `json:"income"`
		Expenses string `json:"expenses"`
		Balance  string `json:"balance"`
	}
)

func newStatsResponse(s core.DashboardStats, ok bool) statsResponse {
	return statsResponse{
		TotalIncome:     s.TotalIncome.String(),
		TotalExpenses:   s.TotalExpenses.String(),
		Balance:         s.Balance.String(),
		MonthlyIncome:   s.MonthlyIncome.String(),
		MonthlyExpenses: s.MonthlyExpenses.String(),
		Stale:           !ok,
	}
}

func newIncomeResponse(in core.Income) incomeResponse {
	return incomeResponse{
		ID:          in.ID,
		CategoryID:  in.CategoryID,
		Amount:      in.Amount.String(),
		Source:      in.Source,
		Description: in.Description,
		Date:        in.Date.String(),
		CreatedAt:   in.CreatedAt,
	}
}

func newExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		CategoryID:  e.CategoryID,
		Amount:      e.Amount.String(),
		Description: e.Description,
		Date:        e.Date.String(),
		CreatedAt:   e.CreatedAt,
	}
}

func newCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Kind:      string(c.Kind),
		Color:     c.Color,
		CreatedAt: c.CreatedAt,
	}
}

func newGoalResponse(g core.Goal) goalResponse {
	out := goalResponse{
		ID:        g.ID,
		Name:      g.Name,
		Target:    g.Target.String(),
		Current:   g.Current.String(),
		Progress:  g.Progress(),
		Completed: g.Completed(),
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
	if g.Deadline != nil {
		d := g.Deadline.String()
		out.Deadline = &d
	}
	return out
}

func newBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Limit:      b.Limit.String(),
		Year:       b.Year,
		Month:      b.Month,
		CreatedAt:  b.CreatedAt,
	}
}

func newBudgetUsageResponse(u core.BudgetUsage) budgetUsageResponse {
	return budgetUsageResponse{
		Budget:    newBudgetResponse(u.Budget),
		Spent:     u.Spent.String(),
		Remaining: u.Remaining.String(),
		Percent:   u.Percent,
	}
}

func newCategoryAmountResponse(c core.CategoryAmount) categoryAmountResponse {
	return categoryAmountResponse{
		CategoryID: c.CategoryID,
		Name:       c.Name,
		Color:      c.Color,
		Amount:     c.Amount.String(),
	}
}

func newMonthlyBalanceResponse(m core.MonthlyBalance) monthlyBalanceResponse {
	return monthlyBalanceResponse{
		Year:     m.Year,
		Month:    m.Month,
		Income:   m.Income.String(),
		Expenses: m.Expenses.String(),
		Balance:  m.Balance.String(),
	}
}

// mapSlice converts a slice, always returning a non-nil result so empty lists
// encode as [].
func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
