package core

import "sort"

// UncategorizedName labels expense totals for rows without a category.
const UncategorizedName = "Uncategorized"

// DashboardStats is an immutable snapshot of a user's totals. Build it with
// NewDashboardStats so Balance always equals TotalIncome - TotalExpenses.
type DashboardStats struct {
	TotalIncome     Money
	TotalExpenses   Money
	Balance         Money
	MonthlyIncome   Money
	MonthlyExpenses Money
}

// NewDashboardStats assembles a snapshot and derives the balance.
func NewDashboardStats(totalIncome, totalExpenses, monthlyIncome, monthlyExpenses Money) DashboardStats {
	return DashboardStats{
		TotalIncome:     totalIncome,
		TotalExpenses:   totalExpenses,
		Balance:         totalIncome.Sub(totalExpenses),
		MonthlyIncome:   monthlyIncome,
		MonthlyExpenses: monthlyExpenses,
	}
}

// CategoryAmount is an expense total aggregated per category.
type CategoryAmount struct {
	CategoryID string
	Name       string
	Color      string
	Amount     Money
}

// SortCategoryAmounts orders totals by amount descending, then by name.
func SortCategoryAmounts(out []CategoryAmount) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
}

// MonthlyBalance is one point of the balance history.
type MonthlyBalance struct {
	Year     int
	Month    int // 1-12
	Income   Money
	Expenses Money
	Balance  Money
}

// BudgetUsage joins a budget with what was spent against it.
type BudgetUsage struct {
	Budget    Budget
	Spent     Money
	Remaining Money
	Percent   float64
}

// NewBudgetUsage computes remaining and percent spent. Remaining may be negative.
func NewBudgetUsage(b Budget, spent Money) BudgetUsage {
	u := BudgetUsage{
		Budget:    b,
		Spent:     spent,
		Remaining: b.Limit.Sub(spent),
	}
	if b.Limit.Cents > 0 {
		u.Percent = float64(spent.Cents) / float64(b.Limit.Cents) * 100
	}
	return u
}
