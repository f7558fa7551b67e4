package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dompet/internal/core"
	"dompet/internal/store"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "dompet.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seed(t *testing.T, r *Repository) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	must(r.CreateCategory(ctx, core.Category{ID: "food", UserID: "u1", Name: "Food", Kind: core.KindExpense, Color: "#f00"}))
	must(r.CreateIncome(ctx, core.Income{ID: "i1", UserID: "u1", Amount: core.Money{Cents: 100000000}, Source: "Salary", Date: core.NewDate(2025, 1, 31), CreatedAt: base}))
	must(r.CreateIncome(ctx, core.Income{ID: "i2", UserID: "u1", Amount: core.Money{Cents: 1050}, Source: "Gift", Date: core.NewDate(2025, 2, 1), CreatedAt: base}))
	must(r.CreateIncome(ctx, core.Income{ID: "i3", UserID: "u2", Amount: core.Money{Cents: 9999}, Source: "Other", Date: core.NewDate(2025, 2, 1), CreatedAt: base}))
	must(r.CreateExpense(ctx, core.Expense{ID: "e1", UserID: "u1", CategoryID: "food", Amount: core.Money{Cents: 310}, Description: "Lunch", Date: core.NewDate(2025, 2, 3), CreatedAt: base}))
	must(r.CreateExpense(ctx, core.Expense{ID: "e2", UserID: "u1", Amount: core.Money{Cents: 20}, Date: core.NewDate(2025, 2, 4), CreatedAt: base.Add(time.Minute)}))
}

func TestRebind(t *testing.T) {
	q := "SELECT 1 WHERE a = ? AND b = ?"
	if got := DialectSQLite.Rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %s", got)
	}
	if got := DialectPostgres.Rebind(q); got != "SELECT 1 WHERE a = $1 AND b = $2" {
		t.Errorf("postgres rebind = %s", got)
	}
}

func TestAmountsCoercibleAndRanged(t *testing.T) {
	r := newTestRepository(t)
	seed(t, r)
	ctx := context.Background()

	rows, err := r.Amounts(ctx, store.AmountQuery{Table: store.TableIncome, UserID: "u1"})
	if err != nil || len(rows) != 2 {
		t.Fatalf("all time: rows=%v err=%v", rows, err)
	}
	var total core.Money
	for _, row := range rows {
		m, err := core.ParseAmount(row.Amount)
		if err != nil {
			t.Fatalf("amount %q not coercible: %v", row.Amount, err)
		}
		total = total.Add(m)
	}
	if total.Cents != 100001050 {
		t.Fatalf("expected 100001050 cents, got %d", total.Cents)
	}

	from, to := core.MonthBounds(2025, 1)
	rows, err = r.Amounts(ctx, store.AmountQuery{Table: store.TableIncome, UserID: "u1", From: &from, To: &to})
	if err != nil || len(rows) != 1 {
		t.Fatalf("january: rows=%v err=%v", rows, err)
	}

	if _, err := r.Amounts(ctx, store.AmountQuery{Table: "goals; DROP TABLE income", UserID: "u1"}); err == nil {
		t.Fatalf("expected error for unknown table")
	}
}

func TestIncomeRoundTripAndOwnership(t *testing.T) {
	r := newTestRepository(t)
	seed(t, r)
	ctx := context.Background()

	in, err := r.GetIncome(ctx, "u1", "i2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if in.Amount.Cents != 1050 || in.Source != "Gift" || in.Date.String() != "2025-02-01" {
		t.Fatalf("unexpected income %+v", in)
	}

	if _, err := r.GetIncome(ctx, "u2", "i2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := r.DeleteIncome(ctx, "u2", "i2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on foreign delete, got %v", err)
	}

	in.Amount = core.Money{Cents: 2000}
	in.Description = "Birthday"
	if err := r.UpdateIncome(ctx, in); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := r.GetIncome(ctx, "u1", "i2")
	if got.Amount.Cents != 2000 || got.Description != "Birthday" {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestListExpensesOrderAndFilter(t *testing.T) {
	r := newTestRepository(t)
	seed(t, r)
	ctx := context.Background()

	all, err := r.ListExpenses(ctx, "u1", store.ListFilter{})
	if err != nil || len(all) != 2 || all[0].ID != "e2" {
		t.Fatalf("unexpected list: %+v err=%v", all, err)
	}
	food, err := r.ListExpenses(ctx, "u1", store.ListFilter{CategoryID: "food", Limit: 5})
	if err != nil || len(food) != 1 || food[0].Description != "Lunch" {
		t.Fatalf("unexpected category filter result: %+v err=%v", food, err)
	}
}

func TestDeleteCategoryDetachesAndCascades(t *testing.T) {
	r := newTestRepository(t)
	seed(t, r)
	ctx := context.Background()

	if err := r.CreateBudget(ctx, core.Budget{ID: "b1", UserID: "u1", CategoryID: "food", Limit: core.Money{Cents: 5000}, Month: 2, Year: 2025}); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if err := r.DeleteCategory(ctx, "u1", "food"); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	e, err := r.GetExpense(ctx, "u1", "e1")
	if err != nil || e.CategoryID != "" {
		t.Fatalf("expected detached expense, got %+v err=%v", e, err)
	}
	budgets, err := r.ListBudgets(ctx, "u1", 2025, 2)
	if err != nil || len(budgets) != 0 {
		t.Fatalf("expected budgets to cascade, got %+v err=%v", budgets, err)
	}
}

func TestExpenseTotalsByCategory(t *testing.T) {
	r := newTestRepository(t)
	seed(t, r)

	totals, err := r.ExpenseTotalsByCategory(context.Background(), "u1", nil, nil)
	if err != nil || len(totals) != 2 {
		t.Fatalf("unexpected totals: %+v err=%v", totals, err)
	}
	if totals[0].Name != "Food" || totals[0].Amount.Cents != 310 {
		t.Fatalf("expected Food first, got %+v", totals[0])
	}
	if totals[1].Name != core.UncategorizedName || totals[1].Amount.Cents != 20 {
		t.Fatalf("expected uncategorized bucket, got %+v", totals[1])
	}
}

func TestGoalsNewestFirstWithDeadline(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	deadline := core.NewDate(2026, 12, 31)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := r.CreateGoal(ctx, core.Goal{ID: "g1", UserID: "u1", Name: "Car", Target: core.Money{Cents: 500000}, CreatedAt: base}); err != nil {
		t.Fatalf("create g1: %v", err)
	}
	if err := r.CreateGoal(ctx, core.Goal{ID: "g2", UserID: "u1", Name: "Trip", Target: core.Money{Cents: 100000}, Current: core.Money{Cents: 2500}, Deadline: &deadline, CreatedAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("create g2: %v", err)
	}

	goals, err := r.ListGoals(ctx, "u1")
	if err != nil || len(goals) != 2 {
		t.Fatalf("list goals: %+v err=%v", goals, err)
	}
	if goals[0].ID != "g2" || goals[0].Deadline == nil || goals[0].Deadline.String() != "2026-12-31" {
		t.Fatalf("unexpected first goal %+v", goals[0])
	}
	if goals[1].Deadline != nil {
		t.Fatalf("expected nil deadline, got %v", goals[1].Deadline)
	}

	g := goals[0]
	g.Current = core.Money{Cents: 100000}
	if err := r.UpdateGoal(ctx, g); err != nil {
		t.Fatalf("update goal: %v", err)
	}
	got, _ := r.GetGoal(ctx, "u1", "g2")
	if !got.Completed() {
		t.Fatalf("expected completed goal, got %+v", got)
	}
}
