package core

import (
	"errors"
	"testing"
	"time"
)

func TestMonthBounds(t *testing.T) {
	cases := []struct {
		year, month int
		start, next string
	}{
		{2025, 1, "2025-01-01", "2025-02-01"},
		{2025, 11, "2025-11-01", "2025-12-01"},
		{2025, 12, "2025-12-01", "2026-01-01"},
	}
	for _, tc := range cases {
		start, next := MonthBounds(tc.year, tc.month)
		if start.String() != tc.start || next.String() != tc.next {
			t.Fatalf("%d-%d: got [%s, %s)", tc.year, tc.month, start, next)
		}
	}
}

func TestMonthBoundsYearEndMembership(t *testing.T) {
	start, next := MonthBounds(2025, 12)
	inRange := func(d Date) bool { return !d.Before(start.Time) && d.Before(next.Time) }

	if !inRange(NewDate(2025, 12, 31)) {
		t.Fatalf("december 31 must be inside the month")
	}
	if inRange(NewDate(2026, 1, 1)) {
		t.Fatalf("january 1 of next year must be outside the month")
	}
}

func TestAddMonths(t *testing.T) {
	cases := []struct{ y, m, n, wy, wm int }{
		{2025, 1, -1, 2024, 12},
		{2025, 12, 1, 2026, 1},
		{2025, 6, -11, 2024, 7},
		{2025, 3, 0, 2025, 3},
	}
	for _, tc := range cases {
		y, m := AddMonths(tc.y, tc.m, tc.n)
		if y != tc.wy || m != tc.wm {
			t.Fatalf("AddMonths(%d,%d,%d) = %d-%d, want %d-%d", tc.y, tc.m, tc.n, y, m, tc.wy, tc.wm)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	if err != nil || d.String() != "2025-03-09" {
		t.Fatalf("unexpected: %v %v", d, err)
	}
	if d, err := ParseDate("2025-03-09T00:00:00Z"); err != nil || d.String() != "2025-03-09" {
		t.Fatalf("timestamp form: %v %v", d, err)
	}
	if _, err := ParseDate("09/03/2025"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDateValidate(t *testing.T) {
	if err := NewDate(2025, 1, 1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Date{Time: time.Time{}}).Validate(); err == nil {
		t.Fatalf("expected error for zero date")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{UserID: "u1", Date: NewDate(2025, 1, 1), Amount: Money{Cents: 100}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}},
		{UserID: "u1", Amount: Money{Cents: 1}},
		{UserID: "u1", Date: NewDate(2025, 1, 1)},
		{UserID: "u1", Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, Description: string(make([]byte, 201))},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestIncomeRequiresSource(t *testing.T) {
	in := Income{UserID: "u1", Date: NewDate(2025, 1, 1), Amount: Money{Cents: 100}}
	if err := in.Validate(); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
	in.Source = "Salary"
	if err := in.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestCategoryValidate(t *testing.T) {
	c := Category{UserID: "u1", Name: "Food", Kind: "other"}
	if err := c.Validate(); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	c.Kind = KindExpense
	if err := c.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestGoalProgress(t *testing.T) {
	cases := []struct {
		current, target int64
		want            float64
	}{
		{0, 1000, 0},
		{250, 1000, 25},
		{1500, 1000, 100},
		{10, 0, 0},
	}
	for _, tc := range cases {
		g := Goal{Current: Money{Cents: tc.current}, Target: Money{Cents: tc.target}}
		if got := g.Progress(); got != tc.want {
			t.Fatalf("%d/%d: got %v want %v", tc.current, tc.target, got, tc.want)
		}
	}
	if !(Goal{Current: Money{Cents: 10}, Target: Money{Cents: 10}}).Completed() {
		t.Fatalf("goal at target should be completed")
	}
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{UserID: "u1", CategoryID: "c1", Limit: Money{Cents: 100}, Month: 13, Year: 2025}
	if err := b.Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	b.Month = 12
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestNewDashboardStatsBalance(t *testing.T) {
	s := NewDashboardStats(Money{Cents: 100}, Money{Cents: 250}, Money{}, Money{Cents: 50})
	if s.Balance.Cents != -150 {
		t.Fatalf("expected balance -150, got %d", s.Balance.Cents)
	}
}

func TestNewBudgetUsage(t *testing.T) {
	u := NewBudgetUsage(Budget{Limit: Money{Cents: 1000}}, Money{Cents: 1250})
	if u.Remaining.Cents != -250 || u.Percent != 125 {
		t.Fatalf("unexpected usage: %+v", u)
	}
}
