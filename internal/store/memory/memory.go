package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"dompet/internal/core"
	"dompet/internal/store"
)

// Store keeps every table in process memory. Rows are copied on the way in and out.
type Store struct {
	mu         sync.Mutex
	incomes    map[string]core.Income
	expenses   map[string]core.Expense
	categories map[string]core.Category
	goals      map[string]core.Goal
	budgets    map[string]core.Budget

	failWith    error
	amountCalls atomic.Int64
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		incomes:    make(map[string]core.Income),
		expenses:   make(map[string]core.Expense),
		categories: make(map[string]core.Category),
		goals:      make(map[string]core.Goal),
		budgets:    make(map[string]core.Budget),
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// AmountCalls returns how many Amounts queries have been served.
func (s *Store) AmountCalls() int64 {
	return s.amountCalls.Load()
}

func (s *Store) Ping(context.Context) error { return s.failure() }

func (s *Store) Close() error { return nil }

func (s *Store) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failWith
}

func inRange(d core.Date, from, to *core.Date) bool {
	if from != nil && d.Before(from.Time) {
		return false
	}
	if to != nil && !d.Before(to.Time) {
		return false
	}
	return true
}

// Amounts implements store.AmountReader
func (s *Store) Amounts(ctx context.Context, q store.AmountQuery) ([]store.AmountRow, error) {
	s.amountCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	var out []store.AmountRow
	switch q.Table {
	case store.TableIncome:
		for _, in := range s.incomes {
			if in.UserID == q.UserID && inRange(in.Date, q.From, q.To) {
				out = append(out, store.AmountRow{Amount: in.Amount.String()})
			}
		}
	case store.TableExpenses:
		for _, e := range s.expenses {
			if e.UserID == q.UserID && inRange(e.Date, q.From, q.To) {
				out = append(out, store.AmountRow{Amount: e.Amount.String()})
			}
		}
	default:
		return nil, fmt.Errorf("unknown table %q", q.Table)
	}
	return out, nil
}

// CreateIncome implements store.IncomeStore
func (s *Store) CreateIncome(_ context.Context, in core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if _, exists := s.incomes[in.ID]; exists {
		return fmt.Errorf("income %s already exists", in.ID)
	}
	s.incomes[in.ID] = in
	return nil
}

func (s *Store) UpdateIncome(_ context.Context, in core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	cur, ok := s.incomes[in.ID]
	if !ok || cur.UserID != in.UserID {
		return store.ErrNotFound
	}
	in.CreatedAt = cur.CreatedAt
	s.incomes[in.ID] = in
	return nil
}

func (s *Store) DeleteIncome(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	cur, ok := s.incomes[id]
	if !ok || cur.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.incomes, id)
	return nil
}

func (s *Store) GetIncome(_ context.Context, userID, id string) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return core.Income{}, s.failWith
	}
	in, ok := s.incomes[id]
	if !ok || in.UserID != userID {
		return core.Income{}, store.ErrNotFound
	}
	return in, nil
}

// ListIncomes returns incomes newest date first.
func (s *Store) ListIncomes(_ context.Context, userID string, f store.ListFilter) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []core.Income
	for _, in := range s.incomes {
		if in.UserID != userID || !inRange(in.Date, f.From, f.To) {
			continue
		}
		if f.CategoryID != "" && in.CategoryID != f.CategoryID {
			continue
		}
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// CreateExpense implements store.ExpenseStore
func (s *Store) CreateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if _, exists := s.expenses[e.ID]; exists {
		return fmt.Errorf("expense %s already exists", e.ID)
	}
	s.expenses[e.ID] = e
	return nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	cur, ok := s.expenses[e.ID]
	if !ok || cur.UserID != e.UserID {
		return store.ErrNotFound
	}
	e.CreatedAt = cur.CreatedAt
	s.expenses[e.ID] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	cur, ok := s.expenses[id]
	if !ok || cur.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) GetExpense(_ context.Context, userID, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return core.Expense{}, s.failWith
	}
	e, ok := s.expenses[id]
	if !ok || e.UserID != userID {
		return core.Expense{}, store.ErrNotFound
	}
	return e, nil
}

// ListExpenses returns expenses newest date first.
func (s *Store) ListExpenses(_ context.Context, userID string, f store.ListFilter) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID != userID || !inRange(e.Date, f.From, f.To) {
			continue
		}
		if f.CategoryID != "" && e.CategoryID != f.CategoryID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// CreateCategory implements store.CategoryStore
func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.categories[c.ID] = c
	return nil
}

// DeleteCategory removes the category and detaches it from transactions and budgets,
// mirroring the ON DELETE SET NULL / CASCADE rules of the SQL schema.
func (s *Store) DeleteCategory(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	cur, ok := s.categories[id]
	if !ok || cur.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.categories, id)
	for k, in := range s.incomes {
		if in.CategoryID == id {
			in.CategoryID = ""
			s.incomes[k] = in
		}
	}
	for k, e := range s.expenses {
		if e.CategoryID == id {
			e.CategoryID = ""
			s.expenses[k] = e
		}
	}
	for k, b := range s.budgets {
		if b.CategoryID == id {
			delete(s.budgets, k)
		}
	}
	return nil
}

// ListCategories returns categories sorted by name; an empty kind lists both kinds.
func (s *Store) ListCategories(_ context.Context, userID string, kind core.Kind) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID != userID || (kind != "" && c.Kind != kind) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// CreateGoal implements store.GoalStore
func (s *Store) CreateGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.goals[g.ID] = g
	return nil
}

func (s *Store) UpdateGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	cur, ok := s.goals[g.ID]
	if !ok || cur.UserID != g.UserID {
		return store.ErrNotFound
	}
	g.CreatedAt = cur.CreatedAt
	s.goals[g.ID] = g
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	cur, ok := s.goals[id]
	if !ok || cur.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.goals, id)
	return nil
}

func (s *Store) GetGoal(_ context.Context, userID, id string) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return core.Goal{}, s.failWith
	}
	g, ok := s.goals[id]
	if !ok || g.UserID != userID {
		return core.Goal{}, store.ErrNotFound
	}
	return g, nil
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []core.Goal
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CreateBudget implements store.BudgetStore
func (s *Store) CreateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	cur, ok := s.budgets[id]
	if !ok || cur.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, userID string, year, month int) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID == userID && b.Year == year && b.Month == month {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ExpenseTotalsByCategory implements store.ReportReader
func (s *Store) ExpenseTotalsByCategory(_ context.Context, userID string, from, to *core.Date) ([]core.CategoryAmount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	totals := map[string]*core.CategoryAmount{}
	for _, e := range s.expenses {
		if e.UserID != userID || !inRange(e.Date, from, to) {
			continue
		}
		key := e.CategoryID
		if _, ok := s.categories[key]; !ok {
			key = ""
		}
		ca, ok := totals[key]
		if !ok {
			ca = &core.CategoryAmount{Name: core.UncategorizedName, Color: core.DefaultCategoryColor}
			if c, found := s.categories[key]; found {
				ca.CategoryID, ca.Name, ca.Color = c.ID, c.Name, c.Color
			}
			totals[key] = ca
		}
		ca.Amount = ca.Amount.Add(e.Amount)
	}
	out := make([]core.CategoryAmount, 0, len(totals))
	for _, ca := range totals {
		out = append(out, *ca)
	}
	core.SortCategoryAmounts(out)
	return out, nil
}
