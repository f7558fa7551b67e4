package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dompet/internal/core"
	"dompet/internal/store"
)

// Repository implements store.Store over database/sql.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ store.Store = (*Repository)(nil)

// NewRepository wraps an open, migrated database.
func NewRepository(db *sql.DB, d Dialect) *Repository {
	return &Repository{db: db, dialect: d, now: time.Now}
}

func (r *Repository) Dialect() Dialect { return r.dialect }

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
}

func (r *Repository) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.dialect.Rebind(query), args...)
}

// execOwned runs a statement scoped by id and user and maps zero affected rows to ErrNotFound.
func (r *Repository) execOwned(ctx context.Context, query string, args ...any) error {
	res, err := r.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) createdAt(t time.Time) time.Time {
	if t.IsZero() {
		t = r.now()
	}
	return t.UTC()
}

func appendRange(query string, args []any, column string, from, to *core.Date) (string, []any) {
	if from != nil {
		query += " AND " + column + " >= ?"
		args = append(args, from.String())
	}
	if to != nil {
		query += " AND " + column + " < ?"
		args = append(args, to.String())
	}
	return query, args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(d *core.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDateColumn(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

func parseAmountColumn(s string) (core.Money, error) {
	m, err := core.ParseAmount(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return m, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// Amounts implements store.AmountReader
func (r *Repository) Amounts(ctx context.Context, q store.AmountQuery) ([]store.AmountRow, error) {
	if q.Table != store.TableIncome && q.Table != store.TableExpenses {
		return nil, fmt.Errorf("unknown table %q", q.Table)
	}
	query := "SELECT CAST(amount AS TEXT) FROM " + q.Table + " WHERE user_id = ?"
	query, args := appendRange(query, []any{q.UserID}, "date", q.From, q.To)

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s amounts: %w", q.Table, err)
	}
	defer rows.Close()

	var out []store.AmountRow
	for rows.Next() {
		var row store.AmountRow
		if err := rows.Scan(&row.Amount); err != nil {
			return nil, fmt.Errorf("scan amount: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const incomeColumns = "id, user_id, category_id, CAST(amount AS TEXT), source, description, CAST(date AS TEXT), created_at"

func scanIncome(s rowScanner) (core.Income, error) {
	var (
		in             core.Income
		category, desc sql.NullString
		amount, date   string
	)
	if err := s.Scan(&in.ID, &in.UserID, &category, &amount, &in.Source, &desc, &date, &in.CreatedAt); err != nil {
		return core.Income{}, err
	}
	in.CategoryID, in.Description = category.String, desc.String
	var err error
	if in.Amount, err = parseAmountColumn(amount); err != nil {
		return core.Income{}, err
	}
	if in.Date, err = parseDateColumn(date); err != nil {
		return core.Income{}, err
	}
	return in, nil
}

// CreateIncome implements store.IncomeStore
func (r *Repository) CreateIncome(ctx context.Context, in core.Income) error {
	_, err := r.exec(ctx,
		`INSERT INTO income (id, user_id, category_id, amount, source, description, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, nullString(in.CategoryID), in.Amount.String(), in.Source,
		nullString(in.Description), in.Date.String(), r.createdAt(in.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert income: %w", err)
	}
	return nil
}

func (r *Repository) UpdateIncome(ctx context.Context, in core.Income) error {
	err := r.execOwned(ctx,
		`UPDATE income SET category_id = ?, amount = ?, source = ?, description = ?, date = ?
		 WHERE id = ? AND user_id = ?`,
		nullString(in.CategoryID), in.Amount.String(), in.Source, nullString(in.Description),
		in.Date.String(), in.ID, in.UserID)
	if err != nil {
		return fmt.Errorf("update income %s: %w", in.ID, err)
	}
	return nil
}

func (r *Repository) DeleteIncome(ctx context.Context, userID, id string) error {
	if err := r.execOwned(ctx, "DELETE FROM income WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("delete income %s: %w", id, err)
	}
	return nil
}

func (r *Repository) GetIncome(ctx context.Context, userID, id string) (core.Income, error) {
	in, err := scanIncome(r.queryRow(ctx,
		"SELECT "+incomeColumns+" FROM income WHERE id = ? AND user_id = ?", id, userID))
	if err != nil {
		return core.Income{}, fmt.Errorf("get income %s: %w", id, notFound(err))
	}
	return in, nil
}

// ListIncomes returns incomes newest date first.
func (r *Repository) ListIncomes(ctx context.Context, userID string, f store.ListFilter) ([]core.Income, error) {
	query, args := listQuery("SELECT "+incomeColumns+" FROM income WHERE user_id = ?", userID, f)
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func listQuery(base, userID string, f store.ListFilter) (string, []any) {
	query, args := appendRange(base, []any{userID}, "date", f.From, f.To)
	if f.CategoryID != "" {
		query += " AND category_id = ?"
		args = append(args, f.CategoryID)
	}
	query += " ORDER BY date DESC, created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return query, args
}

const expenseColumns = "id, user_id, category_id, CAST(amount AS TEXT), description, CAST(date AS TEXT), created_at"

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e              core.Expense
		category, desc sql.NullString
		amount, date   string
	)
	if err := s.Scan(&e.ID, &e.UserID, &category, &amount, &desc, &date, &e.CreatedAt); err != nil {
		return core.Expense{}, err
	}
	e.CategoryID, e.Description = category.String, desc.String
	var err error
	if e.Amount, err = parseAmountColumn(amount); err != nil {
		return core.Expense{}, err
	}
	if e.Date, err = parseDateColumn(date); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// CreateExpense implements store.ExpenseStore
func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := r.exec(ctx,
		`INSERT INTO expenses (id, user_id, category_id, amount, description, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, nullString(e.CategoryID), e.Amount.String(),
		nullString(e.Description), e.Date.String(), r.createdAt(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	err := r.execOwned(ctx,
		`UPDATE expenses SET category_id = ?, amount = ?, description = ?, date = ?
		 WHERE id = ? AND user_id = ?`,
		nullString(e.CategoryID), e.Amount.String(), nullString(e.Description),
		e.Date.String(), e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense %s: %w", e.ID, err)
	}
	return nil
}

func (r *Repository) DeleteExpense(ctx context.Context, userID, id string) error {
	if err := r.execOwned(ctx, "DELETE FROM expenses WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	return nil
}

func (r *Repository) GetExpense(ctx context.Context, userID, id string) (core.Expense, error) {
	e, err := scanExpense(r.queryRow(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ? AND user_id = ?", id, userID))
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, notFound(err))
	}
	return e, nil
}

// ListExpenses returns expenses newest date first.
func (r *Repository) ListExpenses(ctx context.Context, userID string, f store.ListFilter) ([]core.Expense, error) {
	query, args := listQuery("SELECT "+expenseColumns+" FROM expenses WHERE user_id = ?", userID, f)
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateCategory implements store.CategoryStore
func (r *Repository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.exec(ctx,
		"INSERT INTO categories (id, user_id, name, type, color, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		c.ID, c.UserID, c.Name, string(c.Kind), c.Color, r.createdAt(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// DeleteCategory relies on the schema to detach transactions and drop budgets.
func (r *Repository) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := r.execOwned(ctx, "DELETE FROM categories WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return nil
}

// ListCategories returns categories sorted by name; an empty kind lists both kinds.
func (r *Repository) ListCategories(ctx context.Context, userID string, kind core.Kind) ([]core.Category, error) {
	query := "SELECT id, user_id, name, type, color, created_at FROM categories WHERE user_id = ?"
	args := []any{userID}
	if kind != "" {
		query += " AND type = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY LOWER(name)"

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c   core.Category
			typ string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.Color, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.Kind(typ)
		out = append(out, c)
	}
	return out, rows.Err()
}

const goalColumns = "id, user_id, name, CAST(target_amount AS TEXT), CAST(current_amount AS TEXT), CAST(deadline AS TEXT), created_at, updated_at"

func scanGoal(s rowScanner) (core.Goal, error) {
	var (
		g               core.Goal
		target, current string
		deadline        sql.NullString
	)
	if err := s.Scan(&g.ID, &g.UserID, &g.Name, &target, &current, &deadline, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return core.Goal{}, err
	}
	var err error
	if g.Target, err = parseAmountColumn(target); err != nil {
		return core.Goal{}, err
	}
	if g.Current, err = parseAmountColumn(current); err != nil {
		return core.Goal{}, err
	}
	if deadline.Valid {
		d, err := parseDateColumn(deadline.String)
		if err != nil {
			return core.Goal{}, err
		}
		g.Deadline = &d
	}
	return g, nil
}

// CreateGoal implements store.GoalStore
func (r *Repository) CreateGoal(ctx context.Context, g core.Goal) error {
	created := r.createdAt(g.CreatedAt)
	updated := g.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err := r.exec(ctx,
		`INSERT INTO goals (id, user_id, name, target_amount, current_amount, deadline, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.Target.String(), g.Current.String(), nullDate(g.Deadline),
		created, updated.UTC())
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

func (r *Repository) UpdateGoal(ctx context.Context, g core.Goal) error {
	err := r.execOwned(ctx,
		`UPDATE goals SET name = ?, target_amount = ?, current_amount = ?, deadline = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		g.Name, g.Target.String(), g.Current.String(), nullDate(g.Deadline),
		r.createdAt(g.UpdatedAt), g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("update goal %s: %w", g.ID, err)
	}
	return nil
}

func (r *Repository) DeleteGoal(ctx context.Context, userID, id string) error {
	if err := r.execOwned(ctx, "DELETE FROM goals WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	return nil
}

func (r *Repository) GetGoal(ctx context.Context, userID, id string) (core.Goal, error) {
	g, err := scanGoal(r.queryRow(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE id = ? AND user_id = ?", id, userID))
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal %s: %w", id, notFound(err))
	}
	return g, nil
}

func (r *Repository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.query(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CreateBudget implements store.BudgetStore
func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) error {
	_, err := r.exec(ctx,
		`INSERT INTO budgets (id, user_id, category_id, limit_amount, month, year, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.CategoryID, b.Limit.String(), b.Month, b.Year, r.createdAt(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (r *Repository) DeleteBudget(ctx context.Context, userID, id string) error {
	if err := r.execOwned(ctx, "DELETE FROM budgets WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("delete budget %s: %w", id, err)
	}
	return nil
}

func (r *Repository) ListBudgets(ctx context.Context, userID string, year, month int) ([]core.Budget, error) {
	rows, err := r.query(ctx,
		`SELECT id, user_id, category_id, CAST(limit_amount AS TEXT), month, year, created_at
		 FROM budgets WHERE user_id = ? AND year = ? AND month = ? ORDER BY created_at`,
		userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var (
			b     core.Budget
			limit string
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &limit, &b.Month, &b.Year, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.Limit, err = parseAmountColumn(limit); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ExpenseTotalsByCategory implements store.ReportReader. Amounts are summed in
// cents on this side so REAL columns in sqlite cannot drift.
func (r *Repository) ExpenseTotalsByCategory(ctx context.Context, userID string, from, to *core.Date) ([]core.CategoryAmount, error) {
	query := `SELECT c.id, c.name, c.color, CAST(e.amount AS TEXT)
		FROM expenses e LEFT JOIN categories c ON c.id = e.category_id AND c.user_id = e.user_id
		WHERE e.user_id = ?`
	query, args := appendRange(query, []any{userID}, "e.date", from, to)

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select category totals: %w", err)
	}
	defer rows.Close()

	totals := map[string]*core.CategoryAmount{}
	for rows.Next() {
		var (
			id, name, color sql.NullString
			amount          string
		)
		if err := rows.Scan(&id, &name, &color, &amount); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		m, err := parseAmountColumn(amount)
		if err != nil {
			return nil, err
		}
		ca, ok := totals[id.String]
		if !ok {
			ca = &core.CategoryAmount{Name: core.UncategorizedName, Color: core.DefaultCategoryColor}
			if id.Valid {
				ca.CategoryID, ca.Name, ca.Color = id.String, name.String, color.String
			}
			totals[id.String] = ca
		}
		ca.Amount = ca.Amount.Add(m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]core.CategoryAmount, 0, len(totals))
	for _, ca := range totals {
		out = append(out, *ca)
	}
	core.SortCategoryAmounts(out)
	return out, nil
}
