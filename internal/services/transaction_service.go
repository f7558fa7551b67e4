package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dompet/internal/amqp"
	"dompet/internal/core"
	applog "dompet/internal/log"
	"dompet/internal/store"
)

// EventPublisher announces transaction changes. *amqp.Client implements it.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.TransactionEvent) error
}

// StatsInvalidator drops cached dashboard totals. *stats.Aggregator implements it.
type StatsInvalidator interface {
	Invalidate(userID string)
}

// TransactionStore is the row-store slice the transaction service writes through.
type TransactionStore interface {
	store.IncomeStore
	store.ExpenseStore
	store.CategoryStore
}

type (
	IncomeInput struct {
		CategoryID  string
		Amount      core.Money
		Source      string
		Description string
		Date        core.Date
	}

	ExpenseInput struct {
		CategoryID  string
		Amount      core.Money
		Description string
		Date        core.Date
	}
)

// TransactionService orchestrates income and expense writes across the row
// store, the dashboard cache and AMQP.
type TransactionService struct {
	store     TransactionStore
	publisher EventPublisher
	stats     StatsInvalidator
	logger    *applog.Logger
	newID     func() string
	now       func() time.Time
}

type TransactionOption func(*TransactionService)

// WithPublisher enables change events. A nil publisher disables them.
func WithPublisher(p EventPublisher) TransactionOption {
	return func(s *TransactionService) { s.publisher = p }
}

// WithStats makes writes drop the user's current dashboard snapshot.
func WithStats(inv StatsInvalidator) TransactionOption {
	return func(s *TransactionService) { s.stats = inv }
}

func WithTransactionLogger(l *applog.Logger) TransactionOption {
	return func(s *TransactionService) { s.logger = l }
}

func WithIDGenerator(f func() string) TransactionOption {
	return func(s *TransactionService) { s.newID = f }
}

func NewTransactionService(st TransactionStore, opts ...TransactionOption) *TransactionService {
	s := &TransactionService{
		store: st,
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(applog.ComponentTransaction)
	return s
}

func (s *TransactionService) CreateIncome(ctx context.Context, userID string, in IncomeInput) (core.Income, error) {
	income := core.Income{
		ID:          s.newID(),
		UserID:      userID,
		CategoryID:  strings.TrimSpace(in.CategoryID),
		Amount:      in.Amount,
		Source:      strings.TrimSpace(in.Source),
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
		CreatedAt:   s.now().UTC(),
	}
	if err := income.Validate(); err != nil {
		return core.Income{}, invalid(err)
	}
	if err := s.checkCategory(ctx, userID, core.KindIncome, income.CategoryID); err != nil {
		return core.Income{}, err
	}
	if err := s.store.CreateIncome(ctx, income); err != nil {
		return core.Income{}, fmt.Errorf("save income: %w", err)
	}
	s.changed(ctx, amqp.OpUpsert, core.KindIncome, income.ID, userID, applog.OpCreate, income.Amount)
	return income, nil
}

func (s *TransactionService) UpdateIncome(ctx context.Context, userID, id string, in IncomeInput) (core.Income, error) {
	income, err := s.store.GetIncome(ctx, userID, id)
	if err != nil {
		return core.Income{}, err
	}
	income.CategoryID = strings.TrimSpace(in.CategoryID)
	income.Amount = in.Amount
	income.Source = strings.TrimSpace(in.Source)
	income.Description = strings.TrimSpace(in.Description)
	income.Date = in.Date
	if err := income.Validate(); err != nil {
		return core.Income{}, invalid(err)
	}
	if err := s.checkCategory(ctx, userID, core.KindIncome, income.CategoryID); err != nil {
		return core.Income{}, err
	}
	if err := s.store.UpdateIncome(ctx, income); err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	s.changed(ctx, amqp.OpUpsert, core.KindIncome, income.ID, userID, applog.OpUpdate, income.Amount)
	return income, nil
}

func (s *TransactionService) DeleteIncome(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteIncome(ctx, userID, id); err != nil {
		return err
	}
	s.changed(ctx, amqp.OpDelete, core.KindIncome, id, userID, applog.OpDelete, core.Money{})
	return nil
}

func (s *TransactionService) ListIncomes(ctx context.Context, userID string, f store.ListFilter) ([]core.Income, error) {
	return s.store.ListIncomes(ctx, userID, f)
}

func (s *TransactionService) CreateExpense(ctx context.Context, userID string, in ExpenseInput) (core.Expense, error) {
	expense := core.Expense{
		ID:          s.newID(),
		UserID:      userID,
		CategoryID:  strings.TrimSpace(in.CategoryID),
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
		CreatedAt:   s.now().UTC(),
	}
	if err := expense.Validate(); err != nil {
		return core.Expense{}, invalid(err)
	}
	if err := s.checkCategory(ctx, userID, core.KindExpense, expense.CategoryID); err != nil {
		return core.Expense{}, err
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.changed(ctx, amqp.OpUpsert, core.KindExpense, expense.ID, userID, applog.OpCreate, expense.Amount)
	return expense, nil
}

func (s *TransactionService) UpdateExpense(ctx context.Context, userID, id string, in ExpenseInput) (core.Expense, error) {
	expense, err := s.store.GetExpense(ctx, userID, id)
	if err != nil {
		return core.Expense{}, err
	}
	expense.CategoryID = strings.TrimSpace(in.CategoryID)
	expense.Amount = in.Amount
	expense.Description = strings.TrimSpace(in.Description)
	expense.Date = in.Date
	if err := expense.Validate(); err != nil {
		return core.Expense{}, invalid(err)
	}
	if err := s.checkCategory(ctx, userID, core.KindExpense, expense.CategoryID); err != nil {
		return core.Expense{}, err
	}
	if err := s.store.UpdateExpense(ctx, expense); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.changed(ctx, amqp.OpUpsert, core.KindExpense, expense.ID, userID, applog.OpUpdate, expense.Amount)
	return expense, nil
}

func (s *TransactionService) DeleteExpense(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}
	s.changed(ctx, amqp.OpDelete, core.KindExpense, id, userID, applog.OpDelete, core.Money{})
	return nil
}

func (s *TransactionService) ListExpenses(ctx context.Context, userID string, f store.ListFilter) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx, userID, f)
}

// checkCategory accepts an empty id or one of the user's categories of kind.
func (s *TransactionService) checkCategory(ctx context.Context, userID string, kind core.Kind, id string) error {
	if id == "" {
		return nil
	}
	cats, err := s.store.ListCategories(ctx, userID, kind)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	if !hasCategory(cats, id) {
		return invalid(ErrUnknownCategory)
	}
	return nil
}

// changed runs after a successful write. Neither step can fail the request:
// the row is already stored.
func (s *TransactionService) changed(ctx context.Context, op amqp.Op, kind core.Kind, id, userID, logOp string, amount core.Money) {
	if s.stats != nil {
		s.stats.Invalidate(userID)
	}

	amt := ""
	if op == amqp.OpUpsert {
		amt = amount.String()
	}
	s.logger.InfoContext(ctx, "Transaction changed",
		applog.NewFields().
			WithOperation(logOp).
			WithUser(userID).
			WithRecord(string(kind), id, amt).
			ToSlice()...)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, amqp.NewTransactionEvent(op, kind, id, userID)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			applog.NewFields().
				WithOperation(applog.OpPublish).
				WithUser(userID).
				WithRecord(string(kind), id, "").
				WithError(err).
				ToSlice()...)
	}
}
