package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// DefaultCategoryColor is used for categories created without a colour.
const DefaultCategoryColor = "#6B7280"

const dateLayout = "2006-01-02"

type (
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Income struct {
		ID          string
		UserID      string
		CategoryID  string // optional
		Amount      Money
		Source      string
		Description string
		Date        Date
		CreatedAt   time.Time
	}

	Expense struct {
		ID          string
		UserID      string
		CategoryID  string // optional
		Amount      Money
		Description string
		Date        Date
		CreatedAt   time.Time
	}

	Category struct {
		ID        string
		UserID    string
		Name      string
		Kind      Kind
		Color     string
		CreatedAt time.Time
	}

	Goal struct {
		ID        string
		UserID    string
		Name      string
		Target    Money
		Current   Money
		Deadline  *Date
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Budget struct {
		ID         string
		UserID     string
		CategoryID string
		Limit      Money
		Month      int
		Year       int
		CreatedAt  time.Time
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidYear      = errors.New("invalid year")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrEmptyUser        = errors.New("empty user id")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptySource      = errors.New("empty source")
	ErrEmptyCategory    = errors.New("empty category")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
	ErrInvalidTargetAmt = errors.New("target amount must be positive")
)

// IsValid reports whether k is a known transaction kind.
func (k Kind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. Longer ISO forms are truncated to the date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MonthBounds returns the first day of the given month and the first day of the
// month after it. December rolls into January of the next year.
func MonthBounds(year, month int) (start, next Date) {
	start = NewDate(year, month, 1)
	nextMonth, nextYear := month+1, year
	if month == 12 {
		nextMonth, nextYear = 1, year+1
	}
	next = NewDate(nextYear, nextMonth, 1)
	return start, next
}

// AddMonths shifts (year, month) by n months, n may be negative.
func AddMonths(year, month, n int) (int, int) {
	idx := year*12 + (month - 1) + n
	return idx / 12, idx%12 + 1
}

func validateDescription(desc string) error {
	if len(desc) > 200 {
		return ErrDescriptionLong
	}
	return nil
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.UserID) == "" {
		return ErrEmptyUser
	}
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	return validateDescription(i.Description)
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUser
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return validateDescription(e.Description)
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Kind.IsValid() {
		return ErrInvalidKind
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if g.Target.Cents <= 0 {
		return ErrInvalidTargetAmt
	}
	if g.Current.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Progress returns the share of the target reached, in percent, capped at 100.
func (g Goal) Progress() float64 {
	if g.Target.Cents <= 0 {
		return 0
	}
	p := float64(g.Current.Cents) / float64(g.Target.Cents) * 100
	if p > 100 {
		return 100
	}
	return p
}

// Completed reports whether the goal has reached its target.
func (g Goal) Completed() bool {
	return g.Target.Cents > 0 && g.Current.Cents >= g.Target.Cents
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if err := b.Limit.Validate(); err != nil {
		return err
	}
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	if b.Year < 1970 || b.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}
