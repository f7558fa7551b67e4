package memory

import (
	"context"
	"sync"

	ports "dompet/internal/sheets"
)

// Ledger keeps ledger rows in insertion order, one per id.
type Ledger struct {
	mu   sync.Mutex
	rows []ports.LedgerRow
	err  error
}

var _ ports.LedgerWriter = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{}
}

// FailWith makes subsequent writes return err. Pass nil to recover.
func (l *Ledger) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

// Upsert implements ports.LedgerWriter
func (l *Ledger) Upsert(_ context.Context, row ports.LedgerRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	for i := range l.rows {
		if l.rows[i].ID == row.ID {
			l.rows[i] = row
			return nil
		}
	}
	l.rows = append(l.rows, row)
	return nil
}

// Delete implements ports.LedgerWriter
func (l *Ledger) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	for i := range l.rows {
		if l.rows[i].ID == id {
			l.rows = append(l.rows[:i], l.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the current ledger.
func (l *Ledger) Rows() []ports.LedgerRow {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ports.LedgerRow(nil), l.rows...)
}
