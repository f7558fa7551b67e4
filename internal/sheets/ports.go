// Package sheets mirrors transactions into a spreadsheet ledger.
package sheets

import (
	"context"

	"dompet/internal/core"
)

// LedgerRow is one transaction as it appears in the ledger sheet.
type LedgerRow struct {
	Date        core.Date
	Kind        core.Kind
	Amount      core.Money
	Category    string
	Description string
	ID          string
	UserID      string
}

// Header is the first row of a fresh ledger sheet.
var Header = []any{"date", "kind", "amount", "category", "description", "id", "user"}

// Columns in ledger order. IDColumn is the letter holding the row id.
const (
	FirstColumn = "A"
	LastColumn  = "G"
	IDColumn    = "F"
)

// Values renders the row in column order: date | kind | amount | category | description | id | user.
func (r LedgerRow) Values() []any {
	return []any{r.Date.String(), string(r.Kind), r.Amount.String(), r.Category, r.Description, r.ID, r.UserID}
}

// Ports for outbound adapters.
type (
	// LedgerWriter keeps exactly one row per transaction id.
	LedgerWriter interface {
		// Upsert replaces the row with the same id or appends a new one.
		Upsert(ctx context.Context, row LedgerRow) error
		// Delete removes the row with id. A missing row is not an error.
		Delete(ctx context.Context, id string) error
	}
)
