package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dompet/internal/core"
)

// Op is the change a TransactionEvent announces.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// TransactionEvent announces a change to an income or expense row.
// It carries only identifiers; consumers fetch the row from the store.
type TransactionEvent struct {
	Op        Op        `json:"op"`
	Kind      core.Kind `json:"kind"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionEvent creates an event stamped with the current time.
func NewTransactionEvent(op Op, kind core.Kind, id, userID string) *TransactionEvent {
	return &TransactionEvent{
		Op:        op,
		Kind:      kind,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// Validate rejects events a consumer could not act on.
func (e *TransactionEvent) Validate() error {
	if e.Op != OpUpsert && e.Op != OpDelete {
		return fmt.Errorf("unknown op %q", e.Op)
	}
	if !e.Kind.IsValid() {
		return core.ErrInvalidKind
	}
	if e.ID == "" {
		return errors.New("missing id")
	}
	if e.UserID == "" {
		return core.ErrEmptyUser
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	return &ev, nil
}
