package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind names a change to the expenses table.
type EventKind string

const (
	KindCreated EventKind = "expense.created"
	KindUpdated EventKind = "expense.updated"
	KindDeleted EventKind = "expense.deleted"
	KindErased  EventKind = "expenses.erased"
)

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case KindCreated, KindUpdated, KindDeleted, KindErased:
		return true
	default:
		return false
	}
}

// ExpenseEvent is a lightweight change notification. It carries only the
// expense id; consumers read the current record from the database.
type ExpenseEvent struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	ExpenseID int64     `json:"expense_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEvent creates an event with a fresh message id.
func NewExpenseEvent(kind EventKind, expenseID int64) *ExpenseEvent {
	return &ExpenseEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		ExpenseID: expenseID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON decodes an event and rejects unknown kinds and
// record events without an expense id.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !ev.Kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	if ev.Kind != KindErased && ev.ExpenseID <= 0 {
		return nil, fmt.Errorf("event %s missing expense id", ev.Kind)
	}
	return &ev, nil
}
