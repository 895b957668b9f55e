package amqp

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestNewExpenseEvent(t *testing.T) {
	ev := NewExpenseEvent(KindCreated, 42)

	if _, err := uuid.Parse(ev.ID); err != nil {
		t.Errorf("ID %q is not a uuid: %v", ev.ID, err)
	}
	if ev.Kind != KindCreated || ev.ExpenseID != 42 {
		t.Errorf("unexpected event %+v", ev)
	}
	if time.Since(ev.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
	if NewExpenseEvent(KindCreated, 42).ID == ev.ID {
		t.Error("event ids should be unique")
	}
}

func TestExpenseEventFromJSON(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	want := &ExpenseEvent{ID: "5f1c", Kind: KindDeleted, ExpenseID: 7, Timestamp: ts}

	data, err := want.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	got, err := ExpenseEventFromJSON(data)
	if err != nil {
		t.Fatalf("ExpenseEventFromJSON() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestExpenseEventFromJSON_Rejects(t *testing.T) {
	tests := map[string]string{
		"invalid json":        `{"kind":`,
		"unknown kind":        `{"id":"a","kind":"expense.moved","expense_id":1}`,
		"missing expense id":  `{"id":"a","kind":"expense.created"}`,
		"wrong id field type": `{"id":"a","kind":"expense.updated","expense_id":"x"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ExpenseEventFromJSON([]byte(body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestExpenseEventFromJSON_ErasedNeedsNoID(t *testing.T) {
	ev, err := ExpenseEventFromJSON([]byte(`{"id":"a","kind":"expenses.erased","timestamp":"2024-01-01T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != KindErased {
		t.Errorf("Kind = %q", ev.Kind)
	}
}
