package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/storage"
	"expenses/internal/storage/memory"
)

type publishedEvent struct {
	Kind amqp.EventKind
	ID   int64
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
	closed bool
}

func (f *fakePublisher) Publish(_ context.Context, kind amqp.EventKind, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{kind, id})
	return f.err
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func sample() core.Expense {
	return core.Expense{
		Date:        "2024-03-15",
		ExpenseType: "transportation",
		Amount:      25.50,
		Currency:    "USD",
		Location:    "Berlin",
	}
}

func newService(t *testing.T) (*ExpenseService, *memory.Store, *fakePublisher) {
	t.Helper()
	store := memory.New()
	pub := &fakePublisher{}
	return NewExpenseService(store, pub), store, pub
}

func TestExpenseService_CreateExpense(t *testing.T) {
	svc, store, pub := newService(t)
	ctx := context.Background()

	in := sample()
	in.ExpenseType = "Food_Drink"
	in.Currency = "eur"

	got, err := svc.CreateExpense(ctx, in)
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	if got.ID == 0 {
		t.Fatal("expected an id to be assigned")
	}

	stored, err := store.Get(ctx, got.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := in
	want.ID = got.ID
	want.ExpenseType = "food_drink"
	want.Currency = "EUR"
	want.ReimbursementStatus = core.StatusPending
	if diff := cmp.Diff(want, stored); diff != "" {
		t.Errorf("stored expense mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]publishedEvent{{amqp.KindCreated, got.ID}}, pub.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestExpenseService_CreateExpenseValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*core.Expense)
		wantErr error
	}{
		{"bad date", func(e *core.Expense) { e.Date = "15/03/2024" }, core.ErrInvalidDate},
		{"bad type", func(e *core.Expense) { e.ExpenseType = "gifts" }, core.ErrInvalidExpenseType},
		{"zero amount", func(e *core.Expense) { e.Amount = 0 }, core.ErrInvalidAmount},
		{"negative amount", func(e *core.Expense) { e.Amount = -3 }, core.ErrInvalidAmount},
		{"bad currency", func(e *core.Expense) { e.Currency = "US" }, core.ErrInvalidCurrency},
		{"bad email", func(e *core.Expense) { e.Email = "not-an-email" }, core.ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, pub := newService(t)
			e := sample()
			tt.mutate(&e)

			_, err := svc.CreateExpense(context.Background(), e)
			if !errors.Is(err, ErrValidation) || !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateExpense() error = %v, want %v", err, tt.wantErr)
			}
			if all, _ := store.List(context.Background()); len(all) != 0 {
				t.Errorf("invalid expense was stored: %+v", all)
			}
			if len(pub.events) != 0 {
				t.Errorf("unexpected events %+v", pub.events)
			}
		})
	}
}

func TestExpenseService_UpdateExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("applies supplied fields only", func(t *testing.T) {
		svc, store, pub := newService(t)
		created, _ := svc.CreateExpense(ctx, sample())

		err := svc.UpdateExpense(ctx, created.ID, core.Patch{
			core.FieldAmount:              30.00,
			core.FieldReimbursementStatus: core.StatusApproved,
		})
		if err != nil {
			t.Fatalf("UpdateExpense() error = %v", err)
		}

		got, _ := store.Get(ctx, created.ID)
		want := created
		want.Amount = 30.00
		want.ReimbursementStatus = core.StatusApproved
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("updated expense mismatch (-want +got):\n%s", diff)
		}
		if last := pub.events[len(pub.events)-1]; last != (publishedEvent{amqp.KindUpdated, created.ID}) {
			t.Errorf("last event = %+v", last)
		}
	})

	t.Run("normalizes values without changing the caller's patch", func(t *testing.T) {
		svc, store, _ := newService(t)
		created, _ := svc.CreateExpense(ctx, sample())

		patch := core.Patch{
			core.FieldExpenseType: " Food_Drink ",
			core.FieldCurrency:    " eur",
		}
		sent := core.Patch{
			core.FieldExpenseType: " Food_Drink ",
			core.FieldCurrency:    " eur",
		}
		if err := svc.UpdateExpense(ctx, created.ID, patch); err != nil {
			t.Fatalf("UpdateExpense() error = %v", err)
		}
		if diff := cmp.Diff(sent, patch); diff != "" {
			t.Errorf("caller patch modified (-want +got):\n%s", diff)
		}

		got, _ := store.Get(ctx, created.ID)
		if got.ExpenseType != string(core.FoodDrink) || got.Currency != "EUR" {
			t.Errorf("stored type=%q currency=%q, want normalized", got.ExpenseType, got.Currency)
		}
	})

	t.Run("empty patch is a no-op", func(t *testing.T) {
		svc, _, pub := newService(t)
		if err := svc.UpdateExpense(ctx, 999, core.Patch{}); err != nil {
			t.Fatalf("UpdateExpense() error = %v", err)
		}
		if len(pub.events) != 0 {
			t.Errorf("unexpected events %+v", pub.events)
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		svc, store, _ := newService(t)
		err := svc.UpdateExpense(ctx, 999, core.Patch{core.FieldAmount: 1.0})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("UpdateExpense() error = %v, want ErrNotFound", err)
		}
		if all, _ := store.List(ctx); len(all) != 0 {
			t.Error("update must not create a record")
		}
	})

	t.Run("invalid value rejected", func(t *testing.T) {
		svc, _, _ := newService(t)
		created, _ := svc.CreateExpense(ctx, sample())
		err := svc.UpdateExpense(ctx, created.ID, core.Patch{core.FieldAmount: -1.0})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("UpdateExpense() error = %v, want ErrValidation", err)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		svc, _, _ := newService(t)
		created, _ := svc.CreateExpense(ctx, sample())
		err := svc.UpdateExpense(ctx, created.ID, core.Patch{"expense_id": "7"})
		if !errors.Is(err, core.ErrUnknownField) {
			t.Fatalf("UpdateExpense() error = %v, want ErrUnknownField", err)
		}
	})
}

func TestExpenseService_DeleteExpense(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newService(t)
	created, _ := svc.CreateExpense(ctx, sample())

	if err := svc.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatalf("DeleteExpense() error = %v", err)
	}
	if _, err := store.Get(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected record to be gone, got %v", err)
	}
	if err := svc.DeleteExpense(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeleteExpense() error = %v, want ErrNotFound", err)
	}
	if last := pub.events[len(pub.events)-1]; last.Kind != amqp.KindDeleted {
		t.Errorf("last event = %+v", last)
	}
}

func TestExpenseService_EraseAll(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService(t)
	first, _ := svc.CreateExpense(ctx, sample())
	svc.CreateExpense(ctx, sample())

	n, err := svc.EraseAll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("EraseAll() = %d, %v", n, err)
	}
	all, _ := svc.ListExpenses(ctx)
	if len(all) != 0 {
		t.Fatalf("expected empty list, got %d", len(all))
	}

	next, _ := svc.CreateExpense(ctx, sample())
	if next.ID <= first.ID+1 {
		t.Errorf("id %d reused after erase", next.ID)
	}
	found := false
	for _, ev := range pub.events {
		if ev.Kind == amqp.KindErased {
			found = true
		}
	}
	if !found {
		t.Error("expected an erased event")
	}
}

func TestExpenseService_PublishFailureDoesNotFailWrite(t *testing.T) {
	store := memory.New()
	svc := NewExpenseService(store, &fakePublisher{err: errors.New("broker down")})

	got, err := svc.CreateExpense(context.Background(), sample())
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	if _, err := store.Get(context.Background(), got.ID); err != nil {
		t.Errorf("expense should be stored: %v", err)
	}
}

func TestExpenseService_NilPublisher(t *testing.T) {
	svc := NewExpenseService(memory.New(), nil)
	if _, err := svc.CreateExpense(context.Background(), sample()); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
}

func TestExpenseService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		service := &ExpenseService{}
		if err := service.Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})

	t.Run("closes publisher", func(t *testing.T) {
		pub := &fakePublisher{}
		if err := NewExpenseService(memory.New(), pub).Close(); err != nil {
			t.Fatal(err)
		}
		if !pub.closed {
			t.Error("publisher not closed")
		}
	})
}
