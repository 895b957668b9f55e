package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"expenses/internal/core"
	"expenses/internal/storage"
)

func sample() core.Expense {
	return core.Expense{
		Date:                "2024-03-01",
		ExpenseType:         "transportation",
		Amount:              25.50,
		Currency:            "USD",
		Location:            "New York",
		Receipt:             []byte("scan"),
		ReimbursementStatus: "Pending",
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.Add(ctx, sample())
	if err != nil || id != 1 {
		t.Fatalf("unexpected add: id=%d err=%v", id, err)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := sample()
	want.ID = id
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	n, err := s.Update(ctx, id, core.Patch{core.FieldAmount: 30.0, core.FieldReimbursementStatus: "Approved"})
	if err != nil || n != 1 {
		t.Fatalf("update: n=%d err=%v", n, err)
	}
	got, _ = s.Get(ctx, id)
	if got.Amount != 30.0 || got.ReimbursementStatus != "Approved" || got.Location != "New York" {
		t.Fatalf("unexpected record after update: %+v", got)
	}

	if n, _ := s.Update(ctx, id, core.Patch{}); n != 0 {
		t.Fatalf("empty patch should affect nothing, got %d", n)
	}
	if n, _ := s.Update(ctx, 99, core.Patch{core.FieldAmount: 1.0}); n != 0 {
		t.Fatalf("missing id should affect nothing, got %d", n)
	}
	if n, _ := s.Delete(ctx, 99); n != 0 {
		t.Fatalf("missing id delete should affect nothing, got %d", n)
	}
	if n, _ := s.Delete(ctx, id); n != 1 {
		t.Fatalf("expected delete of existing id, got %d", n)
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreEraseAllKeepsCounter(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Add(ctx, sample())
	last, _ := s.Add(ctx, sample())

	n, err := s.EraseAll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("erase all: n=%d err=%v", n, err)
	}
	all, _ := s.List(ctx)
	if len(all) != 0 {
		t.Fatalf("expected empty store, got %d", len(all))
	}
	next, _ := s.Add(ctx, sample())
	if next <= last {
		t.Fatalf("id %d reused after erase (last %d)", next, last)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _ := s.Add(ctx, sample())
	got, _ := s.Get(ctx, id)
	got.Receipt[0] = 'X'
	again, _ := s.Get(ctx, id)
	if string(again.Receipt) != "scan" {
		t.Fatalf("stored receipt was mutated through a returned copy: %q", again.Receipt)
	}
}
