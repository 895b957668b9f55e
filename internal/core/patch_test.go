package core

import (
	"errors"
	"testing"
)

func TestParseField(t *testing.T) {
	for _, f := range Fields {
		got, err := ParseField(string(f))
		if err != nil || got != f {
			t.Fatalf("ParseField(%q) = %q, %v", f, got, err)
		}
	}
	for _, bad := range []string{"expense_id", "amount; DROP TABLE expenses", "", "Amount"} {
		if _, err := ParseField(bad); !errors.Is(err, ErrUnknownField) {
			t.Errorf("ParseField(%q) expected ErrUnknownField, got %v", bad, err)
		}
	}
}

func TestPatchFieldsOrder(t *testing.T) {
	p := Patch{
		FieldReimbursementStatus: "Approved",
		FieldAmount:              30.0,
		FieldDate:                "2024-03-02",
	}
	got := p.Fields()
	want := []Field{FieldDate, FieldAmount, FieldReimbursementStatus}
	if len(got) != len(want) {
		t.Fatalf("Fields() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Fields() = %v, want %v", got, want)
		}
	}
}

func TestPatchCheck(t *testing.T) {
	tests := []struct {
		name  string
		patch Patch
		want  error
	}{
		{"empty", Patch{}, nil},
		{"ok", Patch{FieldAmount: 30.0, FieldReimbursementStatus: "Approved"}, nil},
		{"clear receipt", Patch{FieldReceipt: nil}, nil},
		{"receipt bytes", Patch{FieldReceipt: []byte("pdf")}, nil},
		{"unknown field", Patch{Field("expense_id"): "1"}, ErrUnknownField},
		{"amount as string", Patch{FieldAmount: "30"}, ErrInvalidValue},
		{"status as int", Patch{FieldReimbursementStatus: 1}, ErrInvalidValue},
		{"receipt as string", Patch{FieldReceipt: "pdf"}, ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Check()
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPatchValidate(t *testing.T) {
	if err := (Patch{FieldAmount: -5.0}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := (Patch{FieldCurrency: "DOLLARS"}).Validate(); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
	if err := (Patch{FieldEmail: ""}).Validate(); err != nil {
		t.Fatalf("clearing email should be allowed, got %v", err)
	}
}

func TestPatchApply(t *testing.T) {
	e := validExpense()
	e.Receipt = []byte("scan")
	p := Patch{FieldAmount: 30.0, FieldReimbursementStatus: StatusApproved, FieldReceipt: nil}
	if err := p.Apply(&e); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if e.Amount != 30.0 || e.ReimbursementStatus != StatusApproved || e.Receipt != nil {
		t.Fatalf("patch not applied: %+v", e)
	}
	if e.Location != "New York" || e.Currency != "USD" {
		t.Fatalf("untouched fields changed: %+v", e)
	}

	before := e
	if err := (Patch{FieldAmount: "x"}).Apply(&e); err == nil {
		t.Fatal("expected error for mistyped value")
	}
	if e.Amount != before.Amount {
		t.Fatal("failed apply must not mutate the record")
	}
}
