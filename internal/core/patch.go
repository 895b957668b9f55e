package core

import (
	"errors"
	"fmt"
	"strings"
)

// Field identifies one mutable column of an expense. The set is closed:
// storage maps each Field to its column name, so only these values ever
// reach a query.
type Field string

const (
	FieldDate                Field = "date"
	FieldExpenseType         Field = "expense_type"
	FieldCategory            Field = "category"
	FieldAmount              Field = "amount"
	FieldCurrency            Field = "currency"
	FieldLocation            Field = "location"
	FieldReceipt             Field = "receipt"
	FieldEmail               Field = "email"
	FieldReimbursementStatus Field = "reimbursement_status"
	FieldAdditionalNotes     Field = "additional_notes"
)

// Fields is the allow-list in column order.
var Fields = []Field{
	FieldDate,
	FieldExpenseType,
	FieldCategory,
	FieldAmount,
	FieldCurrency,
	FieldLocation,
	FieldReceipt,
	FieldEmail,
	FieldReimbursementStatus,
	FieldAdditionalNotes,
}

var (
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidValue = errors.New("invalid value type")
)

// ParseField looks s up in the allow-list.
func ParseField(s string) (Field, error) {
	s = strings.TrimSpace(s)
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Known reports whether f is part of the allow-list.
func (f Field) Known() bool {
	_, err := ParseField(string(f))
	return err == nil
}

// Value returns the field value of e, typed as it is stored.
func (e Expense) Value(f Field) any {
	switch f {
	case FieldDate:
		return e.Date
	case FieldExpenseType:
		return e.ExpenseType
	case FieldCategory:
		return e.Category
	case FieldAmount:
		return e.Amount
	case FieldCurrency:
		return e.Currency
	case FieldLocation:
		return e.Location
	case FieldReceipt:
		return e.Receipt
	case FieldEmail:
		return e.Email
	case FieldReimbursementStatus:
		return e.ReimbursementStatus
	case FieldAdditionalNotes:
		return e.AdditionalNotes
	default:
		return nil
	}
}

// Patch is a partial update: only the fields present are written. Amount
// values are float64, Receipt values are []byte (nil clears it), every other
// field is a string.
type Patch map[Field]any

// Empty reports whether the patch carries no field.
func (p Patch) Empty() bool {
	return len(p) == 0
}

// Fields returns the fields present in p, in allow-list order.
func (p Patch) Fields() []Field {
	out := make([]Field, 0, len(p))
	for _, f := range Fields {
		if _, ok := p[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Check verifies that every key is allow-listed and every value has the
// type of its column. It does not look at the values themselves.
func (p Patch) Check() error {
	for f, v := range p {
		if !f.Known() {
			return fmt.Errorf("%w: %q", ErrUnknownField, string(f))
		}
		var ok bool
		switch f {
		case FieldAmount:
			_, ok = v.(float64)
		case FieldReceipt:
			_, ok = v.([]byte)
			if v == nil {
				ok = true
			}
		default:
			_, ok = v.(string)
		}
		if !ok {
			return fmt.Errorf("%w: %s has %T", ErrInvalidValue, f, v)
		}
	}
	return nil
}

// Validate runs Check and then the same value rules as Expense.Validate for
// the fields present.
func (p Patch) Validate() error {
	if err := p.Check(); err != nil {
		return err
	}
	for _, f := range p.Fields() {
		var err error
		switch f {
		case FieldDate:
			err = validateDate(p[f].(string))
		case FieldExpenseType:
			err = validateExpenseType(p[f].(string))
		case FieldAmount:
			err = validateAmount(p[f].(float64))
		case FieldCurrency:
			err = validateCurrency(p[f].(string))
		case FieldEmail:
			err = validateEmail(p[f].(string))
		case FieldAdditionalNotes:
			err = validateLength(f, p[f].(string), 2000)
		case FieldReceipt:
		default:
			err = validateLength(f, p[f].(string), 200)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Apply writes the patch onto e. It fails, leaving e untouched, when Check
// fails.
func (p Patch) Apply(e *Expense) error {
	if err := p.Check(); err != nil {
		return err
	}
	for f, v := range p {
		switch f {
		case FieldDate:
			e.Date = v.(string)
		case FieldExpenseType:
			e.ExpenseType = v.(string)
		case FieldCategory:
			e.Category = v.(string)
		case FieldAmount:
			e.Amount = v.(float64)
		case FieldCurrency:
			e.Currency = v.(string)
		case FieldLocation:
			e.Location = v.(string)
		case FieldReceipt:
			if v == nil {
				e.Receipt = nil
			} else {
				e.Receipt = v.([]byte)
			}
		case FieldEmail:
			e.Email = v.(string)
		case FieldReimbursementStatus:
			e.ReimbursementStatus = v.(string)
		case FieldAdditionalNotes:
			e.AdditionalNotes = v.(string)
		}
	}
	return nil
}
