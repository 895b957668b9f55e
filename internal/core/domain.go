package core

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"
)

const (
	Transportation ExpenseType = "transportation"
	Accommodation  ExpenseType = "accommodation"
	FoodDrink      ExpenseType = "food_drink"
	Miscellaneous  ExpenseType = "miscellaneous"
)

const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
)

// Date layouts accepted for the text date column. The first one is what the
// capture form produces.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

type (
	ExpenseType string

	// Expense is one row of the expenses table. ID is assigned by the store
	// on insert and never changes afterwards.
	Expense struct {
		ID                  int64
		Date                string
		ExpenseType         string
		Category            string
		Amount              float64
		Currency            string
		Location            string
		Receipt             []byte // nil when no receipt is attached
		Email               string
		ReimbursementStatus string
		AdditionalNotes     string
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidExpenseType = errors.New("invalid expense type")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrFieldTooLong       = errors.New("field too long")
)

// ExpenseTypes lists the selectable expense types in display order.
var ExpenseTypes = []ExpenseType{Transportation, Accommodation, FoodDrink, Miscellaneous}

// Label returns the human readable name used by the capture form.
func (t ExpenseType) Label() string {
	switch t {
	case Transportation:
		return "Transportation"
	case Accommodation:
		return "Accommodation"
	case FoodDrink:
		return "Food & Drink"
	case Miscellaneous:
		return "Miscellaneous"
	default:
		return string(t)
	}
}

// ParseExpenseType matches s against the known types, ignoring case and
// surrounding spaces.
func ParseExpenseType(s string) (ExpenseType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range ExpenseTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidExpenseType, s)
}

// ParseDate accepts either DateLayout or DateTimeLayout.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// HasReceipt reports whether a receipt blob is attached.
func (e Expense) HasReceipt() bool {
	return len(e.Receipt) > 0
}

// Validate checks the record at the application boundary. The store itself
// accepts anything.
func (e Expense) Validate() error {
	if err := validateDate(e.Date); err != nil {
		return err
	}
	if err := validateExpenseType(e.ExpenseType); err != nil {
		return err
	}
	if err := validateAmount(e.Amount); err != nil {
		return err
	}
	if err := validateCurrency(e.Currency); err != nil {
		return err
	}
	if err := validateEmail(e.Email); err != nil {
		return err
	}
	for field, v := range map[Field]string{
		FieldCategory:            e.Category,
		FieldLocation:            e.Location,
		FieldReimbursementStatus: e.ReimbursementStatus,
	} {
		if err := validateLength(field, v, 200); err != nil {
			return err
		}
	}
	return validateLength(FieldAdditionalNotes, e.AdditionalNotes, 2000)
}

func validateDate(s string) error {
	_, err := ParseDate(s)
	return err
}

func validateExpenseType(s string) error {
	_, err := ParseExpenseType(s)
	return err
}

func validateAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func validateCurrency(s string) error {
	if len(s) != 3 {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
		}
	}
	return nil
}

func validateEmail(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, s)
	}
	return nil
}

func validateLength(f Field, s string, max int) error {
	if len(s) > max {
		return fmt.Errorf("%w: %s (max %d characters)", ErrFieldTooLong, f, max)
	}
	return nil
}
