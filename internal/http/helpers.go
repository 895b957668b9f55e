package http

import (
	"cmp"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"expenses/internal/core"
)

// sortExpenseID is the sort key for the id column, which is not part of the
// mutable field allow-list.
const sortExpenseID = "expense_id"

// SortOrder is a validated ?sort=&dir= pair.
type SortOrder struct {
	Key  string
	Desc bool
}

// parseSortOrder falls back to ascending id order for unknown keys.
func parseSortOrder(r *http.Request) SortOrder {
	q := r.URL.Query()
	order := SortOrder{Key: sortExpenseID, Desc: strings.EqualFold(q.Get("dir"), "desc")}
	if key := q.Get("sort"); key != "" {
		if f, err := core.ParseField(key); err == nil {
			order.Key = string(f)
		}
	}
	return order
}

// Dir renders the direction for query strings.
func (o SortOrder) Dir() string {
	if o.Desc {
		return "desc"
	}
	return "asc"
}

// NextDir is the direction a header link should request for key: the
// opposite of the current one when key is already the active column.
func (o SortOrder) NextDir(key string) string {
	if o.Key == key && !o.Desc {
		return "desc"
	}
	return "asc"
}

// sortExpenses returns a sorted copy; the input may be shared by the cache.
func sortExpenses(items []core.Expense, order SortOrder) []core.Expense {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b core.Expense) int {
		c := compareBy(a, b, order.Key)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if order.Desc {
			return -c
		}
		return c
	})
	return out
}

func compareBy(a, b core.Expense, key string) int {
	switch key {
	case sortExpenseID:
		return cmp.Compare(a.ID, b.ID)
	case string(core.FieldAmount):
		return cmp.Compare(a.Amount, b.Amount)
	case string(core.FieldReceipt):
		return cmp.Compare(boolRank(a.HasReceipt()), boolRank(b.HasReceipt()))
	default:
		f := core.Field(key)
		as, _ := a.Value(f).(string)
		bs, _ := b.Value(f).(string)
		return strings.Compare(strings.ToLower(as), strings.ToLower(bs))
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// column is one sortable table header.
type column struct {
	Key   string
	Label string
}

var tableColumns = []column{
	{sortExpenseID, "ID"},
	{string(core.FieldDate), "Date"},
	{string(core.FieldExpenseType), "Type"},
	{string(core.FieldCategory), "Category"},
	{string(core.FieldAmount), "Amount"},
	{string(core.FieldCurrency), "Currency"},
	{string(core.FieldLocation), "Location"},
	{string(core.FieldReceipt), "Receipt"},
	{string(core.FieldEmail), "Email"},
	{string(core.FieldReimbursementStatus), "Status"},
	{string(core.FieldAdditionalNotes), "Notes"},
}

// expenseJSON is the detail representation. The receipt itself is served
// separately.
type expenseJSON struct {
	ID                  int64   `json:"id"`
	Date                string  `json:"date"`
	ExpenseType         string  `json:"expense_type"`
	Category            string  `json:"category"`
	Amount              float64 `json:"amount"`
	Currency            string  `json:"currency"`
	Location            string  `json:"location"`
	HasReceipt          bool    `json:"has_receipt"`
	Email               string  `json:"email"`
	ReimbursementStatus string  `json:"reimbursement_status"`
	AdditionalNotes     string  `json:"additional_notes"`
}

func toJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:                  e.ID,
		Date:                e.Date,
		ExpenseType:         e.ExpenseType,
		Category:            e.Category,
		Amount:              e.Amount,
		Currency:            e.Currency,
		Location:            e.Location,
		HasReceipt:          e.HasReceipt(),
		Email:               e.Email,
		ReimbursementStatus: e.ReimbursementStatus,
		AdditionalNotes:     e.AdditionalNotes,
	}
}

// parseID reads the {id} path value.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid expense id")
	}
	return id, nil
}

// typeLabel renders a stored expense type for display.
func typeLabel(s string) string {
	return core.ExpenseType(s).Label()
}

// formatAmount renders an amount with two decimals, without currency.
func formatAmount(v float64) string {
	return core.FormatAmount(v, "")
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}
