package google

import (
	"fmt"
	"strconv"
	"strings"

	"expenses/internal/core"
)

// a1 builds an A1 range, quoting the sheet name when needed.
func a1(sheet, cells string) string {
	if needsQuote(sheet) {
		sheet = "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet + "!" + cells
}

func needsQuote(sheet string) bool {
	for _, r := range sheet {
		if !(r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return true
		}
	}
	return false
}

// rowValues lays out e in Header order. The receipt blob is not copied.
func rowValues(e core.Expense) []any {
	receipt := "no"
	if e.HasReceipt() {
		receipt = "yes"
	}
	return []any{
		e.ID,
		e.Date,
		core.ExpenseType(e.ExpenseType).Label(),
		e.Category,
		e.Amount,
		e.Currency,
		e.Location,
		receipt,
		e.Email,
		e.ReimbursementStatus,
		e.AdditionalNotes,
	}
}

// rowOf scans a column A listing and returns the 1-based row holding id, or
// 0. The header and non-numeric cells are skipped.
func rowOf(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}

func headerMatches(values [][]any) bool {
	if len(values) == 0 || len(values[0]) < len(Header) {
		return false
	}
	for i, h := range Header {
		if !strings.EqualFold(strings.TrimSpace(fmt.Sprint(values[0][i])), h.(string)) {
			return false
		}
	}
	return true
}
