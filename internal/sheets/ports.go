package sheets

import (
	"context"

	"expenses/internal/core"
)

// Mirror is an external copy of the expenses table, one row per expense,
// keyed by expense id.
type Mirror interface {
	// Upsert writes e to the row holding id, appending a row when none exists.
	Upsert(ctx context.Context, id int64, e core.Expense) error
	// Remove drops the row holding id. Unknown ids are not an error.
	Remove(ctx context.Context, id int64) error
	// Clear drops every expense row, keeping the header.
	Clear(ctx context.Context) error
	// Replace rewrites the whole mirror from all, in order.
	Replace(ctx context.Context, all []core.Expense) error
}
