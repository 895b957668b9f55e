package storage

import (
	"context"
	"errors"

	"expenses/internal/core"
)

// ErrNotFound is returned when no expense has the requested id.
var ErrNotFound = errors.New("expense not found")

// Ports implemented by SQLiteRepository and memory.Store.
type (
	ExpenseReader interface {
		List(ctx context.Context) ([]core.Expense, error)
		// Get returns ErrNotFound when the id does not exist.
		Get(ctx context.Context, id int64) (core.Expense, error)
	}

	// ExpenseWriter mutations report how many rows they touched; zero is
	// not an error.
	ExpenseWriter interface {
		Add(ctx context.Context, e core.Expense) (id int64, err error)
		Update(ctx context.Context, id int64, p core.Patch) (rowsAffected int64, err error)
		Delete(ctx context.Context, id int64) (rowsAffected int64, err error)
		EraseAll(ctx context.Context) (rowsAffected int64, err error)
	}

	Store interface {
		ExpenseReader
		ExpenseWriter
		// Initialize makes sure the expenses table exists. Idempotent.
		Initialize(ctx context.Context) error
		Close() error
	}
)
