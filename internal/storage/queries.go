package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Expense mirrors one row of the expenses table. Every column except the key
// is nullable.
type Expense struct {
	ExpenseID           int64
	Date                sql.NullString
	ExpenseType         sql.NullString
	Category            sql.NullString
	Amount              sql.NullFloat64
	Currency            sql.NullString
	Location            sql.NullString
	Receipt             []byte
	Email               sql.NullString
	ReimbursementStatus sql.NullString
	AdditionalNotes     sql.NullString
}

const expenseColumns = `expense_id, date, expense_type, category, amount, currency, location, receipt, email, reimbursement_status, additional_notes`

const createExpense = `INSERT INTO expenses (
    date, expense_type, category, amount, currency, location, receipt, email, reimbursement_status, additional_notes
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateExpenseParams struct {
	Date                sql.NullString
	ExpenseType         sql.NullString
	Category            sql.NullString
	Amount              sql.NullFloat64
	Currency            sql.NullString
	Location            sql.NullString
	Receipt             []byte
	Email               sql.NullString
	ReimbursementStatus sql.NullString
	AdditionalNotes     sql.NullString
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (int64, error) {
	var receipt interface{}
	if arg.Receipt != nil {
		receipt = arg.Receipt
	}
	result, err := q.db.ExecContext(ctx, createExpense,
		arg.Date,
		arg.ExpenseType,
		arg.Category,
		arg.Amount,
		arg.Currency,
		arg.Location,
		receipt,
		arg.Email,
		arg.ReimbursementStatus,
		arg.AdditionalNotes,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE expense_id = ?`

func (q *Queries) GetExpense(ctx context.Context, expenseID int64) (Expense, error) {
	row := q.db.QueryRowContext(ctx, getExpense, expenseID)
	var i Expense
	err := scanExpense(row, &i)
	return i, err
}

const listExpenses = `SELECT ` + expenseColumns + ` FROM expenses ORDER BY expense_id`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := scanExpense(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteExpense = `DELETE FROM expenses WHERE expense_id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, expenseID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpense, expenseID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAllExpenses = `DELETE FROM expenses`

func (q *Queries) DeleteAllExpenses(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAllExpenses)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(s scanner, i *Expense) error {
	return s.Scan(
		&i.ExpenseID,
		&i.Date,
		&i.ExpenseType,
		&i.Category,
		&i.Amount,
		&i.Currency,
		&i.Location,
		&i.Receipt,
		&i.Email,
		&i.ReimbursementStatus,
		&i.AdditionalNotes,
	)
}
