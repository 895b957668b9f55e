package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"expenses/internal/core"

	_ "modernc.org/sqlite"
)

// columns maps every allow-listed field to its column name. Update builds
// its SET clause from these constants only.
var columns = map[core.Field]string{
	core.FieldDate:                "date",
	core.FieldExpenseType:         "expense_type",
	core.FieldCategory:            "category",
	core.FieldAmount:              "amount",
	core.FieldCurrency:            "currency",
	core.FieldLocation:            "location",
	core.FieldReceipt:             "receipt",
	core.FieldEmail:               "email",
	core.FieldReimbursementStatus: "reimbursement_status",
	core.FieldAdditionalNotes:     "additional_notes",
}

var _ Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	dsn     string
	queries *Queries
}

// NewSQLiteRepository opens (creating if needed) the database file at dbPath
// and initializes the schema.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		dsn:     dsn,
		queries: New(db),
	}

	if err := repo.Initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// Initialize applies the embedded migrations.
func (r *SQLiteRepository) Initialize(ctx context.Context) error {
	version, err := RunMigrations(r.dsn)
	if err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	slog.DebugContext(ctx, "Expenses schema ready", "dsn", r.dsn, "schema_version", version)
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Add inserts e and returns the id assigned by the database. e.ID is ignored.
func (r *SQLiteRepository) Add(ctx context.Context, e core.Expense) (int64, error) {
	id, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		Date:                text(e.Date),
		ExpenseType:         text(e.ExpenseType),
		Category:            text(e.Category),
		Amount:              sql.NullFloat64{Float64: e.Amount, Valid: true},
		Currency:            text(e.Currency),
		Location:            text(e.Location),
		Receipt:             e.Receipt,
		Email:               text(e.Email),
		ReimbursementStatus: text(e.ReimbursementStatus),
		AdditionalNotes:     text(e.AdditionalNotes),
	})
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"date", e.Date,
		"expense_type", e.ExpenseType,
		"amount", e.Amount,
		"currency", e.Currency)

	return id, nil
}

// Update writes only the fields present in p. An empty patch returns
// immediately without touching the database.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, p core.Patch) (int64, error) {
	if p.Empty() {
		return 0, nil
	}
	query, args, err := buildUpdate(id, p)
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update expense %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update expense %d rows affected: %w", id, err)
	}

	slog.InfoContext(ctx, "Expense updated in SQLite",
		"id", id,
		"fields", len(p),
		"rows_affected", n)

	return n, nil
}

func buildUpdate(id int64, p core.Patch) (string, []any, error) {
	if err := p.Check(); err != nil {
		return "", nil, err
	}
	fields := p.Fields()
	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for _, f := range fields {
		sets = append(sets, columns[f]+" = ?")
		v := p[f]
		if b, ok := v.([]byte); ok && b == nil {
			v = nil
		}
		args = append(args, v)
	}
	args = append(args, id)
	return "UPDATE expenses SET " + strings.Join(sets, ", ") + " WHERE expense_id = ?", args, nil
}

// Delete removes the expense with the given id. Unknown ids affect zero rows.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (int64, error) {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete expense %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Expense deleted from SQLite", "id", id, "rows_affected", n)
	return n, nil
}

// List returns every expense in insertion order.
func (r *SQLiteRepository) List(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

// Get returns the expense with the given id or ErrNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return row.toCore(), nil
}

// EraseAll deletes every expense. Ids are not reused afterwards.
func (r *SQLiteRepository) EraseAll(ctx context.Context) (int64, error) {
	n, err := r.queries.DeleteAllExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("erase all expenses: %w", err)
	}
	slog.WarnContext(ctx, "All expenses erased from SQLite", "rows_affected", n)
	return n, nil
}

func (e Expense) toCore() core.Expense {
	return core.Expense{
		ID:                  e.ExpenseID,
		Date:                e.Date.String,
		ExpenseType:         e.ExpenseType.String,
		Category:            e.Category.String,
		Amount:              e.Amount.Float64,
		Currency:            e.Currency.String,
		Location:            e.Location.String,
		Receipt:             e.Receipt,
		Email:               e.Email.String,
		ReimbursementStatus: e.ReimbursementStatus.String,
		AdditionalNotes:     e.AdditionalNotes.String,
	}
}

func text(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}
