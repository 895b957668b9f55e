// Package services holds the application logic between the HTTP layer and
// storage: validation, zero-row reporting and change events.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"expenses/internal/amqp"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/storage"
)

// ErrValidation wraps every input error returned by the service.
var ErrValidation = errors.New("validation failed")

// EventPublisher announces committed changes. Implemented by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, kind amqp.EventKind, expenseID int64) error
	Close() error
}

// ExpenseService orchestrates expense operations across the store and the
// optional event publisher.
type ExpenseService struct {
	storage   storage.Store
	publisher EventPublisher
}

// NewExpenseService creates the service. publisher may be nil.
func NewExpenseService(store storage.Store, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		storage:   store,
		publisher: publisher,
	}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// normalize lower-cases the expense type and upper-cases the currency so the
// table holds one spelling of each.
func normalize(e *core.Expense) {
	if t, err := core.ParseExpenseType(e.ExpenseType); err == nil {
		e.ExpenseType = string(t)
	}
	e.Currency = strings.ToUpper(strings.TrimSpace(e.Currency))
	e.Email = strings.TrimSpace(e.Email)
	if strings.TrimSpace(e.ReimbursementStatus) == "" {
		e.ReimbursementStatus = core.StatusPending
	}
}

// CreateExpense validates and saves an expense and returns the stored record
// with its new id.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	normalize(&e)
	if err := e.Validate(); err != nil {
		return core.Expense{}, invalid(err)
	}

	id, err := s.storage.Add(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	s.publish(ctx, amqp.KindCreated, id)
	return e, nil
}

// GetExpense returns storage.ErrNotFound when id does not exist.
func (s *ExpenseService) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	return s.storage.Get(ctx, id)
}

func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.storage.List(ctx)
}

// UpdateExpense applies the fields present in p. An empty patch does nothing.
// Updating an unknown id returns storage.ErrNotFound.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id int64, p core.Patch) error {
	if p.Empty() {
		return nil
	}
	p = maps.Clone(p)
	if v, ok := p[core.FieldExpenseType].(string); ok {
		if t, err := core.ParseExpenseType(v); err == nil {
			p[core.FieldExpenseType] = string(t)
		}
	}
	if v, ok := p[core.FieldCurrency].(string); ok {
		p[core.FieldCurrency] = strings.ToUpper(strings.TrimSpace(v))
	}
	if err := p.Validate(); err != nil {
		return invalid(err)
	}

	rows, err := s.storage.Update(ctx, id, p)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("update expense %d: %w", id, storage.ErrNotFound)
	}

	s.publish(ctx, amqp.KindUpdated, id)
	return nil
}

// DeleteExpense removes one expense. Deleting an unknown id returns
// storage.ErrNotFound.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	rows, err := s.storage.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("delete expense %d: %w", id, storage.ErrNotFound)
	}

	s.publish(ctx, amqp.KindDeleted, id)
	return nil
}

// EraseAll removes every expense and returns how many were removed.
func (s *ExpenseService) EraseAll(ctx context.Context) (int64, error) {
	rows, err := s.storage.EraseAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("erase expenses: %w", err)
	}

	s.publish(ctx, amqp.KindErased, 0)
	return rows, nil
}

// publish never fails the caller: the write is already committed.
func (s *ExpenseService) publish(ctx context.Context, kind amqp.EventKind, id int64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping event", applog.FieldEventKind, kind)
		return
	}
	if err := s.publisher.Publish(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			applog.FieldEventKind, kind,
			applog.FieldExpenseID, id,
			applog.FieldError, err)
	}
}

// Close closes both storage and the publisher.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	return errors.Join(errs...)
}
