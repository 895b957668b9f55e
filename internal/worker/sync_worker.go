// Package worker mirrors expense changes into an external sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expenses/internal/amqp"
	applog "expenses/internal/log"
	"expenses/internal/sheets"
	"expenses/internal/storage"
)

// SyncWorker applies expense change events to a sheets.Mirror, reading the
// current record from storage.
type SyncWorker struct {
	storage storage.ExpenseReader
	mirror  sheets.Mirror
}

func NewSyncWorker(store storage.ExpenseReader, mirror sheets.Mirror) *SyncWorker {
	return &SyncWorker{
		storage: store,
		mirror:  mirror,
	}
}

// HandleEvent processes one change event. A returned error makes the
// consumer requeue the message.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	slog.InfoContext(ctx, "Processing expense event",
		"event_id", ev.ID,
		applog.FieldEventKind, ev.Kind,
		applog.FieldExpenseID, ev.ExpenseID)

	switch ev.Kind {
	case amqp.KindCreated, amqp.KindUpdated:
		return w.syncExpense(ctx, ev.ExpenseID)
	case amqp.KindDeleted:
		if err := w.mirror.Remove(ctx, ev.ExpenseID); err != nil {
			return fmt.Errorf("remove expense %d from mirror: %w", ev.ExpenseID, err)
		}
		return nil
	case amqp.KindErased:
		if err := w.mirror.Clear(ctx); err != nil {
			return fmt.Errorf("clear mirror: %w", err)
		}
		return nil
	default:
		slog.WarnContext(ctx, "Ignoring unknown event kind", applog.FieldEventKind, ev.Kind)
		return nil
	}
}

// syncExpense copies the current record. A record deleted after the event
// was published is removed from the mirror instead.
func (w *SyncWorker) syncExpense(ctx context.Context, id int64) error {
	e, err := w.storage.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		slog.InfoContext(ctx, "Expense no longer exists, removing from mirror", applog.FieldExpenseID, id)
		if err := w.mirror.Remove(ctx, id); err != nil {
			return fmt.Errorf("remove expense %d from mirror: %w", id, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	if err := w.mirror.Upsert(ctx, id, e); err != nil {
		return fmt.Errorf("upsert expense %d to mirror: %w", id, err)
	}

	slog.InfoContext(ctx, "Successfully synced expense",
		applog.FieldExpenseID, id,
		applog.FieldOperation, applog.OpSync,
		applog.FieldAmount, e.Amount,
		applog.FieldCurrency, e.Currency)
	return nil
}

// StartupSync rewrites the whole mirror from storage. It recovers from
// events missed while the worker was down.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	all, err := w.storage.List(ctx)
	if err != nil {
		return fmt.Errorf("list expenses for startup sync: %w", err)
	}

	if err := w.mirror.Replace(ctx, all); err != nil {
		return fmt.Errorf("replace mirror: %w", err)
	}

	slog.InfoContext(ctx, "Startup sync completed", applog.FieldOperation, applog.OpStartup, "total", len(all))
	return nil
}
