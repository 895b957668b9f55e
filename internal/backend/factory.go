package backend

import (
	"context"
	"fmt"

	"expenses/internal/amqp"
	applog "expenses/internal/log"
	"expenses/internal/services"
	"expenses/internal/storage"
	"expenses/internal/storage/memory"
)

// DefaultFactory builds SQLite or in-memory backends.
type DefaultFactory struct {
	logger *applog.Logger

	// dial is replaced in tests.
	dial func(url, exchange, queue string) (services.EventPublisher, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
		dial: func(url, exchange, queue string) (services.EventPublisher, error) {
			return amqp.NewClient(url, exchange, queue)
		},
	}
}

// CreateBackend opens the configured store, initializes its schema and wraps
// it in an ExpenseService. The AMQP publisher is optional: a broker that
// cannot be reached is logged and the backend runs without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.Info("Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if err := store.Initialize(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("initialize %s store: %w", config.Type, err)
	}

	publisher := f.dialEvents(config.Events)
	svc := services.NewExpenseService(store, publisher)

	return &BackendResult{
		Store:   store,
		Service: svc,
		Events:  publisher != nil,
		Cleanup: svc.Close,
	}, nil
}

// dialEvents returns nil when events are disabled or the broker cannot be
// reached; the store works without them.
func (f *DefaultFactory) dialEvents(ec EventsConfig) services.EventPublisher {
	if !ec.Enabled() {
		return nil
	}
	publisher, err := f.dial(ec.URL, ec.Exchange, ec.Queue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client", "exchange", ec.Exchange, "queue", ec.Queue)
	return publisher
}
