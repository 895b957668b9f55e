package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"expenses/internal/amqp"
	"expenses/internal/config"
	"expenses/internal/core"
	"expenses/internal/services"
)

type stubPublisher struct{ closed bool }

func (s *stubPublisher) Publish(context.Context, amqp.EventKind, int64) error { return nil }
func (s *stubPublisher) Close() error                                         { s.closed = true; return nil }

func TestFromAppConfig(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		if _, err := FromAppConfig(nil); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid backend", func(t *testing.T) {
		if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("copies fields", func(t *testing.T) {
		cfg, err := FromAppConfig(&config.Config{
			DataBackend:  "sqlite",
			SQLiteDBPath: "x.db",
			AMQPURL:      "amqp://localhost/",
			AMQPExchange: "e",
			AMQPQueue:    "q",
		})
		if err != nil {
			t.Fatal(err)
		}
		want := Config{
			Type:         SQLiteBackend,
			SQLiteDBPath: "x.db",
			Events:       EventsConfig{URL: "amqp://localhost/", Exchange: "e", Queue: "q"},
		}
		if cfg != want {
			t.Errorf("got %+v, want %+v", cfg, want)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "csv"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, Events: EventsConfig{URL: "amqp://x/", Exchange: "e"}}, true},
		{"events disabled", Config{Type: MemoryBackend, Events: EventsConfig{Exchange: "e"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	res, err := f.CreateBackend(ctx, Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "db", "work_expenses.db"),
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Cleanup()

	created, err := res.Service.CreateExpense(ctx, core.Expense{
		Date: "2024-05-01", ExpenseType: "accommodation", Amount: 120, Currency: "GBP",
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	if got, err := res.Store.Get(ctx, created.ID); err != nil || got.Amount != 120 {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
}

func TestCreateBackend_MemoryWithPublisher(t *testing.T) {
	pub := &stubPublisher{}
	f := NewFactory(nil)
	f.dial = func(string, string, string) (services.EventPublisher, error) { return pub, nil }

	res, err := f.CreateBackend(context.Background(), Config{
		Type:   MemoryBackend,
		Events: EventsConfig{URL: "amqp://localhost/", Exchange: "e", Queue: "q"},
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if !res.Events {
		t.Error("Events should be reported as enabled")
	}
	if err := res.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if !pub.closed {
		t.Error("cleanup should close the publisher")
	}
}

func TestCreateBackend_BrokerUnavailable(t *testing.T) {
	f := NewFactory(nil)
	f.dial = func(string, string, string) (services.EventPublisher, error) {
		return nil, errors.New("dial AMQP: connection refused")
	}

	res, err := f.CreateBackend(context.Background(), Config{
		Type:   MemoryBackend,
		Events: EventsConfig{URL: "amqp://localhost/", Exchange: "e", Queue: "q"},
	})
	if err != nil {
		t.Fatalf("broker failure should not fail the backend: %v", err)
	}
	if res.Events {
		t.Error("Events should be disabled after a dial failure")
	}
	if _, err := res.Service.CreateExpense(context.Background(), core.Expense{
		Date: "2024-05-01", ExpenseType: "food_drink", Amount: 9.5, Currency: "EUR",
	}); err != nil {
		t.Fatal(err)
	}
}
