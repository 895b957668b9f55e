// Package backend wires the configured expense store and the optional event
// publisher into an ExpenseService.
package backend

import (
	"context"

	"expenses/internal/services"
	"expenses/internal/storage"
)

// CleanupFunc releases everything a backend opened.
type CleanupFunc func() error

// BackendResult is a ready service plus the store it runs on. Events reports
// whether change events are being published.
type BackendResult struct {
	Store   storage.Store
	Service *services.ExpenseService
	Events  bool
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config selects the store and, optionally, the broker for change events.
type Config struct {
	Type         BackendType
	SQLiteDBPath string
	Events       EventsConfig
}

// EventsConfig points at the AMQP broker. An empty URL disables events.
type EventsConfig struct {
	URL      string
	Exchange string
	Queue    string
}

// Enabled reports whether a broker URL is configured.
func (e EventsConfig) Enabled() bool {
	return e.URL != ""
}

// BackendType names a store implementation.
type BackendType string

const (
	// SQLiteBackend persists expenses in the local work_expenses database.
	SQLiteBackend BackendType = "sqlite"
	// MemoryBackend keeps expenses in process memory; for demos and tests.
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	for _, t := range BackendTypes() {
		if bt == t {
			return true
		}
	}
	return false
}

// BackendTypes lists the supported store implementations.
func BackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}
