package backend

import (
	"context"

	"budgetpal/internal/amqp"
	"budgetpal/internal/services"
	"budgetpal/internal/storage"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result holds the payment store plus the optional AMQP client wired to it.
type Result struct {
	Store   storage.PaymentStore
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Publisher returns the AMQP client as a SchedulePublisher, or a nil
// interface when messaging is disabled.
func (r *Result) Publisher() services.SchedulePublisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Ready reports whether the store answers queries.
func (r *Result) Ready(ctx context.Context) error {
	_, err := r.Store.ListPayments(ctx)
	return err
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific; empty means start empty
	SeedFile string

	// AMQP is optional for both backends
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// Shared reports whether the backend's data is visible to other processes.
// A memory store belongs to the process that created it.
func (bt BackendType) Shared() bool {
	return bt == SQLiteBackend
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
