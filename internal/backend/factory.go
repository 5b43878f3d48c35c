package backend

import (
	"context"
	"fmt"
	"log/slog"

	"budgetpal/internal/amqp"
	"budgetpal/internal/storage"
	"budgetpal/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the configured store and, when an AMQP URL is set,
// connects the publisher. A broker that cannot be reached is logged and
// skipped; schedules are then only visible through the API.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.PaymentStore
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store, err = f.createMemoryStore(config)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	res := &Result{Store: store}
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without messaging", "error", err)
		} else {
			res.AMQP = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	res.Cleanup = func() error {
		if res.AMQP != nil {
			if err := res.AMQP.Close(); err != nil {
				f.logger.Error("Failed to close AMQP client", "error", err)
			}
		}
		return store.Close()
	}
	return res, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) (storage.PaymentStore, error) {
	if config.SeedFile == "" {
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	}
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)
	return store, nil
}
