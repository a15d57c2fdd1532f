package backend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"boq/internal/amqp"
	"boq/internal/config"
	"boq/internal/log"
	"boq/internal/services"
	ports "boq/internal/sheets"
	"boq/internal/sheets/memory"
	"boq/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	var seed string
	if backendType == MemoryBackend {
		seed = filepath.Join("data", appConfig.LedgerSlot+".json")
	}

	return Config{
		Type:         backendType,
		Slot:         appConfig.LedgerSlot,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
		SeedFile:     seed,
	}, nil
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}
	if config.Slot == "" {
		return nil, errors.New("slot name is required")
	}

	var (
		store ports.RecordStore
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
		if config.SeedFile != "" {
			store, err = memory.NewFromFile(config.Slot, config.SeedFile)
			if err != nil {
				return nil, fmt.Errorf("failed to seed memory backend: %w", err)
			}
		} else {
			store = memory.New()
		}
		f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	svc := services.NewLedgerService(store, f.publisher(config), config.Slot, f.logger)

	report, err := svc.Load(ctx)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	return &BackendResult{
		Service: svc,
		Report:  report,
		Cleanup: svc.Close,
	}, nil
}

// publisher returns nil (not a typed nil) when events are disabled or the
// broker is unreachable.
func (f *DefaultFactory) publisher(config Config) services.EventPublisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without ledger events", log.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
