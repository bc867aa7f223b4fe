package backend

import (
	"context"
	"fmt"

	"imprimecheque/internal/log"
	"imprimecheque/internal/seed"
	"imprimecheque/internal/storage"
	"imprimecheque/internal/storage/memory"
	"imprimecheque/internal/storage/postgres"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the configured store and applies the seed file, if any.
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
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		store, err = postgres.Open(config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized postgres backend")
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend", "seed_file", config.SeedFile)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.SeedFile != "" {
		if err := f.applySeed(ctx, store, config.SeedFile); err != nil {
			store.Close()
			return nil, err
		}
	}

	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) applySeed(ctx context.Context, store storage.Store, path string) error {
	file, err := seed.Load(path)
	if err != nil {
		return fmt.Errorf("load seed file: %w", err)
	}
	summary, err := seed.Apply(ctx, store, file)
	if err != nil {
		return fmt.Errorf("apply seed file: %w", err)
	}
	f.logger.InfoContext(ctx, "Seed applied",
		"banks", summary.Banks,
		"checkbooks_created", summary.Checkbooks,
		"checkbooks_skipped", summary.Skipped)
	return nil
}
