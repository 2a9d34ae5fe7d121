package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"vozruta/internal/ledger"
	"vozruta/internal/memory"
	"vozruta/internal/storage"
)

// DefaultFactory builds the persistence collaborator for the trip store.
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend validates config and returns an opener. Nothing is opened
// until the store asks for it.
func (f *DefaultFactory) CreateBackend(config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config), nil
	case MemoryBackend:
		return f.createMemoryBackend(config), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) *BackendResult {
	var (
		mu sync.Mutex
		db *storage.DB
	)

	open := func(ctx context.Context) (ledger.Repository, error) {
		mu.Lock()
		defer mu.Unlock()
		if db == nil {
			opened, err := storage.Open(ctx, config.SQLiteDBPath, f.logger)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
			}
			db = opened
			f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		}
		return storage.NewTripRepository(db, f.logger), nil
	}

	cleanup := func() error {
		mu.Lock()
		defer mu.Unlock()
		if db == nil {
			return nil
		}
		err := db.Close()
		db = nil
		return err
	}

	return &BackendResult{Open: open, Cleanup: cleanup}
}

func (f *DefaultFactory) createMemoryBackend(config Config) *BackendResult {
	var store *memory.Store
	if config.MemorySeedFile != "" {
		store = memory.NewFromFile(config.MemorySeedFile)
	} else {
		store = memory.New()
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile)

	return &BackendResult{
		Open:    func(context.Context) (ledger.Repository, error) { return store, nil },
		Cleanup: func() error { return nil },
	}
}
