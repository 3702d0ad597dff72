package setup

import (
	"context"
	"fmt"

	"github.com/itchan-dev/anonboard/backend/internal/handler"
	"github.com/itchan-dev/anonboard/backend/internal/service"
	"github.com/itchan-dev/anonboard/backend/internal/storage"
	"github.com/itchan-dev/anonboard/backend/internal/storage/memory"
	"github.com/itchan-dev/anonboard/backend/internal/storage/objstore"
	"github.com/itchan-dev/anonboard/backend/internal/storage/pg"
	"github.com/itchan-dev/anonboard/backend/internal/storage/sqlite"
	"github.com/itchan-dev/anonboard/backend/internal/utils"
	"github.com/itchan-dev/anonboard/shared/config"
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config   *config.Config
	Storage  storage.Storage
	Handler  *handler.Handler
	ThreadGC *service.ThreadGarbageCollector
}

// Migrator is implemented by the SQL backends.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// SetupDependencies initializes all dependencies required for the application.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	store, err := NewStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// schemas are idempotent, so a fresh database works without a separate migrate run
	if m, ok := store.(Migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			store.Cleanup()
			return nil, err
		}
	}
	return NewDependencies(cfg, store), nil
}

// NewDependencies builds services and handlers on top of an opened storage.
func NewDependencies(cfg *config.Config, store storage.Storage) *Dependencies {
	validator := utils.NewTextValidator(cfg.Public.MaxTextLength, cfg.Public.SanitizeHTML)

	thread := service.NewThread(store, validator, cfg.Public)
	reply := service.NewReply(store, validator)
	gc := service.NewThreadGarbageCollector(store, cfg.Public.MaxThreadsPerBoard)

	return &Dependencies{
		Config:   cfg,
		Storage:  store,
		Handler:  handler.New(thread, reply, store),
		ThreadGC: gc,
	}
}

// NewStorage opens the backend selected by storage.driver.
func NewStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	sc := cfg.Public.Storage
	switch sc.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPostgres:
		s, err := pg.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSqlite:
		s, err := sqlite.New(ctx, sc.SqlitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverGCS:
		bucket, err := objstore.NewGCSBucket(ctx, sc.Bucket, cfg.Private.GCSCredentialsFile)
		if err != nil {
			return nil, err
		}
		return objstore.New(bucket, sc.RetryAttempts, sc.RetryDelay), nil
	case config.DriverLocal:
		bucket, err := objstore.NewLocalBucket(sc.LocalPath)
		if err != nil {
			return nil, err
		}
		return objstore.New(bucket, sc.RetryAttempts, sc.RetryDelay), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
}
