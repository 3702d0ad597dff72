package setup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/itchan-dev/anonboard/backend/internal/storage/memory"
	"github.com/itchan-dev/anonboard/backend/internal/storage/objstore"
	"github.com/itchan-dev/anonboard/backend/internal/storage/sqlite"
	"github.com/itchan-dev/anonboard/shared/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, err := NewStorage(ctx, config.Default())
		require.NoError(t, err)
		assert.IsType(t, &memory.Storage{}, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := config.Default()
		cfg.Public.Storage.Driver = config.DriverSqlite
		cfg.Public.Storage.SqlitePath = filepath.Join(t.TempDir(), "board.db")

		deps, err := SetupDependencies(ctx, cfg)
		require.NoError(t, err)
		defer deps.Storage.Cleanup()
		assert.IsType(t, &sqlite.Storage{}, deps.Storage)

		// migrated on setup
		count, err := deps.Storage.ThreadCount(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("local document store", func(t *testing.T) {
		cfg := config.Default()
		cfg.Public.Storage.Driver = config.DriverLocal
		cfg.Public.Storage.LocalPath = t.TempDir()

		s, err := NewStorage(ctx, cfg)
		require.NoError(t, err)
		assert.IsType(t, &objstore.Storage{}, s)
		assert.NoError(t, s.Ping(ctx))
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := config.Default()
		cfg.Public.Storage.Driver = "mongo"
		_, err := NewStorage(ctx, cfg)
		assert.Error(t, err)
	})
}

func TestNewDependencies(t *testing.T) {
	limit := 5
	cfg := config.Default()
	cfg.Public.MaxThreadsPerBoard = &limit

	deps := NewDependencies(cfg, memory.New())
	assert.NotNil(t, deps.Handler)
	require.NotNil(t, deps.ThreadGC)
	assert.NoError(t, deps.ThreadGC.RunCleanup(context.Background()))
}
