package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itchan-dev/anonboard/shared/domain"
	"github.com/itchan-dev/anonboard/shared/errors"
	"github.com/itchan-dev/anonboard/shared/logger"
	"github.com/itchan-dev/anonboard/shared/middleware/metrics"
)

// ThreadGarbageCollector handles cleanup of old threads to maintain MaxThreadsPerBoard per board.
// It runs periodically to delete the least recently bumped threads when a board exceeds its thread limit.
type ThreadGarbageCollector struct {
	storage        ThreadGCStorage
	maxThreadCount *int

	mu               sync.Mutex
	lastCleanupStats ThreadCleanupStats
}

// ThreadCleanupStats tracks metrics from the last thread cleanup run.
type ThreadCleanupStats struct {
	RunAt          time.Time
	BoardsScanned  int
	BoardsCleaned  int
	ThreadsDeleted int
	DurationMs     int64
	Errors         []string
}

// ThreadGCStorage defines the storage operations needed for thread garbage collection.
type ThreadGCStorage interface {
	Boards(ctx context.Context) ([]domain.BoardName, error)
	ThreadCount(ctx context.Context, board domain.BoardName) (int, error)
	// OldestThreadId returns the least recently bumped thread of the board.
	OldestThreadId(ctx context.Context, board domain.BoardName) (domain.ThreadId, error)
	DeleteThread(ctx context.Context, id domain.ThreadId) error
}

// NewThreadGarbageCollector creates a new thread garbage collector instance.
// maxThreadCount is the maximum number of threads allowed per board (can be nil to disable cleanup).
func NewThreadGarbageCollector(storage ThreadGCStorage, maxThreadCount *int) *ThreadGarbageCollector {
	return &ThreadGarbageCollector{
		storage:        storage,
		maxThreadCount: maxThreadCount,
	}
}

// StartBackgroundCleanup starts a background goroutine that runs cleanup periodically.
func (gc *ThreadGarbageCollector) StartBackgroundCleanup(ctx context.Context, interval time.Duration) {
	if gc.maxThreadCount == nil {
		logger.Log.Info("max threads per board not configured, thread gc disabled",
			"component", "thread_gc")
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	logger.Log.Info("started thread garbage collector",
		"component", "thread_gc",
		"interval", interval,
		"max_threads_per_board", *gc.maxThreadCount)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := gc.RunCleanup(ctx); err != nil {
					logger.Log.Error("thread gc cleanup failed",
						"component", "thread_gc",
						"error", err)
				} else {
					stats := gc.GetLastCleanupStats()
					logger.Log.Info("thread gc completed",
						"component", "thread_gc",
						"boards_scanned", stats.BoardsScanned,
						"boards_cleaned", stats.BoardsCleaned,
						"threads_deleted", stats.ThreadsDeleted,
						"duration_ms", stats.DurationMs,
						"errors", len(stats.Errors))
				}
			case <-ctx.Done():
				logger.Log.Info("thread gc shutting down gracefully",
					"component", "thread_gc")
				return
			}
		}
	}()
}

// RunCleanup executes a single thread garbage collection cycle.
func (gc *ThreadGarbageCollector) RunCleanup(ctx context.Context) error {
	if gc.maxThreadCount == nil {
		return nil
	}

	startTime := time.Now()
	stats := ThreadCleanupStats{
		RunAt:  startTime,
		Errors: []string{},
	}

	boards, err := gc.storage.Boards(ctx)
	if err != nil {
		return fmt.Errorf("failed to get board list: %w", err)
	}
	stats.BoardsScanned = len(boards)

	for _, board := range boards {
		threadCount, err := gc.storage.ThreadCount(ctx, board)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("board '%s': failed to get thread count: %v", board, err))
			continue
		}
		if threadCount <= *gc.maxThreadCount {
			continue
		}

		stats.BoardsCleaned++

		threadsToDelete := threadCount - *gc.maxThreadCount
		for range threadsToDelete {
			oldest, err := gc.storage.OldestThreadId(ctx, board)
			if err != nil {
				stats.Errors = append(stats.Errors, fmt.Sprintf("board '%s': failed to get oldest thread: %v", board, err))
				break
			}

			// a client may have deleted it in the meantime, that still frees the slot
			if err := gc.storage.DeleteThread(ctx, oldest); err != nil && !errors.IsNotFound(err) {
				stats.Errors = append(stats.Errors, fmt.Sprintf("board '%s': failed to delete thread %s: %v", board, oldest, err))
				break
			}

			metrics.RecordEvent(metrics.EntityThread, metrics.ActionDelete, metrics.OutcomeGC)
			stats.ThreadsDeleted++
		}
	}

	stats.DurationMs = time.Since(startTime).Milliseconds()
	gc.mu.Lock()
	gc.lastCleanupStats = stats
	gc.mu.Unlock()

	return nil
}

// GetLastCleanupStats returns statistics from the last cleanup run.
func (gc *ThreadGarbageCollector) GetLastCleanupStats() ThreadCleanupStats {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.lastCleanupStats
}
