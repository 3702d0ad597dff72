package objstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codeGROOVE-dev/retry"
	"github.com/itchan-dev/anonboard/shared/domain"
	internal_errors "github.com/itchan-dev/anonboard/shared/errors"
	"github.com/itchan-dev/anonboard/shared/logger"
)

func (s *Storage) CreateThread(ctx context.Context, creationData domain.ThreadCreationData) (domain.Thread, error) {
	thread := domain.NewThread(creationData)
	data, err := json.Marshal(thread)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("marshal thread: %w", err)
	}

	// The marker goes first: readers skip markers without a document, so a
	// failure at any point leaves nothing visible behind.
	marker := markerKey(thread.Board, thread.Id)
	err = s.withRetry(ctx, "create", marker, func() error {
		return ignoreConflict(s.bucket.Write(ctx, marker, []byte{}, 0))
	})
	if err != nil {
		return domain.Thread{}, fmt.Errorf("save board marker: %w", err)
	}

	// the id is fresh, so a conflict can only mean an earlier attempt already landed
	err = s.withRetry(ctx, "create", threadKey(thread.Id), func() error {
		return ignoreConflict(s.bucket.Write(ctx, threadKey(thread.Id), data, 0))
	})
	if err != nil {
		if delErr := s.bucket.Delete(context.WithoutCancel(ctx), marker, 0); delErr != nil && !errors.Is(delErr, errNotExist) {
			logger.Log.Warn("failed to remove board marker of unsaved thread",
				"component", "objstore", "key", marker, "error", delErr)
		}
		return domain.Thread{}, fmt.Errorf("save thread: %w", err)
	}
	return thread, nil
}

func (s *Storage) GetThread(ctx context.Context, id domain.ThreadId) (domain.Thread, error) {
	thread, ok, err := s.load(ctx, id)
	if err != nil {
		return domain.Thread{}, err
	}
	if !ok {
		return domain.Thread{}, internal_errors.NotFound("Thread not found")
	}
	return thread, nil
}

func (s *Storage) ListThreads(ctx context.Context, board domain.BoardName, limit, nReplies int) ([]domain.Thread, error) {
	threads, err := s.loadBoard(ctx, board)
	if err != nil {
		return nil, err
	}

	domain.SortByBump(threads)
	if len(threads) > limit {
		threads = threads[:limit]
	}
	for i := range threads {
		threads[i] = threads[i].LatestReplies(nReplies)
	}
	return threads, nil
}

func (s *Storage) ReportThread(ctx context.Context, id domain.ThreadId) error {
	return s.update(ctx, id, func(t *domain.Thread) error {
		if t.Reported {
			return errUnchanged
		}
		t.Reported = true
		return nil
	})
}

// DeleteThread removes the document, then the board marker.
func (s *Storage) DeleteThread(ctx context.Context, id domain.ThreadId) error {
	var (
		board    domain.BoardName
		notFound bool
	)
	err := s.withRetry(ctx, "delete", threadKey(id), func() error {
		thread, generation, ok, err := s.read(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			notFound = true
			return retry.Unrecoverable(errNotExist)
		}
		board = thread.Board
		// a reply written since the read changes the generation and restarts the cycle
		return s.bucket.Delete(ctx, threadKey(id), generation)
	})
	if notFound {
		return internal_errors.NotFound("Thread not found")
	}
	if err != nil {
		return fmt.Errorf("delete thread %s: %w", id, err)
	}

	err = s.withRetry(ctx, "delete", markerKey(board, id), func() error {
		if err := s.bucket.Delete(ctx, markerKey(board, id), 0); err != nil && !errors.Is(err, errNotExist) {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete board marker: %w", err)
	}
	return nil
}

func ignoreConflict(err error) error {
	if errors.Is(err, errConflict) {
		return nil
	}
	return err
}
