// Package objstore keeps every thread as one JSON document in an object bucket.
// Board membership is tracked with empty marker objects, boards/<board>/<thread id>.
// Writes are read-modify-write cycles guarded by object generations and
// retried when another writer got there first.
package objstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"
	"github.com/itchan-dev/anonboard/shared/domain"
	internal_errors "github.com/itchan-dev/anonboard/shared/errors"
	"github.com/itchan-dev/anonboard/shared/logger"
)

const (
	threadPrefix = "threads/"
	boardPrefix  = "boards/"
)

// errUnchanged lets a mutation skip the write when the document already has the wanted state.
var errUnchanged = errors.New("unchanged")

type Storage struct {
	bucket        Bucket
	retryAttempts uint
	retryDelay    time.Duration
}

func New(bucket Bucket, retryAttempts uint, retryDelay time.Duration) *Storage {
	if retryAttempts == 0 {
		retryAttempts = 1
	}
	if retryDelay <= 0 {
		retryDelay = 50 * time.Millisecond
	}
	return &Storage{bucket: bucket, retryAttempts: retryAttempts, retryDelay: retryDelay}
}

func threadKey(id domain.ThreadId) string {
	return threadPrefix + id + ".json"
}

// board names are free-form, so they are encoded to stay one path segment
func boardKey(board domain.BoardName) string {
	return boardPrefix + base64.RawURLEncoding.EncodeToString([]byte(board)) + "/"
}

func markerKey(board domain.BoardName, id domain.ThreadId) string {
	return boardKey(board) + id
}

// validId rejects anything that is not a canonical uuid, so client input never
// becomes an arbitrary object key.
func validId(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}

func (s *Storage) withRetry(ctx context.Context, op, key string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Attempts(s.retryAttempts),
		retry.Delay(s.retryDelay),
		retry.MaxDelay(2*time.Second),
		retry.MaxJitter(s.retryDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			logger.Log.Debug("retrying object store operation",
				"component", "objstore", "op", op, "key", key, "attempt", n, "error", retryErr)
		}),
	)
}

// read fetches a thread document once. ok is false when the thread does not exist.
func (s *Storage) read(ctx context.Context, id domain.ThreadId) (thread domain.Thread, generation int64, ok bool, err error) {
	if !validId(id) {
		return domain.Thread{}, 0, false, nil
	}

	data, generation, err := s.bucket.Read(ctx, threadKey(id))
	if errors.Is(err, errNotExist) {
		return domain.Thread{}, 0, false, nil
	}
	if err != nil {
		return domain.Thread{}, 0, false, err
	}

	if err := json.Unmarshal(data, &thread); err != nil {
		return domain.Thread{}, 0, false, fmt.Errorf("unmarshal thread %s: %w", id, err)
	}
	if thread.Replies == nil {
		thread.Replies = []domain.Reply{}
	}
	thread.ReplyCount = len(thread.Replies)
	return thread, generation, true, nil
}

// load is read with retries on transient bucket errors.
func (s *Storage) load(ctx context.Context, id domain.ThreadId) (domain.Thread, bool, error) {
	var (
		thread domain.Thread
		found  bool
	)
	err := s.withRetry(ctx, "read", threadKey(id), func() error {
		var readErr error
		thread, _, found, readErr = s.read(ctx, id)
		return readErr
	})
	if err != nil {
		return domain.Thread{}, false, fmt.Errorf("load thread %s: %w", id, err)
	}
	return thread, found, nil
}

// update applies mutate to the current document and writes it back if nobody
// changed it in between, starting over otherwise. Errors returned by mutate
// end the cycle as is.
func (s *Storage) update(ctx context.Context, id domain.ThreadId, mutate func(*domain.Thread) error) error {
	var terminal error
	err := s.withRetry(ctx, "update", threadKey(id), func() error {
		thread, generation, ok, err := s.read(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			terminal = internal_errors.NotFound("Thread not found")
			return retry.Unrecoverable(terminal)
		}
		if err := mutate(&thread); err != nil {
			terminal = err
			return retry.Unrecoverable(err)
		}

		data, err := json.Marshal(thread)
		if err != nil {
			terminal = fmt.Errorf("marshal thread %s: %w", id, err)
			return retry.Unrecoverable(terminal)
		}
		return s.bucket.Write(ctx, threadKey(id), data, generation)
	})
	if terminal != nil {
		if errors.Is(terminal, errUnchanged) {
			return nil
		}
		return terminal
	}
	if err != nil {
		return fmt.Errorf("update thread %s: %w", id, err)
	}
	return nil
}

// loadBoard returns every thread whose marker is on the board. Markers without
// a document are left over from an interrupted delete and are skipped.
func (s *Storage) loadBoard(ctx context.Context, board domain.BoardName) ([]domain.Thread, error) {
	prefix := boardKey(board)
	var keys []string
	err := s.withRetry(ctx, "list", prefix, func() error {
		var listErr error
		keys, listErr = s.bucket.List(ctx, prefix)
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("list board %s: %w", board, err)
	}

	threads := make([]domain.Thread, 0, len(keys))
	for _, key := range keys {
		thread, ok, err := s.load(ctx, strings.TrimPrefix(key, prefix))
		if err != nil {
			return nil, err
		}
		if ok {
			threads = append(threads, thread)
		}
	}
	return threads, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.bucket.Ping(ctx)
}

func (s *Storage) Cleanup() error {
	return s.bucket.Close()
}
