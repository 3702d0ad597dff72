package objstore

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"github.com/itchan-dev/anonboard/shared/domain"
	internal_errors "github.com/itchan-dev/anonboard/shared/errors"
	"github.com/itchan-dev/anonboard/shared/logger"
)

func (s *Storage) Boards(ctx context.Context) ([]domain.BoardName, error) {
	var keys []string
	err := s.withRetry(ctx, "list", boardPrefix, func() error {
		var listErr error
		keys, listErr = s.bucket.List(ctx, boardPrefix)
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	seen := make(map[domain.BoardName]struct{})
	boards := make([]domain.BoardName, 0)
	for _, key := range keys {
		encoded, _, ok := strings.Cut(strings.TrimPrefix(key, boardPrefix), "/")
		if !ok {
			continue
		}
		name, err := base64.RawURLEncoding.DecodeString(encoded)
		if err != nil {
			logger.Log.Warn("skipping malformed board marker", "component", "objstore", "key", key)
			continue
		}
		board := domain.BoardName(name)
		if _, dup := seen[board]; !dup {
			seen[board] = struct{}{}
			boards = append(boards, board)
		}
	}
	sort.Strings(boards)
	return boards, nil
}

func (s *Storage) ThreadCount(ctx context.Context, board domain.BoardName) (int, error) {
	threads, err := s.loadBoard(ctx, board)
	if err != nil {
		return 0, err
	}
	return len(threads), nil
}

func (s *Storage) OldestThreadId(ctx context.Context, board domain.BoardName) (domain.ThreadId, error) {
	threads, err := s.loadBoard(ctx, board)
	if err != nil {
		return "", err
	}
	if len(threads) == 0 {
		return "", internal_errors.NotFound("Board has no threads")
	}

	oldest := threads[0]
	for _, t := range threads[1:] {
		if domain.BumpedBefore(t, oldest) {
			oldest = t
		}
	}
	return oldest.Id, nil
}
