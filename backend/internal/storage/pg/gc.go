package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/itchan-dev/anonboard/shared/domain"
	internal_errors "github.com/itchan-dev/anonboard/shared/errors"
)

func (s *Storage) Boards(ctx context.Context) ([]domain.BoardName, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT board FROM threads ORDER BY board")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch boards: %w", err)
	}
	defer rows.Close()

	boards := make([]domain.BoardName, 0)
	for rows.Next() {
		var board domain.BoardName
		if err := rows.Scan(&board); err != nil {
			return nil, fmt.Errorf("failed to scan board: %w", err)
		}
		boards = append(boards, board)
	}
	return boards, rows.Err()
}

func (s *Storage) ThreadCount(ctx context.Context, board domain.BoardName) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM threads WHERE board = $1", board).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count threads: %w", err)
	}
	return count, nil
}

func (s *Storage) OldestThreadId(ctx context.Context, board domain.BoardName) (domain.ThreadId, error) {
	var id domain.ThreadId
	err := s.db.QueryRowContext(ctx, `
        SELECT id FROM threads
        WHERE board = $1
        ORDER BY bumped_on, created_on, id DESC
        LIMIT 1
    `, board).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", internal_errors.NotFound("Board has no threads")
		}
		return "", fmt.Errorf("failed to fetch oldest thread: %w", err)
	}
	return id, nil
}
