package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/itchan-dev/anonboard/shared/domain"
	internal_errors "github.com/itchan-dev/anonboard/shared/errors"
)

const threadColumns = "id, board, text, created_on, bumped_on, reported, delete_password"

func (s *Storage) CreateThread(ctx context.Context, creationData domain.ThreadCreationData) (domain.Thread, error) {
	thread := domain.NewThread(creationData)
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO threads (id, board, text, created_on, bumped_on, reported, delete_password)
        VALUES (?, ?, ?, ?, ?, 0, ?)
    `, thread.Id, thread.Board, thread.Text, toMillis(thread.CreatedOn), toMillis(thread.BumpedOn), thread.DeletePassword)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("failed to insert thread: %w", err)
	}
	return thread, nil
}

// GetThread holds the connection for both reads, so no reply can be committed
// between the thread row and its replies.
func (s *Storage) GetThread(ctx context.Context, id domain.ThreadId) (domain.Thread, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	thread, err := scanThread(tx.QueryRowContext(ctx,
		"SELECT "+threadColumns+" FROM threads WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Thread{}, internal_errors.NotFound("Thread not found")
		}
		return domain.Thread{}, fmt.Errorf("failed to fetch thread: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
        SELECT id, text, created_on, reported, delete_password
        FROM replies
        WHERE thread_id = ?
        ORDER BY seq
    `, id)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("failed to fetch replies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return domain.Thread{}, fmt.Errorf("failed to scan reply: %w", err)
		}
		thread.Replies = append(thread.Replies, reply)
	}
	if err = rows.Err(); err != nil {
		return domain.Thread{}, fmt.Errorf("rows iteration error: %w", err)
	}
	thread.ReplyCount = len(thread.Replies)
	return thread, nil
}

func (s *Storage) ListThreads(ctx context.Context, board domain.BoardName, limit, nReplies int) ([]domain.Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+threadColumns+`,
            (SELECT COUNT(*) FROM replies r WHERE r.thread_id = t.id)
        FROM threads t
        WHERE board = ?
        ORDER BY bumped_on DESC, created_on DESC, id
        LIMIT ?
    `, board, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch threads: %w", err)
	}

	threads := make([]domain.Thread, 0, limit)
	idx := make(map[domain.ThreadId]int)
	for rows.Next() {
		var replyCount int
		thread, err := scanThread(rows, &replyCount)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		thread.ReplyCount = replyCount
		idx[thread.Id] = len(threads)
		threads = append(threads, thread)
	}
	err = rows.Err()
	// the single connection must be released before the next query
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	if len(threads) == 0 || nReplies <= 0 {
		return threads, nil
	}

	args := make([]any, 0, len(threads)+1)
	for _, t := range threads {
		args = append(args, t.Id)
	}
	args = append(args, nReplies)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(threads)), ", ")

	replyRows, err := s.db.QueryContext(ctx, `
        SELECT thread_id, id, text, created_on, reported, delete_password
        FROM (
            SELECT *, ROW_NUMBER() OVER (PARTITION BY thread_id ORDER BY created_on DESC, seq DESC) AS rn
            FROM replies
            WHERE thread_id IN (`+placeholders+`)
        )
        WHERE rn <= ?
        ORDER BY thread_id, seq
    `, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest replies: %w", err)
	}
	defer replyRows.Close()

	for replyRows.Next() {
		var threadId domain.ThreadId
		reply, err := scanReply(replyRows, &threadId)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}
		t := &threads[idx[threadId]]
		t.Replies = append(t.Replies, reply)
	}
	if err = replyRows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return threads, nil
}

func (s *Storage) ReportThread(ctx context.Context, id domain.ThreadId) error {
	result, err := s.db.ExecContext(ctx, "UPDATE threads SET reported = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to report thread: %w", err)
	}
	return notFoundIfNoRows(result, "Thread not found")
}

// DeleteThread removes the thread and its replies in one transaction.
// Replies are deleted explicitly so databases created without foreign_keys still stay consistent.
func (s *Storage) DeleteThread(ctx context.Context, id domain.ThreadId) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM replies WHERE thread_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete replies: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM threads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	if err := notFoundIfNoRows(result, "Thread not found"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanThread reads threadColumns followed by extra.
func scanThread(row rowScanner, extra ...any) (domain.Thread, error) {
	var (
		t               domain.Thread
		created, bumped int64
	)
	dest := append([]any{&t.Id, &t.Board, &t.Text, &created, &bumped, &t.Reported, &t.DeletePassword}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Thread{}, err
	}
	t.CreatedOn = fromMillis(created)
	t.BumpedOn = fromMillis(bumped)
	t.Replies = []domain.Reply{}
	return t, nil
}
