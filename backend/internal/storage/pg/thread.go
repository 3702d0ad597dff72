package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/itchan-dev/anonboard/shared/domain"
	internal_errors "github.com/itchan-dev/anonboard/shared/errors"

	"github.com/lib/pq"
)

const threadColumns = "id, board, text, created_on, bumped_on, reported, delete_password"

func (s *Storage) CreateThread(ctx context.Context, creationData domain.ThreadCreationData) (domain.Thread, error) {
	thread := domain.NewThread(creationData)
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO threads (id, board, text, created_on, bumped_on, reported, delete_password)
        VALUES ($1, $2, $3, $4, $5, FALSE, $6)
    `, thread.Id, thread.Board, thread.Text, thread.CreatedOn, thread.BumpedOn, thread.DeletePassword)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("failed to insert thread: %w", err)
	}
	return thread, nil
}

// GetThread reads the thread and its replies from one snapshot, so bumped_on
// always agrees with the newest reply.
func (s *Storage) GetThread(ctx context.Context, id domain.ThreadId) (domain.Thread, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return domain.Thread{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	thread, err := scanThread(tx.QueryRowContext(ctx,
		"SELECT "+threadColumns+" FROM threads WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Thread{}, internal_errors.NotFound("Thread not found")
		}
		return domain.Thread{}, fmt.Errorf("failed to fetch thread: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
        SELECT id, text, created_on, reported, delete_password
        FROM replies
        WHERE thread_id = $1
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
        WHERE board = $1
        ORDER BY bumped_on DESC, created_on DESC, id
        LIMIT $2
    `, board, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch threads: %w", err)
	}
	defer rows.Close()

	threads := make([]domain.Thread, 0, limit)
	idx := make(map[domain.ThreadId]int)
	for rows.Next() {
		var replyCount int
		thread, err := scanThread(rows, &replyCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		thread.ReplyCount = replyCount
		idx[thread.Id] = len(threads)
		threads = append(threads, thread)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	if len(threads) == 0 || nReplies <= 0 {
		return threads, nil
	}

	ids := make([]string, len(threads))
	for i, t := range threads {
		ids[i] = t.Id
	}
	replyRows, err := s.db.QueryContext(ctx, `
        SELECT thread_id, id, text, created_on, reported, delete_password
        FROM (
            SELECT *, ROW_NUMBER() OVER (PARTITION BY thread_id ORDER BY created_on DESC, seq DESC) AS rn
            FROM replies
            WHERE thread_id = ANY($1)
        ) latest
        WHERE rn <= $2
        ORDER BY thread_id, seq
    `, pq.Array(ids), nReplies)
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
	result, err := s.db.ExecContext(ctx, "UPDATE threads SET reported = TRUE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to report thread: %w", err)
	}
	return notFoundIfNoRows(result, "Thread not found")
}

// DeleteThread removes the thread, replies cascade via foreign key.
func (s *Storage) DeleteThread(ctx context.Context, id domain.ThreadId) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM threads WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return notFoundIfNoRows(result, "Thread not found")
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanThread reads threadColumns followed by extra.
func scanThread(row rowScanner, extra ...any) (domain.Thread, error) {
	var t domain.Thread
	dest := append([]any{&t.Id, &t.Board, &t.Text, &t.CreatedOn, &t.BumpedOn, &t.Reported, &t.DeletePassword}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Thread{}, err
	}
	t.CreatedOn = t.CreatedOn.UTC()
	t.BumpedOn = t.BumpedOn.UTC()
	t.Replies = []domain.Reply{}
	return t, nil
}
