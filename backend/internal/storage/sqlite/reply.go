package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/itchan-dev/anonboard/shared/domain"
)

// CreateReply inserts the reply and bumps its thread in one transaction.
func (s *Storage) CreateReply(ctx context.Context, creationData domain.ReplyCreationData) (domain.Reply, error) {
	reply := domain.NewReply(creationData)
	createdOn := toMillis(reply.CreatedOn)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE threads SET bumped_on = MAX(bumped_on, ?) WHERE id = ?",
		createdOn, creationData.ThreadId)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("failed to bump thread: %w", err)
	}
	if err := notFoundIfNoRows(result, "Thread not found"); err != nil {
		return domain.Reply{}, err
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO replies (id, thread_id, text, created_on, reported, delete_password)
        VALUES (?, ?, ?, ?, 0, ?)
    `, reply.Id, creationData.ThreadId, reply.Text, createdOn, reply.DeletePassword)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("failed to insert reply: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Reply{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return reply, nil
}

func (s *Storage) GetReply(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) (domain.Reply, error) {
	reply, err := scanReply(s.db.QueryRowContext(ctx, `
        SELECT id, text, created_on, reported, delete_password
        FROM replies
        WHERE thread_id = ? AND id = ?
    `, threadId, replyId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reply{}, replyNotFound(ctx, s.db, threadId)
		}
		return domain.Reply{}, fmt.Errorf("failed to fetch reply: %w", err)
	}
	return reply, nil
}

func (s *Storage) ReportReply(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) error {
	return s.updateReply(ctx, threadId, replyId,
		"UPDATE replies SET reported = 1 WHERE thread_id = ? AND id = ?")
}

func (s *Storage) MarkReplyDeleted(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) error {
	return s.updateReply(ctx, threadId, replyId,
		"UPDATE replies SET text = ? WHERE thread_id = ? AND id = ?", domain.DeletedReplyText)
}

// updateReply runs query with leading args followed by threadId and replyId.
func (s *Storage) updateReply(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId, query string, leading ...any) error {
	args := append(leading, threadId, replyId)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update reply: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return replyNotFound(ctx, s.db, threadId)
	}
	return nil
}

// scanReply reads extra first, then the reply columns.
func scanReply(row rowScanner, extra ...any) (domain.Reply, error) {
	var (
		r         domain.Reply
		createdOn int64
	)
	dest := append(extra, &r.Id, &r.Text, &createdOn, &r.Reported, &r.DeletePassword)
	if err := row.Scan(dest...); err != nil {
		return domain.Reply{}, err
	}
	r.CreatedOn = fromMillis(createdOn)
	return r, nil
}
