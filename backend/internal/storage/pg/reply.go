package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/itchan-dev/anonboard/shared/domain"
	internal_errors "github.com/itchan-dev/anonboard/shared/errors"
)

// CreateReply inserts the reply and bumps its thread in one transaction.
// The thread row stays locked until commit, so concurrent bumps serialize.
func (s *Storage) CreateReply(ctx context.Context, creationData domain.ReplyCreationData) (domain.Reply, error) {
	reply := domain.NewReply(creationData)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked string
	err = tx.QueryRowContext(ctx, "SELECT id FROM threads WHERE id = $1 FOR UPDATE", creationData.ThreadId).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reply{}, internal_errors.NotFound("Thread not found")
		}
		return domain.Reply{}, fmt.Errorf("failed to lock thread: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO replies (id, thread_id, text, created_on, reported, delete_password)
        VALUES ($1, $2, $3, $4, FALSE, $5)
    `, reply.Id, creationData.ThreadId, reply.Text, reply.CreatedOn, reply.DeletePassword)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Reply{}, internal_errors.NotFound("Thread not found")
		}
		return domain.Reply{}, fmt.Errorf("failed to insert reply: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE threads SET bumped_on = GREATEST(bumped_on, $2) WHERE id = $1",
		creationData.ThreadId, reply.CreatedOn)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("failed to bump thread: %w", err)
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
        WHERE thread_id = $1 AND id = $2
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
		"UPDATE replies SET reported = TRUE WHERE thread_id = $1 AND id = $2")
}

func (s *Storage) MarkReplyDeleted(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) error {
	return s.updateReply(ctx, threadId, replyId,
		"UPDATE replies SET text = $3 WHERE thread_id = $1 AND id = $2", domain.DeletedReplyText)
}

func (s *Storage) updateReply(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId, query string, extra ...any) error {
	args := append([]any{threadId, replyId}, extra...)
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
	var r domain.Reply
	dest := append(extra, &r.Id, &r.Text, &r.CreatedOn, &r.Reported, &r.DeletePassword)
	if err := row.Scan(dest...); err != nil {
		return domain.Reply{}, err
	}
	r.CreatedOn = r.CreatedOn.UTC()
	return r, nil
}
