package objstore

import (
	"context"

	"github.com/itchan-dev/anonboard/shared/domain"
	internal_errors "github.com/itchan-dev/anonboard/shared/errors"
)

// CreateReply appends the reply and bumps the thread in a single document write.
func (s *Storage) CreateReply(ctx context.Context, creationData domain.ReplyCreationData) (domain.Reply, error) {
	reply := domain.NewReply(creationData)
	err := s.update(ctx, creationData.ThreadId, func(t *domain.Thread) error {
		t.Replies = append(t.Replies, reply)
		t.Bump(reply.CreatedOn)
		return nil
	})
	if err != nil {
		return domain.Reply{}, err
	}
	return reply, nil
}

func (s *Storage) GetReply(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) (domain.Reply, error) {
	thread, err := s.GetThread(ctx, threadId)
	if err != nil {
		return domain.Reply{}, err
	}
	reply, ok := thread.FindReply(replyId)
	if !ok {
		return domain.Reply{}, internal_errors.NotFound("Reply not found")
	}
	return *reply, nil
}

func (s *Storage) ReportReply(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) error {
	return s.updateReply(ctx, threadId, replyId, func(r *domain.Reply) bool {
		if r.Reported {
			return false
		}
		r.Reported = true
		return true
	})
}

func (s *Storage) MarkReplyDeleted(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) error {
	return s.updateReply(ctx, threadId, replyId, func(r *domain.Reply) bool {
		if r.Text == domain.DeletedReplyText {
			return false
		}
		r.Text = domain.DeletedReplyText
		return true
	})
}

// updateReply runs change on the reply; change reports whether anything was modified.
func (s *Storage) updateReply(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId, change func(*domain.Reply) bool) error {
	return s.update(ctx, threadId, func(t *domain.Thread) error {
		reply, ok := t.FindReply(replyId)
		if !ok {
			return internal_errors.NotFound("Reply not found")
		}
		if !change(reply) {
			return errUnchanged
		}
		return nil
	})
}
