package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/anonboard/shared/domain"
	"github.com/itchan-dev/anonboard/shared/errors"
	"github.com/itchan-dev/anonboard/shared/logger"
	"github.com/itchan-dev/anonboard/shared/middleware/metrics"
)

type ReplyService interface {
	Create(ctx context.Context, threadId domain.ThreadId, text domain.Text, deletePassword domain.Password) (domain.Reply, error)
	GetThread(ctx context.Context, threadId domain.ThreadId) (domain.ThreadView, error)
	Report(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) error
	Delete(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId, deletePassword domain.Password) error
}

type Reply struct {
	storage   ReplyStorage
	validator TextValidator
	now       func() time.Time
}

type ReplyStorage interface {
	// CreateReply appends the reply and bumps the parent thread in one atomic step.
	CreateReply(ctx context.Context, creationData domain.ReplyCreationData) (domain.Reply, error)
	GetThread(ctx context.Context, id domain.ThreadId) (domain.Thread, error)
	GetReply(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) (domain.Reply, error)
	ReportReply(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) error
	// MarkReplyDeleted replaces the reply text with domain.DeletedReplyText.
	MarkReplyDeleted(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) error
}

func NewReply(storage ReplyStorage, validator TextValidator) *Reply {
	return &Reply{storage: storage, validator: validator, now: now}
}

func (s *Reply) Create(ctx context.Context, threadId domain.ThreadId, text domain.Text, deletePassword domain.Password) (domain.Reply, error) {
	text, err := s.validator.Text(text)
	if err == nil {
		err = s.validator.Password(deletePassword)
	}
	if err == nil && threadId == "" {
		err = errors.Validation("thread_id is required")
	}
	if err != nil {
		metrics.RecordEvent(metrics.EntityReply, metrics.ActionCreate, metrics.OutcomeInvalid)
		return domain.Reply{}, err
	}

	reply, err := s.storage.CreateReply(ctx, domain.ReplyCreationData{
		Id:             uuid.NewString(),
		ThreadId:       threadId,
		Text:           text,
		DeletePassword: deletePassword,
		CreatedOn:      s.now(),
	})
	if err != nil {
		metrics.RecordEvent(metrics.EntityReply, metrics.ActionCreate, outcome(err))
		return domain.Reply{}, err
	}

	metrics.RecordEvent(metrics.EntityReply, metrics.ActionCreate, metrics.OutcomeOK)
	logger.Log.Info("reply created", "component", "reply", "thread_id", threadId, "reply_id", reply.Id)
	return reply, nil
}

func (s *Reply) GetThread(ctx context.Context, threadId domain.ThreadId) (domain.ThreadView, error) {
	thread, err := s.storage.GetThread(ctx, threadId)
	if err != nil {
		return domain.ThreadView{}, err
	}
	return thread.View(), nil
}

// Report flags a reply. Anyone may report, no password involved.
func (s *Reply) Report(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) error {
	if err := s.storage.ReportReply(ctx, threadId, replyId); err != nil {
		metrics.RecordEvent(metrics.EntityReply, metrics.ActionReport, outcome(err))
		return err
	}
	metrics.RecordEvent(metrics.EntityReply, metrics.ActionReport, metrics.OutcomeOK)
	logger.Log.Info("reply reported", "component", "reply", "thread_id", threadId, "reply_id", replyId)
	return nil
}

// Delete soft-deletes the reply: its text becomes "[deleted]", the record stays in the thread.
func (s *Reply) Delete(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId, deletePassword domain.Password) error {
	reply, err := s.storage.GetReply(ctx, threadId, replyId)
	if err != nil {
		metrics.RecordEvent(metrics.EntityReply, metrics.ActionDelete, outcome(err))
		return err
	}
	if !passwordMatches(reply.DeletePassword, deletePassword) {
		metrics.RecordEvent(metrics.EntityReply, metrics.ActionDelete, metrics.OutcomeWrongPassword)
		return errors.ErrWrongPassword
	}

	if err := s.storage.MarkReplyDeleted(ctx, threadId, replyId); err != nil {
		metrics.RecordEvent(metrics.EntityReply, metrics.ActionDelete, outcome(err))
		return err
	}
	metrics.RecordEvent(metrics.EntityReply, metrics.ActionDelete, metrics.OutcomeOK)
	logger.Log.Info("reply deleted", "component", "reply", "thread_id", threadId, "reply_id", replyId)
	return nil
}
