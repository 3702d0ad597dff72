package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/anonboard/shared/config"
	"github.com/itchan-dev/anonboard/shared/domain"
	"github.com/itchan-dev/anonboard/shared/errors"
	"github.com/itchan-dev/anonboard/shared/logger"
	"github.com/itchan-dev/anonboard/shared/middleware/metrics"
)

type ThreadService interface {
	Create(ctx context.Context, board domain.BoardName, text domain.Text, deletePassword domain.Password) (domain.Thread, error)
	List(ctx context.Context, board domain.BoardName) ([]domain.ThreadView, error)
	Report(ctx context.Context, id domain.ThreadId) error
	Delete(ctx context.Context, id domain.ThreadId, deletePassword domain.Password) error
}

type Thread struct {
	storage   ThreadStorage
	validator TextValidator
	cfg       config.Public
	now       func() time.Time
}

type ThreadStorage interface {
	CreateThread(ctx context.Context, creationData domain.ThreadCreationData) (domain.Thread, error)
	GetThread(ctx context.Context, id domain.ThreadId) (domain.Thread, error)
	// ListThreads returns at most limit threads of the board, most recently bumped first,
	// each with at most nReplies newest replies (insertion order) and the total ReplyCount.
	ListThreads(ctx context.Context, board domain.BoardName, limit, nReplies int) ([]domain.Thread, error)
	ReportThread(ctx context.Context, id domain.ThreadId) error
	DeleteThread(ctx context.Context, id domain.ThreadId) error
}

type TextValidator interface {
	Text(text domain.Text) (domain.Text, error)
	Password(password domain.Password) error
}

func NewThread(storage ThreadStorage, validator TextValidator, cfg config.Public) *Thread {
	return &Thread{storage: storage, validator: validator, cfg: cfg, now: now}
}

// timestamps are kept at millisecond precision so every backend stores them losslessly
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *Thread) Create(ctx context.Context, board domain.BoardName, text domain.Text, deletePassword domain.Password) (domain.Thread, error) {
	text, err := s.validator.Text(text)
	if err == nil {
		err = s.validator.Password(deletePassword)
	}
	if err != nil {
		metrics.RecordEvent(metrics.EntityThread, metrics.ActionCreate, metrics.OutcomeInvalid)
		return domain.Thread{}, err
	}

	thread, err := s.storage.CreateThread(ctx, domain.ThreadCreationData{
		Id:             uuid.NewString(),
		Board:          board,
		Text:           text,
		DeletePassword: deletePassword,
		CreatedOn:      s.now(),
	})
	if err != nil {
		metrics.RecordEvent(metrics.EntityThread, metrics.ActionCreate, metrics.OutcomeError)
		return domain.Thread{}, err
	}

	metrics.RecordEvent(metrics.EntityThread, metrics.ActionCreate, metrics.OutcomeOK)
	logger.Log.Info("thread created", "component", "thread", "board", board, "thread_id", thread.Id)
	return thread, nil
}

func (s *Thread) List(ctx context.Context, board domain.BoardName) ([]domain.ThreadView, error) {
	threads, err := s.storage.ListThreads(ctx, board, s.cfg.ThreadsPerBoard, s.cfg.RepliesPerPreview)
	if err != nil {
		return nil, err
	}

	domain.SortByBump(threads)
	if len(threads) > s.cfg.ThreadsPerBoard {
		threads = threads[:s.cfg.ThreadsPerBoard]
	}

	views := make([]domain.ThreadView, len(threads))
	for i, t := range threads {
		views[i] = t.Preview(s.cfg.RepliesPerPreview)
	}
	return views, nil
}

// Report flags a thread. Anyone may report, no password involved.
func (s *Thread) Report(ctx context.Context, id domain.ThreadId) error {
	if err := s.storage.ReportThread(ctx, id); err != nil {
		metrics.RecordEvent(metrics.EntityThread, metrics.ActionReport, outcome(err))
		return err
	}
	metrics.RecordEvent(metrics.EntityThread, metrics.ActionReport, metrics.OutcomeOK)
	logger.Log.Info("thread reported", "component", "thread", "thread_id", id)
	return nil
}

// Delete removes the thread with all its replies if deletePassword matches.
func (s *Thread) Delete(ctx context.Context, id domain.ThreadId, deletePassword domain.Password) error {
	thread, err := s.storage.GetThread(ctx, id)
	if err != nil {
		metrics.RecordEvent(metrics.EntityThread, metrics.ActionDelete, outcome(err))
		return err
	}
	if !passwordMatches(thread.DeletePassword, deletePassword) {
		metrics.RecordEvent(metrics.EntityThread, metrics.ActionDelete, metrics.OutcomeWrongPassword)
		return errors.ErrWrongPassword
	}

	// the password is immutable, so a concurrent delete can only turn this into NotFound
	if err := s.storage.DeleteThread(ctx, id); err != nil {
		metrics.RecordEvent(metrics.EntityThread, metrics.ActionDelete, outcome(err))
		return err
	}
	metrics.RecordEvent(metrics.EntityThread, metrics.ActionDelete, metrics.OutcomeOK)
	logger.Log.Info("thread deleted", "component", "thread", "board", thread.Board, "thread_id", id)
	return nil
}

func passwordMatches(stored, given domain.Password) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func outcome(err error) string {
	if errors.IsNotFound(err) {
		return metrics.OutcomeNotFound
	}
	return metrics.OutcomeError
}
