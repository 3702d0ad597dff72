// Package memory keeps the board in process memory. Everything is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/itchan-dev/anonboard/shared/domain"
	"github.com/itchan-dev/anonboard/shared/errors"
)

type Storage struct {
	mu      sync.RWMutex
	threads map[domain.ThreadId]*domain.Thread
}

func New() *Storage {
	return &Storage{threads: make(map[domain.ThreadId]*domain.Thread)}
}

func (s *Storage) CreateThread(ctx context.Context, creationData domain.ThreadCreationData) (domain.Thread, error) {
	thread := domain.NewThread(creationData)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[thread.Id] = &thread
	return clone(&thread), nil
}

func (s *Storage) GetThread(ctx context.Context, id domain.ThreadId) (domain.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread, ok := s.threads[id]
	if !ok {
		return domain.Thread{}, errors.NotFound("Thread not found")
	}
	return clone(thread), nil
}

func (s *Storage) ListThreads(ctx context.Context, board domain.BoardName, limit, nReplies int) ([]domain.Thread, error) {
	s.mu.RLock()
	threads := make([]domain.Thread, 0)
	for _, t := range s.threads {
		if t.Board == board {
			threads = append(threads, *t)
		}
	}
	domain.SortByBump(threads)
	if len(threads) > limit {
		threads = threads[:limit]
	}
	// LatestReplies copies the reply slice, so the lock can be released afterwards
	for i := range threads {
		threads[i] = threads[i].LatestReplies(nReplies)
	}
	s.mu.RUnlock()
	return threads, nil
}

func (s *Storage) ReportThread(ctx context.Context, id domain.ThreadId) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[id]
	if !ok {
		return errors.NotFound("Thread not found")
	}
	thread.Reported = true
	return nil
}

func (s *Storage) DeleteThread(ctx context.Context, id domain.ThreadId) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threads[id]; !ok {
		return errors.NotFound("Thread not found")
	}
	delete(s.threads, id)
	return nil
}

func (s *Storage) CreateReply(ctx context.Context, creationData domain.ReplyCreationData) (domain.Reply, error) {
	reply := domain.NewReply(creationData)

	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[creationData.ThreadId]
	if !ok {
		return domain.Reply{}, errors.NotFound("Thread not found")
	}
	thread.Replies = append(thread.Replies, reply)
	thread.Bump(reply.CreatedOn)
	return reply, nil
}

func (s *Storage) GetReply(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) (domain.Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reply, err := s.findReply(threadId, replyId)
	if err != nil {
		return domain.Reply{}, err
	}
	return *reply, nil
}

func (s *Storage) ReportReply(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := s.findReply(threadId, replyId)
	if err != nil {
		return err
	}
	reply.Reported = true
	return nil
}

func (s *Storage) MarkReplyDeleted(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := s.findReply(threadId, replyId)
	if err != nil {
		return err
	}
	reply.Text = domain.DeletedReplyText
	return nil
}

func (s *Storage) Boards(ctx context.Context) ([]domain.BoardName, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[domain.BoardName]struct{})
	boards := make([]domain.BoardName, 0)
	for _, t := range s.threads {
		if _, ok := seen[t.Board]; !ok {
			seen[t.Board] = struct{}{}
			boards = append(boards, t.Board)
		}
	}
	sort.Strings(boards)
	return boards, nil
}

func (s *Storage) ThreadCount(ctx context.Context, board domain.BoardName) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, t := range s.threads {
		if t.Board == board {
			count++
		}
	}
	return count, nil
}

func (s *Storage) OldestThreadId(ctx context.Context, board domain.BoardName) (domain.ThreadId, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var oldest *domain.Thread
	for _, t := range s.threads {
		if t.Board != board {
			continue
		}
		if oldest == nil || domain.BumpedBefore(*t, *oldest) {
			oldest = t
		}
	}
	if oldest == nil {
		return "", errors.NotFound("Board has no threads")
	}
	return oldest.Id, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

func (s *Storage) Cleanup() error {
	return nil
}

// must be called with s.mu held
func (s *Storage) findReply(threadId domain.ThreadId, replyId domain.ReplyId) (*domain.Reply, error) {
	thread, ok := s.threads[threadId]
	if !ok {
		return nil, errors.NotFound("Thread not found")
	}
	reply, ok := thread.FindReply(replyId)
	if !ok {
		return nil, errors.NotFound("Reply not found")
	}
	return reply, nil
}

func clone(t *domain.Thread) domain.Thread {
	c := *t
	c.Replies = append(make([]domain.Reply, 0, len(t.Replies)), t.Replies...)
	c.ReplyCount = len(c.Replies)
	return c
}
