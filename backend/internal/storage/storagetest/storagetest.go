// Package storagetest holds the behaviour every storage backend must share.
// Backend tests call Run with a constructor returning an empty store.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/anonboard/backend/internal/storage"
	"github.com/itchan-dev/anonboard/shared/domain"
	"github.com/itchan-dev/anonboard/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// Run executes the suite. newStore is called once per subtest and must return
// a store without any threads.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storage)
	}{
		{"CreateAndGetThread", testCreateAndGetThread},
		{"UnknownIds", testUnknownIds},
		{"ReplyBumpsThread", testReplyBumpsThread},
		{"ListThreads", testListThreads},
		{"ListThreadsEmptyBoard", testListThreadsEmptyBoard},
		{"ReportIsIdempotent", testReportIsIdempotent},
		{"DeleteThreadRemovesReplies", testDeleteThreadRemovesReplies},
		{"MarkReplyDeleted", testMarkReplyDeleted},
		{"GarbageCollectionQueries", testGarbageCollectionQueries},
		{"ConcurrentReplies", testConcurrentReplies},
		{"ThreadReadsAreConsistent", testThreadReadsAreConsistent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func createThread(t *testing.T, s storage.Storage, board domain.BoardName, createdOn time.Time) domain.Thread {
	t.Helper()
	thread, err := s.CreateThread(context.Background(), domain.ThreadCreationData{
		Id:             uuid.NewString(),
		Board:          board,
		Text:           "op on " + board,
		DeletePassword: "thread-pw",
		CreatedOn:      createdOn,
	})
	require.NoError(t, err)
	return thread
}

func createReply(t *testing.T, s storage.Storage, threadId domain.ThreadId, text domain.Text, createdOn time.Time) domain.Reply {
	t.Helper()
	reply, err := s.CreateReply(context.Background(), domain.ReplyCreationData{
		Id:             uuid.NewString(),
		ThreadId:       threadId,
		Text:           text,
		DeletePassword: "reply-pw",
		CreatedOn:      createdOn,
	})
	require.NoError(t, err)
	return reply
}

func assertSameTime(t *testing.T, want, got time.Time, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func testCreateAndGetThread(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	created := createThread(t, s, "b", base)
	assert.Equal(t, "b", created.Board)
	assert.Equal(t, "op on b", created.Text)
	assert.Equal(t, domain.Password("thread-pw"), created.DeletePassword)
	assertSameTime(t, base, created.CreatedOn)
	assertSameTime(t, base, created.BumpedOn)
	assert.False(t, created.Reported)
	assert.Empty(t, created.Replies)

	got, err := s.GetThread(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, created.Id, got.Id)
	assert.Equal(t, created.Board, got.Board)
	assert.Equal(t, created.Text, got.Text)
	assert.Equal(t, created.DeletePassword, got.DeletePassword)
	assertSameTime(t, base, got.CreatedOn)
	assertSameTime(t, base, got.BumpedOn)
	assert.NotNil(t, got.Replies)
	assert.Empty(t, got.Replies)
}

func testUnknownIds(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	thread := createThread(t, s, "b", base)
	missing := uuid.NewString()

	_, err := s.GetThread(ctx, missing)
	assert.True(t, errors.IsNotFound(err), "GetThread: %v", err)
	assert.True(t, errors.IsNotFound(s.ReportThread(ctx, missing)))
	assert.True(t, errors.IsNotFound(s.DeleteThread(ctx, missing)))

	_, err = s.CreateReply(ctx, domain.ReplyCreationData{
		Id: uuid.NewString(), ThreadId: missing, Text: "x", DeletePassword: "p", CreatedOn: base,
	})
	assert.True(t, errors.IsNotFound(err), "CreateReply: %v", err)

	for _, threadId := range []domain.ThreadId{missing, thread.Id} {
		_, err = s.GetReply(ctx, threadId, missing)
		assert.True(t, errors.IsNotFound(err), "GetReply: %v", err)
		assert.True(t, errors.IsNotFound(s.ReportReply(ctx, threadId, missing)))
		assert.True(t, errors.IsNotFound(s.MarkReplyDeleted(ctx, threadId, missing)))
	}

	// a reply id is only found under its own thread
	other := createThread(t, s, "b", base)
	reply := createReply(t, s, thread.Id, "hi", base.Add(time.Second))
	_, err = s.GetReply(ctx, other.Id, reply.Id)
	assert.True(t, errors.IsNotFound(err))
}

func testReplyBumpsThread(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	thread := createThread(t, s, "b", base)

	r1 := createReply(t, s, thread.Id, "first", base.Add(2*time.Second))
	assert.Equal(t, "first", r1.Text)
	assert.Equal(t, domain.Password("reply-pw"), r1.DeletePassword)
	assert.False(t, r1.Reported)

	got, err := s.GetThread(ctx, thread.Id)
	require.NoError(t, err)
	assertSameTime(t, base.Add(2*time.Second), got.BumpedOn)
	assertSameTime(t, base, got.CreatedOn, "created_on never changes")

	// an older timestamp is stored but does not move the bump back
	r2 := createReply(t, s, thread.Id, "second", base.Add(time.Second))

	got, err = s.GetThread(ctx, thread.Id)
	require.NoError(t, err)
	assertSameTime(t, base.Add(2*time.Second), got.BumpedOn)
	require.Len(t, got.Replies, 2)
	assert.Equal(t, r1.Id, got.Replies[0].Id, "replies keep insertion order")
	assert.Equal(t, r2.Id, got.Replies[1].Id)
	assertSameTime(t, base.Add(time.Second), got.Replies[1].CreatedOn)

	gotReply, err := s.GetReply(ctx, thread.Id, r2.Id)
	require.NoError(t, err)
	assert.Equal(t, "second", gotReply.Text)
	assert.Equal(t, domain.Password("reply-pw"), gotReply.DeletePassword)
}

func testListThreads(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	var threads []domain.Thread
	for i := range 5 {
		threads = append(threads, createThread(t, s, "list", base.Add(time.Duration(i)*time.Minute)))
	}
	createThread(t, s, "other", base.Add(time.Hour))

	// replying to the oldest thread moves it to the top
	for i := range 4 {
		createReply(t, s, threads[0].Id, fmt.Sprintf("r%d", i), base.Add(10*time.Minute+time.Duration(i)*time.Second))
	}

	got, err := s.ListThreads(ctx, "list", 3, 2)
	require.NoError(t, err)
	domain.SortByBump(got)
	require.Len(t, got, 3)
	assert.Equal(t, threads[0].Id, got[0].Id)
	assert.Equal(t, threads[4].Id, got[1].Id)
	assert.Equal(t, threads[3].Id, got[2].Id)

	require.Len(t, got[0].Replies, 2)
	assert.Equal(t, "r2", got[0].Replies[0].Text, "newest replies in insertion order")
	assert.Equal(t, "r3", got[0].Replies[1].Text)
	assert.Equal(t, 4, got[0].ReplyCount)
	assert.Equal(t, 0, got[1].ReplyCount)
	for _, th := range got {
		assert.Equal(t, "list", th.Board)
	}

	got, err = s.ListThreads(ctx, "list", 10, 0)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	for _, th := range got {
		assert.Empty(t, th.Replies)
	}
}

func testListThreadsEmptyBoard(t *testing.T, s storage.Storage) {
	got, err := s.ListThreads(context.Background(), "nobody-here", 10, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testReportIsIdempotent(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	thread := createThread(t, s, "b", base)
	reply := createReply(t, s, thread.Id, "hi", base.Add(time.Second))

	for range 2 {
		require.NoError(t, s.ReportThread(ctx, thread.Id))
		require.NoError(t, s.ReportReply(ctx, thread.Id, reply.Id))
	}

	got, err := s.GetThread(ctx, thread.Id)
	require.NoError(t, err)
	assert.True(t, got.Reported)
	require.Len(t, got.Replies, 1)
	assert.True(t, got.Replies[0].Reported)
	assertSameTime(t, base.Add(time.Second), got.BumpedOn, "reporting does not bump")
}

func testDeleteThreadRemovesReplies(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	thread := createThread(t, s, "b", base)
	keep := createThread(t, s, "b", base)
	reply := createReply(t, s, thread.Id, "hi", base.Add(time.Second))

	require.NoError(t, s.DeleteThread(ctx, thread.Id))

	_, err := s.GetThread(ctx, thread.Id)
	assert.True(t, errors.IsNotFound(err))
	_, err = s.GetReply(ctx, thread.Id, reply.Id)
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(s.DeleteThread(ctx, thread.Id)), "second delete")

	_, err = s.GetThread(ctx, keep.Id)
	assert.NoError(t, err)
}

func testMarkReplyDeleted(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	thread := createThread(t, s, "b", base)
	r1 := createReply(t, s, thread.Id, "one", base.Add(time.Second))
	r2 := createReply(t, s, thread.Id, "two", base.Add(2*time.Second))

	require.NoError(t, s.MarkReplyDeleted(ctx, thread.Id, r1.Id))
	require.NoError(t, s.MarkReplyDeleted(ctx, thread.Id, r1.Id))

	got, err := s.GetThread(ctx, thread.Id)
	require.NoError(t, err)
	require.Len(t, got.Replies, 2, "deleted reply stays in the thread")
	assert.Equal(t, r1.Id, got.Replies[0].Id)
	assert.Equal(t, domain.DeletedReplyText, got.Replies[0].Text)
	assert.Equal(t, "two", got.Replies[1].Text)
	assert.Equal(t, r2.Id, got.Replies[1].Id)
	assertSameTime(t, base.Add(time.Second), got.Replies[0].CreatedOn)
}

func testGarbageCollectionQueries(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	boards, err := s.Boards(ctx)
	require.NoError(t, err)
	assert.Empty(t, boards)
	_, err = s.OldestThreadId(ctx, "gc")
	assert.True(t, errors.IsNotFound(err))

	first := createThread(t, s, "gc", base)
	second := createThread(t, s, "gc", base.Add(time.Minute))
	createThread(t, s, "other", base)

	boards, err = s.Boards(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.BoardName{"gc", "other"}, boards)

	count, err := s.ThreadCount(ctx, "gc")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	oldest, err := s.OldestThreadId(ctx, "gc")
	require.NoError(t, err)
	assert.Equal(t, first.Id, oldest)

	createReply(t, s, first.Id, "bump", base.Add(time.Hour))
	oldest, err = s.OldestThreadId(ctx, "gc")
	require.NoError(t, err)
	assert.Equal(t, second.Id, oldest, "bumped thread is no longer the oldest")

	require.NoError(t, s.DeleteThread(ctx, second.Id))
	require.NoError(t, s.DeleteThread(ctx, first.Id))
	count, err = s.ThreadCount(ctx, "gc")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	boards, err = s.Boards(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.BoardName{"other"}, boards)
}

func testConcurrentReplies(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	thread := createThread(t, s, "b", base)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateReply(ctx, domain.ReplyCreationData{
				Id:             uuid.NewString(),
				ThreadId:       thread.Id,
				Text:           fmt.Sprintf("r%d", i),
				DeletePassword: "p",
				CreatedOn:      base.Add(time.Duration(i+1) * time.Second),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetThread(ctx, thread.Id)
	require.NoError(t, err)
	assert.Len(t, got.Replies, n, "no reply may be lost")
	assertSameTime(t, base.Add(n*time.Second), got.BumpedOn)
}

// Every read must show bumped_on equal to the newest reply it returns, even
// while replies keep arriving.
func testThreadReadsAreConsistent(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	thread := createThread(t, s, "b", base)

	const n = 20
	done := make(chan struct{})
	writeErr := make(chan error, 1)
	go func() {
		defer close(done)
		for i := range n {
			_, err := s.CreateReply(ctx, domain.ReplyCreationData{
				Id:             uuid.NewString(),
				ThreadId:       thread.Id,
				Text:           fmt.Sprintf("r%d", i),
				DeletePassword: "p",
				CreatedOn:      base.Add(time.Duration(i+1) * time.Second),
			})
			if err != nil {
				writeErr <- err
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				got, err := s.GetThread(ctx, thread.Id)
				if !assert.NoError(t, err) {
					return
				}
				want := got.CreatedOn
				if len(got.Replies) > 0 {
					want = got.Replies[len(got.Replies)-1].CreatedOn
				}
				if !want.Equal(got.BumpedOn) {
					assert.Fail(t, "stale bump", "bumped_on %s with %d replies, newest at %s",
						got.BumpedOn, len(got.Replies), want)
					return
				}
			}
		}()
	}
	wg.Wait()

	select {
	case err := <-writeErr:
		require.NoError(t, err)
	default:
	}
	got, err := s.GetThread(ctx, thread.Id)
	require.NoError(t, err)
	assert.Len(t, got.Replies, n)
}
