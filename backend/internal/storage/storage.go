// Package storage lists what every board backend has to provide.
package storage

import (
	"context"

	"github.com/itchan-dev/anonboard/shared/domain"
)

// Storage is implemented by the memory, pg, sqlite and objstore backends.
// Unknown thread or reply ids yield errors.NotFound.
type Storage interface {
	CreateThread(ctx context.Context, creationData domain.ThreadCreationData) (domain.Thread, error)
	GetThread(ctx context.Context, id domain.ThreadId) (domain.Thread, error)
	ListThreads(ctx context.Context, board domain.BoardName, limit, nReplies int) ([]domain.Thread, error)
	ReportThread(ctx context.Context, id domain.ThreadId) error
	DeleteThread(ctx context.Context, id domain.ThreadId) error

	CreateReply(ctx context.Context, creationData domain.ReplyCreationData) (domain.Reply, error)
	GetReply(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) (domain.Reply, error)
	ReportReply(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) error
	MarkReplyDeleted(ctx context.Context, threadId domain.ThreadId, replyId domain.ReplyId) error

	Boards(ctx context.Context) ([]domain.BoardName, error)
	ThreadCount(ctx context.Context, board domain.BoardName) (int, error)
	OldestThreadId(ctx context.Context, board domain.BoardName) (domain.ThreadId, error)

	Ping(ctx context.Context) error
	Cleanup() error
}
