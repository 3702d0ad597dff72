package objstore

import (
	"context"
	"errors"
)

var (
	errNotExist = errors.New("object does not exist")
	// errConflict means a generation precondition failed: someone else wrote the object first.
	errConflict = errors.New("object generation changed")
)

// Bucket is the object layer the document store runs on. Generations are
// positive and change on every write. Generation 0 in Write means the object
// must not exist yet.
type Bucket interface {
	Read(ctx context.Context, key string) (data []byte, generation int64, err error)
	Write(ctx context.Context, key string, data []byte, generation int64) error
	Delete(ctx context.Context, key string, generation int64) error
	List(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}
