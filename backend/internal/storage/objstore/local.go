package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// LocalBucket is a Bucket on a local directory, for development and tests.
// Each file starts with its generation on the first line. Preconditions hold
// for a single process only.
type LocalBucket struct {
	root string
	mu   sync.Mutex
}

func NewLocalBucket(root string) (*LocalBucket, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create bucket directory: %w", err)
	}
	return &LocalBucket{root: root}, nil
}

func (b *LocalBucket) path(key string) string {
	return filepath.Join(b.root, filepath.FromSlash(key))
}

func (b *LocalBucket) Read(ctx context.Context, key string) ([]byte, int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.read(key)
}

func (b *LocalBucket) read(key string) ([]byte, int64, error) {
	raw, err := os.ReadFile(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, errNotExist
		}
		return nil, 0, fmt.Errorf("read from local storage: %w", err)
	}

	header, data, ok := bytes.Cut(raw, []byte("\n"))
	if !ok {
		return nil, 0, fmt.Errorf("corrupt object %s: missing generation", key)
	}
	generation, err := strconv.ParseInt(string(header), 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("corrupt object %s: %w", key, err)
	}
	return data, generation, nil
}

func (b *LocalBucket) Write(ctx context.Context, key string, data []byte, generation int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, current, err := b.read(key)
	if err != nil && err != errNotExist {
		return err
	}
	if current != generation {
		return errConflict
	}

	path := b.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	content := append([]byte(strconv.FormatInt(current+1, 10)+"\n"), data...)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o600); err != nil {
		return fmt.Errorf("write to local storage: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write to local storage: %w", err)
	}
	return nil
}

func (b *LocalBucket) Delete(ctx context.Context, key string, generation int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, current, err := b.read(key)
	if err != nil {
		return err
	}
	if generation != 0 && current != generation {
		return errConflict
	}
	if err := os.Remove(b.path(key)); err != nil {
		return fmt.Errorf("delete from local storage: %w", err)
	}
	return nil
}

func (b *LocalBucket) List(ctx context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var keys []string
	err := filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		if key := filepath.ToSlash(rel); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list local storage: %w", err)
	}
	return keys, nil
}

func (b *LocalBucket) Ping(ctx context.Context) error {
	_, err := os.Stat(b.root)
	return err
}

func (b *LocalBucket) Close() error {
	return nil
}
