package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSBucket is a Bucket on Google Cloud Storage.
type GCSBucket struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// NewGCSBucket connects to the named bucket. An empty credentialsFile uses
// application default credentials.
func NewGCSBucket(ctx context.Context, name, credentialsFile string) (*GCSBucket, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSBucket{client: client, bucket: client.Bucket(name)}, nil
}

func (b *GCSBucket) Read(ctx context.Context, key string) ([]byte, int64, error) {
	r, err := b.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, 0, errNotExist
		}
		return nil, 0, fmt.Errorf("open storage reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("read from storage: %w", err)
	}
	return data, r.Attrs.Generation, nil
}

func (b *GCSBucket) Write(ctx context.Context, key string, data []byte, generation int64) error {
	obj := b.bucket.Object(key)
	if generation == 0 {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	} else {
		obj = obj.If(storage.Conditions{GenerationMatch: generation})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return mapGCSError(fmt.Errorf("write to storage: %w", err))
	}
	if err := w.Close(); err != nil {
		return mapGCSError(fmt.Errorf("close storage writer: %w", err))
	}
	return nil
}

func (b *GCSBucket) Delete(ctx context.Context, key string, generation int64) error {
	obj := b.bucket.Object(key)
	if generation != 0 {
		obj = obj.If(storage.Conditions{GenerationMatch: generation})
	}
	if err := obj.Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return errNotExist
		}
		return mapGCSError(fmt.Errorf("delete from storage: %w", err))
	}
	return nil
}

func (b *GCSBucket) List(ctx context.Context, prefix string) ([]string, error) {
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate storage: %w", err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (b *GCSBucket) Ping(ctx context.Context) error {
	_, err := b.bucket.Attrs(ctx)
	return err
}

func (b *GCSBucket) Close() error {
	return b.client.Close()
}

// mapGCSError turns a failed precondition into errConflict.
func mapGCSError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("%w: %v", errConflict, err)
	}
	return err
}
